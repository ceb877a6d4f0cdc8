// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/models"
)

func Initialize(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if !cfg.IsProduction() {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Minute)

	return db, nil
}

// AllModels lists every persisted model for migration, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Category{},
		&models.ReportType{},
		&models.Team{},
		&models.TeamMember{},
		&models.Asset{},
		&models.ApprovalHistoryEntry{},
		&models.AssetRelationship{},
		&models.UserFavorite{},
		&models.Notification{},
	}
}

func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Postgres-only indexes. The sqlite test driver skips these; AutoMigrate
	// already created the uniqueness constraints the logic depends on.
	if db.Dialector.Name() == "postgres" {
		indexes := []string{
			`CREATE INDEX IF NOT EXISTS idx_assets_title_fts ON assets
			 USING gin(to_tsvector('english', coalesce(title,'') || ' ' || coalesce(description,'')))`,
			`CREATE INDEX IF NOT EXISTS idx_relationships_source_status ON asset_relationships (source_asset_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_relationships_target_status ON asset_relationships (target_asset_id, status)`,
			`CREATE INDEX IF NOT EXISTS idx_assets_state_updated ON assets (lifecycle_state, updated_at DESC)`,
		}
		for _, idx := range indexes {
			if err := db.Exec(idx).Error; err != nil {
				logrus.WithError(err).Warn("failed to create index")
			}
		}
	}

	logrus.Info("database migrations completed")
	return nil
}

// SeedInitialData creates the bootstrap admin and default reference data.
// Safe to run repeatedly.
func SeedInitialData(db *gorm.DB, cfg *config.Config) error {
	var adminCount int64
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&adminCount).Error; err != nil {
		return err
	}
	if adminCount == 0 {
		admin := &models.User{
			Username:    "admin",
			Email:       "admin@localhost",
			DisplayName: "Administrator",
			Role:        models.RoleAdmin,
			IsActive:    true,
		}
		password := "admin123!"
		if cfg.IsProduction() {
			password = ""
		}
		if password == "" {
			logrus.Warn("no bootstrap admin password in production; create the admin manually")
		} else {
			if err := admin.SetPassword(password); err != nil {
				return err
			}
			if err := db.Create(admin).Error; err != nil {
				return err
			}
			logrus.Info("created bootstrap admin user")
		}
	}

	categories := []models.Category{
		{Name: "Sales", Description: "Revenue and pipeline data", ColorCode: "#2563eb", IsActive: true},
		{Name: "Finance", Description: "Accounting and financial reporting", ColorCode: "#16a34a", IsActive: true},
		{Name: "Operations", Description: "Operational and logistics data", ColorCode: "#d97706", IsActive: true},
		{Name: "Marketing", Description: "Campaign and audience data", ColorCode: "#db2777", IsActive: true},
	}
	for _, category := range categories {
		var count int64
		db.Model(&models.Category{}).Where("name = ?", category.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&category).Error; err != nil {
				return err
			}
		}
	}

	reportTypes := []models.ReportType{
		{
			Name:           "Dashboard",
			Description:    "Interactive dashboard",
			RequiredFields: models.StringList{"refresh_schedule", "data_source"},
			IsActive:       true,
		},
		{
			Name:           "Dataset",
			Description:    "Curated dataset or table",
			RequiredFields: models.StringList{"data_source"},
			IsActive:       true,
		},
		{
			Name:        "Ad-hoc Report",
			Description: "One-off analysis",
			IsActive:    true,
		},
	}
	for _, rt := range reportTypes {
		var count int64
		db.Model(&models.ReportType{}).Where("name = ?", rt.Name).Count(&count)
		if count == 0 {
			if err := db.Create(&rt).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
