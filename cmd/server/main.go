// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dataatlas/catalog-backend/internal/config"
	"github.com/dataatlas/catalog-backend/internal/database"
	"github.com/dataatlas/catalog-backend/internal/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if err := database.SeedInitialData(db, cfg); err != nil {
		log.Fatalf("Failed to seed initial data: %v", err)
	}

	engine, search, err := router.Initialize(db, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize router: %v", err)
	}

	// Warm the search projection before serving, then run the change
	// consumer for the lifetime of the process.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := search.Rebuild(warmCtx); err != nil {
		log.Printf("Initial index build failed, continuing with empty index: %v", err)
	}
	cancelWarm()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- search.Start(consumerCtx)
	}()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	stopConsumer()
	select {
	case <-consumerDone:
	case <-time.After(5 * time.Second):
	}

	log.Println("Server exited")
}
