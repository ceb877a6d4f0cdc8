// internal/models/reference.go
package models

// Category groups assets for browsing and faceting
type Category struct {
	BaseModel
	Name        string `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description string `json:"description,omitempty" gorm:"type:text"`
	ColorCode   string `json:"color_code,omitempty" gorm:"size:7"`
	Icon        string `json:"icon,omitempty" gorm:"size:50"`
	IsActive    bool   `json:"is_active" gorm:"default:true"`
}

// ReportType describes a kind of report asset. RequiredFields names the
// metadata keys an asset of this type must carry before submission.
type ReportType struct {
	BaseModel
	Name           string     `json:"name" gorm:"uniqueIndex;size:100;not null"`
	Description    string     `json:"description,omitempty" gorm:"type:text"`
	TemplateSchema JSONB      `json:"template_schema,omitempty" gorm:"type:jsonb"`
	RequiredFields StringList `json:"required_fields,omitempty" gorm:"type:jsonb"`
	ColorCode      string     `json:"color_code,omitempty" gorm:"size:7"`
	Icon           string     `json:"icon,omitempty" gorm:"size:50"`
	IsActive       bool       `json:"is_active" gorm:"default:true"`
}

// MissingFields returns the required metadata keys absent or empty in the
// given metadata map.
func (rt *ReportType) MissingFields(metadata JSONB) []string {
	var missing []string
	for _, field := range rt.RequiredFields {
		value, ok := metadata[field]
		if !ok || value == nil || value == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
