// internal/models/search.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Facet names accepted by the search index
const (
	FacetCategory       = "category"
	FacetReportType     = "report_type"
	FacetAccessLevel    = "access_level"
	FacetLifecycleState = "lifecycle_state"
	FacetTeam           = "team"
	FacetLineage        = "lineage"
)

// Lineage facet values
const (
	LineageHasUpstream   = "has-upstream"
	LineageHasDownstream = "has-downstream"
)

// SearchDocument is the denormalized projection of one asset held by the
// search index. It is derived data; the asset store stays authoritative.
type SearchDocument struct {
	AssetID        uuid.UUID `json:"asset_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	Category       string    `json:"category,omitempty"`
	ReportType     string    `json:"report_type,omitempty"`
	AccessLevel    string    `json:"access_level"`
	LifecycleState string    `json:"lifecycle_state"`
	Team           string    `json:"team,omitempty"`
	OwnerName      string    `json:"owner_name,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	MetadataText   []string  `json:"-"`
	HasUpstream    bool      `json:"has_upstream"`
	HasDownstream  bool      `json:"has_downstream"`
	Version        int64     `json:"version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FacetValues returns the document's values for a facet name. Unknown facet
// names return nil, which never matches a filter.
func (d *SearchDocument) FacetValues(name string) []string {
	switch name {
	case FacetCategory:
		if d.Category == "" {
			return nil
		}
		return []string{d.Category}
	case FacetReportType:
		if d.ReportType == "" {
			return nil
		}
		return []string{d.ReportType}
	case FacetAccessLevel:
		return []string{d.AccessLevel}
	case FacetLifecycleState:
		return []string{d.LifecycleState}
	case FacetTeam:
		if d.Team == "" {
			return nil
		}
		return []string{d.Team}
	case FacetLineage:
		var values []string
		if d.HasUpstream {
			values = append(values, LineageHasUpstream)
		}
		if d.HasDownstream {
			values = append(values, LineageHasDownstream)
		}
		return values
	}
	return nil
}
