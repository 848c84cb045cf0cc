package api

import (
	"time"

	"github.com/shelfsight/shelfsight/server/internal/compute"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status     string     `json:"status"` // "ok" | "waiting"
	Generation uint64     `json:"generation"`
	ReportID   string     `json:"report_id,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	AlertCount int        `json:"alert_count"`
}

// SummaryResponse is the payload for GET /api/v1/summary.
type SummaryResponse struct {
	compute.Summary
	ReportID    string    `json:"report_id"`
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generated_at"`
}

// ProductsResponse is the payload for the product list endpoints.
type ProductsResponse struct {
	Count    int                     `json:"count"`
	Products []compute.ScoredProduct `json:"products"`
}

// ReportInfo is one entry of GET /api/v1/reports.
type ReportInfo struct {
	ID          string    `json:"id"`
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generated_at"`
	LoadedAt    time.Time `json:"loaded_at"`
	Source      string    `json:"source"`
	RecordCount int       `json:"record_count"`
	Current     bool      `json:"current"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
