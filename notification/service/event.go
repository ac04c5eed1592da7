package service

import (
	"time"

	"github.com/google/uuid"
)

// ReportEvent matches the JSON format of the consumer's breadcrumbs.reports topic.
type ReportEvent struct {
	ID        uuid.UUID      `json:"id"`
	RunID     uuid.UUID      `json:"run_id"`
	Kind      string         `json:"kind"` // "anomaly" or "schema"
	RowsIn    int            `json:"rows_in"`
	RowsOut   int            `json:"rows_out"`
	Dropped   map[string]int `json:"dropped,omitempty"`
	Entries   []ReportEntry  `json:"entries"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type ReportEntry struct {
	Stage   string `json:"stage"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
