package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/lai/breadcrumbs/pipeline"
)

// ReportEvent is published to the breadcrumbs.reports Kafka topic when a
// run needs an operator's attention.
type ReportEvent struct {
	ID        uuid.UUID        `json:"id"`
	RunID     uuid.UUID        `json:"run_id"`
	Kind      pipeline.Kind    `json:"kind"` // "anomaly" or "schema"
	RowsIn    int              `json:"rows_in"`
	RowsOut   int              `json:"rows_out"`
	Dropped   map[string]int   `json:"dropped,omitempty"`
	Entries   []pipeline.Entry `json:"entries"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// reportFor returns the event for res, or false if nothing needs reporting.
func reportFor(res pipeline.Result, runErr error) (ReportEvent, bool) {
	var kind pipeline.Kind
	switch {
	case runErr != nil:
		kind = pipeline.KindSchema
	case res.Report != nil && res.Report.HasKind(pipeline.KindAnomaly):
		kind = pipeline.KindAnomaly
	default:
		return ReportEvent{}, false
	}
	evt := ReportEvent{
		ID:        uuid.New(),
		RunID:     res.Run.ID,
		Kind:      kind,
		RowsIn:    res.Run.RowsIn,
		RowsOut:   res.Run.RowsOut,
		Dropped:   res.Run.Dropped,
		Timestamp: time.Now().UTC(),
	}
	if res.Report != nil {
		evt.Entries = res.Report.Entries()
	}
	if runErr != nil {
		evt.Error = runErr.Error()
	}
	return evt, true
}
