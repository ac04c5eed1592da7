package observability

import (
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/lai/breadcrumbs/pipeline"
)

func TestObserveRun(t *testing.T) {
	report := pipeline.NewReport(nil)
	report.Add(pipeline.Entry{Stage: pipeline.StageAudit, Kind: pipeline.KindAnomaly, Message: "high"})
	res := pipeline.Result{
		Run: pipeline.Run{
			RowsIn:  10,
			RowsOut: 7,
			Dropped: map[string]int{pipeline.StageDistance: 2, pipeline.StageSpeed: 1},
		},
		Report: report,
	}

	batches := testutil.ToFloat64(BatchesValidated)
	in := testutil.ToFloat64(RowsIn)
	dropped := testutil.ToFloat64(RowsDropped.WithLabelValues(pipeline.StageDistance))
	anomalies := testutil.ToFloat64(Anomalies)
	schema := testutil.ToFloat64(SchemaErrors)

	ObserveRun(res, nil)
	ObserveRun(pipeline.Result{Report: pipeline.NewReport(nil)}, pipeline.ErrSchema)

	if got := testutil.ToFloat64(BatchesValidated) - batches; got != 2 {
		t.Errorf("batches += %v, want 2", got)
	}
	if got := testutil.ToFloat64(RowsIn) - in; got != 10 {
		t.Errorf("rows in += %v, want 10", got)
	}
	if got := testutil.ToFloat64(RowsDropped.WithLabelValues(pipeline.StageDistance)) - dropped; got != 2 {
		t.Errorf("distance drops += %v, want 2", got)
	}
	if got := testutil.ToFloat64(Anomalies) - anomalies; got != 1 {
		t.Errorf("anomalies += %v, want 1", got)
	}
	if got := testutil.ToFloat64(SchemaErrors) - schema; got != 1 {
		t.Errorf("schema errors += %v, want 1", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"chatty":  slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
