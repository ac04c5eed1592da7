// Package pipeline validates raw vehicle breadcrumbs and turns them into
// clean, speed-annotated rows for the trip and breadcrumb tables.
//
// A run is a pure function of one complete batch and a reference set of
// vehicle ids. Bad rows are dropped and reported; only a broken column
// contract fails the run.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrSchema marks a batch whose required columns are absent, on input or
// on output. Nothing from such a run may be persisted.
var ErrSchema = errors.New("schema violation")

// VehicleSet is the reference set of vehicle ids a run may accept.
type VehicleSet interface {
	Contains(id int64) bool
}

// Run holds the bookkeeping of one pipeline invocation.
type Run struct {
	ID        uuid.UUID      `json:"id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	RowsIn    int            `json:"rows_in"`
	RowsOut   int            `json:"rows_out"`
	Dropped   map[string]int `json:"dropped"` // by stage name
}

// Result is the outcome of a run.
type Result struct {
	Run         Run
	Breadcrumbs []Breadcrumb
	Report      *Report
}

// Trips returns one (trip, vehicle) pair per trip id, in order of first
// appearance. The first vehicle seen for a trip wins.
func (r Result) Trips() []Trip {
	seen := make(map[int64]struct{})
	var trips []Trip
	for _, b := range r.Breadcrumbs {
		if _, ok := seen[b.TripID]; ok {
			continue
		}
		seen[b.TripID] = struct{}{}
		trips = append(trips, Trip{TripID: b.TripID, VehicleID: b.VehicleID})
	}
	return trips
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithReportSink makes every run write its report entries to w as they
// are recorded.
func WithReportSink(w io.Writer) Option {
	return func(p *Pipeline) { p.sink = w }
}

// Pipeline runs the ordered validation stages.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	sink   io.Writer
}

func New(cfg Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Config() Config { return p.cfg }

// stages returns the stage order. Timestamp derivation sorts the batch and
// speed derivation relies on that order.
func (p *Pipeline) stages(vehicles VehicleSet) []stage {
	return []stage{
		{StagePrune, pruneColumns},
		{StageDistance, filterDistance},
		{StageElapsed, filterElapsed},
		{StageTimestamp, deriveTimestamps},
		{StageTrip, requireTrip},
		{StageVehicle, referentialIntegrity(vehicles)},
		{StageSpeed, deriveSpeed(p.cfg.SpeedCeiling)},
		{StageLatitude, requireLatitude},
		{StageLongitude, requireLongitude},
		{StageAudit, audit(p.cfg.MeanSpeedLimit)},
	}
}

// Run validates batch against vehicles. The batch is not modified. An
// empty batch yields an empty result and no error; an error is returned
// only for a missing reference set or a column contract break (ErrSchema).
func (p *Pipeline) Run(batch Batch, vehicles VehicleSet) (Result, error) {
	run := Run{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		RowsIn:    batch.Len(),
		Dropped:   make(map[string]int),
	}
	report := NewReport(p.sink)
	log := p.logger.With("run_id", run.ID.String())

	finish := func(crumbs []Breadcrumb) Result {
		run.RowsOut = len(crumbs)
		run.Duration = time.Since(run.StartedAt)
		return Result{Run: run, Breadcrumbs: crumbs, Report: report}
	}

	if vehicles == nil {
		return finish(nil), errors.New("pipeline: nil vehicle set")
	}

	if batch.Len() == 0 || len(batch.Columns) == 0 {
		report.Add(Entry{
			Stage:   StageGuard,
			Kind:    KindInfo,
			Message: fmt.Sprintf("empty batch (%d rows, %d columns), nothing to validate", batch.Len(), len(batch.Columns)),
		})
		log.Info("empty breadcrumb batch")
		return finish(nil), nil
	}

	if missing := missingInputColumns(batch.Columns); len(missing) > 0 {
		msg := "input missing columns " + strings.Join(missing, ", ")
		report.Add(Entry{Stage: StageGuard, Kind: KindSchema, Message: msg})
		log.Error("breadcrumb batch rejected", "reason", msg)
		return finish(nil), fmt.Errorf("%w: %s", ErrSchema, msg)
	}

	work := batch.clone()
	for _, st := range p.stages(vehicles) {
		before := work.Len()
		var entries []Entry
		work, entries = st.apply(work)
		report.Add(entries...)
		if n := before - work.Len(); n > 0 {
			run.Dropped[st.name] += n
		}
		for _, e := range entries {
			switch e.Kind {
			case KindViolation:
				log.Warn("stage post-condition failed", "stage", e.Stage, "message", e.Message)
			case KindAnomaly:
				log.Warn("breadcrumb anomaly", "stage", e.Stage, "message", e.Message)
			}
		}
	}

	crumbs, entries, err := project(work)
	report.Add(entries...)
	if err != nil {
		log.Error("breadcrumb batch rejected", "error", err)
		return finish(nil), err
	}
	if n := work.Len() - len(crumbs); n > 0 {
		run.Dropped[StageContract] += n
	}

	res := finish(crumbs)
	log.Info("breadcrumb batch validated",
		"rows_in", run.RowsIn,
		"rows_out", run.RowsOut,
		"report_entries", report.Len(),
		"duration", run.Duration,
	)
	return res, nil
}
