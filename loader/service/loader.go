package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/lai/breadcrumbs/observability"
	"github.com/lai/breadcrumbs/pipeline"
)

type Store interface {
	Load(ctx context.Context, trips []pipeline.Trip, crumbs []pipeline.Breadcrumb) (int64, error)
}

// Summary totals a loader run over several files.
type Summary struct {
	Files    int
	RowsIn   int
	RowsOut  int
	Inserted int64
	Rejected int // files that broke the column contract
}

// Loader validates breadcrumb dump files (one JSON array per file, as the
// upstream API returns them) and loads each as one batch.
type Loader struct {
	pipeline *pipeline.Pipeline
	vehicles pipeline.VehicleSet
	store    Store
}

func NewLoader(p *pipeline.Pipeline, vehicles pipeline.VehicleSet, store Store) *Loader {
	return &Loader{pipeline: p, vehicles: vehicles, store: store}
}

// LoadFiles processes paths in order. A file that breaks the column
// contract is skipped; any other failure stops the run.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (Summary, error) {
	var sum Summary
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, n, err := l.loadFile(ctx, path)
		sum.Files++
		sum.RowsIn += res.Run.RowsIn
		sum.RowsOut += res.Run.RowsOut
		sum.Inserted += n
		if errors.Is(err, pipeline.ErrSchema) {
			sum.Rejected++
			slog.Error("file rejected", "path", path, "error", err)
			continue
		}
		if err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (pipeline.Result, int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Result{}, 0, fmt.Errorf("read %s: %w", path, err)
	}
	batch, decodeErrs := pipeline.DecodeArray(data)
	if len(decodeErrs) > 0 {
		observability.DecodeErrors.Add(float64(len(decodeErrs)))
		slog.Warn("undecodable breadcrumbs", "path", path, "count", len(decodeErrs), "first_error", decodeErrs[0].Error())
	}

	res, err := l.pipeline.Run(batch, l.vehicles)
	observability.ObserveRun(res, err)
	if err != nil {
		return res, 0, err
	}
	n, err := l.store.Load(ctx, res.Trips(), res.Breadcrumbs)
	if err != nil {
		observability.LoadErrors.Inc()
		return res, 0, fmt.Errorf("load %s: %w", path, err)
	}
	slog.Info("file loaded", "path", path, "count", n, "run_id", res.Run.ID.String())
	return res, n, nil
}
