package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/lai/breadcrumbs/observability"
	"github.com/lai/breadcrumbs/pipeline"
	"github.com/lai/breadcrumbs/vehicles"
)

// Store persists a validated batch atomically.
type Store interface {
	Load(ctx context.Context, trips []pipeline.Trip, crumbs []pipeline.Breadcrumb) (int64, error)
}

type EventProducer interface {
	Publish(ctx context.Context, key string, v any) error
}

// LiveFeed receives breadcrumbs once they are stored.
type LiveFeed interface {
	Push(crumbs []pipeline.Breadcrumb)
}

// BatchHandler turns one Kafka batch into rows in the database.
type BatchHandler struct {
	pipeline *pipeline.Pipeline
	vehicles func() *vehicles.Set
	store    Store
	reports  EventProducer
	hub      LiveFeed
}

func NewBatchHandler(p *pipeline.Pipeline, vehicles func() *vehicles.Set, store Store, reports EventProducer, hub LiveFeed) *BatchHandler {
	return &BatchHandler{pipeline: p, vehicles: vehicles, store: store, reports: reports, hub: hub}
}

// Handle validates and loads msgs. It returns an error only when the batch
// should be handed over again: no reference set yet, or a failed load. A
// batch that breaks the column contract is reported and dropped.
func (h *BatchHandler) Handle(ctx context.Context, msgs []kafka.Message) error {
	values := make([][]byte, len(msgs))
	for i, m := range msgs {
		values[i] = m.Value
	}
	batch, decodeErrs := pipeline.Decode(values)
	if len(decodeErrs) > 0 {
		observability.DecodeErrors.Add(float64(len(decodeErrs)))
		slog.Warn("undecodable breadcrumbs",
			"count", len(decodeErrs),
			"first_error", decodeErrs[0].Error(),
		)
	}

	set := h.vehicles()
	if set == nil {
		return errors.New("vehicle reference set not loaded")
	}

	res, err := h.pipeline.Run(batch, set)
	observability.ObserveRun(res, err)
	if err != nil && !errors.Is(err, pipeline.ErrSchema) {
		return err
	}
	if err != nil {
		h.report(ctx, res, err)
		return nil
	}

	n, err := h.store.Load(ctx, res.Trips(), res.Breadcrumbs)
	if err != nil {
		observability.LoadErrors.Inc()
		return fmt.Errorf("run %s: %w", res.Run.ID, err)
	}
	slog.Info("inserted breadcrumbs", "count", n, "run_id", res.Run.ID.String())

	if h.hub != nil {
		h.hub.Push(res.Breadcrumbs)
	}
	h.report(ctx, res, nil)
	return nil
}

func (h *BatchHandler) report(ctx context.Context, res pipeline.Result, runErr error) {
	evt, ok := reportFor(res, runErr)
	if !ok || h.reports == nil {
		return
	}
	if err := h.reports.Publish(ctx, evt.RunID.String(), evt); err != nil {
		slog.Error("publish report failed", "error", err, "run_id", evt.RunID.String())
		return
	}
	observability.Published.WithLabelValues("reports").Inc()
}
