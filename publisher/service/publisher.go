package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/lai/breadcrumbs/observability"
	"github.com/lai/breadcrumbs/vehicles"
)

type Producer interface {
	PublishRaw(ctx context.Context, key string, values ...[]byte) error
	Topic() string
	Close() error
}

// Source yields the raw breadcrumbs of a vehicle.
type Source interface {
	Fetch(ctx context.Context, vehicleID int64) ([][]byte, error)
}

// Stats summarises one publish cycle.
type Stats struct {
	Vehicles  int `json:"vehicles"`
	Published int `json:"published"`
	Missing   int `json:"missing"` // vehicles without data
	Failed    int `json:"failed"`  // vehicles whose fetch failed
}

// Publisher walks the reference vehicles and publishes their breadcrumbs,
// one message per breadcrumb keyed by vehicle id.
type Publisher struct {
	source   Source
	producer Producer
	vehicles func() *vehicles.Set
}

func NewPublisher(source Source, producer Producer, vehicles func() *vehicles.Set) *Publisher {
	return &Publisher{source: source, producer: producer, vehicles: vehicles}
}

// PublishAll runs one cycle. A failed fetch skips the vehicle; a failed
// publish aborts the cycle.
func (p *Publisher) PublishAll(ctx context.Context) (Stats, error) {
	start := time.Now()
	ids := p.vehicles().IDs()
	stats := Stats{Vehicles: len(ids)}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		msgs, err := p.source.Fetch(ctx, id)
		if errors.Is(err, ErrNoData) {
			stats.Missing++
			slog.Debug("no breadcrumbs for vehicle", "vehicle_id", id)
			continue
		}
		if err != nil {
			stats.Failed++
			observability.FetchErrors.Inc()
			slog.Warn("fetch failed", "vehicle_id", id, "error", err)
			continue
		}

		if err := p.producer.PublishRaw(ctx, strconv.FormatInt(id, 10), msgs...); err != nil {
			return stats, fmt.Errorf("publish vehicle %d: %w", id, err)
		}
		stats.Published += len(msgs)
		observability.Published.WithLabelValues(p.producer.Topic()).Add(float64(len(msgs)))
	}

	slog.Info("publish cycle complete",
		"vehicles", stats.Vehicles,
		"count", stats.Published,
		"missing", stats.Missing,
		"failed", stats.Failed,
		"duration", time.Since(start),
	)
	return stats, nil
}
