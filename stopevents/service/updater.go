package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/segmentio/kafka-go"

	"github.com/lai/breadcrumbs/db"
	"github.com/lai/breadcrumbs/observability"
)

type Querier interface {
	UpsertTripService(ctx context.Context, arg db.UpsertTripServiceParams) error
}

// Updater records route, service day and direction on trips.
type Updater struct {
	queries Querier
}

func NewUpdater(queries Querier) *Updater {
	return &Updater{queries: queries}
}

// HandleBatch validates the stop events in msgs and upserts one row per
// trip. Invalid events are dropped and counted. A database error fails the
// batch so it is retried; the upsert is idempotent.
func (u *Updater) HandleBatch(ctx context.Context, msgs []kafka.Message) error {
	trips, invalid := Collect(msgs)
	if invalid > 0 {
		observability.InvalidStopEvents.Add(float64(invalid))
	}

	for _, t := range trips {
		err := u.queries.UpsertTripService(ctx, db.UpsertTripServiceParams{
			TripID:     t.TripID,
			VehicleID:  pgtype.Int8{Int64: t.VehicleID, Valid: true},
			RouteID:    pgtype.Int8{Int64: t.RouteID, Valid: true},
			ServiceKey: db.NullServiceType{ServiceType: t.ServiceKey, Valid: true},
			Direction:  db.NullTripdirType{TripdirType: t.Direction, Valid: true},
		})
		if err != nil {
			return fmt.Errorf("upsert trip %d: %w", t.TripID, err)
		}
	}

	slog.Info("stop events processed",
		"count", len(msgs),
		"trips", len(trips),
		"invalid", invalid,
	)
	return nil
}

// Collect decodes and transforms msgs, keeping the first valid event of
// each trip in order of appearance.
func Collect(msgs []kafka.Message) (trips []TripService, invalid int) {
	seen := make(map[int64]bool)
	for _, msg := range msgs {
		raw, err := Decode(msg.Value)
		if err != nil {
			invalid++
			slog.Debug("undecodable stop event", "offset", msg.Offset, "error", err)
			continue
		}
		t, err := raw.Transform()
		if err != nil {
			invalid++
			slog.Debug("invalid stop event", "offset", msg.Offset, "error", err)
			continue
		}
		if seen[t.TripID] {
			continue
		}
		seen[t.TripID] = true
		trips = append(trips, t)
	}
	return trips, invalid
}
