package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UpsertTrips queues one UpsertTrip per trip in a single round trip.
// Existing trips are left untouched.
func (q *Queries) UpsertTrips(ctx context.Context, trips []UpsertTripParams) error {
	if len(trips) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, t := range trips {
		b.Queue(upsertTrip, t.TripID, t.VehicleID)
	}
	if err := q.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upsert trips: %w", err)
	}
	return nil
}

// BulkInsertBreadcrumbs loads rows with COPY. Column order matches the
// breadcrumb table.
func (q *Queries) BulkInsertBreadcrumbs(ctx context.Context, rows []Breadcrumb) (int64, error) {
	n, err := q.db.CopyFrom(
		ctx,
		pgx.Identifier{"breadcrumb"},
		[]string{"tstamp", "latitude", "longitude", "speed", "trip_id"},
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{r.Tstamp, r.Latitude, r.Longitude, r.Speed, r.TripID}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("copy breadcrumbs: %w", err)
	}
	return n, nil
}
