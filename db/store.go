package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lai/breadcrumbs/pipeline"
)

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store loads validated batches.
type Store struct {
	db TxBeginner
}

func NewStore(db TxBeginner) *Store {
	return &Store{db: db}
}

// Load writes the trips and then the breadcrumbs of one batch in a single
// transaction. Trips that already exist are kept as they are.
func (s *Store) Load(ctx context.Context, trips []pipeline.Trip, crumbs []pipeline.Breadcrumb) (int64, error) {
	if len(crumbs) == 0 {
		return 0, nil
	}
	var n int64
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		q := New(tx)
		if err := q.UpsertTrips(ctx, TripParams(trips)); err != nil {
			return err
		}
		var err error
		n, err = q.BulkInsertBreadcrumbs(ctx, BreadcrumbRows(crumbs))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("load batch: %w", err)
	}
	return n, nil
}

func TripParams(trips []pipeline.Trip) []UpsertTripParams {
	out := make([]UpsertTripParams, len(trips))
	for i, t := range trips {
		out[i] = UpsertTripParams{
			TripID:    t.TripID,
			VehicleID: pgtype.Int8{Int64: t.VehicleID, Valid: true},
		}
	}
	return out
}

func BreadcrumbRows(crumbs []pipeline.Breadcrumb) []Breadcrumb {
	out := make([]Breadcrumb, len(crumbs))
	for i, c := range crumbs {
		out[i] = Breadcrumb{
			Tstamp:    pgtype.Timestamp{Time: c.Timestamp, Valid: true},
			Latitude:  pgtype.Float8{Float64: c.Latitude, Valid: true},
			Longitude: pgtype.Float8{Float64: c.Longitude, Valid: true},
			Speed:     pgtype.Float8{Float64: c.Speed, Valid: true},
			TripID:    c.TripID,
		}
	}
	return out
}
