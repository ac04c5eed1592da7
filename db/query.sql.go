package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertTrip = `-- name: UpsertTrip :exec
INSERT INTO trip (trip_id, vehicle_id)
VALUES ($1, $2)
ON CONFLICT (trip_id) DO NOTHING
`

type UpsertTripParams struct {
	TripID    int64
	VehicleID pgtype.Int8
}

func (q *Queries) UpsertTrip(ctx context.Context, arg UpsertTripParams) error {
	_, err := q.db.Exec(ctx, upsertTrip, arg.TripID, arg.VehicleID)
	return err
}

const upsertTripService = `-- name: UpsertTripService :exec
INSERT INTO trip (trip_id, vehicle_id, route_id, service_key, direction)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (trip_id) DO UPDATE
SET route_id    = EXCLUDED.route_id,
    service_key = EXCLUDED.service_key,
    direction   = EXCLUDED.direction,
    vehicle_id  = COALESCE(trip.vehicle_id, EXCLUDED.vehicle_id)
`

type UpsertTripServiceParams struct {
	TripID     int64
	VehicleID  pgtype.Int8
	RouteID    pgtype.Int8
	ServiceKey NullServiceType
	Direction  NullTripdirType
}

func (q *Queries) UpsertTripService(ctx context.Context, arg UpsertTripServiceParams) error {
	_, err := q.db.Exec(ctx, upsertTripService,
		arg.TripID,
		arg.VehicleID,
		arg.RouteID,
		arg.ServiceKey,
		arg.Direction,
	)
	return err
}

const getTrip = `-- name: GetTrip :one
SELECT trip_id, route_id, vehicle_id, service_key, direction
FROM trip
WHERE trip_id = $1
`

func (q *Queries) GetTrip(ctx context.Context, tripID int64) (Trip, error) {
	row := q.db.QueryRow(ctx, getTrip, tripID)
	var i Trip
	err := row.Scan(
		&i.TripID,
		&i.RouteID,
		&i.VehicleID,
		&i.ServiceKey,
		&i.Direction,
	)
	return i, err
}

const countBreadcrumbs = `-- name: CountBreadcrumbs :one
SELECT count(*) FROM breadcrumb
`

func (q *Queries) CountBreadcrumbs(ctx context.Context) (int64, error) {
	row := q.db.QueryRow(ctx, countBreadcrumbs)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countTripBreadcrumbs = `-- name: CountTripBreadcrumbs :one
SELECT count(*) FROM breadcrumb
WHERE trip_id = $1
`

func (q *Queries) CountTripBreadcrumbs(ctx context.Context, tripID int64) (int64, error) {
	row := q.db.QueryRow(ctx, countTripBreadcrumbs, tripID)
	var count int64
	err := row.Scan(&count)
	return count, err
}
