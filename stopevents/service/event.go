package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/lai/breadcrumbs/db"
)

// RawStopEvent is one stop event as the upstream feed publishes it.
// Absent and null fields stay nil.
type RawStopEvent struct {
	TripID        *int64
	VehicleNumber *int64
	RouteNumber   *int64
	ServiceKey    *string
	Direction     *int64
}

// TripService is the validated service information of a trip.
type TripService struct {
	TripID     int64          `json:"trip_id"`
	VehicleID  int64          `json:"vehicle_id"`
	RouteID    int64          `json:"route_id"`
	ServiceKey db.ServiceType `json:"service_key"`
	Direction  db.TripdirType `json:"direction"`
}

var serviceKeys = map[string]db.ServiceType{
	"W": db.ServiceTypeWeekday,
	"S": db.ServiceTypeSaturday,
	"U": db.ServiceTypeSunday,
}

var directions = map[int64]db.TripdirType{
	0: db.TripdirTypeOut,
	1: db.TripdirTypeBack,
}

// Decode reads a raw stop event. Integer fields may arrive as numbers or
// numeric strings.
func Decode(data []byte) (RawStopEvent, error) {
	if !gjson.ValidBytes(data) {
		return RawStopEvent{}, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return RawStopEvent{}, errors.New("expected JSON object")
	}
	var (
		ev   RawStopEvent
		errs []error
	)
	intField := func(name string) *int64 {
		v := root.Get(name)
		if !v.Exists() || v.Type == gjson.Null {
			return nil
		}
		i, err := parseInt(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			return nil
		}
		return &i
	}
	ev.TripID = intField("trip_id")
	ev.VehicleNumber = intField("vehicle_number")
	ev.RouteNumber = intField("route_number")
	ev.Direction = intField("direction")
	if v := root.Get("service_key"); v.Exists() && v.Type != gjson.Null {
		s := v.String()
		ev.ServiceKey = &s
	}
	return ev, errors.Join(errs...)
}

func parseInt(v gjson.Result) (int64, error) {
	switch v.Type {
	case gjson.Number:
		if f := v.Float(); f != float64(v.Int()) {
			return 0, fmt.Errorf("%s is not an integer", v.Raw)
		}
		return v.Int(), nil
	case gjson.String:
		i, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v.Str)
		}
		return i, nil
	}
	return 0, fmt.Errorf("unexpected %s", v.Type)
}

// Validate checks every field of a raw event and returns all problems.
func (e RawStopEvent) Validate() error {
	var errs []error
	nonNegative := func(name string, v *int64) {
		switch {
		case v == nil:
			errs = append(errs, fmt.Errorf("%s is required", name))
		case *v < 0:
			errs = append(errs, fmt.Errorf("%s must be >= 0, got %d", name, *v))
		}
	}
	nonNegative("trip_id", e.TripID)
	nonNegative("vehicle_number", e.VehicleNumber)
	nonNegative("route_number", e.RouteNumber)

	switch {
	case e.ServiceKey == nil:
		errs = append(errs, errors.New("service_key is required"))
	case len(*e.ServiceKey) < 1 || len(*e.ServiceKey) > 2:
		errs = append(errs, fmt.Errorf("service_key must be 1-2 characters, got %q", *e.ServiceKey))
	default:
		if _, ok := serviceKeys[*e.ServiceKey]; !ok {
			errs = append(errs, fmt.Errorf("service_key %q is not one of W, S, U", *e.ServiceKey))
		}
	}

	switch {
	case e.Direction == nil:
		errs = append(errs, errors.New("direction is required"))
	default:
		if _, ok := directions[*e.Direction]; !ok {
			errs = append(errs, fmt.Errorf("direction must be 0 or 1, got %d", *e.Direction))
		}
	}
	return errors.Join(errs...)
}

// Transform validates e and maps it to the trip's service information.
func (e RawStopEvent) Transform() (TripService, error) {
	if err := e.Validate(); err != nil {
		return TripService{}, err
	}
	return TripService{
		TripID:     *e.TripID,
		VehicleID:  *e.VehicleNumber,
		RouteID:    *e.RouteNumber,
		ServiceKey: serviceKeys[*e.ServiceKey],
		Direction:  directions[*e.Direction],
	}, nil
}
