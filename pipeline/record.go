package pipeline

import (
	"slices"
	"sort"
	"time"
)

// Column names as they appear in the breadcrumb feed.
const (
	ColTrip       = "EVENT_NO_TRIP"
	ColStop       = "EVENT_NO_STOP"
	ColVehicle    = "VEHICLE_ID"
	ColDate       = "OPD_DATE"
	ColActTime    = "ACT_TIME"
	ColMeters     = "METERS"
	ColLatitude   = "GPS_LATITUDE"
	ColLongitude  = "GPS_LONGITUDE"
	ColSatellites = "GPS_SATELLITES"
	ColHDOP       = "GPS_HDOP"

	// Derived by the pipeline. Accepted on input so cleaned output can be re-validated.
	ColTimestamp = "TIMESTAMP"
	ColSpeed     = "SPEED"
)

// OutputColumns is the positional contract of a cleaned breadcrumb.
// Bulk loading downstream is by position, not by name.
var OutputColumns = []string{ColTimestamp, ColLatitude, ColLongitude, ColSpeed, ColTrip, ColVehicle}

// disposableColumns carry no validation value.
var disposableColumns = []string{ColStop, ColSatellites, ColHDOP}

// RawRecord is one breadcrumb as received from the feed. Every field is
// nullable; nil means the value was absent or JSON null.
type RawRecord struct {
	TripID     *int64
	StopID     *int64
	VehicleID  *int64
	OPDDate    *string
	ActTime    *int64
	Meters     *float64
	Latitude   *float64
	Longitude  *float64
	Satellites *float64
	HDOP       *float64

	Timestamp *time.Time
	Speed     *float64
}

// ColumnSet records which columns were present in a batch.
type ColumnSet map[string]struct{}

// NewColumnSet builds a set from names.
func NewColumnSet(names ...string) ColumnSet {
	s := make(ColumnSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s ColumnSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s ColumnSet) Add(name string)    { s[name] = struct{}{} }
func (s ColumnSet) Remove(name string) { delete(s, name) }

// Names returns the column names sorted.
func (s ColumnSet) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Batch is the working record set handed between stages.
type Batch struct {
	Columns ColumnSet
	Rows    []RawRecord
}

// NewBatch creates a batch with the given rows and column presence.
func NewBatch(rows []RawRecord, columns ...string) Batch {
	return Batch{Columns: NewColumnSet(columns...), Rows: rows}
}

func (b Batch) Len() int { return len(b.Rows) }

// clone copies the row slice and column set so stages never touch the
// caller's batch. Field pointers are shared; stages replace them, never
// write through them.
func (b Batch) clone() Batch {
	cols := make(ColumnSet, len(b.Columns))
	for n := range b.Columns {
		cols.Add(n)
	}
	return Batch{Columns: cols, Rows: slices.Clone(b.Rows)}
}

// Breadcrumb is a cleaned, speed-annotated record ready for persistence.
type Breadcrumb struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Speed     float64   `json:"speed"`
	TripID    int64     `json:"trip_id"`
	VehicleID int64     `json:"vehicle_id"`
}

// Values returns the fields in OutputColumns order.
func (b Breadcrumb) Values() []any {
	return []any{b.Timestamp, b.Latitude, b.Longitude, b.Speed, b.TripID, b.VehicleID}
}

// Record turns a cleaned breadcrumb back into input shape.
func (b Breadcrumb) Record() RawRecord {
	ts, lat, lon, speed := b.Timestamp, b.Latitude, b.Longitude, b.Speed
	trip, vehicle := b.TripID, b.VehicleID
	return RawRecord{
		TripID:    &trip,
		VehicleID: &vehicle,
		Latitude:  &lat,
		Longitude: &lon,
		Timestamp: &ts,
		Speed:     &speed,
	}
}

// Trip is one row of the trip relation: unique per trip id.
type Trip struct {
	TripID    int64 `json:"trip_id"`
	VehicleID int64 `json:"vehicle_id"`
}
