package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestPostCheck(t *testing.T) {
	negative := func(r RawRecord) bool { return r.Meters == nil || *r.Meters < 0 }
	tests := []struct {
		name    string
		rows    []RawRecord
		wantMsg string // empty means no violation
	}{
		{"all clean", []RawRecord{{Meters: ptr(1.0)}, {Meters: ptr(0.0)}}, ""},
		{"no rows", nil, ""},
		{"one left", []RawRecord{{Meters: ptr(1.0)}, {Meters: ptr(-2.0)}}, "1 rows still match"},
		{"null and negative left", []RawRecord{{}, {Meters: ptr(-2.0)}, {Meters: ptr(3.0)}}, "2 rows still match"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := postCheck(StageDistance, "METERS is null or negative", tt.rows, negative)
			if tt.wantMsg == "" {
				if len(entries) != 0 {
					t.Errorf("entries = %v, want none", entries)
				}
				return
			}
			if len(entries) != 1 {
				t.Fatalf("entries = %v, want one violation", entries)
			}
			e := entries[0]
			if e.Kind != KindViolation || e.Stage != StageDistance {
				t.Errorf("entry = %+v", e)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestProject_IncompleteRowIsViolation(t *testing.T) {
	ts := time.Date(2022, time.December, 8, 4, 40, 54, 0, time.UTC)
	full := RawRecord{
		Timestamp: &ts,
		Latitude:  ptr(45.5),
		Longitude: ptr(-122.6),
		Speed:     ptr(10.0),
		TripID:    ptr(int64(1)),
		VehicleID: ptr(int64(3904)),
	}
	noSpeed := full
	noSpeed.Speed = nil
	noVehicle := full
	noVehicle.VehicleID = nil

	crumbs, entries, err := project(NewBatch([]RawRecord{full, noSpeed, noVehicle}, OutputColumns...))
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	if len(crumbs) != 1 || crumbs[0].Speed != 10 {
		t.Errorf("crumbs = %+v, want the complete row only", crumbs)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %v, want one violation", entries)
	}
	if e := entries[0]; e.Kind != KindViolation || e.Stage != StageContract || !strings.Contains(e.Message, "2 rows") {
		t.Errorf("entry = %+v", e)
	}
}

func TestProject_MissingColumnIsSchema(t *testing.T) {
	crumbs, entries, err := project(NewBatch(nil, ColTimestamp, ColLatitude, ColLongitude, ColTrip, ColVehicle))
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("err = %v, want ErrSchema", err)
	}
	if crumbs != nil {
		t.Errorf("crumbs = %v, want none", crumbs)
	}
	if len(entries) != 1 || entries[0].Kind != KindSchema || !strings.Contains(entries[0].Message, ColSpeed) {
		t.Errorf("entries = %v", entries)
	}
}
