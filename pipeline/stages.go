package pipeline

import (
	"fmt"
	"slices"
	"strings"
)

// Stage names, as they appear in reports and drop counts.
const (
	StageGuard     = "guard"
	StagePrune     = "prune-columns"
	StageDistance  = "range-distance"
	StageElapsed   = "range-elapsed-time"
	StageTimestamp = "derive-timestamp"
	StageTrip      = "exists-trip"
	StageVehicle   = "referential-vehicle"
	StageSpeed     = "derive-speed"
	StageLatitude  = "exists-latitude"
	StageLongitude = "exists-longitude"
	StageAudit     = "audit-speed"
	StageContract  = "column-contract"
)

// stageFunc consumes the working batch and returns the filtered batch plus
// whatever it has to say about it. Stages never fail; rows are dropped and
// reported instead.
type stageFunc func(Batch) (Batch, []Entry)

type stage struct {
	name  string
	apply stageFunc
}

// missingInputColumns checks the batch can be validated at all: identity,
// position, a time source and a distance source.
func missingInputColumns(cols ColumnSet) []string {
	var missing []string
	for _, c := range []string{ColTrip, ColVehicle, ColLatitude, ColLongitude} {
		if !cols.Has(c) {
			missing = append(missing, c)
		}
	}
	if !cols.Has(ColTimestamp) {
		for _, c := range []string{ColDate, ColActTime} {
			if !cols.Has(c) {
				missing = append(missing, c)
			}
		}
	}
	if !cols.Has(ColMeters) && !cols.Has(ColSpeed) {
		missing = append(missing, ColMeters)
	}
	return missing
}

func pruneColumns(b Batch) (Batch, []Entry) {
	for i := range b.Rows {
		b.Rows[i].StopID, b.Rows[i].Satellites, b.Rows[i].HDOP = nil, nil, nil
	}
	var removed []string
	for _, c := range disposableColumns {
		if b.Columns.Has(c) {
			b.Columns.Remove(c)
			removed = append(removed, c)
		}
	}
	if len(removed) == 0 {
		return b, nil
	}
	return b, []Entry{{
		Stage:   StagePrune,
		Kind:    KindInfo,
		Message: "removed columns " + strings.Join(removed, ", "),
	}}
}

// dropWhere builds a filtering stage. Rows for which bad is true are
// dropped; afterwards the survivors are checked again and a violation is
// recorded if any still match.
func dropWhere(name, condition string, bad func(RawRecord) bool) stageFunc {
	return func(b Batch) (Batch, []Entry) {
		kept := make([]RawRecord, 0, len(b.Rows))
		for _, r := range b.Rows {
			if !bad(r) {
				kept = append(kept, r)
			}
		}
		dropped := len(b.Rows) - len(kept)
		b.Rows = kept

		var entries []Entry
		if dropped > 0 {
			entries = append(entries, rejected(name, condition, dropped))
		}
		return b, append(entries, postCheck(name, condition, b.Rows, bad)...)
	}
}

// onlyWith skips a stage when the batch does not carry column.
func onlyWith(column string, fn stageFunc) stageFunc {
	return func(b Batch) (Batch, []Entry) {
		if !b.Columns.Has(column) {
			return b, nil
		}
		return fn(b)
	}
}

func rejected(name, condition string, n int) Entry {
	return Entry{
		Stage:   name,
		Kind:    KindRejection,
		Message: fmt.Sprintf("dropped %d rows: %s", n, condition),
	}
}

func postCheck(name, condition string, rows []RawRecord, bad func(RawRecord) bool) []Entry {
	n := 0
	for _, r := range rows {
		if bad(r) {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return []Entry{{
		Stage:   name,
		Kind:    KindViolation,
		Message: fmt.Sprintf("post-condition failed: %d rows still match %q", n, condition),
	}}
}

var filterDistance = onlyWith(ColMeters, dropWhere(StageDistance, "METERS is null or negative",
	func(r RawRecord) bool { return r.Meters == nil || *r.Meters < 0 }))

var filterElapsed = onlyWith(ColActTime, dropWhere(StageElapsed, "ACT_TIME is null or negative",
	func(r RawRecord) bool { return r.ActTime == nil || *r.ActTime < 0 }))

var requireTrip = dropWhere(StageTrip, "EVENT_NO_TRIP is null",
	func(r RawRecord) bool { return r.TripID == nil })

var requireLatitude = dropWhere(StageLatitude, "GPS_LATITUDE is null",
	func(r RawRecord) bool { return r.Latitude == nil })

var requireLongitude = dropWhere(StageLongitude, "GPS_LONGITUDE is null",
	func(r RawRecord) bool { return r.Longitude == nil })

func referentialIntegrity(vehicles VehicleSet) stageFunc {
	return dropWhere(StageVehicle, "VEHICLE_ID is null or not in the reference set",
		func(r RawRecord) bool { return r.VehicleID == nil || !vehicles.Contains(*r.VehicleID) })
}

// deriveTimestamps turns OPD_DATE + ACT_TIME into TIMESTAMP and sorts the
// batch by (timestamp, trip id). Speed derivation depends on that order.
func deriveTimestamps(b Batch) (Batch, []Entry) {
	var (
		entries  []Entry
		unparsed int
		missing  int
	)
	fromParts := b.Columns.Has(ColDate) && b.Columns.Has(ColActTime)
	kept := make([]RawRecord, 0, len(b.Rows))
	for _, r := range b.Rows {
		if fromParts && r.OPDDate != nil && r.ActTime != nil {
			ts, err := EventTime(*r.OPDDate, *r.ActTime)
			if err != nil {
				unparsed++
				continue
			}
			r.Timestamp = &ts
		}
		if r.Timestamp == nil {
			missing++
			continue
		}
		r.OPDDate, r.ActTime = nil, nil
		kept = append(kept, r)
	}
	b.Rows = kept
	b.Columns.Remove(ColDate)
	b.Columns.Remove(ColActTime)
	b.Columns.Add(ColTimestamp)

	if unparsed > 0 {
		entries = append(entries, rejected(StageTimestamp, "OPD_DATE is not a recognised date or ACT_TIME is out of range", unparsed))
	}
	if missing > 0 {
		entries = append(entries, rejected(StageTimestamp, "no OPD_DATE/ACT_TIME or TIMESTAMP to derive a timestamp from", missing))
	}

	slices.SortStableFunc(b.Rows, compareTimeTrip)
	return b, entries
}

// deriveSpeed annotates rows with speed per trip. When the batch carries
// SPEED but no METERS (cleaned output fed back in) the existing speeds are
// re-checked instead.
func deriveSpeed(ceiling float64) stageFunc {
	return func(b Batch) (Batch, []Entry) {
		var stats SpeedStats
		if b.Columns.Has(ColMeters) {
			b.Rows, stats = DeriveSpeeds(b.Rows, ceiling)
		} else {
			b.Rows, stats = checkSpeeds(b.Rows, ceiling)
		}
		b.Columns.Add(ColSpeed)

		var entries []Entry
		if stats.Unresolved > 0 {
			entries = append(entries, rejected(StageSpeed,
				fmt.Sprintf("no speed derivable within the trip (%d single-row trips)", stats.SingleRowTrips),
				stats.Unresolved))
		}
		if stats.OverCeiling > 0 {
			entries = append(entries, rejected(StageSpeed,
				fmt.Sprintf("SPEED above ceiling %.1f", ceiling), stats.OverCeiling))
		}
		return b, append(entries, postCheck(StageSpeed, "SPEED is null or above ceiling", b.Rows,
			func(r RawRecord) bool { return r.Speed == nil || *r.Speed > ceiling })...)
	}
}

func audit(limit float64) stageFunc {
	return func(b Batch) (Batch, []Entry) {
		return b, Audit(b.Rows, limit)
	}
}

// project enforces the output column contract and builds breadcrumbs.
func project(b Batch) ([]Breadcrumb, []Entry, error) {
	var missing []string
	for _, c := range OutputColumns {
		if !b.Columns.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		msg := "output missing columns " + strings.Join(missing, ", ")
		return nil, []Entry{{Stage: StageContract, Kind: KindSchema, Message: msg}},
			fmt.Errorf("%w: %s", ErrSchema, msg)
	}

	out := make([]Breadcrumb, 0, len(b.Rows))
	incomplete := 0
	for _, r := range b.Rows {
		if r.Timestamp == nil || r.Latitude == nil || r.Longitude == nil ||
			r.Speed == nil || r.TripID == nil || r.VehicleID == nil {
			incomplete++
			continue
		}
		out = append(out, Breadcrumb{
			Timestamp: *r.Timestamp,
			Latitude:  *r.Latitude,
			Longitude: *r.Longitude,
			Speed:     *r.Speed,
			TripID:    *r.TripID,
			VehicleID: *r.VehicleID,
		})
	}
	var entries []Entry
	if incomplete > 0 {
		entries = append(entries, Entry{
			Stage:   StageContract,
			Kind:    KindViolation,
			Message: fmt.Sprintf("post-condition failed: %d rows reached the contract with null fields and were dropped", incomplete),
		})
	}
	return out, entries, nil
}
