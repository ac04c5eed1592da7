package pipeline

import (
	"math"
	"slices"
)

// SpeedStats describes what speed derivation dropped.
type SpeedStats struct {
	Trips          int
	SingleRowTrips int
	Unresolved     int // no speed after back-fill
	OverCeiling    int
}

// DeriveSpeeds computes speed per trip from consecutive METERS and
// TIMESTAMP deltas, back-fills gaps from the next known speed in the same
// trip, then drops rows still without speed and rows above ceiling.
//
// Rows are partitioned by trip id in order of first appearance and each
// partition is sorted by timestamp. Output keeps that partition order. A
// delta is never taken across two trips, so a single-row trip has no speed
// and is dropped.
func DeriveSpeeds(rows []RawRecord, ceiling float64) ([]RawRecord, SpeedStats) {
	var stats SpeedStats
	groups, orphans := groupByTrip(rows)
	stats.Trips = len(groups)
	stats.Unresolved = orphans

	out := make([]RawRecord, 0, len(rows))
	for _, g := range groups {
		if len(g) == 1 {
			stats.SingleRowTrips++
		}
		slices.SortStableFunc(g, func(a, b RawRecord) int {
			return a.Timestamp.Compare(*b.Timestamp)
		})
		speeds := tripSpeeds(g)
		backfill(speeds)
		for i, r := range g {
			switch {
			case speeds[i] == nil:
				stats.Unresolved++
			case *speeds[i] > ceiling:
				stats.OverCeiling++
			default:
				r.Speed = speeds[i]
				out = append(out, r)
			}
		}
	}
	return out, stats
}

// groupByTrip partitions rows by trip id, keeping first-appearance order.
// Rows without a trip id or timestamp cannot be placed and are counted.
func groupByTrip(rows []RawRecord) ([][]RawRecord, int) {
	index := make(map[int64]int)
	var (
		groups  [][]RawRecord
		orphans int
	)
	for _, r := range rows {
		if r.TripID == nil || r.Timestamp == nil {
			orphans++
			continue
		}
		i, ok := index[*r.TripID]
		if !ok {
			i = len(groups)
			index[*r.TripID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups, orphans
}

// tripSpeeds returns delta-meters over delta-seconds for each row against
// its predecessor. The first row, zero or negative time steps and missing
// distances give nil.
func tripSpeeds(g []RawRecord) []*float64 {
	speeds := make([]*float64, len(g))
	for i := 1; i < len(g); i++ {
		prev, cur := g[i-1], g[i]
		if prev.Meters == nil || cur.Meters == nil {
			continue
		}
		dt := cur.Timestamp.Sub(*prev.Timestamp).Seconds()
		if dt <= 0 {
			continue
		}
		v := (*cur.Meters - *prev.Meters) / dt
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		speeds[i] = &v
	}
	return speeds
}

// backfill replaces each nil with the nearest later non-nil value.
func backfill(vals []*float64) {
	var next *float64
	for i := len(vals) - 1; i >= 0; i-- {
		if vals[i] == nil {
			vals[i] = next
		} else {
			next = vals[i]
		}
	}
}

// checkSpeeds applies the null and ceiling rules to speeds already present.
func checkSpeeds(rows []RawRecord, ceiling float64) ([]RawRecord, SpeedStats) {
	var stats SpeedStats
	out := make([]RawRecord, 0, len(rows))
	for _, r := range rows {
		switch {
		case r.Speed == nil:
			stats.Unresolved++
		case *r.Speed > ceiling:
			stats.OverCeiling++
		default:
			out = append(out, r)
		}
	}
	return out, stats
}

// MeanSpeed averages SPEED over rows that have one. ok is false when there
// are none.
func MeanSpeed(rows []RawRecord) (mean float64, ok bool) {
	var sum float64
	n := 0
	for _, r := range rows {
		if r.Speed != nil {
			sum += *r.Speed
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
