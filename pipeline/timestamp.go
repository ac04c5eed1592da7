package pipeline

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

// Layouts seen in OPD_DATE once the ":HH:MM:SS" suffix is cut off.
// Month names match case-insensitively, so "08DEC2022" parses.
var serviceDateLayouts = []string{
	"02Jan2006",
	"2006-01-02",
	"01/02/2006",
}

// ParseServiceDate parses an operating-day date, ignoring everything from
// the first colon on.
func ParseServiceDate(s string) (time.Time, error) {
	day, _, _ := strings.Cut(strings.TrimSpace(s), ":")
	for _, layout := range serviceDateLayouts {
		if t, err := time.ParseInLocation(layout, day, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised service date %q", s)
}

// MaxActTime bounds ACT_TIME. Service days run past midnight, never past
// the following one.
const MaxActTime = 48 * 60 * 60

// EventTime is the operating day plus seconds elapsed since its midnight.
func EventTime(opdDate string, actTime int64) (time.Time, error) {
	day, err := ParseServiceDate(opdDate)
	if err != nil {
		return time.Time{}, err
	}
	if actTime < 0 || actTime > MaxActTime {
		return time.Time{}, fmt.Errorf("ACT_TIME %d outside [0, %d]", actTime, MaxActTime)
	}
	return day.Add(time.Duration(actTime) * time.Second), nil
}

// compareTimeTrip orders by timestamp, then trip id with null trips last.
func compareTimeTrip(a, b RawRecord) int {
	if c := a.Timestamp.Compare(*b.Timestamp); c != 0 {
		return c
	}
	return compareTrip(a.TripID, b.TripID)
}

func compareTrip(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*a, *b)
}
