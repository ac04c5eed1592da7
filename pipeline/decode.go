package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var errNotObject = errors.New("not a JSON object")

// Decode builds a batch from raw feed messages, one JSON object each.
// Column presence is tracked across the whole batch. An unparseable message
// is skipped; a field of the wrong type is left null. Both are returned as
// errors for the caller to log; neither stops decoding.
func Decode(msgs [][]byte) (Batch, []error) {
	b := Batch{Columns: NewColumnSet()}
	var errs []error
	for i, msg := range msgs {
		if !gjson.ValidBytes(msg) {
			errs = append(errs, fmt.Errorf("message %d: invalid JSON", i))
			continue
		}
		obj := gjson.ParseBytes(msg)
		if !obj.IsObject() {
			errs = append(errs, fmt.Errorf("message %d: %w", i, errNotObject))
			continue
		}
		rec, fieldErrs := decodeObject(obj, b.Columns)
		for _, err := range fieldErrs {
			errs = append(errs, fmt.Errorf("message %d: %w", i, err))
		}
		b.Rows = append(b.Rows, rec)
	}
	return b, errs
}

// DecodeArray decodes a JSON array of breadcrumb objects, the shape the
// breadcrumb API and archived daily files use.
func DecodeArray(data []byte) (Batch, []error) {
	if !gjson.ValidBytes(data) {
		return Batch{Columns: NewColumnSet()}, []error{errors.New("invalid JSON")}
	}
	arr := gjson.ParseBytes(data)
	if !arr.IsArray() {
		return Batch{Columns: NewColumnSet()}, []error{errors.New("expected a JSON array")}
	}
	var msgs [][]byte
	arr.ForEach(func(_, value gjson.Result) bool {
		msgs = append(msgs, []byte(value.Raw))
		return true
	})
	return Decode(msgs)
}

func decodeObject(obj gjson.Result, cols ColumnSet) (RawRecord, []error) {
	var (
		rec  RawRecord
		errs []error
	)
	field := func(name string) (gjson.Result, bool) {
		v := obj.Get(name)
		if !v.Exists() {
			return v, false
		}
		cols.Add(name)
		return v, v.Type != gjson.Null
	}
	ints := []struct {
		name string
		dst  **int64
	}{
		{ColTrip, &rec.TripID},
		{ColStop, &rec.StopID},
		{ColVehicle, &rec.VehicleID},
		{ColActTime, &rec.ActTime},
	}
	for _, f := range ints {
		if v, ok := field(f.name); ok {
			n, err := intValue(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
				continue
			}
			*f.dst = &n
		}
	}
	floats := []struct {
		name string
		dst  **float64
	}{
		{ColMeters, &rec.Meters},
		{ColLatitude, &rec.Latitude},
		{ColLongitude, &rec.Longitude},
		{ColSatellites, &rec.Satellites},
		{ColHDOP, &rec.HDOP},
		{ColSpeed, &rec.Speed},
	}
	for _, f := range floats {
		if v, ok := field(f.name); ok {
			n, err := floatValue(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
				continue
			}
			*f.dst = &n
		}
	}
	if v, ok := field(ColDate); ok {
		if v.Type != gjson.String {
			errs = append(errs, fmt.Errorf("%s: expected string, got %s", ColDate, v.Type))
		} else {
			s := v.Str
			rec.OPDDate = &s
		}
	}
	if v, ok := field(ColTimestamp); ok {
		ts, err := time.Parse(time.RFC3339Nano, v.String())
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ColTimestamp, err))
		} else {
			ts = ts.UTC()
			rec.Timestamp = &ts
		}
	}
	return rec, errs
}

func intValue(v gjson.Result) (int64, error) {
	switch v.Type {
	case gjson.Number:
		if n, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
			return n, nil
		}
		// exponent forms such as 2.45e8
		if v.Num != math.Trunc(v.Num) || v.Num < math.MinInt64 || v.Num >= math.MaxInt64 {
			return 0, fmt.Errorf("expected int64, got %s", v.Raw)
		}
		return int64(v.Num), nil
	case gjson.String:
		n, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected integer, got %q", v.Str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer, got %s", v.Type)
	}
}

func floatValue(v gjson.Result) (float64, error) {
	switch v.Type {
	case gjson.Number:
		return v.Num, nil
	case gjson.String:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, fmt.Errorf("expected number, got %q", v.Str)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected number, got %s", v.Type)
	}
}
