package pipeline

import (
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	msgs := [][]byte{
		[]byte(`{"EVENT_NO_TRIP": 245104870, "EVENT_NO_STOP": 245104872, "OPD_DATE": "08DEC2022:00:00:00",
			"VEHICLE_ID": 3904, "METERS": 66, "ACT_TIME": 16854, "GPS_LONGITUDE": -122.607635,
			"GPS_LATITUDE": 45.539612, "GPS_SATELLITES": 12, "GPS_HDOP": 0.8}`),
		[]byte(`{"EVENT_NO_TRIP": null, "VEHICLE_ID": "3904", "METERS": 70.5, "ACT_TIME": 16859}`),
		[]byte(`not json`),
		[]byte(`[1, 2]`),
		[]byte(`{"VEHICLE_ID": 3904.5, "GPS_LATITUDE": "north", "OPD_DATE": 7}`),
	}
	b, errs := Decode(msgs)

	if b.Len() != 3 {
		t.Fatalf("decoded %d rows, want 3", b.Len())
	}
	// invalid JSON, array, and three bad fields in the last message
	if len(errs) != 5 {
		t.Errorf("got %d errors, want 5: %v", len(errs), errs)
	}
	for _, c := range feedColumns {
		if !b.Columns.Has(c) {
			t.Errorf("column %s not recorded", c)
		}
	}
	if b.Columns.Has(ColTimestamp) || b.Columns.Has(ColSpeed) {
		t.Errorf("absent columns recorded: %v", b.Columns.Names())
	}

	first := b.Rows[0]
	if *first.TripID != 245104870 || *first.VehicleID != 3904 || *first.ActTime != 16854 {
		t.Errorf("first row ints wrong: %+v", first)
	}
	if *first.Meters != 66 || *first.Latitude != 45.539612 || *first.OPDDate != "08DEC2022:00:00:00" {
		t.Errorf("first row fields wrong: %+v", first)
	}

	second := b.Rows[1]
	if second.TripID != nil {
		t.Errorf("null trip decoded as %d", *second.TripID)
	}
	if second.VehicleID == nil || *second.VehicleID != 3904 {
		t.Errorf("numeric string vehicle id not decoded")
	}
	if second.Latitude != nil {
		t.Errorf("absent latitude decoded")
	}

	third := b.Rows[2]
	if third.VehicleID != nil || third.Latitude != nil || third.OPDDate != nil {
		t.Errorf("mistyped fields should be null: %+v", third)
	}
}

func TestDecode_IntegerRange(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    int64
		wantErr bool
	}{
		{"plain", `245104870`, 245104870, false},
		{"exponent", `2.45e8`, 245000000, false},
		{"max int64", `9223372036854775807`, 9223372036854775807, false},
		{"min int64", `-9223372036854775808`, -9223372036854775808, false},
		{"above int64", `1e19`, 0, true},
		{"far above int64", `20000000000000000000`, 0, true},
		{"below int64", `-1e19`, 0, true},
		{"fraction", `1.5`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, errs := Decode([][]byte{[]byte(`{"EVENT_NO_TRIP": ` + tt.raw + `}`)})
			if (len(errs) > 0) != tt.wantErr {
				t.Fatalf("errs = %v, wantErr %v", errs, tt.wantErr)
			}
			got := b.Rows[0].TripID
			if tt.wantErr {
				if got != nil {
					t.Errorf("out of range trip decoded as %d", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("trip = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestDecode_OutOfRangeTripsStayApart(t *testing.T) {
	b, errs := Decode([][]byte{
		[]byte(`{"EVENT_NO_TRIP": 1e19}`),
		[]byte(`{"EVENT_NO_TRIP": 2e19}`),
	})
	if len(errs) != 2 {
		t.Errorf("got %d errors, want 2", len(errs))
	}
	for i, r := range b.Rows {
		if r.TripID != nil {
			t.Errorf("row %d: trip %d, want null", i, *r.TripID)
		}
	}
}

func TestDecode_Timestamp(t *testing.T) {
	b, errs := Decode([][]byte{
		[]byte(`{"TIMESTAMP": "2022-12-08T04:40:54Z", "SPEED": 12.5}`),
		[]byte(`{"TIMESTAMP": "yesterday"}`),
	})
	if len(errs) != 1 {
		t.Errorf("got %d errors, want 1: %v", len(errs), errs)
	}
	want := time.Date(2022, 12, 8, 4, 40, 54, 0, time.UTC)
	if b.Rows[0].Timestamp == nil || !b.Rows[0].Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", b.Rows[0].Timestamp, want)
	}
	if *b.Rows[0].Speed != 12.5 {
		t.Errorf("speed = %v", *b.Rows[0].Speed)
	}
}

func TestDecodeArray(t *testing.T) {
	b, errs := DecodeArray([]byte(`[
		{"EVENT_NO_TRIP": 1, "VEHICLE_ID": 2},
		{"EVENT_NO_TRIP": 3, "VEHICLE_ID": 4}
	]`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if b.Len() != 2 || *b.Rows[1].TripID != 3 {
		t.Errorf("decoded %+v", b.Rows)
	}

	if _, errs := DecodeArray([]byte(`{"EVENT_NO_TRIP": 1}`)); len(errs) != 1 {
		t.Errorf("object accepted as array")
	}
	if _, errs := DecodeArray([]byte(`[{`)); len(errs) != 1 {
		t.Errorf("broken JSON accepted")
	}
}

func TestDecode_FeedsPipeline(t *testing.T) {
	b, errs := DecodeArray([]byte(`[
		{"EVENT_NO_TRIP": 1, "EVENT_NO_STOP": 2, "OPD_DATE": "08DEC2022:00:00:00", "VEHICLE_ID": 100,
		 "METERS": 0, "ACT_TIME": 3600, "GPS_LONGITUDE": -122.6, "GPS_LATITUDE": 45.5, "GPS_SATELLITES": 9, "GPS_HDOP": 1.1},
		{"EVENT_NO_TRIP": 1, "EVENT_NO_STOP": 2, "OPD_DATE": "08DEC2022:00:00:00", "VEHICLE_ID": 100,
		 "METERS": 120, "ACT_TIME": 3610, "GPS_LONGITUDE": -122.61, "GPS_LATITUDE": 45.51, "GPS_SATELLITES": 9, "GPS_HDOP": 1.1}
	]`))
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	res := runDefault(t, b, vehicleSet{100: true})
	if len(res.Breadcrumbs) != 2 || !approx(res.Breadcrumbs[0].Speed, 12) {
		t.Errorf("got %+v", res.Breadcrumbs)
	}
}
