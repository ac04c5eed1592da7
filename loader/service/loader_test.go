package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lai/breadcrumbs/pipeline"
	"github.com/lai/breadcrumbs/vehicles"
)

type fakeStore struct {
	crumbs int
	err    error
}

func (s *fakeStore) Load(ctx context.Context, trips []pipeline.Trip, crumbs []pipeline.Breadcrumb) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.crumbs += len(crumbs)
	return int64(len(crumbs)), nil
}

const dump = `[
 {"EVENT_NO_TRIP": 1, "EVENT_NO_STOP": 2, "OPD_DATE": "08DEC2022:00:00:00", "VEHICLE_ID": 3904,
  "METERS": 0, "ACT_TIME": 3600, "GPS_LONGITUDE": -122.6, "GPS_LATITUDE": 45.5, "GPS_SATELLITES": 9, "GPS_HDOP": 1.1},
 {"EVENT_NO_TRIP": 1, "EVENT_NO_STOP": 2, "OPD_DATE": "08DEC2022:00:00:00", "VEHICLE_ID": 3904,
  "METERS": 100, "ACT_TIME": 3610, "GPS_LONGITUDE": -122.61, "GPS_LATITUDE": 45.51, "GPS_SATELLITES": 9, "GPS_HDOP": 1.1},
 {"EVENT_NO_TRIP": 1, "EVENT_NO_STOP": 2, "OPD_DATE": "08DEC2022:00:00:00", "VEHICLE_ID": 3904,
  "METERS": -4, "ACT_TIME": 3620, "GPS_LONGITUDE": -122.62, "GPS_LATITUDE": 45.52, "GPS_SATELLITES": 9, "GPS_HDOP": 1.1}
]`

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoader_LoadFiles(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "2022-12-08.json", dump)
	noPosition := writeFile(t, dir, "broken.json", `[{"EVENT_NO_TRIP": 1, "VEHICLE_ID": 3904, "METERS": 1, "ACT_TIME": 1, "OPD_DATE": "08DEC2022"}]`)

	var report bytes.Buffer
	store := &fakeStore{}
	l := NewLoader(pipeline.New(pipeline.DefaultConfig(), pipeline.WithReportSink(&report)), vehicles.NewSet(3904), store)

	sum, err := l.LoadFiles(context.Background(), []string{good, noPosition})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	want := Summary{Files: 2, RowsIn: 4, RowsOut: 2, Inserted: 2, Rejected: 1}
	if sum != want {
		t.Errorf("summary = %+v, want %+v", sum, want)
	}
	if store.crumbs != 2 {
		t.Errorf("stored %d", store.crumbs)
	}
	if !strings.Contains(report.String(), "[rejection] range-distance: dropped 1 rows") {
		t.Errorf("report sink:\n%s", report.String())
	}
	if !strings.Contains(report.String(), "[schema] guard") {
		t.Errorf("schema entry missing from report sink:\n%s", report.String())
	}
}

func TestLoader_StopsOnStoreError(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", dump)
	b := writeFile(t, dir, "b.json", dump)

	store := &fakeStore{err: errors.New("connection refused")}
	l := NewLoader(pipeline.New(pipeline.DefaultConfig()), vehicles.NewSet(3904), store)

	sum, err := l.LoadFiles(context.Background(), []string{a, b})
	if err == nil {
		t.Fatal("expected error")
	}
	if sum.Files != 1 {
		t.Errorf("processed %d files after failure, want 1", sum.Files)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(pipeline.New(pipeline.DefaultConfig()), vehicles.NewSet(), &fakeStore{})
	if _, err := l.LoadFiles(context.Background(), []string{filepath.Join(t.TempDir(), "nope.json")}); err == nil {
		t.Error("expected error")
	}
}
