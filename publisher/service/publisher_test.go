package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lai/breadcrumbs/vehicles"
)

type fakeSource map[int64]any // []string of objects, or an error

func (f fakeSource) Fetch(ctx context.Context, id int64) ([][]byte, error) {
	switch v := f[id].(type) {
	case error:
		return nil, v
	case []string:
		out := make([][]byte, len(v))
		for i, s := range v {
			out[i] = []byte(s)
		}
		return out, nil
	}
	return nil, ErrNoData
}

func staticSet(ids ...int64) func() *vehicles.Set {
	s := vehicles.NewSet(ids...)
	return func() *vehicles.Set { return s }
}

func TestPublisher_PublishAll(t *testing.T) {
	src := fakeSource{
		1: []string{`{"VEHICLE_ID": 1, "ACT_TIME": 1}`, `{"VEHICLE_ID": 1, "ACT_TIME": 2}`},
		2: errors.New("connection reset"),
		4: []string{`{"VEHICLE_ID": 4}`},
	}
	mock := &mockProducer{}
	p := NewPublisher(src, mock, staticSet(1, 2, 3, 4))

	stats, err := p.PublishAll(context.Background())
	if err != nil {
		t.Fatalf("PublishAll: %v", err)
	}
	want := Stats{Vehicles: 4, Published: 3, Missing: 1, Failed: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
	if len(mock.written) != 3 || mock.written[0].key != "1" || mock.written[2].key != "4" {
		t.Errorf("written = %+v", mock.written)
	}
}

func TestPublisher_AbortsOnProducerError(t *testing.T) {
	src := fakeSource{
		1: []string{`{}`, `{}`},
		2: []string{`{}`},
	}
	mock := &mockProducer{err: errors.New("kafka unavailable"), failAt: 2}
	p := NewPublisher(src, mock, staticSet(1, 2))

	stats, err := p.PublishAll(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if stats.Published != 2 {
		t.Errorf("published = %d, want the 2 of the first vehicle", stats.Published)
	}
}

func TestPublisher_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := &mockProducer{}
	_, err := NewPublisher(fakeSource{1: []string{`{}`}}, mock, staticSet(1)).PublishAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(mock.written) != 0 {
		t.Error("published after cancel")
	}
}

func TestFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("vehicle_id") {
		case "3904":
			fmt.Fprint(w, `[{"VEHICLE_ID": 3904, "METERS": 1}, {"VEHICLE_ID": 3904, "METERS": 2}]`)
		case "404":
			http.NotFound(w, r)
		case "500":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			fmt.Fprint(w, `<html>maintenance</html>`)
		}
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL+"/api/getBreadCrumbs?vehicle_id=", 5*time.Second)
	ctx := context.Background()

	msgs, err := f.Fetch(ctx, 3904)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(msgs) != 2 || !strings.Contains(string(msgs[1]), `"METERS": 2`) {
		t.Errorf("msgs = %q", msgs)
	}

	if _, err := f.Fetch(ctx, 404); !errors.Is(err, ErrNoData) {
		t.Errorf("404: err = %v, want ErrNoData", err)
	}
	if _, err := f.Fetch(ctx, 500); err == nil || errors.Is(err, ErrNoData) {
		t.Errorf("500: err = %v", err)
	}
	if _, err := f.Fetch(ctx, 1); err == nil {
		t.Error("non-JSON body accepted")
	}
}
