package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// ErrNoData means the upstream API has no breadcrumbs for the vehicle today.
var ErrNoData = errors.New("no data for vehicle")

// Fetcher downloads the day's raw breadcrumbs of one vehicle.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// NewFetcher creates a fetcher. The vehicle id is appended to baseURL,
// e.g. https://busdata.cs.pdx.edu/api/getBreadCrumbs?vehicle_id=
func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch returns one raw JSON object per breadcrumb.
func (f *Fetcher) Fetch(ctx context.Context, vehicleID int64) ([][]byte, error) {
	url := f.baseURL + strconv.FormatInt(vehicleID, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch vehicle %d: %w", vehicleID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch vehicle %d: status %d", vehicleID, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read vehicle %d: %w", vehicleID, err)
	}
	return SplitArray(body)
}

// SplitArray splits a JSON array of objects into the raw objects.
func SplitArray(body []byte) ([][]byte, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsArray() {
		return nil, errors.New("expected JSON array")
	}
	var (
		out [][]byte
		bad error
	)
	root.ForEach(func(i, v gjson.Result) bool {
		if !v.IsObject() {
			bad = fmt.Errorf("element %d is not an object", i.Int())
			return false
		}
		out = append(out, []byte(v.Raw))
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return out, nil
}
