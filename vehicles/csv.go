package vehicles

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultColumn is the header of the id column in the vehicle manifest.
const DefaultColumn = "Whisker"

// LoadCSV reads the ids in column from the CSV file at path. Blank and
// non-integer cells are skipped and counted.
func LoadCSV(path, column string) (*Set, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open vehicle manifest: %w", err)
	}
	defer f.Close()

	s, skipped, err := ReadCSV(f, column)
	if err != nil {
		return nil, skipped, fmt.Errorf("read vehicle manifest %s: %w", path, err)
	}
	return s, skipped, nil
}

func ReadCSV(r io.Reader, column string) (*Set, int, error) {
	if column == "" {
		column = DefaultColumn
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, errors.New("empty file")
		}
		return nil, 0, err
	}
	idx := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, 0, fmt.Errorf("column %q not in header", column)
	}

	var (
		ids     []int64
		skipped int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, skipped, err
		}
		if idx >= len(rec) {
			skipped++
			continue
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[idx]), 10, 64)
		if err != nil {
			skipped++
			continue
		}
		ids = append(ids, id)
	}
	return NewSet(ids...), skipped, nil
}
