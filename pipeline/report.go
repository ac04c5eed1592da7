package pipeline

import (
	"fmt"
	"io"
	"strings"
)

// Kind classifies a report entry.
type Kind string

const (
	KindInfo      Kind = "info"
	KindRejection Kind = "rejection" // rows dropped by a stage
	KindViolation Kind = "violation" // a stage post-condition did not hold
	KindAnomaly   Kind = "anomaly"   // statistical, advisory only
	KindSchema    Kind = "schema"    // contract break, aborts the run
)

// Entry is one self-describing line of a validation report.
type Entry struct {
	Stage   string `json:"stage"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Stage, e.Message)
}

// Report accumulates entries for one run. It is append-only and advisory:
// nothing in it blocks the batch except schema entries, which are paired
// with an ErrSchema return.
type Report struct {
	entries []Entry
	sink    io.Writer
	sinkErr error
}

// NewReport creates a report. If sink is non-nil each entry is also written
// to it as a line when appended.
func NewReport(sink io.Writer) *Report {
	return &Report{sink: sink}
}

// Add appends entries.
func (r *Report) Add(entries ...Entry) {
	for _, e := range entries {
		r.entries = append(r.entries, e)
		if r.sink != nil && r.sinkErr == nil {
			if _, err := io.WriteString(r.sink, e.String()+"\n"); err != nil {
				r.sinkErr = fmt.Errorf("write report sink: %w", err)
			}
		}
	}
}

// Entries returns a copy of all entries in append order.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

func (r *Report) Len() int { return len(r.entries) }

// Filter returns the entries of one kind.
func (r *Report) Filter(kind Kind) []Entry {
	var out []Entry
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func (r *Report) HasKind(kind Kind) bool {
	for _, e := range r.entries {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// SinkErr returns the first error writing to the sink, if any. Later
// entries are kept in memory but not written.
func (r *Report) SinkErr() error { return r.sinkErr }

func (r *Report) String() string {
	var b strings.Builder
	for _, e := range r.entries {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
