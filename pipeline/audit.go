package pipeline

import "fmt"

// Audit reports an anomaly when the mean speed of rows exceeds limit. It
// never changes rows. An empty batch has no mean and is not checked.
func Audit(rows []RawRecord, limit float64) []Entry {
	mean, ok := MeanSpeed(rows)
	if !ok || mean <= limit {
		return nil
	}
	return []Entry{{
		Stage:   StageAudit,
		Kind:    KindAnomaly,
		Message: fmt.Sprintf("mean speed %.2f over %d rows exceeds %.1f", mean, len(rows), limit),
	}}
}
