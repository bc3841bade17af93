// Package time holds timestamp helpers shared by ingestion and scans.
package time

import "time"

// Ptr converts a possibly-zero time into the nullable form record
// upserts expect: nil for zero, a pointer otherwise.
func Ptr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
