package domain

import (
	"fmt"
	"time"
)

// HistogramKind selects which timestamp a histogram aggregates.
type HistogramKind string

// Histogram kinds.
const (
	HistogramCreateDate HistogramKind = "createdate"
	HistogramModifyDate HistogramKind = "modifydate"
)

// IsValid reports whether the kind is supported by the search service.
func (k HistogramKind) IsValid() bool {
	return k == HistogramCreateDate || k == HistogramModifyDate
}

// HistogramBucket is the number of sources falling into one calendar month.
type HistogramBucket struct {
	Bucket time.Time
	Count  int
}

// bucketLayout is the month label sent by the search service, completed with a day.
const bucketLayout = "2006-01-02"

// ParseBucket expands a "YYYY-MM" label to the first day of that month (UTC).
func ParseBucket(label string) (time.Time, error) {
	t, err := time.Parse(bucketLayout, label+"-01")
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidHistogramBucket, label)
	}
	return t, nil
}
