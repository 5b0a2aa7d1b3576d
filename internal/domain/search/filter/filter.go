package filter

import (
	"fmt"
	"slices"
	"time"

	"github.com/kailas-cloud/semindex/internal/domain"
)

// DateRange is a user-selected sub-interval of a histogram's time domain.
// Percent values encode the slider position and match the dates.
type DateRange struct {
	StartDate    time.Time
	StartPercent float64
	EndDate      time.Time
	EndPercent   float64
}

// NewDateRange validates ordering and percent bounds.
func NewDateRange(start time.Time, startPct float64, end time.Time, endPct float64) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: start %s after end %s",
			domain.ErrInvalidDateRange, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	if startPct < 0 || endPct > 100 || startPct > endPct {
		return DateRange{}, fmt.Errorf("%w: percent bounds %.2f..%.2f",
			domain.ErrInvalidDateRange, startPct, endPct)
	}
	return DateRange{StartDate: start, StartPercent: startPct, EndDate: end, EndPercent: endPct}, nil
}

// IsNarrowed reports whether the range excludes part of the domain.
func (r DateRange) IsNarrowed() bool {
	return r.StartPercent > 0 || r.EndPercent < 100
}

// Domain is the full time span covered by a histogram.
// Max is the end of the last bucket's month.
type Domain struct {
	Min time.Time
	Max time.Time
}

// DomainOf returns the span of an ordered histogram. ok is false for an empty histogram.
func DomainOf(buckets []domain.HistogramBucket) (d Domain, ok bool) {
	if len(buckets) == 0 {
		return Domain{}, false
	}
	return Domain{
		Min: buckets[0].Bucket,
		Max: buckets[len(buckets)-1].Bucket.AddDate(0, 1, 0),
	}, true
}

// Full returns the range covering the whole domain.
func (d Domain) Full() DateRange {
	return DateRange{StartDate: d.Min, StartPercent: 0, EndDate: d.Max, EndPercent: 100}
}

// RangeFromPercent derives dates from slider positions.
func (d Domain) RangeFromPercent(startPct, endPct float64) (DateRange, error) {
	return NewDateRange(d.dateAt(startPct), startPct, d.dateAt(endPct), endPct)
}

// RangeFromDates derives slider positions from dates, clamped to the domain.
func (d Domain) RangeFromDates(start, end time.Time) (DateRange, error) {
	start = clampTime(start, d.Min, d.Max)
	end = clampTime(end, d.Min, d.Max)
	return NewDateRange(start, d.percentAt(start, 0), end, d.percentAt(end, 100))
}

func (d Domain) dateAt(pct float64) time.Time {
	span := d.Max.Sub(d.Min)
	return d.Min.Add(time.Duration(float64(span) * pct / 100))
}

func (d Domain) percentAt(t time.Time, degenerate float64) float64 {
	span := d.Max.Sub(d.Min)
	if span <= 0 {
		return degenerate
	}
	return float64(t.Sub(d.Min)) / float64(span) * 100
}

func clampTime(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}

// Selection is a set of selected facet ids.
// A nil *Selection means no filter is applied (everything selected);
// an empty non-nil selection means nothing is selected.
type Selection struct {
	ids map[int]struct{}
}

// NewSelection creates a selection holding exactly ids.
func NewSelection(ids ...int) *Selection {
	s := &Selection{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// IsAll reports whether the selection is the no-filter sentinel.
func (s *Selection) IsAll() bool { return s == nil }

// Has reports whether id is selected.
func (s *Selection) Has(id int) bool {
	if s == nil {
		return true
	}
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids. The sentinel has no finite size and returns -1.
func (s *Selection) Len() int {
	if s == nil {
		return -1
	}
	return len(s.ids)
}

// Toggle flips membership of id. Must not be called on the sentinel.
func (s *Selection) Toggle(id int) {
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// IDs returns the selected ids in ascending order, or nil for the sentinel.
func (s *Selection) IDs() []int {
	if s == nil {
		return nil
	}
	out := make([]int, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy. The sentinel clones to nil.
func (s *Selection) Clone() *Selection {
	if s == nil {
		return nil
	}
	return NewSelection(s.IDs()...)
}

// Deselected counts how many of the given ids are not selected.
func (s *Selection) Deselected(all []int) int {
	if s == nil {
		return 0
	}
	n := 0
	for _, id := range all {
		if !s.Has(id) {
			n++
		}
	}
	return n
}
