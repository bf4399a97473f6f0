package metric

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Sample is one observed value of a metric at a point in time.
type Sample struct {
	Timestamp time.Time
	Value     decimal.Decimal
}

// Series holds the ordered samples of a single metric for one
// (contratante, planejamento) pair. Samples are kept ascending by
// timestamp; adding a sample at an existing timestamp replaces it.
type Series struct {
	Key     string
	samples []Sample
}

// NewSeries constructs an empty series for a metric key.
func NewSeries(key string) *Series {
	return &Series{Key: key}
}

// Add inserts a sample keeping ascending timestamp order. Last write at a
// given timestamp wins.
func (s *Series) Add(sample Sample) {
	idx := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(sample.Timestamp)
	})
	if idx < len(s.samples) && s.samples[idx].Timestamp.Equal(sample.Timestamp) {
		s.samples[idx] = sample
		return
	}
	s.samples = append(s.samples, Sample{})
	copy(s.samples[idx+1:], s.samples[idx:])
	s.samples[idx] = sample
}

// Len reports the number of samples.
func (s *Series) Len() int {
	return len(s.samples)
}

// Samples returns a copy of the ordered samples.
func (s *Series) Samples() []Sample {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}

// Baseline returns the earliest sample. ok is false for an empty series.
func (s *Series) Baseline() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[0], true
}

// Current returns the latest sample. ok is false for an empty series.
func (s *Series) Current() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// TrailingWindow returns the samples inside the window of `days` days
// ending at the series' own last timestamp, boundaries inclusive. The
// window is anchored on the last observation rather than wall clock so
// the result is stable under replay.
func (s *Series) TrailingWindow(days int) []Sample {
	if len(s.samples) == 0 {
		return nil
	}
	end := s.samples[len(s.samples)-1].Timestamp
	start := end.AddDate(0, 0, -days)
	idx := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].Timestamp.Before(start)
	})
	out := make([]Sample, len(s.samples)-idx)
	copy(out, s.samples[idx:])
	return out
}
