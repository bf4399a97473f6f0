package metric

import (
	"sort"
	"time"
)

// Store owns the metric series of a single (contratante, planejamento)
// pair for the lifetime of one analysis run. It is rebuilt from scratch on
// every run; nothing downstream holds references back into it.
type Store struct {
	ContratanteID  int64
	PlanejamentoID int64

	series map[string]*Series
}

// NewStore constructs an empty store for one contratante/planejamento.
func NewStore(contratanteID, planejamentoID int64) *Store {
	return &Store{
		ContratanteID:  contratanteID,
		PlanejamentoID: planejamentoID,
		series:         make(map[string]*Series),
	}
}

// Add appends a sample to the series for key, creating the series on
// first use.
func (st *Store) Add(key string, sample Sample) {
	s, ok := st.series[key]
	if !ok {
		s = NewSeries(key)
		st.series[key] = s
	}
	s.Add(sample)
}

// Series returns the series for key.
func (st *Store) Series(key string) (*Series, bool) {
	s, ok := st.series[key]
	return s, ok
}

// Keys lists the metric keys with at least one sample, sorted.
func (st *Store) Keys() []string {
	keys := make([]string, 0, len(st.series))
	for key, s := range st.series {
		if s.Len() == 0 {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of non-empty series.
func (st *Store) Len() int {
	return len(st.Keys())
}

// Bounds returns the earliest and latest sample timestamps across every
// series. ok is false when the store holds no samples at all.
func (st *Store) Bounds() (start, end time.Time, ok bool) {
	for _, s := range st.series {
		first, found := s.Baseline()
		if !found {
			continue
		}
		last, _ := s.Current()
		if !ok {
			start, end, ok = first.Timestamp, last.Timestamp, true
			continue
		}
		if first.Timestamp.Before(start) {
			start = first.Timestamp
		}
		if last.Timestamp.After(end) {
			end = last.Timestamp
		}
	}
	return start, end, ok
}
