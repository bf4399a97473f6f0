package metric

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestSeriesAddKeepsOrder(t *testing.T) {
	s := NewSeries("dias_ruptura")
	s.Add(Sample{Timestamp: day(2), Value: decimal.NewFromInt(2)})
	s.Add(Sample{Timestamp: day(0), Value: decimal.NewFromInt(0)})
	s.Add(Sample{Timestamp: day(1), Value: decimal.NewFromInt(1)})

	samples := s.Samples()
	if len(samples) != 3 {
		t.Fatalf("esperava 3 amostras, obteve %d", len(samples))
	}
	for i, sample := range samples {
		if !sample.Timestamp.Equal(day(i)) {
			t.Fatalf("amostra %d fora de ordem: %s", i, sample.Timestamp)
		}
	}
}

func TestSeriesAddReplacesSameTimestamp(t *testing.T) {
	s := NewSeries("dias_ruptura")
	s.Add(Sample{Timestamp: day(0), Value: decimal.NewFromInt(5)})
	s.Add(Sample{Timestamp: day(0), Value: decimal.NewFromInt(7)})

	if s.Len() != 1 {
		t.Fatalf("timestamp repetido deveria substituir, len=%d", s.Len())
	}
	current, _ := s.Current()
	if !current.Value.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("última escrita deveria vencer, valor=%s", current.Value)
	}
}

func TestSeriesBaselineCurrentEmpty(t *testing.T) {
	s := NewSeries("vazia")
	if _, ok := s.Baseline(); ok {
		t.Fatal("série vazia não deveria ter baseline")
	}
	if _, ok := s.Current(); ok {
		t.Fatal("série vazia não deveria ter current")
	}
	if got := s.TrailingWindow(7); got != nil {
		t.Fatalf("janela de série vazia deveria ser nil, obteve %v", got)
	}
}

func TestSeriesTrailingWindowAnchoredAtLastSample(t *testing.T) {
	s := NewSeries("cobertura")
	for d := 0; d < 10; d++ {
		s.Add(Sample{Timestamp: day(d), Value: decimal.NewFromInt(int64(d))})
	}

	window := s.TrailingWindow(7)
	if len(window) != 8 {
		t.Fatalf("janela de 7 dias com limites inclusivos deveria ter 8 amostras, obteve %d", len(window))
	}
	if !window[0].Timestamp.Equal(day(2)) {
		t.Fatalf("início da janela incorreto: %s", window[0].Timestamp)
	}
	if !window[len(window)-1].Timestamp.Equal(day(9)) {
		t.Fatalf("fim da janela incorreto: %s", window[len(window)-1].Timestamp)
	}
}

func TestStoreKeysSortedAndBounds(t *testing.T) {
	store := NewStore(101, 42)
	store.Add("b_metric", Sample{Timestamp: day(3), Value: decimal.NewFromInt(1)})
	store.Add("a_metric", Sample{Timestamp: day(1), Value: decimal.NewFromInt(1)})
	store.Add("a_metric", Sample{Timestamp: day(5), Value: decimal.NewFromInt(2)})

	keys := store.Keys()
	if len(keys) != 2 || keys[0] != "a_metric" || keys[1] != "b_metric" {
		t.Fatalf("chaves deveriam vir ordenadas: %v", keys)
	}

	start, end, ok := store.Bounds()
	if !ok {
		t.Fatal("Bounds deveria encontrar amostras")
	}
	if !start.Equal(day(1)) || !end.Equal(day(5)) {
		t.Fatalf("limites incorretos: %s – %s", start, end)
	}
}
