package feeds

import (
	"errors"
	"testing"
	"time"

	"github.com/web3guy0/xylbot/types"
)

func mkBar(t time.Time, close float64) types.Bar {
	return types.Bar{Time: t, Open: close, High: close + 1, Low: close - 1, Close: close, Volume: 10}
}

func TestBarSeriesRejectsOutOfOrder(t *testing.T) {
	s := NewBarSeries("ES", 0)
	t0 := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)

	if err := s.Append(mkBar(t0, 100)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := s.Append(mkBar(t0, 101)); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("duplicate timestamp: got %v, want ErrOutOfOrder", err)
	}
	if err := s.Append(mkBar(t0.Add(-time.Minute), 101)); !errors.Is(err, ErrOutOfOrder) {
		t.Fatalf("older timestamp: got %v, want ErrOutOfOrder", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestBarSeriesTrimKeepsAbsoluteIndex(t *testing.T) {
	s := NewBarSeries("ES", 10)
	t0 := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		if err := s.Append(mkBar(t0.Add(time.Duration(i)*time.Minute), float64(100+i))); err != nil {
			t.Fatal(err)
		}
	}

	if s.Len() != 35 {
		t.Fatalf("Len = %d, want 35", s.Len())
	}
	if s.Retained() > 20 || s.Retained() < 10 {
		t.Fatalf("Retained = %d, want within [10,20]", s.Retained())
	}
	bar, ok := s.At(34)
	if !ok || bar.Close != 134 {
		t.Fatalf("At(34) = %v,%v", bar.Close, ok)
	}
	if _, ok := s.At(0); ok {
		t.Fatal("At(0) should be trimmed")
	}
	prev, ok := s.Ago(1)
	if !ok || prev.Close != 133 {
		t.Fatalf("Ago(1) = %v,%v", prev.Close, ok)
	}
}

func TestBarSeriesIndexAt(t *testing.T) {
	s := NewBarSeries("ES", 0)
	t0 := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = s.Append(mkBar(t0.Add(time.Duration(i)*time.Minute), 100))
	}

	tests := []struct {
		at   time.Time
		want int
	}{
		{t0.Add(-time.Hour), 0},
		{t0, 0},
		{t0.Add(90 * time.Second), 2},
		{t0.Add(4 * time.Minute), 4},
		{t0.Add(time.Hour), 5},
	}
	for _, tt := range tests {
		if got := s.IndexAt(tt.at); got != tt.want {
			t.Errorf("IndexAt(%s) = %d, want %d", tt.at.Format(time.Kitchen), got, tt.want)
		}
	}
}

func TestBarSeriesSessionStart(t *testing.T) {
	cal := Calendar{Location: time.UTC}
	s := NewBarSeries("ES", 0)
	day1 := time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_ = s.Append(mkBar(day1.Add(time.Duration(i)*time.Hour), 100))
	}
	for i := 0; i < 4; i++ {
		_ = s.Append(mkBar(day2.Add(time.Duration(i)*time.Minute), 100))
	}

	if got := s.SessionStart(2, cal); got != 0 {
		t.Errorf("SessionStart(2) = %d, want 0", got)
	}
	if got := s.SessionStart(6, cal); got != 3 {
		t.Errorf("SessionStart(6) = %d, want 3", got)
	}
	if got := s.SessionStart(3, cal); got != 3 {
		t.Errorf("SessionStart(3) = %d, want 3", got)
	}
}

func TestHighestLowestCloseExcludeCurrent(t *testing.T) {
	s := NewBarSeries("ES", 0)
	t0 := time.Date(2024, 3, 4, 14, 30, 0, 0, time.UTC)
	for i, c := range []float64{10, 14, 12, 9, 11, 30} {
		_ = s.Append(mkBar(t0.Add(time.Duration(i)*time.Minute), c))
	}

	hi, ok := s.HighestClose(5)
	if !ok || hi != 14 {
		t.Errorf("HighestClose(5) = %v,%v want 14", hi, ok)
	}
	lo, ok := s.LowestClose(5)
	if !ok || lo != 9 {
		t.Errorf("LowestClose(5) = %v,%v want 9", lo, ok)
	}
	if _, ok := s.HighestClose(6); ok {
		t.Error("HighestClose(6) should lack history")
	}
}
