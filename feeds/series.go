package feeds

import (
	"errors"
	"sort"
	"time"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// BAR SERIES - Ordered bar history for one instrument
// ═══════════════════════════════════════════════════════════════════════════════
//
// Indexes are absolute: the first bar ever appended is index 0, even after
// old bars have been trimmed from memory. Lookback is by offset from the
// latest bar (0 = current).
//
// ═══════════════════════════════════════════════════════════════════════════════

// ErrOutOfOrder is returned when a bar does not advance the clock
var ErrOutOfOrder = errors.New("bar timestamp not after previous bar")

// BarSeries keeps the retained bars plus parallel float columns
type BarSeries struct {
	symbol  string
	maxLen  int
	trimmed int // bars dropped from the front

	bars    []types.Bar
	opens   []float64
	highs   []float64
	lows    []float64
	closes  []float64
	volumes []float64
}

// NewBarSeries creates a series retaining at least maxLen bars (0 = all)
func NewBarSeries(symbol string, maxLen int) *BarSeries {
	return &BarSeries{
		symbol: symbol,
		maxLen: maxLen,
	}
}

// Symbol of the instrument
func (s *BarSeries) Symbol() string {
	return s.symbol
}

// Append adds a bar; its timestamp must be strictly after the last one
func (s *BarSeries) Append(bar types.Bar) error {
	if n := len(s.bars); n > 0 && !bar.Time.After(s.bars[n-1].Time) {
		return ErrOutOfOrder
	}

	s.bars = append(s.bars, bar)
	s.opens = append(s.opens, bar.Open)
	s.highs = append(s.highs, bar.High)
	s.lows = append(s.lows, bar.Low)
	s.closes = append(s.closes, bar.Close)
	s.volumes = append(s.volumes, bar.Volume)

	// Trim in chunks so appends stay amortized O(1)
	if s.maxLen > 0 && len(s.bars) > 2*s.maxLen {
		drop := len(s.bars) - s.maxLen
		s.bars = append([]types.Bar(nil), s.bars[drop:]...)
		s.opens = append([]float64(nil), s.opens[drop:]...)
		s.highs = append([]float64(nil), s.highs[drop:]...)
		s.lows = append([]float64(nil), s.lows[drop:]...)
		s.closes = append([]float64(nil), s.closes[drop:]...)
		s.volumes = append([]float64(nil), s.volumes[drop:]...)
		s.trimmed += drop
	}
	return nil
}

// Reset drops every bar
func (s *BarSeries) Reset() {
	s.bars = nil
	s.opens = nil
	s.highs = nil
	s.lows = nil
	s.closes = nil
	s.volumes = nil
	s.trimmed = 0
}

// Len is the absolute number of bars appended
func (s *BarSeries) Len() int {
	return s.trimmed + len(s.bars)
}

// Retained is the number of bars held in memory
func (s *BarSeries) Retained() int {
	return len(s.bars)
}

// LastIndex is the absolute index of the latest bar (-1 if empty)
func (s *BarSeries) LastIndex() int {
	return s.Len() - 1
}

// Last returns the latest bar
func (s *BarSeries) Last() (types.Bar, bool) {
	return s.Ago(0)
}

// Ago returns the bar n bars before the latest (0 = latest)
func (s *BarSeries) Ago(n int) (types.Bar, bool) {
	i := len(s.bars) - 1 - n
	if n < 0 || i < 0 {
		return types.Bar{}, false
	}
	return s.bars[i], true
}

// At returns the bar at an absolute index
func (s *BarSeries) At(index int) (types.Bar, bool) {
	i := index - s.trimmed
	if i < 0 || i >= len(s.bars) {
		return types.Bar{}, false
	}
	return s.bars[i], true
}

// Bars returns the retained bars (read only)
func (s *BarSeries) Bars() []types.Bar { return s.bars }

// Opens returns the retained open column (read only)
func (s *BarSeries) Opens() []float64 { return s.opens }

// Highs returns the retained high column (read only)
func (s *BarSeries) Highs() []float64 { return s.highs }

// Lows returns the retained low column (read only)
func (s *BarSeries) Lows() []float64 { return s.lows }

// Closes returns the retained close column (read only)
func (s *BarSeries) Closes() []float64 { return s.closes }

// Volumes returns the retained volume column (read only)
func (s *BarSeries) Volumes() []float64 { return s.volumes }

// IndexAt returns the absolute index of the first retained bar with
// Time >= t, or Len() if every bar is earlier.
func (s *BarSeries) IndexAt(t time.Time) int {
	i := sort.Search(len(s.bars), func(k int) bool {
		return !s.bars[k].Time.Before(t)
	})
	return s.trimmed + i
}

// SessionStart returns the absolute index of the first retained bar that
// shares the trading day of the bar at index. Trading days never decrease
// along the series so a binary search is enough.
func (s *BarSeries) SessionStart(index int, cal Calendar) int {
	bar, ok := s.At(index)
	if !ok {
		return index
	}
	day := cal.TradingDay(bar.Time)
	hi := index - s.trimmed
	i := sort.Search(hi+1, func(k int) bool {
		return !cal.TradingDay(s.bars[k].Time).Before(day)
	})
	return s.trimmed + i
}

// HighestClose returns the highest close over the n bars before the latest
// (the latest bar itself excluded). ok is false without enough history.
func (s *BarSeries) HighestClose(n int) (float64, bool) {
	if n <= 0 || len(s.closes) < n+1 {
		return 0, false
	}
	w := s.closes[len(s.closes)-1-n : len(s.closes)-1]
	best := w[0]
	for _, c := range w[1:] {
		if c > best {
			best = c
		}
	}
	return best, true
}

// LowestClose mirrors HighestClose
func (s *BarSeries) LowestClose(n int) (float64, bool) {
	if n <= 0 || len(s.closes) < n+1 {
		return 0, false
	}
	w := s.closes[len(s.closes)-1-n : len(s.closes)-1]
	best := w[0]
	for _, c := range w[1:] {
		if c < best {
			best = c
		}
	}
	return best, true
}
