package feeds

import (
	"math"
	"sync"

	"github.com/web3guy0/xylbot/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// QUOTE BOOK - Top of book plus recent traded volume per price
// ═══════════════════════════════════════════════════════════════════════════════
//
// Fed on every intrabar tick. Traded volume is attributed to the ask when a
// trade prints at or above the ask, to the bid when at or below the bid.
// Volume-at-price counters are cleared on each bar close.
//
// ═══════════════════════════════════════════════════════════════════════════════

// QuoteBook keeps the latest quote for one instrument
type QuoteBook struct {
	mu       sync.RWMutex
	tickSize float64
	last     types.Quote
	askVol   map[int64]float64 // tick-rounded price -> volume lifted at ask
	bidVol   map[int64]float64 // tick-rounded price -> volume hit at bid
}

// NewQuoteBook creates a quote book; tickSize is used to bucket prices
func NewQuoteBook(tickSize float64) *QuoteBook {
	if tickSize <= 0 {
		tickSize = 0.01
	}
	return &QuoteBook{
		tickSize: tickSize,
		askVol:   make(map[int64]float64),
		bidVol:   make(map[int64]float64),
	}
}

func (qb *QuoteBook) key(price float64) int64 {
	return int64(math.Round(price / qb.tickSize))
}

// Update applies one tick
func (qb *QuoteBook) Update(q types.Quote) {
	qb.mu.Lock()
	defer qb.mu.Unlock()

	if q.Bid > 0 {
		qb.last.Bid = q.Bid
		qb.last.BidSize = q.BidSize
	}
	if q.Ask > 0 {
		qb.last.Ask = q.Ask
		qb.last.AskSize = q.AskSize
	}
	qb.last.Time = q.Time

	if q.LastSize <= 0 || q.LastPrice <= 0 {
		return
	}
	qb.last.LastPrice = q.LastPrice
	qb.last.LastSize = q.LastSize

	switch {
	case qb.last.Ask > 0 && q.LastPrice >= qb.last.Ask:
		qb.askVol[qb.key(q.LastPrice)] += q.LastSize
	case qb.last.Bid > 0 && q.LastPrice <= qb.last.Bid:
		qb.bidVol[qb.key(q.LastPrice)] += q.LastSize
	}
}

// Snapshot returns the latest quote
func (qb *QuoteBook) Snapshot() types.Quote {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.last
}

// BestBid returns the highest bid price
func (qb *QuoteBook) BestBid() float64 {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.last.Bid
}

// BestAsk returns the lowest ask price
func (qb *QuoteBook) BestAsk() float64 {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.last.Ask
}

// Spread returns the bid-ask spread (0 when one side is missing)
func (qb *QuoteBook) Spread() float64 {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	if qb.last.Bid <= 0 || qb.last.Ask <= 0 {
		return 0
	}
	return qb.last.Ask - qb.last.Bid
}

// RecentAskVolumeAt returns volume lifted at price since the last bar close
func (qb *QuoteBook) RecentAskVolumeAt(price float64) float64 {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.askVol[qb.key(price)]
}

// RecentBidVolumeAt returns volume hit at price since the last bar close
func (qb *QuoteBook) RecentBidVolumeAt(price float64) float64 {
	qb.mu.RLock()
	defer qb.mu.RUnlock()
	return qb.bidVol[qb.key(price)]
}

// RollBar clears volume-at-price counters, keeping the top of book
func (qb *QuoteBook) RollBar() {
	qb.mu.Lock()
	defer qb.mu.Unlock()
	qb.askVol = make(map[int64]float64)
	qb.bidVol = make(map[int64]float64)
}

// Reset clears everything
func (qb *QuoteBook) Reset() {
	qb.mu.Lock()
	defer qb.mu.Unlock()
	qb.last = types.Quote{}
	qb.askVol = make(map[int64]float64)
	qb.bidVol = make(map[int64]float64)
}
