package feeds

import (
	"testing"

	"github.com/web3guy0/xylbot/types"
)

func TestQuoteBookVolumeAtPrice(t *testing.T) {
	qb := NewQuoteBook(0.25)
	qb.Update(types.Quote{Bid: 5000, Ask: 5000.25, BidSize: 10, AskSize: 12})
	qb.Update(types.Quote{LastPrice: 5000.25, LastSize: 3})
	qb.Update(types.Quote{LastPrice: 5000.25, LastSize: 2})
	qb.Update(types.Quote{LastPrice: 5000, LastSize: 4})

	if got := qb.RecentAskVolumeAt(5000.25); got != 5 {
		t.Errorf("ask volume = %v, want 5", got)
	}
	if got := qb.RecentBidVolumeAt(5000); got != 4 {
		t.Errorf("bid volume = %v, want 4", got)
	}
	if got := qb.Spread(); got != 0.25 {
		t.Errorf("spread = %v, want 0.25", got)
	}

	qb.RollBar()
	if qb.RecentAskVolumeAt(5000.25) != 0 {
		t.Error("RollBar should clear volume at price")
	}
	if qb.BestBid() != 5000 {
		t.Error("RollBar should keep top of book")
	}
}
