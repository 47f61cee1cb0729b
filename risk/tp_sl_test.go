package risk

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/xylbot/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestStopOffsetPercent(t *testing.T) {
	off := StopOffset(StopPercent, d("5000"), 0.1, 4, 2.5, es)
	if !off.Equal(d("5")) {
		t.Fatalf("offset = %s, want 5", off)
	}
	req := types.OrderRequest{Direction: types.Long, Reference: d("5000"), StopOffset: off}
	if !req.StopPrice().Equal(d("4995")) {
		t.Fatalf("stop = %s, want 4995", req.StopPrice())
	}
}

func TestStopOffsetATR(t *testing.T) {
	if off := StopOffset(StopATR, d("5000"), 0.1, 4.1, 2.5, es); !off.Equal(d("10.25")) {
		t.Fatalf("atr offset = %s, want 10.25", off)
	}
	if off := StopOffset(StopATR, d("5000"), 0.1, 0, 2.5, es); !off.Equal(d("5")) {
		t.Fatalf("fallback offset = %s, want 5", off)
	}
	if off := StopOffset(StopPercent, d("10"), 0.1, 0, 0, es); !off.Equal(d("0.25")) {
		t.Fatalf("sub-tick offset = %s, want one tick", off)
	}
}

func TestTrailPrice(t *testing.T) {
	// gain 10 > 2·4: 5010 - 1.5·4 = 5004
	p, ok := TrailPrice(types.Long, d("5000"), d("5010"), 4, 2, 1.5, es)
	if !ok || !p.Equal(d("5004")) {
		t.Fatalf("trail = %s,%v want 5004", p, ok)
	}
	if _, ok := TrailPrice(types.Long, d("5000"), d("5007"), 4, 2, 1.5, es); ok {
		t.Fatal("gain below trigger should not trail")
	}
	if _, ok := TrailPrice(types.Long, d("5000"), d("5008"), 4, 2, 1.5, es); ok {
		t.Fatal("gain equal to the trigger should not trail")
	}
	p, ok = TrailPrice(types.Short, d("5000"), d("4990"), 4, 2, 1.5, es)
	if !ok || !p.Equal(d("4996")) {
		t.Fatalf("short trail = %s,%v want 4996", p, ok)
	}
}

func TestExtendedTarget(t *testing.T) {
	p, ok := ExtendedTarget(types.Long, d("5000"), d("5016"), 4, 4, 12, es)
	if !ok || !p.Equal(d("5048")) {
		t.Fatalf("extended = %s,%v want 5048", p, ok)
	}
	if _, ok := ExtendedTarget(types.Long, d("5000"), d("5015"), 4, 4, 12, es); ok {
		t.Fatal("move below trigger should not extend")
	}
}

func TestBetter(t *testing.T) {
	if !Better(types.Long, d("5004"), d("4995")) || Better(types.Long, d("4995"), d("4995")) {
		t.Error("long comparisons")
	}
	if !Better(types.Short, d("4996"), d("5005")) || Better(types.Short, d("5006"), d("5005")) {
		t.Error("short comparisons")
	}
}
