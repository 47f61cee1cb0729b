package indicators

import (
	"testing"

	"github.com/web3guy0/xylbot/types"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSlope(t *testing.T) {
	closes := []float64{100, 100, 100, 100, 100, 125}
	if got := Slope(closes, 5, 5); got != 20 {
		t.Errorf("Slope = %v, want 20", got)
	}
	if got := Slope(closes, 4, 5); got != 0 {
		t.Errorf("Slope without horizon = %v, want 0", got)
	}
	if got := Slope([]float64{0, 1, 1, 1, 1, 1}, 5, 5); got != 0 {
		t.Errorf("Slope with zero price = %v, want 0", got)
	}
}

func TestClassifyInsufficientHistory(t *testing.T) {
	tc := NewTrendClassifier(DefaultTrendConfig())
	r := tc.Classify([]float64{100, 101, 102})
	if r.Trend != types.TrendNeutral || r.Extreme != types.ExtremeNone || r.Choppy || r.Slope != 0 {
		t.Fatalf("unexpected regime %+v", r)
	}
}

func TestClassifyTrendAndExtreme(t *testing.T) {
	cfg := DefaultTrendConfig()
	cfg.TrendThreshold = 0.1
	cfg.TrendExitThreshold = 0.1
	cfg.ExtremeThreshold = 0.5

	tests := []struct {
		name    string
		closes  []float64
		trend   types.TrendState
		extreme types.ExtremeState
	}{
		{"flat", ramp(30, 100, 0), types.TrendNeutral, types.ExtremeNone},
		{"strong up", ramp(30, 100, 0.05), types.TrendStrongUp, types.ExtremeNone},
		{"extreme up", ramp(30, 100, 0.2), types.TrendStrongUp, types.ExtremeUp},
		{"strong down", ramp(30, 100, -0.05), types.TrendStrongDown, types.ExtremeNone},
		{"extreme down", ramp(30, 100, -0.2), types.TrendStrongDown, types.ExtremeDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewTrendClassifier(cfg).Classify(tt.closes)
			if r.Trend != tt.trend || r.Extreme != tt.extreme {
				t.Errorf("got %s/%s (slope %.3f), want %s/%s", r.Trend, r.Extreme, r.Slope, tt.trend, tt.extreme)
			}
		})
	}
}

func TestClassifyHysteresis(t *testing.T) {
	cfg := DefaultTrendConfig()
	cfg.TrendThreshold = 0.2
	cfg.TrendExitThreshold = 0.1
	cfg.ExtremeThreshold = 1
	tc := NewTrendClassifier(cfg)

	// 5-bar slope of about 0.3% then 0.15%
	strong := ramp(10, 1000, 0.6)
	if r := tc.Classify(strong); r.Trend != types.TrendStrongUp {
		t.Fatalf("entry: got %s slope %.3f", r.Trend, r.Slope)
	}

	weaker := append(append([]float64(nil), strong...), 1005.5, 1005.6, 1005.7)
	r := tc.Classify(weaker)
	if r.Slope <= cfg.TrendExitThreshold || r.Slope >= cfg.TrendThreshold {
		t.Fatalf("test setup: slope %.3f not inside the hysteresis band", r.Slope)
	}
	if r.Trend != types.TrendStrongUp {
		t.Errorf("trend dropped inside hysteresis band: %s", r.Trend)
	}

	fresh := NewTrendClassifier(cfg)
	if r := fresh.Classify(weaker); r.Trend != types.TrendNeutral {
		t.Errorf("fresh classifier should not enter on exit threshold: %s", r.Trend)
	}
}

func TestChopPolicies(t *testing.T) {
	zigzag := make([]float64, 40)
	for i := range zigzag {
		zigzag[i] = 100
		if i%2 == 1 {
			zigzag[i] = 100.001
		}
	}

	noise := NewTrendClassifier(DefaultTrendConfig())
	if r := noise.Classify(zigzag); !r.Choppy {
		t.Error("noise policy: flat tape should be choppy")
	}
	if r := noise.Classify(ramp(40, 100, 0.2)); r.Choppy {
		t.Error("noise policy: trending tape should not be choppy")
	}

	cfg := DefaultTrendConfig()
	cfg.ChopPolicy = ChopFlips
	cfg.SlopeBars = 1
	flips := NewTrendClassifier(cfg)
	if r := flips.Classify(zigzag); !r.Choppy {
		t.Error("flips policy: alternating slopes should be choppy")
	}
	if r := flips.Classify(ramp(40, 100, 0.2)); r.Choppy {
		t.Error("flips policy: one-way tape should not be choppy")
	}
}

func TestMajorityShares(t *testing.T) {
	r := NewTrendClassifier(DefaultTrendConfig()).Classify(ramp(30, 200, -0.5))
	if r.FallingShare != 1 || r.RisingShare != 0 {
		t.Errorf("got rising %.2f falling %.2f", r.RisingShare, r.FallingShare)
	}
}
