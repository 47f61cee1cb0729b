package indicators

// ═══════════════════════════════════════════════════════════════════════════════
// NATIVE HELPERS - Small pure-Go math shared by the calculators
// ═══════════════════════════════════════════════════════════════════════════════

// SMA calculates Simple Moving Average over the last period values.
// With fewer values than period it averages what is there.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return average(prices)
	}
	return average(prices[len(prices)-period:])
}

// EMA calculates Exponential Moving Average seeded with the first SMA
func EMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return average(prices)
	}

	multiplier := 2.0 / float64(period+1)
	ema := average(prices[:period])

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
	}

	return ema
}

// Momentum is the percent change over period bars, measured against the
// older value. 0 without enough data or when the older value is not positive.
func Momentum(prices []float64, period int) float64 {
	if period <= 0 || len(prices) <= period {
		return 0
	}

	current := prices[len(prices)-1]
	previous := prices[len(prices)-1-period]

	if previous <= 0 {
		return 0
	}

	return ((current - previous) / previous) * 100
}

// SimpleRSI averages the gains and losses of the last period changes with
// a plain mean instead of Wilder's smoothing. 50 without enough data.
func SimpleRSI(closes []float64, period int) float64 {
	n := len(closes)
	if period <= 0 || n < period+1 {
		return 50
	}

	gain, loss := 0.0, 0.0
	for i := n - period; i < n; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		if gain == 0 {
			return 50
		}
		return 100
	}
	return 100 - 100/(1+gain/loss)
}

// Tail returns at most the last n values (n <= 0 = all)
func Tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func average(prices []float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}
