package risk

import "github.com/trendrunner/tokentrader/internal/types"

// RealizedVolProxy approximates short-horizon volatility from the two
// fastest momentum windows, clamped to a sane band. Used both for sizing
// and for threshold computation.
func RealizedVolProxy(row types.NormalizedRow) float64 {
	p5 := abs(row.PriceChangePct[types.Window5m]) / 100
	p1 := abs(row.PriceChangePct[types.Window1h]) / 100
	mean := (p5 + p1) / 2
	return clamp(mean, 0.01, 0.30)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
