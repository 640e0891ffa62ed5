package risk

import (
	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/internal/types"
)

// ThresholdParams mirrors the config values the arming formula reads.
type ThresholdParams struct {
	SLFloor    float64
	SLCap      float64
	TP1Default float64
	TP2Default float64
}

// Thresholds is the armed SL/TP1/TP2 triple for a new position.
type Thresholds struct {
	Stop decimal.Decimal
	TP1  decimal.Decimal
	TP2  decimal.Decimal
}

// ComputeThresholds derives the initial SL/TP1/TP2 triple for a new
// position from its volatility proxy.
func ComputeThresholds(entry decimal.Decimal, row types.NormalizedRow, p ThresholdParams) Thresholds {
	vol := RealizedVolProxy(row)
	stopFrac := clamp(1.8*vol, p.SLFloor, p.SLCap)
	tp1Frac := max(p.TP1Default, 0.9*stopFrac)
	tp2Frac := max(p.TP2Default, 1.8*tp1Frac)

	one := decimal.NewFromInt(1)
	return Thresholds{
		TP1:  entry.Mul(one.Add(decimal.NewFromFloat(tp1Frac))),
		TP2:  entry.Mul(one.Add(decimal.NewFromFloat(tp2Frac))),
		Stop: entry.Mul(one.Sub(decimal.NewFromFloat(stopFrac))),
	}
}

// RatchetStop implements the post-TP1 stop tightening used by the
// price-polling loop for PARTIAL-phase positions.
func RatchetStop(currentStop, entry, tp1 decimal.Decimal) decimal.Decimal {
	floor := entry.Mul(decimal.NewFromFloat(1.002)).Add(
		tp1.Sub(entry).Mul(decimal.NewFromFloat(0.35)),
	)
	if floor.GreaterThan(currentStop) {
		return floor
	}
	return currentStop
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
