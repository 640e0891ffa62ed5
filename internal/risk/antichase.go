// Package risk implements the pre-entry anti-chase gate and the threshold
// computation used to arm a freshly-opened position.
package risk

import "github.com/trendrunner/tokentrader/internal/types"

// AntiChaseParams mirrors the config thresholds the gate reads.
type AntiChaseParams struct {
	LiqMin   float64
	MaxAbsM5 float64
	MaxAbsH1 float64
}

// AntiChase returns ("", true) on pass, or the machine reason code on
// rejection.
func AntiChase(row types.NormalizedRow, p AntiChaseParams) (reason string, pass bool) {
	if row.LiquidityUSD < p.LiqMin {
		return "low_liquidity", false
	}

	p5 := row.PriceChangePct[types.Window5m]
	p1 := row.PriceChangePct[types.Window1h]
	if abs(p5) > p.MaxAbsM5 && p1 > 0.7*p.MaxAbsH1 {
		return "overextended_spike", false
	}

	b1h := row.Txns[types.Window1h]
	total := b1h.Buys + b1h.Sells
	if total > 0 {
		ratio := float64(b1h.Buys) / float64(total)
		if ratio < 0.48 && p5 > 6 {
			return "weak_buy_flow", false
		}
	}

	return "", true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
