package scoring

import "github.com/trendrunner/tokentrader/internal/types"

// Contradictions runs single-snapshot sanity checks across a row's
// reported fields. Returns the list of failing codes (the gates stage
// pipe-joins them); empty means pass.
func Contradictions(row types.NormalizedRow) []string {
	var reasons []string

	if row.MarketCap != nil && row.FDV != nil && *row.MarketCap > 1.05*(*row.FDV) {
		reasons = append(reasons, "FDV_LT_MARKETCAP")
	}
	if row.MarketCap != nil && row.LiquidityUSD > *row.MarketCap {
		reasons = append(reasons, "LIQUIDITY_GT_MARKETCAP")
	}

	vol24 := row.VolumeUSD[types.Window24h]
	txns24 := row.Txns[types.Window24h]
	total24 := txns24.Buys + txns24.Sells
	if (vol24 > 0 && total24 == 0) || (vol24 == 0 && total24 > 0) {
		reasons = append(reasons, "VOLUME_TXNS_CONFLICT")
	}

	if !isMonotonic(row) {
		reasons = append(reasons, "TXNS_NON_MONOTONIC")
	}

	return reasons
}

// isMonotonic checks that (m5, h1, h6, h24) txn totals are non-decreasing
// across present values.
func isMonotonic(row types.NormalizedRow) bool {
	order := []types.Window{types.Window5m, types.Window1h, types.Window6h, types.Window24h}
	prev := -1
	for _, w := range order {
		b, ok := row.Txns[w]
		if !ok {
			continue
		}
		total := b.Buys + b.Sells
		if prev >= 0 && total < prev {
			return false
		}
		prev = total
	}
	return true
}
