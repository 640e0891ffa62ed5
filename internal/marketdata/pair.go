package marketdata

import "github.com/trendrunner/tokentrader/internal/types"

// Pair is one aggregator pair record, already promoted out of raw JSON.
type Pair struct {
	Chain         string
	PairAddress   string
	BaseAddress   string
	BaseSymbol    string
	PriceUSD      float64
	PriceNative   float64
	LiquidityUSD  float64
	VolumeUSD     map[types.Window]float64
	PriceChangePct map[types.Window]float64
	Txns          map[types.Window]types.TxnBucket
	PairCreatedAt int64
	FDV           *float64
	MarketCap     *float64
}

// bestPair picks the pair maximizing (liquidity_usd, volume_24h)
// lexicographically, per the glossary's "best pair" definition.
func bestPair(pairs []Pair) (Pair, bool) {
	if len(pairs) == 0 {
		return Pair{}, false
	}
	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.LiquidityUSD > best.LiquidityUSD {
			best = p
			continue
		}
		if p.LiquidityUSD == best.LiquidityUSD && p.VolumeUSD[types.Window24h] > best.VolumeUSD[types.Window24h] {
			best = p
		}
	}
	return best, true
}

func toNormalizedRow(p Pair) types.NormalizedRow {
	return types.NormalizedRow{
		Chain:          p.Chain,
		TokenAddress:   p.BaseAddress,
		PairAddress:    p.PairAddress,
		Symbol:         p.BaseSymbol,
		PriceUSD:       p.PriceUSD,
		PriceNative:    p.PriceNative,
		VolumeUSD:      p.VolumeUSD,
		LiquidityUSD:   p.LiquidityUSD,
		PriceChangePct: p.PriceChangePct,
		Txns:           p.Txns,
		PairCreatedAt:  p.PairCreatedAt,
		FDV:            p.FDV,
		MarketCap:      p.MarketCap,
	}
}
