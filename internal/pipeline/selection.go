// Package pipeline implements the three trending-cycle stages: selection,
// gates, and execution.
package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/logx"
	"github.com/trendrunner/tokentrader/internal/marketdata"
	"github.com/trendrunner/tokentrader/internal/scoring"
	"github.com/trendrunner/tokentrader/internal/types"
)

var log = logx.New("pipeline")

// universeFetchMultiple over-fetches relative to MaxResults so soft-fill has
// a pool to draw from once the strict momentum floor has already trimmed it.
const universeFetchMultiple = 6

// Selection fetches, normalizes, scores, and ranks the trending universe
// down to a candidate shortlist. openPositions is used for the final
// dedup step.
func Selection(ctx context.Context, client *marketdata.Client, cfg *config.Settings, openPositions []types.Position) ([]types.Candidate, error) {
	pageSize := cfg.MaxResults * universeFetchMultiple
	if pageSize < 200 {
		pageSize = 200
	}

	universe, err := client.FetchTrendingCandidates(ctx, pageSize)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	kept := make([]types.NormalizedRow, 0, len(universe))
	for _, row := range universe {
		if row.VolumeUSD[types.Window24h] < cfg.V24Min {
			continue
		}
		if row.LiquidityUSD < cfg.LiqMin {
			continue
		}
		if !passesMomentum(row, cfg) {
			continue
		}
		kept = append(kept, row)
	}
	sortRows(kept, cfg.SoftFillSortKey)
	if len(kept) > cfg.MaxResults {
		kept = kept[:cfg.MaxResults]
	}

	if len(kept) < cfg.SoftMin {
		keptAddrs := make(map[string]bool, len(kept))
		for _, r := range kept {
			keptAddrs[r.TokenAddress] = true
		}

		var pool []types.NormalizedRow
		for _, row := range universe {
			if keptAddrs[row.TokenAddress] {
				continue
			}
			if row.VolumeUSD[types.Window24h] < cfg.V24Min || row.LiquidityUSD < cfg.LiqMin {
				continue
			}
			p1 := row.PriceChangePct[types.Window1h]
			p24 := row.PriceChangePct[types.Window24h]
			if p1 < 0 && p24 < 0 {
				continue
			}
			pool = append(pool, row)
		}
		sortRows(pool, cfg.SoftFillSortKey)

		target := cfg.SoftMin
		if target > cfg.MaxResults {
			target = cfg.MaxResults
		}
		for _, row := range pool {
			if len(kept) >= target {
				break
			}
			kept = append(kept, row)
		}
	}

	candidates := make([]types.Candidate, 0, len(kept))
	for _, row := range kept {
		ageHours := tokenAgeHours(row, now)
		qr := scoring.Quality(row, ageHours, scoring.QualityParams{
			LiqMin: cfg.LiqMin, V24Min: cfg.V24Min,
			AgeMinHrs: cfg.AgeMinHours, AgeMaxHrs: cfg.AgeMaxHours,
			MaxAbsM5: cfg.MaxAbsM5, MaxAbsH1: cfg.MaxAbsH1, MaxAbsH6: cfg.MaxAbsH6, MaxAbsH24: cfg.MaxAbsH24,
			QualityMin: cfg.QualityMin,
		})
		if !qr.Pass {
			continue
		}
		candidates = append(candidates, types.Candidate{
			NormalizedRow: row,
			TokenAgeHours: ageHours,
			QualityScore:  qr.Score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return sortKeyValue(candidates[i].NormalizedRow, cfg.SoftFillSortKey) > sortKeyValue(candidates[j].NormalizedRow, cfg.SoftFillSortKey)
	})
	if len(candidates) > cfg.MaxResults {
		candidates = candidates[:cfg.MaxResults]
	}

	candidates = dedupeAgainstOpen(candidates, openPositions)
	log.Printf("selection stage: %d candidates after quality gate and dedup", len(candidates))
	return candidates, nil
}

func passesMomentum(row types.NormalizedRow, cfg *config.Settings) bool {
	p5, hasP5 := row.PriceChangePct[types.Window5m]
	p1, hasP1 := row.PriceChangePct[types.Window1h]
	p24 := row.PriceChangePct[types.Window24h]

	if hasP5 {
		return p5 >= cfg.T5 || p24 >= cfg.T24
	}
	if hasP1 {
		return p1 >= cfg.T1 || p24 >= cfg.T24
	}
	return p24 >= cfg.T24
}

func sortKeyValue(row types.NormalizedRow, key string) float64 {
	if key == "liqUsd" {
		return row.LiquidityUSD
	}
	return row.VolumeUSD[types.Window24h]
}

func sortRows(rows []types.NormalizedRow, key string) {
	sort.SliceStable(rows, func(i, j int) bool {
		return sortKeyValue(rows[i], key) > sortKeyValue(rows[j], key)
	})
}

func tokenAgeHours(row types.NormalizedRow, now time.Time) float64 {
	if row.PairCreatedAt <= 0 {
		return 0
	}
	created := time.UnixMilli(row.PairCreatedAt)
	return now.Sub(created).Hours()
}

// dedupeAgainstOpen drops any candidate matching an open position by
// symbol or address.
func dedupeAgainstOpen(candidates []types.Candidate, openPositions []types.Position) []types.Candidate {
	symbols := make(map[string]bool, len(openPositions))
	addrs := make(map[string]bool, len(openPositions))
	for _, p := range openPositions {
		symbols[p.Symbol] = true
		addrs[p.TokenAddress] = true
	}
	out := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if symbols[c.Symbol] || addrs[c.TokenAddress] {
			continue
		}
		out = append(out, c)
	}
	return out
}
