package pipeline

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/marketdata"
	"github.com/trendrunner/tokentrader/internal/risk"
	"github.com/trendrunner/tokentrader/internal/scoring"
	"github.com/trendrunner/tokentrader/internal/types"
)

// Skip is one SKIP analytics row produced by a gate or the execution stage.
type Skip struct {
	Candidate types.Candidate
	Reason    string // pipe-joined machine codes
}

// GatesResult is the gates stage output: survivors in statistics_score
// descending order, plus every skip emitted along the way.
type GatesResult struct {
	Eligible []types.Candidate
	Skips    []Skip
}

// Gates runs the per-candidate contradictions, statistics, cooldown,
// anti-chase, fresh-price, and deviation checks that whittle the shortlist
// to the set eligible for sizing. analytics
// may be nil in tests; production callers always pass the store so
// every rejection leaves an audit row.
func Gates(ctx context.Context, candidates []types.Candidate, cfg *config.Settings, client *marketdata.Client, cooldown *risk.CooldownTracker, analytics AnalyticsSink, now time.Time) (GatesResult, error) {
	var result GatesResult
	reject := func(c types.Candidate, reason string) {
		result.Skips = append(result.Skips, Skip{Candidate: c, Reason: reason})
		persistSkip(ctx, analytics, c, reason, now)
	}

	// 1. Contradictions gate.
	survivors := make([]types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		reasons := scoring.Contradictions(c.NormalizedRow)
		if len(reasons) > 0 {
			reject(c, strings.Join(reasons, "|"))
			continue
		}
		survivors = append(survivors, c)
	}

	// 2. Statistics gate: fit on the surviving cohort, score, drop below STAT_MIN.
	if len(survivors) == 0 {
		return result, nil
	}
	rows := make([]types.NormalizedRow, len(survivors))
	ages := make([]float64, len(survivors))
	for i, c := range survivors {
		rows[i] = c.NormalizedRow
		ages[i] = c.TokenAgeHours
	}
	scorer := scoring.FitCohort(rows, ages, scoring.StatisticsWeights{
		Liquidity: cfg.WeightLiq, Volume24h: cfg.WeightVol, Age: cfg.WeightAge,
		Momentum: cfg.WeightMom, OrderFlow: cfg.WeightFlow,
	})

	statSurvivors := make([]types.Candidate, 0, len(survivors))
	for _, c := range survivors {
		c.StatisticsScore = scorer.Score(c.NormalizedRow, c.TokenAgeHours)
		if c.StatisticsScore < cfg.StatMin {
			reject(c, "STAT_SCORE_BELOW_MIN")
			continue
		}
		statSurvivors = append(statSurvivors, c)
	}

	sort.SliceStable(statSurvivors, func(i, j int) bool {
		return statSurvivors[i].StatisticsScore > statSurvivors[j].StatisticsScore
	})

	// 3. Risk + price gates, in descending statistics_score order.
	addrs := make([]string, len(statSurvivors))
	for i, c := range statSurvivors {
		addrs[i] = c.TokenAddress
	}
	freshPrices, err := client.FetchPricesByAddresses(ctx, addrs)
	if err != nil {
		return result, err
	}

	eligible := make([]types.Candidate, 0, len(statSurvivors))
	for _, c := range statSurvivors {
		if cooldown.RecentlyTraded(c.TokenAddress, cfg.RebuyCooldownMin, now) {
			reject(c, "REBUY_COOLDOWN_ACTIVE")
			continue
		}

		reason, pass := risk.AntiChase(c.NormalizedRow, risk.AntiChaseParams{
			LiqMin: cfg.LiqMin, MaxAbsM5: cfg.MaxAbsM5, MaxAbsH1: cfg.MaxAbsH1,
		})
		if !pass {
			reject(c, reason)
			continue
		}

		fresh, ok := freshPrices[c.TokenAddress]
		if !ok || fresh <= 0 {
			reject(c, "NO_FRESH_PRICE")
			continue
		}

		if !withinDeviation(c.PriceUSD, fresh, cfg.MaxDeviationMultiplier) {
			reject(c, "PRICE_DEVIATION_EXCEEDED")
			continue
		}

		eligible = append(eligible, c)
	}

	result.Eligible = eligible
	return result, nil
}

// withinDeviation implements the gates stage's max/min ratio check. The
// trader applies the same ratio rule again at buy time, in its own code,
// against the actual fill price.
func withinDeviation(quoted, aggregator, maxMultiplier float64) bool {
	if quoted <= 0 || aggregator <= 0 {
		return false
	}
	hi, lo := quoted, aggregator
	if lo > hi {
		hi, lo = lo, hi
	}
	return hi/lo <= maxMultiplier
}
