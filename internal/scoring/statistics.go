package scoring

import "github.com/trendrunner/tokentrader/internal/types"

// StatisticsWeights are read from config.
type StatisticsWeights struct {
	Liquidity float64
	Volume24h float64
	Age       float64
	Momentum  float64
	OrderFlow float64
}

// features extracted per candidate before cohort fitting.
type features struct {
	liquidity float64
	volume24h float64
	ageHours  float64
	momentum  float64
	orderFlow float64
}

func orderFlowScore(row types.NormalizedRow) float64 {
	b1h := row.Txns[types.Window1h]
	if b1h.Buys+b1h.Sells > 0 {
		return float64(b1h.Buys) / float64(b1h.Buys+b1h.Sells)
	}
	b24h := row.Txns[types.Window24h]
	if b24h.Buys+b24h.Sells > 0 {
		return float64(b24h.Buys) / float64(b24h.Buys+b24h.Sells)
	}
	return 0.5
}

func extractFeatures(row types.NormalizedRow, ageHours float64) features {
	p5 := row.PriceChangePct[types.Window5m]
	p1 := row.PriceChangePct[types.Window1h]
	p6 := row.PriceChangePct[types.Window6h]
	p24 := row.PriceChangePct[types.Window24h]
	return features{
		liquidity: row.LiquidityUSD,
		volume24h: row.VolumeUSD[types.Window24h],
		ageHours:  ageHours,
		momentum:  momentumScore(p5, p1, p6, p24),
		orderFlow: orderFlowScore(row),
	}
}

// CohortScorer fits the five robust scalers to a cohort and scores
// individual candidates against them.
type CohortScorer struct {
	weights StatisticsWeights

	liqScaler     RobustScaler
	volScaler     RobustScaler
	ageScaler     RobustScaler
	momentumScaler RobustScaler
	flowScaler    RobustScaler
}

// FitCohort fits the scaler on the whole candidate cohort for this cycle.
func FitCohort(rows []types.NormalizedRow, ageHours []float64, weights StatisticsWeights) *CohortScorer {
	liq := make([]float64, len(rows))
	vol := make([]float64, len(rows))
	age := make([]float64, len(rows))
	mom := make([]float64, len(rows))
	flow := make([]float64, len(rows))

	for i, r := range rows {
		f := extractFeatures(r, ageHours[i])
		liq[i] = f.liquidity
		vol[i] = f.volume24h
		age[i] = f.ageHours
		mom[i] = f.momentum
		flow[i] = f.orderFlow
	}

	return &CohortScorer{
		weights:        weights,
		liqScaler:      Fit(liq),
		volScaler:      Fit(vol),
		ageScaler:      Fit(age),
		momentumScaler: Fit(mom),
		flowScaler:     Fit(flow),
	}
}

// Score returns the statistics_score in [0,100] for one candidate.
func (s *CohortScorer) Score(row types.NormalizedRow, ageHours float64) float64 {
	f := extractFeatures(row, ageHours)

	nLiq := s.liqScaler.Transform(f.liquidity)
	nVol := s.volScaler.Transform(f.volume24h)
	nAge := 1 - s.ageScaler.Transform(f.ageHours) // inverted: younger scores higher
	nMom := s.momentumScaler.Transform(f.momentum)
	nFlow := s.flowScaler.Transform(f.orderFlow)

	w := s.weights
	sumW := w.Liquidity + w.Volume24h + w.Age + w.Momentum + w.OrderFlow
	if sumW == 0 {
		return 0
	}
	weighted := w.Liquidity*nLiq + w.Volume24h*nVol + w.Age*nAge + w.Momentum*nMom + w.OrderFlow*nFlow
	return clamp(100*weighted/sumW, 0, 100)
}
