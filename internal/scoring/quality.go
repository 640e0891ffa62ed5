package scoring

import "github.com/trendrunner/tokentrader/internal/types"

// QualityParams are the thresholds the quality gate reads from config.
type QualityParams struct {
	LiqMin     float64
	V24Min     float64
	AgeMinHrs  float64
	AgeMaxHrs  float64
	MaxAbsM5   float64
	MaxAbsH1   float64
	MaxAbsH6   float64
	MaxAbsH24  float64
	QualityMin float64
}

// volWindowFloor derives the per-window volume floor from V24Min. The
// aggregator only ever floors on 24h volume explicitly; shorter windows are
// scaled fractions of it so a token can't clear the quality bar on 24h
// volume alone while being completely dead intraday.
func volWindowFloor(v24Min float64, w types.Window) float64 {
	switch w {
	case types.Window5m:
		return v24Min * 0.02
	case types.Window1h:
		return v24Min * 0.05
	case types.Window6h:
		return v24Min * 0.15
	default:
		return v24Min
	}
}

// QualityResult is the gate's verdict plus the score for surviving rows.
type QualityResult struct {
	Pass  bool
	Score float64
	Drop  string // machine reason code when Pass is false
}

// Quality runs the hard liquidity/volume/age/data-completeness/momentum
// floors, then computes the quality score and drops rows below QualityMin.
func Quality(row types.NormalizedRow, ageHours float64, p QualityParams) QualityResult {
	if row.LiquidityUSD < p.LiqMin {
		return QualityResult{Drop: "LIQ_BELOW_MIN"}
	}
	if row.VolumeUSD[types.Window24h] < p.V24Min {
		return QualityResult{Drop: "VOL24_BELOW_MIN"}
	}
	if ageHours < p.AgeMinHrs || ageHours > p.AgeMaxHrs {
		return QualityResult{Drop: "AGE_OUT_OF_RANGE"}
	}

	p5, hasP5 := row.PriceChangePct[types.Window5m]
	p1, hasP1 := row.PriceChangePct[types.Window1h]
	p6 := row.PriceChangePct[types.Window6h]
	p24 := row.PriceChangePct[types.Window24h]

	if !hasP5 || !hasP1 {
		return QualityResult{Drop: "MISSING_INTRADAY_BARS"}
	}
	if abs(p5) > p.MaxAbsM5 || abs(p1) > p.MaxAbsH1 || abs(p6) > p.MaxAbsH6 || abs(p24) > p.MaxAbsH24 {
		return QualityResult{Drop: "MOMENTUM_ABS_CAP_EXCEEDED"}
	}

	momentum := momentumScore(p5, p1, p6, p24)
	liqComponent := clamp(row.LiquidityUSD/(4*p.LiqMin), 0, 1)

	volComponent := 0.0
	weights := map[types.Window]float64{types.Window5m: 0.4, types.Window1h: 0.3, types.Window6h: 0.2, types.Window24h: 0.1}
	for w, weight := range weights {
		floor := volWindowFloor(p.V24Min, w)
		sigmaV := clamp(row.VolumeUSD[w]/(4*floor), 0, 1)
		volComponent += weight * sigmaV
	}

	score := 100 * (0.45*momentum + 0.25*liqComponent + 0.30*volComponent)
	if score < p.QualityMin {
		return QualityResult{Drop: "QUALITY_SCORE_BELOW_MIN", Score: score}
	}
	return QualityResult{Pass: true, Score: score}
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
