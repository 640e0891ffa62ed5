package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendrunner/tokentrader/internal/types"
)

func qualityParams() QualityParams {
	return QualityParams{
		LiqMin: 10000, V24Min: 20000, AgeMinHrs: 1, AgeMaxHrs: 72,
		MaxAbsM5: 50, MaxAbsH1: 100, MaxAbsH6: 200, MaxAbsH24: 400,
		QualityMin: 10,
	}
}

func healthyRow() types.NormalizedRow {
	return types.NormalizedRow{
		LiquidityUSD: 50000,
		VolumeUSD:    map[types.Window]float64{types.Window5m: 2000, types.Window1h: 5000, types.Window6h: 15000, types.Window24h: 40000},
		PriceChangePct: map[types.Window]float64{
			types.Window5m: 3, types.Window1h: 8, types.Window6h: 15, types.Window24h: 25,
		},
		Txns: map[types.Window]types.TxnBucket{
			types.Window1h:  {Buys: 60, Sells: 40},
			types.Window24h: {Buys: 600, Sells: 400},
		},
	}
}

func TestQuality_RejectsBelowLiquidityFloor(t *testing.T) {
	row := healthyRow()
	row.LiquidityUSD = 100

	result := Quality(row, 10, qualityParams())

	assert.False(t, result.Pass)
	assert.Equal(t, "LIQ_BELOW_MIN", result.Drop)
}

func TestQuality_RejectsOutOfAgeRange(t *testing.T) {
	result := Quality(healthyRow(), 0.1, qualityParams())

	assert.False(t, result.Pass)
	assert.Equal(t, "AGE_OUT_OF_RANGE", result.Drop)
}

func TestQuality_RejectsMissingIntradayBars(t *testing.T) {
	row := healthyRow()
	delete(row.PriceChangePct, types.Window5m)

	result := Quality(row, 10, qualityParams())

	assert.False(t, result.Pass)
	assert.Equal(t, "MISSING_INTRADAY_BARS", result.Drop)
}

func TestQuality_RejectsMomentumCapExceeded(t *testing.T) {
	row := healthyRow()
	row.PriceChangePct[types.Window5m] = 1000

	result := Quality(row, 10, qualityParams())

	assert.False(t, result.Pass)
	assert.Equal(t, "MOMENTUM_ABS_CAP_EXCEEDED", result.Drop)
}

func TestQuality_PassesHealthyRow(t *testing.T) {
	result := Quality(healthyRow(), 10, qualityParams())

	assert.True(t, result.Pass)
	assert.Greater(t, result.Score, 0.0)
}

func TestContradictions_FlagsFDVBelowMarketCap(t *testing.T) {
	mc, fdv := 1000000.0, 500000.0
	row := types.NormalizedRow{MarketCap: &mc, FDV: &fdv, LiquidityUSD: 1000}

	reasons := Contradictions(row)

	assert.Contains(t, reasons, "FDV_LT_MARKETCAP")
}

func TestContradictions_FlagsLiquidityAboveMarketCap(t *testing.T) {
	mc := 1000.0
	row := types.NormalizedRow{MarketCap: &mc, LiquidityUSD: 5000}

	reasons := Contradictions(row)

	assert.Contains(t, reasons, "LIQUIDITY_GT_MARKETCAP")
}

func TestContradictions_FlagsVolumeTxnConflict(t *testing.T) {
	row := types.NormalizedRow{
		VolumeUSD: map[types.Window]float64{types.Window24h: 1000},
		Txns:      map[types.Window]types.TxnBucket{types.Window24h: {}},
	}

	reasons := Contradictions(row)

	assert.Contains(t, reasons, "VOLUME_TXNS_CONFLICT")
}

func TestContradictions_PassesCleanRow(t *testing.T) {
	reasons := Contradictions(healthyRow())

	assert.Empty(t, reasons)
}
