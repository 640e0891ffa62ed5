package risk

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trendrunner/tokentrader/internal/types"
)

func antiChaseParams() AntiChaseParams {
	return AntiChaseParams{LiqMin: 10000, MaxAbsM5: 30, MaxAbsH1: 60}
}

func TestAntiChase_RejectsLowLiquidity(t *testing.T) {
	row := types.NormalizedRow{LiquidityUSD: 100}

	reason, pass := AntiChase(row, antiChaseParams())

	assert.False(t, pass)
	assert.Equal(t, "low_liquidity", reason)
}

func TestAntiChase_RejectsOverextendedSpike(t *testing.T) {
	row := types.NormalizedRow{
		LiquidityUSD:   50000,
		PriceChangePct: map[types.Window]float64{types.Window5m: 40, types.Window1h: 50},
	}

	reason, pass := AntiChase(row, antiChaseParams())

	assert.False(t, pass)
	assert.Equal(t, "overextended_spike", reason)
}

func TestAntiChase_RejectsWeakBuyFlow(t *testing.T) {
	row := types.NormalizedRow{
		LiquidityUSD:   50000,
		PriceChangePct: map[types.Window]float64{types.Window5m: 7, types.Window1h: 10},
		Txns:           map[types.Window]types.TxnBucket{types.Window1h: {Buys: 30, Sells: 70}},
	}

	reason, pass := AntiChase(row, antiChaseParams())

	assert.False(t, pass)
	assert.Equal(t, "weak_buy_flow", reason)
}

func TestAntiChase_PassesHealthyEntry(t *testing.T) {
	row := types.NormalizedRow{
		LiquidityUSD:   50000,
		PriceChangePct: map[types.Window]float64{types.Window5m: 5, types.Window1h: 10},
		Txns:           map[types.Window]types.TxnBucket{types.Window1h: {Buys: 60, Sells: 40}},
	}

	reason, pass := AntiChase(row, antiChaseParams())

	assert.True(t, pass)
	assert.Empty(t, reason)
}

func TestCooldownTracker_RecentlyTraded(t *testing.T) {
	c := NewCooldownTracker()
	now := time.Now()
	c.MarkTraded("tok", now)

	assert.True(t, c.RecentlyTraded("tok", 10, now.Add(5*time.Minute)))
	assert.False(t, c.RecentlyTraded("tok", 10, now.Add(15*time.Minute)))
	assert.False(t, c.RecentlyTraded("other", 10, now))
}

func TestComputeThresholds_OrdersTP1BelowTP2(t *testing.T) {
	row := types.NormalizedRow{PriceChangePct: map[types.Window]float64{types.Window5m: 10, types.Window1h: 15}}
	p := ThresholdParams{SLFloor: 0.05, SLCap: 0.25, TP1Default: 0.1, TP2Default: 0.2}

	th := ComputeThresholds(decimal.NewFromFloat(1.0), row, p)

	assert.True(t, th.Stop.LessThan(decimal.NewFromFloat(1.0)))
	assert.True(t, th.TP1.LessThan(th.TP2))
	assert.True(t, th.TP1.GreaterThan(decimal.NewFromFloat(1.0)))
}

func TestRatchetStop_NeverLoosensExistingStop(t *testing.T) {
	entry := decimal.NewFromFloat(1.0)
	tp1 := decimal.NewFromFloat(1.2)
	tightStop := decimal.NewFromFloat(1.15)

	ratcheted := RatchetStop(tightStop, entry, tp1)

	assert.True(t, ratcheted.GreaterThanOrEqual(tightStop))
}

func TestRatchetStop_RaisesLooseStopToFloor(t *testing.T) {
	entry := decimal.NewFromFloat(1.0)
	tp1 := decimal.NewFromFloat(1.2)
	looseStop := decimal.NewFromFloat(0.8)

	ratcheted := RatchetStop(looseStop, entry, tp1)

	assert.True(t, ratcheted.GreaterThan(looseStop))
}

func TestRealizedVolProxy_ClampsToBand(t *testing.T) {
	row := types.NormalizedRow{PriceChangePct: map[types.Window]float64{types.Window5m: 0, types.Window1h: 0}}
	assert.Equal(t, 0.01, RealizedVolProxy(row))

	row2 := types.NormalizedRow{PriceChangePct: map[types.Window]float64{types.Window5m: 9000, types.Window1h: 9000}}
	assert.Equal(t, 0.30, RealizedVolProxy(row2))
}
