package autosell

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendrunner/tokentrader/internal/types"
)

func openPosition() *types.Position {
	return &types.Position{
		ID:           "pos-1",
		Symbol:       "DOGE",
		Chain:        "solana",
		TokenAddress: "tok",
		Qty:          decimal.NewFromInt(100),
		Entry:        decimal.NewFromFloat(1.0),
		TP1:          decimal.NewFromFloat(1.1),
		TP2:          decimal.NewFromFloat(1.3),
		Stop:         decimal.NewFromFloat(0.9),
		Phase:        types.PhaseOpen,
	}
}

func TestEvaluate_StopLossPriority(t *testing.T) {
	p := openPosition()
	now := time.Now()

	trade := Evaluate(p, decimal.NewFromFloat(0.85), Params{TP1TakeFraction: 0.5}, now)

	require.NotNil(t, trade)
	assert.Equal(t, types.PhaseClosed, p.Phase)
	assert.True(t, p.Qty.IsZero())
	assert.True(t, p.TP1.IsZero())
	assert.True(t, p.TP2.IsZero())
	assert.True(t, p.Stop.IsZero())
	require.NotNil(t, p.ClosedAt)
}

func TestEvaluate_StopCheckedBeforeTP2(t *testing.T) {
	p := openPosition()
	p.Stop = decimal.NewFromFloat(1.3)
	p.TP2 = decimal.NewFromFloat(1.1)
	now := time.Now()

	trade := Evaluate(p, decimal.NewFromFloat(1.2), Params{TP1TakeFraction: 0.5}, now)

	require.NotNil(t, trade)
	assert.Equal(t, types.SideSell, trade.Side)
	assert.Equal(t, types.PhaseClosed, p.Phase)
}

func TestEvaluate_TP1PartialThenRemainsOpenPhasePartial(t *testing.T) {
	p := openPosition()
	now := time.Now()

	trade := Evaluate(p, decimal.NewFromFloat(1.15), Params{TP1TakeFraction: 0.5}, now)

	require.NotNil(t, trade)
	assert.Equal(t, types.PhasePartial, p.Phase)
	assert.True(t, p.Qty.Equal(decimal.NewFromInt(50)))
	// thresholds stay armed after a partial take.
	assert.False(t, p.TP2.IsZero())
	assert.False(t, p.Stop.IsZero())
}

func TestEvaluate_TP1DoesNotRefireOncePartial(t *testing.T) {
	p := openPosition()
	now := time.Now()
	Evaluate(p, decimal.NewFromFloat(1.15), Params{TP1TakeFraction: 0.5}, now)

	trade := Evaluate(p, decimal.NewFromFloat(1.2), Params{TP1TakeFraction: 0.5}, now)

	assert.Nil(t, trade)
}

func TestEvaluate_TP2ClosesRemainderFromPartial(t *testing.T) {
	p := openPosition()
	now := time.Now()
	Evaluate(p, decimal.NewFromFloat(1.15), Params{TP1TakeFraction: 0.5}, now)

	trade := Evaluate(p, decimal.NewFromFloat(1.35), Params{TP1TakeFraction: 0.5}, now)

	require.NotNil(t, trade)
	assert.Equal(t, types.PhaseClosed, p.Phase)
	assert.True(t, p.Qty.IsZero())
}

func TestEvaluate_ClosedPositionNeverFires(t *testing.T) {
	p := openPosition()
	p.Phase = types.PhaseClosed

	trade := Evaluate(p, decimal.NewFromFloat(100), Params{TP1TakeFraction: 0.5}, time.Now())

	assert.Nil(t, trade)
}

func TestEvaluate_NoThresholdCrossedReturnsNil(t *testing.T) {
	p := openPosition()

	trade := Evaluate(p, decimal.NewFromFloat(1.0), Params{TP1TakeFraction: 0.5}, time.Now())

	assert.Nil(t, trade)
	assert.Equal(t, types.PhaseOpen, p.Phase)
}
