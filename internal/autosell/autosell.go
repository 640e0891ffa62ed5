// Package autosell implements the per-position threshold state machine:
// SL > TP2 > TP1 priority, at most one action per invocation.
package autosell

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/internal/types"
)

// TP1TakeFraction is read from config by the caller and passed in so this
// package stays a pure function of its inputs.
type Params struct {
	TP1TakeFraction float64
}

// closeEpsilon is the tolerance for "fractional fills settle to qty=0".
var closeEpsilon = decimal.NewFromFloat(0.0000001)

// Evaluate runs the priority table against one live price tick. It mutates
// position in place (phase, qty, thresholds) and returns the trade produced,
// or nil if no threshold fired. A CLOSED position always returns nil.
func Evaluate(position *types.Position, lastPriceUSD decimal.Decimal, p Params, now time.Time) *types.Trade {
	if position.Phase == types.PhaseClosed || position.Phase == types.PhaseStaled {
		return nil
	}

	// SL: armed in OPEN or PARTIAL, highest priority.
	if position.Stop.IsPositive() && lastPriceUSD.LessThanOrEqual(position.Stop) {
		return sell(position, lastPriceUSD, position.Qty, types.PhaseClosed, true, now)
	}

	// TP2: armed in OPEN or PARTIAL.
	if position.TP2.IsPositive() && lastPriceUSD.GreaterThanOrEqual(position.TP2) {
		return sell(position, lastPriceUSD, position.Qty, types.PhaseClosed, true, now)
	}

	// TP1: OPEN only, fires at most once (guarded by the phase precondition).
	if position.Phase == types.PhaseOpen && position.TP1.IsPositive() && lastPriceUSD.GreaterThanOrEqual(position.TP1) {
		takeQty := position.Qty.Mul(decimal.NewFromFloat(p.TP1TakeFraction))
		return sell(position, lastPriceUSD, takeQty, types.PhasePartial, false, now)
	}

	return nil
}

// ExitReason infers which threshold fired for a price against a position's
// pre-evaluate thresholds, mirroring Evaluate's own SL > TP2 > TP1 priority.
func ExitReason(lastPriceUSD, tp1, tp2, stop decimal.Decimal) string {
	switch {
	case stop.IsPositive() && lastPriceUSD.LessThanOrEqual(stop):
		return "STOP_LOSS"
	case tp2.IsPositive() && lastPriceUSD.GreaterThanOrEqual(tp2):
		return "TAKE_PROFIT_2"
	default:
		return "TAKE_PROFIT_1"
	}
}

func sell(position *types.Position, price, qty decimal.Decimal, nextPhase types.Phase, resetThresholds bool, now time.Time) *types.Trade {
	position.Qty = position.Qty.Sub(qty)
	if position.Qty.LessThanOrEqual(closeEpsilon) {
		position.Qty = decimal.Zero
		nextPhase = types.PhaseClosed
	}
	position.Phase = nextPhase
	position.UpdatedAt = now

	if resetThresholds || position.Phase == types.PhaseClosed {
		position.TP1 = decimal.Zero
		position.TP2 = decimal.Zero
		position.Stop = decimal.Zero
	}
	if position.Phase == types.PhaseClosed {
		closedAt := now
		position.ClosedAt = &closedAt
	}

	return &types.Trade{
		ID:           uuid.NewString(),
		Side:         types.SideSell,
		Symbol:       position.Symbol,
		Chain:        position.Chain,
		TokenAddress: position.TokenAddress,
		PairAddress:  position.PairAddress,
		Price:        price,
		Qty:          qty,
		Status:       types.StatusPaper,
		CreatedAt:    now,
	}
}
