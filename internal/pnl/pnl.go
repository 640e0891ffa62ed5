// Package pnl implements FIFO lot matching per (chain, tokenAddress,
// pairAddress), realized/unrealized PnL, and cash-flow projection.
package pnl

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/internal/types"
)

// lot is one inventory unit, consumed oldest-first.
type lot struct {
	qty           decimal.Decimal
	unitPrice     decimal.Decimal
	buyFeePerUnit decimal.Decimal
}

// groupKey is pair-preferred, falling back to token if pair is absent.
func groupKey(t types.Trade) string {
	if t.PairAddress != "" {
		return t.Chain + "|" + t.PairAddress
	}
	return t.Chain + "|tok|" + t.TokenAddress
}

// Engine replays a trade journal into FIFO lots and realized PnL totals.
type Engine struct {
	lots map[string][]lot

	realizedTotal  decimal.Decimal
	realizedRecent decimal.Decimal
}

func NewEngine() *Engine {
	return &Engine{lots: make(map[string][]lot)}
}

// Replay processes the full trade journal in chronological order. cutoff
// marks the "recent" window boundary for realizedRecent.
func (e *Engine) Replay(journal []types.Trade, now time.Time, cutoff time.Duration) {
	e.lots = make(map[string][]lot)
	e.realizedTotal = decimal.Zero
	e.realizedRecent = decimal.Zero

	for _, t := range journal {
		switch t.Side {
		case types.SideBuy:
			e.applyBuy(t)
		case types.SideSell:
			e.applySell(t, now, cutoff)
		}
	}
}

func (e *Engine) applyBuy(t types.Trade) {
	k := groupKey(t)
	feePerUnit := decimal.Zero
	if t.Qty.IsPositive() {
		feePerUnit = t.Fee.Div(t.Qty)
	}
	e.lots[k] = append(e.lots[k], lot{qty: t.Qty, unitPrice: t.Price, buyFeePerUnit: feePerUnit})
}

func (e *Engine) applySell(t types.Trade, now time.Time, cutoff time.Duration) {
	k := groupKey(t)
	remaining := t.Qty
	sellFeePerUnit := decimal.Zero
	if t.Qty.IsPositive() {
		sellFeePerUnit = t.Fee.Div(t.Qty)
	}

	queue := e.lots[k]
	i := 0
	for i < len(queue) && remaining.IsPositive() {
		l := &queue[i]
		take := l.qty
		if take.GreaterThan(remaining) {
			take = remaining
		}

		pnlPerUnit := t.Price.Sub(l.unitPrice).Sub(l.buyFeePerUnit).Sub(sellFeePerUnit)
		realized := pnlPerUnit.Mul(take)
		e.realizedTotal = e.realizedTotal.Add(realized)
		if now.Sub(t.CreatedAt) <= cutoff {
			e.realizedRecent = e.realizedRecent.Add(realized)
		}

		l.qty = l.qty.Sub(take)
		remaining = remaining.Sub(take)
		if l.qty.IsZero() {
			i++
		}
	}
	e.lots[k] = queue[i:]
}

func (e *Engine) RealizedTotal() decimal.Decimal  { return round2(e.realizedTotal) }
func (e *Engine) RealizedRecent() decimal.Decimal { return round2(e.realizedRecent) }

// CashFromTrades replays the trade journal to derive free cash: starting
// cash minus buy notionals plus sell proceeds minus fees.
func CashFromTrades(startingCash decimal.Decimal, journal []types.Trade) decimal.Decimal {
	cash := startingCash
	for _, t := range journal {
		notional := t.Price.Mul(t.Qty)
		switch t.Side {
		case types.SideBuy:
			cash = cash.Sub(notional).Sub(t.Fee)
		case types.SideSell:
			cash = cash.Add(notional).Sub(t.Fee)
		}
	}
	return round2(cash)
}

// Holdings is Σ(position.qty * last_price_usd) over open positions.
func Holdings(positions []types.Position, lastPrices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		if p.Phase == types.PhaseClosed {
			continue
		}
		price, ok := lastPrices[p.TokenAddress]
		if !ok {
			continue
		}
		total = total.Add(p.Qty.Mul(price))
	}
	return round2(total)
}

// Unrealized is Σ(position.qty * (last_price - entry)).
func Unrealized(positions []types.Position, lastPrices map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range positions {
		if p.Phase == types.PhaseClosed {
			continue
		}
		price, ok := lastPrices[p.TokenAddress]
		if !ok {
			continue
		}
		total = total.Add(p.Qty.Mul(price.Sub(p.Entry)))
	}
	return round2(total)
}

// Equity implements the snapshot identity: equity = cash + holdings.
func Equity(cash, holdings decimal.Decimal) decimal.Decimal {
	return round2(cash.Add(holdings))
}

// Point is one sample on the equity curve.
type Point struct {
	At     time.Time
	Equity decimal.Decimal
}

// EquityCurve projects a time-ordered equity series from persisted
// snapshots.
func EquityCurve(snapshots []types.PortfolioSnapshot) []Point {
	out := make([]Point, len(snapshots))
	for i, s := range snapshots {
		out[i] = Point{At: s.CreatedAt, Equity: s.Equity}
	}
	return out
}

// Outcome computes the realized-outcome fields an Analytics row attaches
// when the position its originating BUY opened eventually closes. entry/
// openedAt describe the opening leg; exitPrice/exitQty/exitReason/closedAt
// describe the closing leg.
func Outcome(entry decimal.Decimal, openedAt time.Time, exitPrice, exitQty decimal.Decimal, exitReason string, closedAt time.Time) types.Analytics {
	pnlUSD, _ := round2(exitQty.Mul(exitPrice.Sub(entry))).Float64()
	pnlPct := 0.0
	if entry.IsPositive() {
		pnlPct, _ = exitPrice.Sub(entry).Div(entry).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	}
	holdingMinutes := closedAt.Sub(openedAt).Minutes()
	wasProfit := pnlUSD > 0

	return types.Analytics{
		ClosedAt:       &closedAt,
		HoldingMinutes: &holdingMinutes,
		PnLPct:         &pnlPct,
		PnLUSD:         &pnlUSD,
		WasProfit:      &wasProfit,
		ExitReason:     &exitReason,
	}
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
