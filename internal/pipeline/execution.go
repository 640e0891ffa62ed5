package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/metrics"
	"github.com/trendrunner/tokentrader/internal/pnl"
	"github.com/trendrunner/tokentrader/internal/risk"
	"github.com/trendrunner/tokentrader/internal/types"
)

// VisionOverlay is the narrow contract the execution stage needs from the
// chart-capture + vision-AI subsystem. Nil means the overlay is disabled
// and entry_score always equals statistics_score.
type VisionOverlay interface {
	Evaluate(ctx context.Context, c types.Candidate) (aiDelta float64, ok bool)
}

// RouteProvider is the narrow contract the execution stage needs from the
// meta-aggregator quote/route client. Nil disables route attachment; in
// LIVE mode the trader then rejects the buy with NO_ROUTE_ATTACHED, while
// PAPER buys need no route.
type RouteProvider interface {
	Route(ctx context.Context, c types.Candidate) (*types.Route, bool)
}

// BuyRequest is what the execution stage hands to the trader. Threshold
// computation happens inside the trader, against the price it actually
// fills at, not the candidate's stale selection-time price.
type BuyRequest struct {
	Candidate types.Candidate
	Notional  decimal.Decimal
	Route     *types.Route
}

// ImmediateExit describes a same-cycle autosell exit that PAPER
// reconciliation triggers right after a buy fills past a threshold.
type ImmediateExit struct {
	Trade  *types.Trade
	Reason string
}

// Trader is the narrow contract the execution stage needs from a dispatcher.
// The second return value is a same-cycle immediate exit, or nil.
type Trader interface {
	Buy(ctx context.Context, req BuyRequest) (*types.Trade, *ImmediateExit, error)
}

// AnalyticsSink persists one audit row per candidate per cycle and later
// attaches the realized outcome once the originating trade's position closes.
type AnalyticsSink interface {
	InsertAnalytics(ctx context.Context, a types.Analytics) error
	FindAnalyticsByTradeID(ctx context.Context, tradeID string) (*types.Analytics, error)
	AttachAnalyticsOutcome(ctx context.Context, id string, outcome types.Analytics) error
}

// ExecutionResult is the execution stage's outcome for one cycle.
type ExecutionResult struct {
	FreeCashAfter decimal.Decimal
	Trades        []*types.Trade
	Skips         []Skip
}

// Execution sizes and dispatches buys for the eligible candidates.
// eligible must already be in statistics_score-descending order (the
// gates stage guarantees this).
func Execution(ctx context.Context, eligible []types.Candidate, cfg *config.Settings, overlay VisionOverlay, routes RouteProvider, trader Trader, analytics AnalyticsSink, cooldown *risk.CooldownTracker, freeCash decimal.Decimal, now time.Time) ExecutionResult {
	result := ExecutionResult{FreeCashAfter: freeCash}

	buys := 0
	aiUsed := 0
	for _, c := range eligible {
		if buys >= cfg.BuysPerRun {
			break
		}

		entryScore := c.StatisticsScore
		var aiDelta *float64
		if overlay != nil && aiUsed < cfg.AITopK {
			aiUsed++
			if delta, ok := overlay.Evaluate(ctx, c); ok {
				aiDelta = &delta
				bounded := clampF(delta*cfg.AIMult, -cfg.AIMaxAbs, cfg.AIMaxAbs)
				entryScore = clampF(c.StatisticsScore+bounded, 0, 100)
			}
		}
		c.AIQualityDelta = aiDelta
		c.EntryScore = entryScore

		if entryScore < cfg.EntryMin {
			result.Skips = append(result.Skips, Skip{Candidate: c, Reason: "ENTRY_SCORE_BELOW_MIN"})
			persistSkip(ctx, analytics, c, "ENTRY_SCORE_BELOW_MIN", now)
			continue
		}

		volProxy := risk.RealizedVolProxy(c.NormalizedRow)
		riskMult := clampF(cfg.TargetPosVol/volProxy, 0.5, 1.0)
		perOrder := maxF(1.0, freeCashF(result.FreeCashAfter)*cfg.PerBuyFraction) * riskMult
		notional := decimal.NewFromFloat(perOrder)

		postBuy := result.FreeCashAfter.Sub(notional)
		if result.FreeCashAfter.LessThan(notional) || postBuy.LessThan(decimal.NewFromFloat(cfg.MinFreeCash)) {
			result.Skips = append(result.Skips, Skip{Candidate: c, Reason: "INSUFFICIENT_CASH"})
			persistSkip(ctx, analytics, c, "INSUFFICIENT_CASH", now)
			continue
		}

		var route *types.Route
		if routes != nil {
			if r, ok := routes.Route(ctx, c); ok {
				route = r
			}
		}

		cashBefore := result.FreeCashAfter
		result.FreeCashAfter = postBuy

		trade, immediateExit, err := trader.Buy(ctx, BuyRequest{Candidate: c, Notional: notional, Route: route})
		if err != nil {
			// Trader rejected at the last mile (deviation/route/signer);
			// restore cash, record the SKIP, move on.
			result.FreeCashAfter = cashBefore
			result.Skips = append(result.Skips, Skip{Candidate: c, Reason: "TRADER_REJECTED"})
			persistSkip(ctx, analytics, c, "TRADER_REJECTED", now)
			continue
		}

		if analytics != nil {
			tradeID := trade.ID
			analyticsID := uuid.NewString()
			_ = analytics.InsertAnalytics(ctx, types.Analytics{
				ID: analyticsID, Address: c.TokenAddress, Symbol: c.Symbol,
				QualityScore: c.QualityScore, StatisticsScore: c.StatisticsScore, EntryScore: entryScore,
				AIBuyProbability: c.AIBuyProbability, Decision: types.DecisionBuy, Reason: "",
				SizedNotional: notional, CashBefore: cashBefore, CashAfter: result.FreeCashAfter,
				EvaluatedAt: now, TradeID: &tradeID,
			})
			if immediateExit != nil {
				attachImmediateExitOutcome(ctx, analytics, analyticsID, trade, immediateExit)
			}
		}
		cooldown.MarkTraded(c.TokenAddress, now)
		result.Trades = append(result.Trades, trade)
		metrics.BuysExecuted.Inc()
		buys++
	}

	return result
}

// attachImmediateExitOutcome records the realized outcome for a buy whose
// PAPER reconciliation closed the position in the same cycle, before the
// price loop ever saw it.
func attachImmediateExitOutcome(ctx context.Context, analytics AnalyticsSink, analyticsID string, buy *types.Trade, exit *ImmediateExit) {
	outcome := pnl.Outcome(buy.Price, buy.CreatedAt, exit.Trade.Price, exit.Trade.Qty, exit.Reason, exit.Trade.CreatedAt)
	if err := analytics.AttachAnalyticsOutcome(ctx, analyticsID, outcome); err != nil {
		log.Printf("failed to attach immediate-exit analytics outcome for %s: %v", buy.Symbol, err)
	}
}

func persistSkip(ctx context.Context, analytics AnalyticsSink, c types.Candidate, reason string, now time.Time) {
	metrics.GateRejections.WithLabelValues(reason).Inc()
	if analytics == nil {
		return
	}
	_ = analytics.InsertAnalytics(ctx, types.Analytics{
		ID: uuid.NewString(), Address: c.TokenAddress, Symbol: c.Symbol,
		QualityScore: c.QualityScore, StatisticsScore: c.StatisticsScore, EntryScore: c.EntryScore,
		AIBuyProbability: c.AIBuyProbability, Decision: types.DecisionSkip, Reason: reason,
		EvaluatedAt: now,
	})
}

func freeCashF(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
