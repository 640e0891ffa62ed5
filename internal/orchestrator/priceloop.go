package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/autosell"
	"github.com/trendrunner/tokentrader/internal/metrics"
	"github.com/trendrunner/tokentrader/internal/pnl"
	"github.com/trendrunner/tokentrader/internal/risk"
	"github.com/trendrunner/tokentrader/internal/types"
)

// PositionWriter persists a position's mutated state after an autosell tick.
type PositionWriter interface {
	UpsertPosition(ctx context.Context, p types.Position) error
}

// TradeWriter persists one leg of an autosell exit.
type TradeWriter interface {
	InsertTrade(ctx context.Context, t types.Trade) error
}

// AnalyticsOutcomeStore is the narrow analytics-audit contract the price
// loop needs to attach a realized outcome when a position fully closes.
type AnalyticsOutcomeStore interface {
	FindAnalyticsByTradeID(ctx context.Context, tradeID string) (*types.Analytics, error)
	AttachAnalyticsOutcome(ctx context.Context, id string, outcome types.Analytics) error
}

// PriceLoop polls live prices for every open position on PRICE_INTERVAL_SEC
// and runs the autosell threshold machine against each.
type PriceLoop struct {
	cfg       *config.Settings
	positions PositionSource
	prices    PriceReader
	posWriter PositionWriter
	tradeW    TradeWriter
	analytics AnalyticsOutcomeStore
	recompute *Scheduler

	startOnce sync.Once
}

func NewPriceLoop(cfg *config.Settings, positions PositionSource, prices PriceReader, posWriter PositionWriter, tradeW TradeWriter, analytics AnalyticsOutcomeStore, recompute *Scheduler) *PriceLoop {
	return &PriceLoop{cfg: cfg, positions: positions, prices: prices, posWriter: posWriter, tradeW: tradeW, analytics: analytics, recompute: recompute}
}

func (pl *PriceLoop) Start(ctx context.Context) {
	pl.startOnce.Do(func() {
		go pl.run(ctx)
	})
}

func (pl *PriceLoop) run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(pl.cfg.PriceIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pl.tick(ctx)
		}
	}
}

func (pl *PriceLoop) tick(ctx context.Context) {
	open, err := pl.positions.GetOpenPositions(ctx)
	if err != nil {
		log.Printf("price loop: failed to load open positions: %v", err)
		return
	}
	if len(open) == 0 {
		return
	}

	addresses := make([]string, 0, len(open))
	for _, p := range open {
		addresses = append(addresses, p.TokenAddress)
	}
	prices, err := pl.prices.FetchPricesByAddresses(ctx, addresses)
	if err != nil {
		log.Printf("price loop: price fetch failed: %v", err)
		return
	}

	now := time.Now()
	traded := false
	for i := range open {
		position := &open[i]
		px, ok := prices[position.TokenAddress]
		if !ok {
			continue
		}
		lastPrice := decimal.NewFromFloat(px)

		if position.Phase == types.PhasePartial {
			if ratcheted := risk.RatchetStop(position.Stop, position.Entry, position.TP1); !ratcheted.Equal(position.Stop) {
				position.Stop = ratcheted
				position.UpdatedAt = now
				if err := pl.posWriter.UpsertPosition(ctx, *position); err != nil {
					log.Printf("price loop: ratchet stop persist failed for %s: %v", position.TokenAddress, err)
				}
			}
		}

		beforeTP1, beforeTP2, beforeStop := position.TP1, position.TP2, position.Stop
		trade := autosell.Evaluate(position, lastPrice, autosell.Params{TP1TakeFraction: pl.cfg.TP1TakeFraction}, now)
		if trade == nil {
			continue
		}

		if err := pl.posWriter.UpsertPosition(ctx, *position); err != nil {
			log.Printf("price loop: upsert position failed for %s: %v", position.TokenAddress, err)
			continue
		}
		if err := pl.tradeW.InsertTrade(ctx, *trade); err != nil {
			log.Printf("price loop: insert trade failed for %s: %v", position.TokenAddress, err)
			continue
		}
		if position.Phase == types.PhaseClosed {
			pl.attachOutcome(ctx, position, trade, autosell.ExitReason(lastPrice, beforeTP1, beforeTP2, beforeStop), now)
		}
		metrics.AutosellTriggers.WithLabelValues(thresholdLabel(lastPrice, beforeTP1, beforeTP2, beforeStop)).Inc()
		traded = true
	}

	if traded && pl.recompute != nil {
		pl.recompute.ScheduleRecompute()
	}
}

// attachOutcome records the realized exit on the Analytics row the position's
// opening trade produced. The trade and position rows are already persisted
// by the time this runs, so a missing row or a write failure here is logged
// and swallowed rather than unwinding the autosell tick.
func (pl *PriceLoop) attachOutcome(ctx context.Context, position *types.Position, trade *types.Trade, exitReason string, now time.Time) {
	if pl.analytics == nil || position.EntryTradeID == "" {
		return
	}
	row, err := pl.analytics.FindAnalyticsByTradeID(ctx, position.EntryTradeID)
	if err != nil || row == nil {
		return
	}
	outcome := pnl.Outcome(position.Entry, position.OpenedAt, trade.Price, trade.Qty, exitReason, now)
	if err := pl.analytics.AttachAnalyticsOutcome(ctx, row.ID, outcome); err != nil {
		log.Printf("price loop: attach analytics outcome failed for %s: %v", position.TokenAddress, err)
	}
}

// thresholdLabel infers which threshold fired for the metrics label; the
// priority order mirrors autosell.Evaluate's own SL > TP2 > TP1 precedence.
func thresholdLabel(lastPrice, tp1, tp2, stop decimal.Decimal) string {
	switch {
	case stop.IsPositive() && lastPrice.LessThanOrEqual(stop):
		return "sl"
	case tp2.IsPositive() && lastPrice.GreaterThanOrEqual(tp2):
		return "tp2"
	default:
		return "tp1"
	}
}
