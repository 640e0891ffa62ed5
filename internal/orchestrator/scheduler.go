package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/internal/hub"
	"github.com/trendrunner/tokentrader/internal/metrics"
	"github.com/trendrunner/tokentrader/internal/pnl"
	"github.com/trendrunner/tokentrader/internal/types"
)

// PortfolioStore is the persistence surface the scheduler replays against.
type PortfolioStore interface {
	GetOpenPositions(ctx context.Context) ([]types.Position, error)
	ListTrades(ctx context.Context) ([]types.Trade, error)
	ListAnalytics(ctx context.Context, limit int) ([]types.Analytics, error)
	InsertSnapshot(ctx context.Context, snap types.PortfolioSnapshot) error
	ListSnapshots(ctx context.Context, limit int) ([]types.PortfolioSnapshot, error)
}

// equityCurvePoints caps how many trailing snapshots the portfolio
// broadcast's equity curve carries.
const equityCurvePoints = 500

// PriceReader supplies the last traded USD price the scheduler needs to
// mark open positions for the holdings/unrealized figures.
type PriceReader interface {
	FetchPricesByAddresses(ctx context.Context, addresses []string) (map[string]float64, error)
}

// Scheduler implements trader.Recompute and hub.StateProvider: it is the
// single place that replays the trade journal into a consistent
// {portfolio, positions, trades, analytics} snapshot and rebroadcasts it.
// The snapshot carries no status (mode/interval) field.
type Scheduler struct {
	store        PortfolioStore
	prices       PriceReader
	startingCash decimal.Decimal
	recentWindow time.Duration

	hubMu sync.RWMutex
	hub   *hub.Hub

	pending chan struct{}
}

func NewScheduler(store PortfolioStore, prices PriceReader, startingCash decimal.Decimal, recentWindow time.Duration) *Scheduler {
	return &Scheduler{
		store:        store,
		prices:       prices,
		startingCash: startingCash,
		recentWindow: recentWindow,
		pending:      make(chan struct{}, 1),
	}
}

// AttachHub wires the websocket hub once it's constructed. Safe to call
// before or after Run starts; ScheduleRecompute no-ops until attached.
func (s *Scheduler) AttachHub(h *hub.Hub) {
	s.hubMu.Lock()
	s.hub = h
	s.hubMu.Unlock()
}

// ScheduleRecompute implements trader.Recompute. It coalesces bursts of
// buy/sell activity into a single recompute pass via a depth-1 buffered
// channel; a Run loop drains it.
func (s *Scheduler) ScheduleRecompute() {
	select {
	case s.pending <- struct{}{}:
	default:
	}
}

// Run drains recompute requests until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.pending:
			s.recomputeAndBroadcast(ctx)
		}
	}
}

func (s *Scheduler) recomputeAndBroadcast(ctx context.Context) {
	ev, err := s.InitFrame(ctx)
	if err != nil {
		log.Printf("recompute failed: %v", err)
		return
	}
	s.broadcast(ev)
}

func (s *Scheduler) broadcast(ev hub.Event) {
	s.hubMu.RLock()
	h := s.hub
	s.hubMu.RUnlock()
	if h != nil {
		h.BroadcastFromAnyThread(ev)
	}
}

// frame is the one-pass consistent snapshot both InitFrame and Snapshot
// build from.
type frame struct {
	positions                        []types.Position
	journal                          []types.Trade
	analytics                        []types.Analytics
	cash, holdings, equity, unrealized decimal.Decimal
	realizedTotal, realizedRecent    decimal.Decimal
	equityCurve                      []pnl.Point
}

func (s *Scheduler) compute(ctx context.Context) (frame, error) {
	positions, err := s.store.GetOpenPositions(ctx)
	if err != nil {
		return frame{}, err
	}
	journal, err := s.store.ListTrades(ctx)
	if err != nil {
		return frame{}, err
	}
	analytics, err := s.store.ListAnalytics(ctx, 100)
	if err != nil {
		return frame{}, err
	}

	addresses := make([]string, 0, len(positions))
	for _, p := range positions {
		addresses = append(addresses, p.TokenAddress)
	}
	lastPrices := map[string]decimal.Decimal{}
	if s.prices != nil && len(addresses) > 0 {
		raw, err := s.prices.FetchPricesByAddresses(ctx, addresses)
		if err == nil {
			for addr, px := range raw {
				lastPrices[addr] = decimal.NewFromFloat(px)
			}
		}
	}

	cash := pnl.CashFromTrades(s.startingCash, journal)
	holdings := pnl.Holdings(positions, lastPrices)
	equity := pnl.Equity(cash, holdings)
	unrealized := pnl.Unrealized(positions, lastPrices)

	engine := pnl.NewEngine()
	engine.Replay(journal, time.Now(), s.recentWindow)

	metrics.OpenPositions.Set(float64(len(positions)))

	_ = s.store.InsertSnapshot(ctx, types.PortfolioSnapshot{
		Equity: equity, Cash: cash, Holdings: holdings, CreatedAt: time.Now(),
	})

	var curve []pnl.Point
	if snapshots, err := s.store.ListSnapshots(ctx, equityCurvePoints); err == nil {
		curve = pnl.EquityCurve(snapshots)
	}

	return frame{
		positions: positions, journal: journal, analytics: analytics,
		cash: cash, holdings: holdings, equity: equity, unrealized: unrealized,
		realizedTotal: engine.RealizedTotal(), realizedRecent: engine.RealizedRecent(),
		equityCurve: curve,
	}, nil
}

// InitFrame implements hub.StateProvider: one consistent snapshot computed
// in a single pass over the current position set and full trade journal.
func (s *Scheduler) InitFrame(ctx context.Context) (hub.Event, error) {
	f, err := s.compute(ctx)
	if err != nil {
		return hub.Event{}, err
	}

	return hub.Event{
		Kind: hub.EventInit,
		Payload: struct {
			Portfolio hub.PortfolioDTO  `json:"portfolio"`
			Positions []hub.PositionDTO `json:"positions"`
			Trades    []hub.TradeDTO    `json:"trades"`
			Analytics []types.Analytics `json:"analytics"`
		}{
			Portfolio: hub.PortfolioDTO{
				Equity: asF(f.equity), Cash: asF(f.cash), Holdings: asF(f.holdings),
				RealizedPnL: asF(f.realizedTotal), UnrealizedPnL: asF(f.unrealized),
				EquityCurve: hub.EquityCurveDTO(f.equityCurve),
			},
			Positions: hub.PositionsDTO(f.positions),
			Trades:    hub.TradesDTO(f.journal),
			Analytics: f.analytics,
		},
	}, nil
}

// Snapshot renders the /snapshot Telegram command's response text.
func (s *Scheduler) Snapshot(ctx context.Context) string {
	f, err := s.compute(ctx)
	if err != nil {
		return fmt.Sprintf("snapshot unavailable: %v", err)
	}
	return fmt.Sprintf("*Portfolio Snapshot*\nEquity: $%s\nCash: $%s\nHoldings: $%s\nRealized (total): $%s\nRealized (recent): $%s\nOpen positions: %d",
		f.equity.StringFixed(2), f.cash.StringFixed(2), f.holdings.StringFixed(2),
		f.realizedTotal.StringFixed(2), f.realizedRecent.StringFixed(2), len(f.positions))
}

func asF(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
