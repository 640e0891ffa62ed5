// Package orchestrator wires the scanner loop, price-polling loop, and
// recompute scheduler together. It owns no business logic of its own
// beyond cadence and sequencing; the pipeline, autosell, and pnl packages
// do the actual work.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/logx"
	"github.com/trendrunner/tokentrader/internal/pipeline"
	"github.com/trendrunner/tokentrader/internal/types"
)

var log = logx.New("orchestrator")

// PositionSource reads currently open positions. It does not supply the
// free-cash figure the execution stage sizes against.
type PositionSource interface {
	GetOpenPositions(ctx context.Context) ([]types.Position, error)
}

// Scanner runs the trending pipeline every TREND_INTERVAL_SEC on a
// dedicated background goroutine. Errors are logged and swallowed; the
// cadence never stalls on a failure.
type Scanner struct {
	cfg       *config.Settings
	deps      pipeline.Deps
	positions PositionSource
	cash      *CashBook

	startOnce sync.Once
}

func NewScanner(cfg *config.Settings, deps pipeline.Deps, positions PositionSource, cash *CashBook) *Scanner {
	return &Scanner{cfg: cfg, deps: deps, positions: positions, cash: cash}
}

// Start is idempotent: a second call is a no-op.
func (s *Scanner) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go s.run(ctx)
	})
}

func (s *Scanner) run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.TrendIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scanner) runOnce(ctx context.Context) {
	open, err := s.positions.GetOpenPositions(ctx)
	if err != nil {
		log.Printf("failed to load open positions: %v", err)
		return
	}

	result, err := pipeline.RunCycle(ctx, s.cfg, s.deps, open, s.cash.Get())
	if err != nil {
		log.Printf("cycle failed: %v", err)
		return
	}
	s.cash.Set(result.FreeCashAfter)
	log.Printf("cycle done: selected=%d eligible=%d trades=%d", result.Selected, result.Eligible, len(result.Trades))
}

// CashBook is the simulated cash figure the execution stage sizes against,
// threaded across cycles.
type CashBook struct {
	mu    sync.Mutex
	value decimal.Decimal
}

func NewCashBook(starting decimal.Decimal) *CashBook {
	return &CashBook{value: starting}
}

func (c *CashBook) Get() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

func (c *CashBook) Set(v decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
}
