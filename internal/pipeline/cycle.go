package pipeline

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/marketdata"
	"github.com/trendrunner/tokentrader/internal/metrics"
	"github.com/trendrunner/tokentrader/internal/risk"
	"github.com/trendrunner/tokentrader/internal/types"
)

// Deps bundles the collaborators one trending cycle needs. Vision and
// Routes are optional (nil disables the corresponding overlay); everything
// else is required.
type Deps struct {
	Client    *marketdata.Client
	Cooldown  *risk.CooldownTracker
	Analytics AnalyticsSink
	Trader    Trader
	Vision    VisionOverlay
	Routes    RouteProvider
}

// CycleResult is what one trending cycle produced, for the orchestrator to
// broadcast and the caller to log.
type CycleResult struct {
	Selected      int
	Eligible      int
	Trades        []*types.Trade
	FreeCashAfter decimal.Decimal
}

// RunCycle runs selection, gates, and execution back to back, sharing no
// state across calls.
func RunCycle(ctx context.Context, cfg *config.Settings, deps Deps, openPositions []types.Position, freeCash decimal.Decimal) (CycleResult, error) {
	now := time.Now()
	defer func(start time.Time) {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}(now)

	selected, err := Selection(ctx, deps.Client, cfg, openPositions)
	if err != nil {
		return CycleResult{}, err
	}

	gated, err := Gates(ctx, selected, cfg, deps.Client, deps.Cooldown, deps.Analytics, now)
	if err != nil {
		return CycleResult{}, err
	}

	exec := Execution(ctx, gated.Eligible, cfg, deps.Vision, deps.Routes, deps.Trader, deps.Analytics, deps.Cooldown, freeCash, now)

	return CycleResult{
		Selected:      len(selected),
		Eligible:      len(gated.Eligible),
		Trades:        exec.Trades,
		FreeCashAfter: exec.FreeCashAfter,
	}, nil
}
