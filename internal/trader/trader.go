package trader

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/autosell"
	"github.com/trendrunner/tokentrader/internal/errs"
	"github.com/trendrunner/tokentrader/internal/logx"
	"github.com/trendrunner/tokentrader/internal/marketdata"
	"github.com/trendrunner/tokentrader/internal/pipeline"
	"github.com/trendrunner/tokentrader/internal/risk"
	"github.com/trendrunner/tokentrader/internal/types"
)

var log = logx.New("trader")

// PositionStore is the narrow position-persistence contract the trader needs.
type PositionStore interface {
	UpsertPosition(ctx context.Context, p types.Position) error
}

// TradeStore is the narrow trade-journal contract the trader needs.
type TradeStore interface {
	InsertTrade(ctx context.Context, t types.Trade) error
}

// Recompute schedules a portfolio recompute broadcast from any caller
// context. Implementations must be a safe no-op if no hub loop is
// attached yet.
type Recompute interface {
	ScheduleRecompute()
}

// Trader implements the pipeline.Trader contract.
type Trader struct {
	cfg       *config.Settings
	client    *marketdata.Client
	trades    TradeStore
	positions PositionStore
	evmSigner Signer
	splSigner Signer
	recompute Recompute
}

func New(cfg *config.Settings, client *marketdata.Client, trades TradeStore, positions PositionStore, evmSigner, splSigner Signer, recompute Recompute) *Trader {
	return &Trader{cfg: cfg, client: client, trades: trades, positions: positions, evmSigner: evmSigner, splSigner: splSigner, recompute: recompute}
}

// Buy runs the per-request dispatch sequence: validate, quote, size,
// send, and persist. The second return value is the same-cycle immediate
// exit (trade plus reason) produced when PAPER reconciliation finds the
// fill price already past a threshold and the exit closes the position;
// it is nil otherwise.
func (t *Trader) Buy(ctx context.Context, req pipeline.BuyRequest) (*types.Trade, *pipeline.ImmediateExit, error) {
	c := req.Candidate
	if c.Chain == "" || c.PairAddress == "" {
		return nil, nil, errs.New(errs.LogicalSkip, "MISSING_CHAIN_OR_PAIR", nil)
	}

	fillPrice, err := t.pairExactPrice(ctx, c)
	if err != nil {
		return nil, nil, err
	}

	if c.PriceUSD > 0 && fillPrice > 0 {
		hi, lo := c.PriceUSD, fillPrice
		if lo > hi {
			hi, lo = lo, hi
		}
		if hi/lo > t.cfg.MaxDeviationMultiplier {
			return nil, nil, errs.Skip("PRICE_DEVIATION_EXCEEDED")
		}
	}

	fillPriceDec := decimal.NewFromFloat(fillPrice)
	if fillPriceDec.IsZero() {
		return nil, nil, errs.Skip("ZERO_FILL_PRICE")
	}
	qty := req.Notional.Div(fillPriceDec)

	thresholds := risk.ComputeThresholds(fillPriceDec, c.NormalizedRow, risk.ThresholdParams{
		SLFloor: t.cfg.SLFloor, SLCap: t.cfg.SLCap, TP1Default: t.cfg.TP1Default, TP2Default: t.cfg.TP2Default,
	})

	now := time.Now()
	trade := types.Trade{
		ID: uuid.NewString(), Side: types.SideBuy, Symbol: c.Symbol, Chain: c.Chain,
		TokenAddress: c.TokenAddress, PairAddress: c.PairAddress, Price: fillPriceDec, Qty: qty,
		CreatedAt: now,
	}

	switch t.cfg.Mode {
	case "LIVE":
		if req.Route == nil {
			return nil, nil, errs.Skip("NO_ROUTE_ATTACHED")
		}
		signer := pickSigner(req.Route, t.evmSigner, t.splSigner)
		if signer == nil {
			return nil, nil, errs.New(errs.ConfigMissing, "SIGNER_NOT_CONFIGURED", nil)
		}
		txHash, sendErr := signer.SendRaw(ctx, req.Route)
		if sendErr != nil {
			return nil, nil, errs.New(errs.Transient, "SIGNER_BROADCAST_FAILED", sendErr)
		}
		trade.Status = types.StatusLive
		trade.TxHash = txHash
	default:
		trade.Status = types.StatusPaper
	}

	if err := t.trades.InsertTrade(ctx, trade); err != nil {
		return nil, nil, err
	}

	position := types.Position{
		ID: uuid.NewString(), Symbol: c.Symbol, Chain: c.Chain, TokenAddress: c.TokenAddress,
		PairAddress: c.PairAddress, Qty: qty, Entry: fillPriceDec,
		TP1: thresholds.TP1, TP2: thresholds.TP2, Stop: thresholds.Stop,
		Phase: types.PhaseOpen, OpenedAt: now, UpdatedAt: now, EntryTradeID: trade.ID,
	}

	var immediateExit *pipeline.ImmediateExit
	if t.cfg.Mode != "LIVE" {
		// Reconcile immediate-exit cases: the just-paid price may already
		// be past a threshold. Thresholds are captured before Evaluate
		// mutates the position so the reason reflects what actually fired.
		reason := autosell.ExitReason(fillPriceDec, thresholds.TP1, thresholds.TP2, thresholds.Stop)
		if et := autosell.Evaluate(&position, fillPriceDec, autosell.Params{TP1TakeFraction: t.cfg.TP1TakeFraction}, now); et != nil {
			if err := t.trades.InsertTrade(ctx, *et); err != nil {
				log.Printf("failed to persist immediate-exit trade for %s: %v", c.Symbol, err)
			} else if position.Phase == types.PhaseClosed {
				immediateExit = &pipeline.ImmediateExit{Trade: et, Reason: reason}
			}
		}
	}

	if err := t.positions.UpsertPosition(ctx, position); err != nil {
		log.Printf("failed to persist opened position for %s: %v", c.Symbol, err)
	}

	if t.recompute != nil {
		t.recompute.ScheduleRecompute()
	}

	return &trade, immediateExit, nil
}

// pairExactPrice resolves the fresh aggregator price for the candidate's
// exact pair, not just any pair on that token.
func (t *Trader) pairExactPrice(ctx context.Context, c types.Candidate) (float64, error) {
	byAddr, err := t.client.FetchPairsByAddresses(ctx, []string{c.TokenAddress})
	if err != nil {
		return 0, err
	}
	for _, p := range byAddr[c.TokenAddress] {
		if p.PairAddress == c.PairAddress {
			return p.PriceUSD, nil
		}
	}
	return 0, errs.Skip("NO_PAIR_EXACT_PRICE")
}
