// Package sentinel implements the lending-pool health-factor watchdog: a
// standalone cooperative task, independent of the trending pipeline,
// that reads pool health, classifies it into a status ladder, and
// injects collateral when liquidation risk spikes.
package sentinel

import (
	"context"
	"fmt"
	"time"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/logx"
	"github.com/trendrunner/tokentrader/internal/metrics"
	"github.com/trendrunner/tokentrader/internal/notify"
)

var log = logx.New("sentinel")

// AssetPosition is one asset's slice of the pool account.
type AssetPosition struct {
	Symbol        string
	PriceUSD      float64
	SupplyUSD     float64
	DebtUSD       float64
	WalletBalance float64
	SupplyRateAPY float64
	BorrowRateAPY float64
}

// Strategy describes the directional exposure the collateral/debt asset mix
// implies: a volatile collateral funded by stable debt behaves like a
// leveraged long on the collateral asset, and the reverse like a short.
type Strategy string

const (
	StrategyLong    Strategy = "LONG"
	StrategyShort   Strategy = "SHORT"
	StrategyNeutral Strategy = "NEUTRAL"
)

var stablecoinSymbols = map[string]bool{"USDC": true, "USDT": true, "DAI": true, "FRAX": true, "USDBC": true}

// classifyStrategy buckets each asset's USD exposure as stable or volatile
// on both the supply and debt side, then compares which side carries the
// volatile weight.
func classifyStrategy(assets []AssetPosition) Strategy {
	var stableSupply, volatileSupply, stableDebt, volatileDebt float64
	for _, a := range assets {
		if stablecoinSymbols[a.Symbol] {
			stableSupply += a.SupplyUSD
			stableDebt += a.DebtUSD
		} else {
			volatileSupply += a.SupplyUSD
			volatileDebt += a.DebtUSD
		}
	}
	switch {
	case volatileSupply > stableSupply && stableDebt > volatileDebt:
		return StrategyLong
	case stableSupply > volatileSupply && volatileDebt > stableDebt:
		return StrategyShort
	default:
		return StrategyNeutral
	}
}

// mainAssetLiquidationThreshold approximates the weighted-average liquidation
// threshold Aave-style pools apply to blue-chip collateral; pool-specific
// thresholds live with the PoolReader once a protocol client is wired.
const mainAssetLiquidationThreshold = 0.80

// mainAssetLiquidationPrice finds the largest collateral position by USD
// value and projects the price at which the account's health factor would
// cross 1.0, holding every other asset's USD value fixed.
func mainAssetLiquidationPrice(account Account) (symbol string, price float64) {
	var main AssetPosition
	for _, a := range account.Assets {
		if a.SupplyUSD > main.SupplyUSD {
			main = a
		}
	}
	if main.Symbol == "" || main.PriceUSD <= 0 || account.CollateralUSD <= 0 {
		return "", 0
	}
	collateralAtLiquidation := account.DebtUSD / mainAssetLiquidationThreshold
	return main.Symbol, main.PriceUSD * (collateralAtLiquidation / account.CollateralUSD)
}

// weightedNetAPY blends every asset's supply yield against its borrow cost,
// weighted by USD size, and normalizes by the account's net equity.
func weightedNetAPY(account Account) float64 {
	var supplyYield, borrowCost float64
	for _, a := range account.Assets {
		supplyYield += a.SupplyUSD * a.SupplyRateAPY
		borrowCost += a.DebtUSD * a.BorrowRateAPY
	}
	equity := account.CollateralUSD - account.DebtUSD
	if equity <= 0 {
		return 0
	}
	return (supplyYield - borrowCost) / equity
}

// Account is the lending pool snapshot the sentinel reads each tick. The
// pool reader itself is an out-of-scope collaborator; this is the narrow
// shape the sentinel consumes.
type Account struct {
	CollateralUSD float64
	DebtUSD       float64
	HealthFactor  float64
	Assets        []AssetPosition
}

// PoolReader is the narrow contract the sentinel needs from the lending
// protocol client.
type PoolReader interface {
	ReadAccount(ctx context.Context) (Account, error)
}

// RescueExecutor dispatches the actual on-chain approve+supply call. PAPER
// mode never calls this; it only notifies.
type RescueExecutor interface {
	ApproveAndSupply(ctx context.Context, usdcAmount float64) (txHash string, err error)
}

// Status is a health-factor band, healthiest first.
type Status string

const (
	StatusOptimal  Status = "OPTIMAL"
	StatusNeutral  Status = "NEUTRAL"
	StatusWarning  Status = "WARNING"
	StatusDanger   Status = "DANGER"
	StatusCritical Status = "CRITICAL"
)

func classify(hf float64, cfg *config.Settings) Status {
	switch {
	case hf >= cfg.HFRelooop:
		return StatusOptimal
	case hf >= cfg.HFWarning:
		return StatusNeutral
	case hf >= cfg.HFDanger:
		return StatusWarning
	case hf >= cfg.HFEmergency:
		return StatusDanger
	default:
		return StatusCritical
	}
}

// Sentinel owns the small amount of state needed to decide when a change
// is notification-worthy: last status, last HF, last equity, and the
// cooldowns on alerts and rescues.
type Sentinel struct {
	cfg      *config.Settings
	pool     PoolReader
	rescue   RescueExecutor
	notifier *notify.Notifier
	push     *notify.PushService
	mode     string

	lastStatus   Status
	lastHF       float64
	lastEquity   float64
	lastAlertAt  time.Time
	rescueUntil  time.Time
	haveBaseline bool
}

func New(cfg *config.Settings, pool PoolReader, rescue RescueExecutor, notifier *notify.Notifier, push *notify.PushService) *Sentinel {
	return &Sentinel{cfg: cfg, pool: pool, rescue: rescue, notifier: notifier, push: push, mode: cfg.Mode}
}

// Run ticks every SENTINEL_INTERVAL_SEC until ctx is cancelled.
func (s *Sentinel) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.cfg.SentinelIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sentinel) tick(ctx context.Context) {
	account, err := s.pool.ReadAccount(ctx)
	if err != nil {
		log.Printf("read account failed: %v", err)
		return
	}

	equity := account.CollateralUSD - account.DebtUSD
	status := classify(account.HealthFactor, s.cfg)
	now := time.Now()
	metrics.SentinelHealthFactor.Set(account.HealthFactor)
	metrics.SentinelNetAPY.Set(weightedNetAPY(account))

	if !s.haveBaseline {
		s.lastStatus, s.lastHF, s.lastEquity, s.haveBaseline = status, account.HealthFactor, equity, true
		s.lastAlertAt = now
		s.notify(account, status, "baseline snapshot")
	} else {
		if reason, should := s.shouldAlert(account, status, equity, now); should {
			s.notify(account, status, reason)
			s.lastAlertAt = now
		}
		s.lastStatus, s.lastHF, s.lastEquity = status, account.HealthFactor, equity
	}

	if account.HealthFactor < s.cfg.HFEmergency {
		s.rescueIfDue(ctx, account, now)
	}
}

func (s *Sentinel) shouldAlert(account Account, status Status, equity float64, now time.Time) (string, bool) {
	if status != s.lastStatus {
		return fmt.Sprintf("status changed %s -> %s", s.lastStatus, status), true
	}
	if status != StatusOptimal && s.lastHF-account.HealthFactor >= s.cfg.SignificantDeviationHF {
		return "health factor dropped significantly", true
	}
	if s.lastEquity != 0 {
		drop := (s.lastEquity - equity) / s.lastEquity
		if drop >= s.cfg.SignificantDeviationEquityPct {
			return "equity dropped significantly", true
		}
	}
	if status != StatusOptimal && now.Sub(s.lastAlertAt) >= time.Duration(s.cfg.AlertCooldownSeconds)*time.Second {
		return "heartbeat", true
	}
	return "", false
}

func (s *Sentinel) rescueIfDue(ctx context.Context, account Account, now time.Time) {
	if now.Before(s.rescueUntil) {
		return
	}

	walletUSDC := 0.0
	for _, a := range account.Assets {
		if a.Symbol == "USDC" {
			walletUSDC = a.WalletBalance
			break
		}
	}

	targetGapUSD := account.DebtUSD*s.cfg.HFWarning - account.CollateralUSD
	if targetGapUSD <= 0 {
		return
	}
	inject := targetGapUSD
	if inject > walletUSDC {
		inject = walletUSDC
	}
	if inject > s.cfg.RescueMaxCap {
		inject = s.cfg.RescueMaxCap
	}
	if inject < s.cfg.RescueMin {
		log.Printf("rescue needed but below RESCUE_MIN: inject=%.2f", inject)
		return
	}

	switch {
	case s.mode == "LIVE" && s.rescue != nil:
		txHash, err := s.rescue.ApproveAndSupply(ctx, inject)
		if err != nil {
			log.Printf("rescue supply failed: %v", err)
			s.notifier.Notify(fmt.Sprintf("*RESCUE FAILED*: tried to inject $%.2f USDC, error: %v", inject, err))
			return
		}
		s.notifier.Notify(fmt.Sprintf("*RESCUE EXECUTED*: injected $%.2f USDC, tx %s", inject, txHash))
	case s.mode == "LIVE":
		log.Printf("rescue needed in LIVE mode but no RescueExecutor configured: inject=%.2f", inject)
		return
	default:
		s.notifier.Notify(fmt.Sprintf("*RESCUE WOULD INJECT* $%.2f USDC (PAPER mode, no transaction sent)", inject))
	}
	s.rescueUntil = now.Add(time.Duration(s.cfg.RescueBackoffMin) * time.Minute)
}

func (s *Sentinel) notify(account Account, status Status, reason string) {
	msg := s.format(account, status, reason)
	s.notifier.Notify(msg)
	if status == StatusDanger || status == StatusCritical {
		s.push.NotifyCritical(fmt.Sprintf("Lending Sentinel: %s", status), reason, map[string]string{
			"status": string(status),
			"hf":     fmt.Sprintf("%.3f", account.HealthFactor),
		})
	}
}

func (s *Sentinel) format(account Account, status Status, reason string) string {
	strategy := classifyStrategy(account.Assets)
	netAPY := weightedNetAPY(account)
	liqSymbol, liqPrice := mainAssetLiquidationPrice(account)

	msg := fmt.Sprintf("*Lending Sentinel — %s*\n%s\nHF: %.3f\nCollateral: $%.2f\nDebt: $%.2f\nEquity: $%.2f\nStrategy: %s\nNet APY: %.2f%%",
		status, reason, account.HealthFactor, account.CollateralUSD, account.DebtUSD, account.CollateralUSD-account.DebtUSD,
		strategy, netAPY*100)
	if liqSymbol != "" {
		msg += fmt.Sprintf("\nLiquidation price (%s): $%.4f", liqSymbol, liqPrice)
	}
	return msg
}

// Snapshot renders the /snapshot command's response text.
func (s *Sentinel) Snapshot(ctx context.Context) string {
	account, err := s.pool.ReadAccount(ctx)
	if err != nil {
		return fmt.Sprintf("snapshot unavailable: %v", err)
	}
	status := classify(account.HealthFactor, s.cfg)
	return s.format(account, status, "on-demand snapshot")
}
