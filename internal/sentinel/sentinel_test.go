package sentinel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trendrunner/tokentrader/config"
)

func testConfig() *config.Settings {
	return &config.Settings{
		Mode:                          "PAPER",
		HFRelooop:                     2.0,
		HFWarning:                     1.5,
		HFDanger:                      1.2,
		HFEmergency:                   1.05,
		SignificantDeviationHF:        0.05,
		SignificantDeviationEquityPct: 0.03,
		AlertCooldownSeconds:          1800,
		RescueMaxCap:                  500,
		RescueMin:                     25,
		RescueBackoffMin:              10,
	}
}

func TestClassify_Ladder(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, StatusOptimal, classify(2.5, cfg))
	assert.Equal(t, StatusNeutral, classify(1.6, cfg))
	assert.Equal(t, StatusWarning, classify(1.3, cfg))
	assert.Equal(t, StatusDanger, classify(1.1, cfg))
	assert.Equal(t, StatusCritical, classify(1.0, cfg))
}

type fakePool struct {
	account Account
	err     error
}

func (f fakePool) ReadAccount(ctx context.Context) (Account, error) { return f.account, f.err }

type fakeRescue struct {
	called bool
	amount float64
}

func (f *fakeRescue) ApproveAndSupply(ctx context.Context, usdcAmount float64) (string, error) {
	f.called = true
	f.amount = usdcAmount
	return "0xdeadbeef", nil
}

func TestSentinel_FirstTickEstablishesBaselineWithoutPanicking(t *testing.T) {
	s := New(testConfig(), fakePool{account: Account{CollateralUSD: 1000, DebtUSD: 400, HealthFactor: 2.5}}, &fakeRescue{}, nil, nil)

	assert.NotPanics(t, func() {
		s.tick(context.Background())
	})
	assert.True(t, s.haveBaseline)
	assert.Equal(t, StatusOptimal, s.lastStatus)
}

func TestSentinel_ShouldAlertOnStatusChange(t *testing.T) {
	s := New(testConfig(), fakePool{}, &fakeRescue{}, nil, nil)
	s.lastStatus = StatusOptimal
	s.lastHF = 2.5
	s.lastEquity = 600

	_, should := s.shouldAlert(Account{HealthFactor: 1.3, CollateralUSD: 1000, DebtUSD: 400}, StatusWarning, 600, s.lastAlertAt)

	assert.True(t, should)
}

func TestSentinel_ShouldAlertOnSignificantHFDrop(t *testing.T) {
	s := New(testConfig(), fakePool{}, &fakeRescue{}, nil, nil)
	s.lastStatus = StatusWarning
	s.lastHF = 1.3
	s.lastEquity = 600

	_, should := s.shouldAlert(Account{HealthFactor: 1.2, CollateralUSD: 1000, DebtUSD: 400}, StatusWarning, 600, s.lastAlertAt)

	assert.True(t, should)
}

func TestSentinel_ShouldNotAlertOnStableOptimalState(t *testing.T) {
	s := New(testConfig(), fakePool{}, &fakeRescue{}, nil, nil)
	s.lastStatus = StatusOptimal
	s.lastHF = 2.5
	s.lastEquity = 600

	_, should := s.shouldAlert(Account{HealthFactor: 2.49, CollateralUSD: 1000, DebtUSD: 400}, StatusOptimal, 600, s.lastAlertAt)

	assert.False(t, should)
}

func TestSentinel_RescueIfDueRespectsMinimum(t *testing.T) {
	rescue := &fakeRescue{}
	cfg := testConfig()
	cfg.Mode = "LIVE"
	cfg.RescueMin = 1000 // well above anything this account could inject
	s := New(cfg, fakePool{}, rescue, nil, nil)

	account := Account{CollateralUSD: 500, DebtUSD: 400, HealthFactor: 1.0, Assets: []AssetPosition{{Symbol: "USDC", WalletBalance: 50}}}
	s.rescueIfDue(context.Background(), account, time.Now())

	assert.False(t, rescue.called)
}

func TestSentinel_RescueIfDueExecutesInLiveMode(t *testing.T) {
	rescue := &fakeRescue{}
	cfg := testConfig()
	cfg.Mode = "LIVE"
	s := New(cfg, fakePool{}, rescue, nil, nil)

	account := Account{CollateralUSD: 400, DebtUSD: 400, HealthFactor: 1.0, Assets: []AssetPosition{{Symbol: "USDC", WalletBalance: 1000}}}
	s.rescueIfDue(context.Background(), account, time.Now())

	assert.True(t, rescue.called)
	assert.Greater(t, rescue.amount, 0.0)
}

func TestClassifyStrategy_VolatileCollateralOverStableDebtIsLong(t *testing.T) {
	assets := []AssetPosition{
		{Symbol: "WETH", SupplyUSD: 1000},
		{Symbol: "USDC", DebtUSD: 600},
	}

	assert.Equal(t, StrategyLong, classifyStrategy(assets))
}

func TestClassifyStrategy_StableCollateralOverVolatileDebtIsShort(t *testing.T) {
	assets := []AssetPosition{
		{Symbol: "USDC", SupplyUSD: 1000},
		{Symbol: "WETH", DebtUSD: 600},
	}

	assert.Equal(t, StrategyShort, classifyStrategy(assets))
}

func TestClassifyStrategy_NoAssetsIsNeutral(t *testing.T) {
	assert.Equal(t, StrategyNeutral, classifyStrategy(nil))
}

func TestMainAssetLiquidationPrice_ProjectsFromLargestCollateral(t *testing.T) {
	account := Account{
		CollateralUSD: 2000,
		DebtUSD:       1000,
		Assets: []AssetPosition{
			{Symbol: "WETH", PriceUSD: 2000, SupplyUSD: 2000},
			{Symbol: "USDC", PriceUSD: 1, SupplyUSD: 0, DebtUSD: 1000},
		},
	}

	symbol, price := mainAssetLiquidationPrice(account)

	assert.Equal(t, "WETH", symbol)
	// collateralAtLiquidation = 1000/0.8 = 1250; price = 2000 * (1250/2000) = 1250
	assert.InDelta(t, 1250.0, price, 0.01)
}

func TestMainAssetLiquidationPrice_NoCollateralIsZero(t *testing.T) {
	symbol, price := mainAssetLiquidationPrice(Account{})

	assert.Equal(t, "", symbol)
	assert.Equal(t, 0.0, price)
}

func TestWeightedNetAPY_BlendsSupplyYieldAgainstBorrowCost(t *testing.T) {
	account := Account{
		CollateralUSD: 2000,
		DebtUSD:       1000,
		Assets: []AssetPosition{
			{SupplyUSD: 2000, SupplyRateAPY: 0.05},
			{DebtUSD: 1000, BorrowRateAPY: 0.03},
		},
	}

	// (2000*0.05 - 1000*0.03) / (2000-1000) = (100-30)/1000 = 0.07
	assert.InDelta(t, 0.07, weightedNetAPY(account), 0.0001)
}

func TestWeightedNetAPY_NoEquityIsZero(t *testing.T) {
	account := Account{CollateralUSD: 500, DebtUSD: 500}

	assert.Equal(t, 0.0, weightedNetAPY(account))
}

func TestSentinel_RescueIfDueSkipsDuringBackoff(t *testing.T) {
	rescue := &fakeRescue{}
	cfg := testConfig()
	cfg.Mode = "LIVE"
	s := New(cfg, fakePool{}, rescue, nil, nil)
	account := Account{CollateralUSD: 400, DebtUSD: 400, HealthFactor: 1.0, Assets: []AssetPosition{{Symbol: "USDC", WalletBalance: 1000}}}

	// First call arms the backoff window; an immediate second call must be skipped.
	now := time.Now()
	s.rescueIfDue(context.Background(), account, now)
	rescue.called = false
	s.rescueIfDue(context.Background(), account, now)

	assert.False(t, rescue.called)
}
