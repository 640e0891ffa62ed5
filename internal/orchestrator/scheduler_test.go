package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendrunner/tokentrader/internal/hub"
	"github.com/trendrunner/tokentrader/internal/types"
)

type fakePortfolioStore struct {
	positions []types.Position
	trades    []types.Trade
	analytics []types.Analytics
	snapshots []types.PortfolioSnapshot
}

func (f *fakePortfolioStore) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	return f.positions, nil
}

func (f *fakePortfolioStore) ListTrades(ctx context.Context) ([]types.Trade, error) {
	return f.trades, nil
}

func (f *fakePortfolioStore) ListAnalytics(ctx context.Context, limit int) ([]types.Analytics, error) {
	return f.analytics, nil
}

func (f *fakePortfolioStore) InsertSnapshot(ctx context.Context, snap types.PortfolioSnapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakePortfolioStore) ListSnapshots(ctx context.Context, limit int) ([]types.PortfolioSnapshot, error) {
	return f.snapshots, nil
}

func TestScheduler_ComputeAppliesCashIdentity(t *testing.T) {
	now := time.Now()
	store := &fakePortfolioStore{
		trades: []types.Trade{
			{Side: types.SideBuy, TokenAddress: "tok", Price: decimal.NewFromFloat(1.0), Qty: decimal.NewFromInt(100), CreatedAt: now},
		},
		positions: []types.Position{
			{TokenAddress: "tok", Qty: decimal.NewFromInt(100), Entry: decimal.NewFromFloat(1.0), Phase: types.PhaseOpen},
		},
	}
	prices := fakePriceReader{prices: map[string]float64{"tok": 1.5}}

	s := NewScheduler(store, prices, decimal.NewFromInt(1000), 24*time.Hour)
	f, err := s.compute(context.Background())

	require.NoError(t, err)
	assert.True(t, f.cash.Equal(decimal.NewFromInt(900)))   // 1000 - 100*1.0
	assert.True(t, f.holdings.Equal(decimal.NewFromInt(150))) // 100*1.5
	assert.True(t, f.equity.Equal(decimal.NewFromInt(1050)))
	assert.True(t, f.unrealized.Equal(decimal.NewFromInt(50))) // 100*(1.5-1.0)
	assert.Len(t, store.snapshots, 1)
}

func TestScheduler_InitFrameBuildsDTOPayload(t *testing.T) {
	store := &fakePortfolioStore{}
	prices := fakePriceReader{prices: map[string]float64{}}
	s := NewScheduler(store, prices, decimal.NewFromInt(1000), 24*time.Hour)

	ev, err := s.InitFrame(context.Background())

	require.NoError(t, err)
	assert.Equal(t, hub.EventInit, ev.Kind)
}

func TestScheduler_InitFrameCarriesEquityCurveFromPriorSnapshots(t *testing.T) {
	now := time.Now()
	store := &fakePortfolioStore{
		snapshots: []types.PortfolioSnapshot{
			{Equity: decimal.NewFromInt(900), CreatedAt: now.Add(-time.Hour)},
		},
	}
	prices := fakePriceReader{prices: map[string]float64{}}
	s := NewScheduler(store, prices, decimal.NewFromInt(1000), 24*time.Hour)

	ev, err := s.InitFrame(context.Background())
	require.NoError(t, err)

	payload, ok := ev.Payload.(struct {
		Portfolio hub.PortfolioDTO  `json:"portfolio"`
		Positions []hub.PositionDTO `json:"positions"`
		Trades    []hub.TradeDTO    `json:"trades"`
		Analytics []types.Analytics `json:"analytics"`
	})
	require.True(t, ok)
	require.Len(t, payload.Portfolio.EquityCurve, 2) // the pre-seeded snapshot plus this compute's own insert
	assert.Equal(t, 900.0, payload.Portfolio.EquityCurve[0].Equity)
}

func TestScheduler_SnapshotRendersUnavailableOnError(t *testing.T) {
	s := NewScheduler(erroringStore{}, fakePriceReader{}, decimal.NewFromInt(1000), 24*time.Hour)

	out := s.Snapshot(context.Background())

	assert.Contains(t, out, "unavailable")
}

func TestScheduler_ScheduleRecomputeCoalescesBursts(t *testing.T) {
	s := NewScheduler(&fakePortfolioStore{}, fakePriceReader{}, decimal.NewFromInt(1000), 24*time.Hour)

	s.ScheduleRecompute()
	s.ScheduleRecompute()
	s.ScheduleRecompute()

	assert.Len(t, s.pending, 1)
}

type erroringStore struct{}

func (erroringStore) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	return nil, assertErr
}
func (erroringStore) ListTrades(ctx context.Context) ([]types.Trade, error) { return nil, nil }
func (erroringStore) ListAnalytics(ctx context.Context, limit int) ([]types.Analytics, error) {
	return nil, nil
}
func (erroringStore) InsertSnapshot(ctx context.Context, snap types.PortfolioSnapshot) error {
	return nil
}
func (erroringStore) ListSnapshots(ctx context.Context, limit int) ([]types.PortfolioSnapshot, error) {
	return nil, nil
}

var assertErr = &testErr{"boom"}

type testErr struct{ msg string }

func (e *testErr) Error() string { return e.msg }
