package orchestrator

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/types"
)

func TestThresholdLabel_PriorityMatchesEvaluate(t *testing.T) {
	d := decimal.NewFromFloat

	assert.Equal(t, "sl", thresholdLabel(d(0.8), d(1.1), d(1.3), d(0.9)))
	assert.Equal(t, "tp2", thresholdLabel(d(1.35), d(1.1), d(1.3), d(0.9)))
	assert.Equal(t, "tp1", thresholdLabel(d(1.15), d(1.1), d(1.3), d(0.9)))
}

type fakePositionSource struct {
	positions []types.Position
	err       error
}

func (f fakePositionSource) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	return f.positions, f.err
}

type fakePriceReader struct {
	prices map[string]float64
	err    error
}

func (f fakePriceReader) FetchPricesByAddresses(ctx context.Context, addresses []string) (map[string]float64, error) {
	return f.prices, f.err
}

type fakeWriter struct {
	upserted []types.Position
	inserted []types.Trade
}

func (f *fakeWriter) UpsertPosition(ctx context.Context, p types.Position) error {
	f.upserted = append(f.upserted, p)
	return nil
}

func (f *fakeWriter) InsertTrade(ctx context.Context, t types.Trade) error {
	f.inserted = append(f.inserted, t)
	return nil
}

func TestPriceLoop_TickClosesPositionOnStopLoss(t *testing.T) {
	positions := fakePositionSource{positions: []types.Position{
		{TokenAddress: "tok", Qty: decimal.NewFromInt(100), Entry: decimal.NewFromFloat(1.0), Stop: decimal.NewFromFloat(0.9), Phase: types.PhaseOpen},
	}}
	prices := fakePriceReader{prices: map[string]float64{"tok": 0.85}}
	writer := &fakeWriter{}
	cfg := &config.Settings{TP1TakeFraction: 0.5}

	pl := NewPriceLoop(cfg, positions, prices, writer, writer, nil, nil)
	pl.tick(context.Background())

	require.Len(t, writer.upserted, 1)
	require.Len(t, writer.inserted, 1)
	assert.Equal(t, types.PhaseClosed, writer.upserted[0].Phase)
	assert.Equal(t, types.SideSell, writer.inserted[0].Side)
}

func TestPriceLoop_TickSkipsPositionsWithNoPriceQuote(t *testing.T) {
	positions := fakePositionSource{positions: []types.Position{
		{TokenAddress: "missing", Qty: decimal.NewFromInt(100), Stop: decimal.NewFromFloat(0.9), Phase: types.PhaseOpen},
	}}
	prices := fakePriceReader{prices: map[string]float64{}}
	writer := &fakeWriter{}
	cfg := &config.Settings{TP1TakeFraction: 0.5}

	pl := NewPriceLoop(cfg, positions, prices, writer, writer, nil, nil)
	pl.tick(context.Background())

	assert.Empty(t, writer.upserted)
	assert.Empty(t, writer.inserted)
}

func TestPriceLoop_TickNoopsOnEmptyPositionSet(t *testing.T) {
	pl := NewPriceLoop(&config.Settings{}, fakePositionSource{}, fakePriceReader{}, &fakeWriter{}, &fakeWriter{}, nil, nil)

	assert.NotPanics(t, func() {
		pl.tick(context.Background())
	})
}

type fakeAnalyticsOutcomeStore struct {
	row      *types.Analytics
	attached []types.Analytics
}

func (f *fakeAnalyticsOutcomeStore) FindAnalyticsByTradeID(ctx context.Context, tradeID string) (*types.Analytics, error) {
	return f.row, nil
}

func (f *fakeAnalyticsOutcomeStore) AttachAnalyticsOutcome(ctx context.Context, id string, outcome types.Analytics) error {
	f.attached = append(f.attached, outcome)
	return nil
}

func TestPriceLoop_TickRatchetsStopForPartialPositionBeforeEvaluating(t *testing.T) {
	positions := fakePositionSource{positions: []types.Position{
		{
			TokenAddress: "tok", Qty: decimal.NewFromInt(50), Entry: decimal.NewFromFloat(1.0),
			TP1: decimal.NewFromFloat(1.2), Stop: decimal.NewFromFloat(0.8), Phase: types.PhasePartial,
		},
	}}
	prices := fakePriceReader{prices: map[string]float64{"tok": 1.1}}
	writer := &fakeWriter{}
	cfg := &config.Settings{TP1TakeFraction: 0.5}

	pl := NewPriceLoop(cfg, positions, prices, writer, writer, nil, nil)
	pl.tick(context.Background())

	require.NotEmpty(t, writer.upserted)
	assert.True(t, writer.upserted[0].Stop.GreaterThan(decimal.NewFromFloat(0.8)))
	assert.Empty(t, writer.inserted)
}

func TestPriceLoop_TickAttachesAnalyticsOutcomeOnClose(t *testing.T) {
	positions := fakePositionSource{positions: []types.Position{
		{
			TokenAddress: "tok", Qty: decimal.NewFromInt(100), Entry: decimal.NewFromFloat(1.0),
			Stop: decimal.NewFromFloat(0.9), Phase: types.PhaseOpen, EntryTradeID: "buy-1",
		},
	}}
	prices := fakePriceReader{prices: map[string]float64{"tok": 0.85}}
	writer := &fakeWriter{}
	analytics := &fakeAnalyticsOutcomeStore{row: &types.Analytics{ID: "analytics-1"}}
	cfg := &config.Settings{TP1TakeFraction: 0.5}

	pl := NewPriceLoop(cfg, positions, prices, writer, writer, analytics, nil)
	pl.tick(context.Background())

	require.Len(t, analytics.attached, 1)
	outcome := analytics.attached[0]
	assert.Equal(t, "STOP_LOSS", *outcome.ExitReason)
	assert.True(t, *outcome.PnLUSD < 0)
	assert.False(t, *outcome.WasProfit)
}

func TestCashBook_GetSetIsThreadSafe(t *testing.T) {
	cb := NewCashBook(decimal.NewFromInt(1000))

	assert.True(t, cb.Get().Equal(decimal.NewFromInt(1000)))

	cb.Set(decimal.NewFromInt(1500))

	assert.True(t, cb.Get().Equal(decimal.NewFromInt(1500)))
}
