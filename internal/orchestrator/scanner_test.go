package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/pipeline"
)

func TestScanner_RunOnceReturnsEarlyOnPositionLoadError(t *testing.T) {
	failing := fakePositionSource{err: errors.New("db unavailable")}
	cash := NewCashBook(decimal.NewFromInt(1000))
	s := NewScanner(&config.Settings{}, pipeline.Deps{}, failing, cash)

	assert.NotPanics(t, func() {
		s.runOnce(context.Background())
	})
	// cash is untouched since the cycle never ran.
	assert.True(t, cash.Get().Equal(decimal.NewFromInt(1000)))
}

func TestScanner_StartIsIdempotent(t *testing.T) {
	failing := fakePositionSource{err: errors.New("db unavailable")}
	cash := NewCashBook(decimal.NewFromInt(1000))
	s := NewScanner(&config.Settings{TrendIntervalSec: 3600}, pipeline.Deps{}, failing, cash)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A second Start call must not spawn a duplicate ticker loop.
	s.Start(ctx)
	s.Start(ctx)
}
