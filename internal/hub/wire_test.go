package hub

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/trendrunner/tokentrader/internal/types"
)

func TestPositionsDTO_ConvertsDecimalsToFloats(t *testing.T) {
	opened := time.Now()
	positions := []types.Position{
		{ID: "p1", Symbol: "DOGE", Qty: decimal.NewFromFloat(12.5), Entry: decimal.NewFromFloat(1.1), Phase: types.PhaseOpen, OpenedAt: opened},
	}

	dtos := PositionsDTO(positions)

	assert.Len(t, dtos, 1)
	assert.Equal(t, 12.5, dtos[0].Qty)
	assert.Equal(t, "OPEN", dtos[0].Phase)
	assert.Equal(t, opened.UnixMilli(), dtos[0].OpenedAtMs)
}

func TestTradesDTO_ConvertsDecimalsToFloats(t *testing.T) {
	created := time.Now()
	trades := []types.Trade{
		{ID: "t1", Side: types.SideBuy, Price: decimal.NewFromFloat(2.0), Qty: decimal.NewFromFloat(5.0), Status: types.StatusPaper, CreatedAt: created},
	}

	dtos := TradesDTO(trades)

	assert.Len(t, dtos, 1)
	assert.Equal(t, 2.0, dtos[0].Price)
	assert.Equal(t, "BUY", dtos[0].Side)
	assert.Equal(t, created.UnixMilli(), dtos[0].CreatedAtMs)
}

func TestPositionsDTO_EmptyInputYieldsEmptySlice(t *testing.T) {
	dtos := PositionsDTO(nil)
	assert.NotNil(t, dtos)
	assert.Len(t, dtos, 0)
}
