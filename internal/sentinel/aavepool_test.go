package sentinel

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trendrunner/tokentrader/internal/types"
)

func TestNewAavePool_ParsesABIAndAddresses(t *testing.T) {
	pool, err := NewAavePool(nil, "0x794a61358D6845594F94dc1DB02A252b5b4814aD", "0x0000000000000000000000000000000000dEaD")

	require.NoError(t, err)
	assert.NotNil(t, pool)
}

func TestRayToFloat_ScalesByDecimals(t *testing.T) {
	// 1_500_000_000 base units at 8 decimals == $15.00
	assert.InDelta(t, 15.0, rayToFloat(big.NewInt(1_500_000_000), 8), 0.0001)
	// 1.2e18 ray units at 18 decimals == health factor 1.2
	assert.InDelta(t, 1.2, rayToFloat(big.NewInt(1_200_000_000_000_000_000), 18), 0.0001)
}

func TestNewAaveRescue_ParsesABIAndAddresses(t *testing.T) {
	rescue, err := NewAaveRescue(fakeRouteSigner{}, "0x794a61358D6845594F94dc1DB02A252b5b4814aD", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	require.NoError(t, err)
	assert.NotNil(t, rescue)
}

func TestUSDToBaseUnits_ScalesBySixDecimals(t *testing.T) {
	units := usdToBaseUnits(125.50, usdcDecimals)

	assert.Equal(t, "125500000", units.String())
}

type fakeRouteSigner struct{}

func (fakeRouteSigner) SendRaw(ctx context.Context, route *types.Route) (string, error) {
	return "", nil
}
func (fakeRouteSigner) Address() string { return "0x0000000000000000000000000000000000dEaD" }
