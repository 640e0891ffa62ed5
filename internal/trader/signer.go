// Package trader implements the buy-dispatch contract the execution stage
// hands requests to: price-exactness check, sizing, threshold arming,
// PAPER vs LIVE dispatch, and the recompute-broadcast handoff.
package trader

import (
	"context"

	"github.com/trendrunner/tokentrader/internal/types"
)

// Signer is a capability abstraction over EVM vs SPL dispatch:
// {send_raw, address} with two variants; route dispatch inspects the
// route payload shape to pick one.
type Signer interface {
	SendRaw(ctx context.Context, route *types.Route) (txHash string, err error)
	Address() string
}

// pickSigner applies the route-introspection rule: fromChain code "SOL",
// or a serialized transaction present, selects the SPL signer; otherwise
// EVM.
func pickSigner(route *types.Route, evm, spl Signer) Signer {
	if route.FromChain == "SOL" || len(route.SerializedTx) > 0 {
		return spl
	}
	return evm
}
