package trader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendrunner/tokentrader/internal/types"
)

type namedSigner struct{ name string }

func (n namedSigner) SendRaw(ctx context.Context, route *types.Route) (string, error) {
	return "0x" + n.name, nil
}
func (n namedSigner) Address() string { return n.name }

func TestPickSigner_SolanaChainCodeSelectsSPL(t *testing.T) {
	evm, spl := namedSigner{"evm"}, namedSigner{"spl"}

	got := pickSigner(&types.Route{FromChain: "SOL"}, evm, spl)

	assert.Equal(t, spl, got)
}

func TestPickSigner_SerializedTxSelectsSPL(t *testing.T) {
	evm, spl := namedSigner{"evm"}, namedSigner{"spl"}

	got := pickSigner(&types.Route{SerializedTx: []byte{1, 2, 3}}, evm, spl)

	assert.Equal(t, spl, got)
}

func TestPickSigner_DefaultsToEVM(t *testing.T) {
	evm, spl := namedSigner{"evm"}, namedSigner{"spl"}

	got := pickSigner(&types.Route{FromChain: "BASE"}, evm, spl)

	assert.Equal(t, evm, got)
}
