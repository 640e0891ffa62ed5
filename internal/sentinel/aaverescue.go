package sentinel

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/trendrunner/tokentrader/internal/types"
)

const usdcDecimals = 6

const approveAndSupplyABI = `[
	{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"inputs":[{"internalType":"address","name":"asset","type":"address"},{"internalType":"uint256","name":"amount","type":"uint256"},{"internalType":"address","name":"onBehalfOf","type":"address"},{"internalType":"uint16","name":"referralCode","type":"uint16"}],"name":"supply","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// routeSigner is the narrow dispatch contract AaveRescue needs from an EVM
// signer: the same SendRaw/Address surface trader.Signer exposes.
type routeSigner interface {
	SendRaw(ctx context.Context, route *types.Route) (txHash string, err error)
	Address() string
}

// AaveRescue implements RescueExecutor by approving the pool to pull USDC
// from the signer's wallet, then calling Pool.supply on the caller's own
// behalf, as two sequential LIVE transactions.
type AaveRescue struct {
	signer      routeSigner
	pool        common.Address
	usdc        common.Address
	erc20Supply abi.ABI
}

func NewAaveRescue(signer routeSigner, poolAddress, usdcAddress string) (*AaveRescue, error) {
	parsed, err := abi.JSON(strings.NewReader(approveAndSupplyABI))
	if err != nil {
		return nil, err
	}
	return &AaveRescue{
		signer:      signer,
		pool:        common.HexToAddress(poolAddress),
		usdc:        common.HexToAddress(usdcAddress),
		erc20Supply: parsed,
	}, nil
}

// ApproveAndSupply implements RescueExecutor. It sends the approve
// transaction and then the supply transaction; it does not wait for the
// approve to be mined before sending supply. The returned hash is the
// supply transaction's.
func (r *AaveRescue) ApproveAndSupply(ctx context.Context, usdcAmount float64) (string, error) {
	amount := usdToBaseUnits(usdcAmount, usdcDecimals)

	approveData, err := r.erc20Supply.Pack("approve", r.pool, amount)
	if err != nil {
		return "", err
	}
	usdc := r.usdc
	if _, err := r.signer.SendRaw(ctx, &types.Route{ToAddress: usdc.Hex(), CallData: approveData}); err != nil {
		return "", err
	}

	onBehalfOf := common.HexToAddress(r.signer.Address())
	supplyData, err := r.erc20Supply.Pack("supply", r.usdc, amount, onBehalfOf, uint16(0))
	if err != nil {
		return "", err
	}
	pool := r.pool
	return r.signer.SendRaw(ctx, &types.Route{ToAddress: pool.Hex(), CallData: supplyData})
}

func usdToBaseUnits(amount float64, decimals int) *big.Int {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	scaled := new(big.Float).Mul(big.NewFloat(amount), scale)
	out, _ := scaled.Int(nil)
	return out
}
