package sentinel

import (
	"context"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const poolAccountDataABI = `[{"inputs":[{"internalType":"address","name":"user","type":"address"}],"name":"getUserAccountData","outputs":[{"internalType":"uint256","name":"totalCollateralBase","type":"uint256"},{"internalType":"uint256","name":"totalDebtBase","type":"uint256"},{"internalType":"uint256","name":"availableBorrowsBase","type":"uint256"},{"internalType":"uint256","name":"currentLiquidationThreshold","type":"uint256"},{"internalType":"uint256","name":"ltv","type":"uint256"},{"internalType":"uint256","name":"healthFactor","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// AavePool reads an Aave V3 Pool contract's getUserAccountData view for a
// single account via a raw eth_call, sharing the same go-ethereum client
// the LIVE trader's EVM signer dials.
type AavePool struct {
	client  *ethclient.Client
	pool    common.Address
	account common.Address
	abi     abi.ABI
}

// NewAavePool parses the minimal getUserAccountData ABI and binds it to a
// pool contract address and the account whose health factor it tracks.
func NewAavePool(client *ethclient.Client, poolAddress, accountAddress string) (*AavePool, error) {
	parsed, err := abi.JSON(strings.NewReader(poolAccountDataABI))
	if err != nil {
		return nil, err
	}
	return &AavePool{
		client:  client,
		pool:    common.HexToAddress(poolAddress),
		account: common.HexToAddress(accountAddress),
		abi:     parsed,
	}, nil
}

// ReadAccount implements PoolReader. Aave reports collateral and debt in
// its 8-decimal base currency and the health factor ray-scaled (1e18);
// per-asset supply/borrow rates need a getReservesList + getReserveData
// fan-out this call doesn't make, so Assets comes back empty and the
// sentinel's strategy/APY derivations degrade to NEUTRAL/0 until it does.
func (p *AavePool) ReadAccount(ctx context.Context) (Account, error) {
	data, err := p.abi.Pack("getUserAccountData", p.account)
	if err != nil {
		return Account{}, err
	}

	pool := p.pool
	out, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, nil)
	if err != nil {
		return Account{}, err
	}

	values, err := p.abi.Unpack("getUserAccountData", out)
	if err != nil {
		return Account{}, err
	}

	collateralBase := values[0].(*big.Int)
	debtBase := values[1].(*big.Int)
	healthFactorRay := values[5].(*big.Int)

	return Account{
		CollateralUSD: rayToFloat(collateralBase, 8),
		DebtUSD:       rayToFloat(debtBase, 8),
		HealthFactor:  rayToFloat(healthFactorRay, 18),
	}, nil
}

func rayToFloat(v *big.Int, decimals int) float64 {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f := new(big.Float).Quo(new(big.Float).SetInt(v), scale)
	out, _ := f.Float64()
	return out
}
