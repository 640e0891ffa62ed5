// Package signer implements the two on-chain broadcast capabilities the
// trader dispatches LIVE buys to: an EVM signer built on go-ethereum, and
// an SPL signer that posts a pre-serialized transaction to a Solana RPC
// endpoint.
package signer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	trtypes "github.com/trendrunner/tokentrader/internal/types"
)

// EVMSigner dispatches a Route's call data through a live RPC connection.
type EVMSigner struct {
	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    string
	chainID    *big.Int
}

// NewEVMSigner dials rpcURL and derives the signer's address from the
// given hex-encoded private key. Returns an error if either fails, so
// callers can treat a misconfigured signer as config-missing rather than
// crash the process.
func NewEVMSigner(ctx context.Context, rpcURL, privateKeyHex string) (*EVMSigner, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, err
	}
	pk, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, err
	}
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	addr := crypto.PubkeyToAddress(pk.PublicKey)
	return &EVMSigner{client: client, privateKey: pk, address: addr.Hex(), chainID: chainID}, nil
}

func (s *EVMSigner) Address() string { return s.address }

// Client exposes the underlying RPC connection so other collaborators (the
// lending sentinel's pool reader) can share the same dial instead of
// opening a second one.
func (s *EVMSigner) Client() *ethclient.Client { return s.client }

// SendRaw builds, signs, and broadcasts a transaction from the route's
// target address and call data.
func (s *EVMSigner) SendRaw(ctx context.Context, route *trtypes.Route) (string, error) {
	if route.ToAddress == "" {
		return "", errors.New("route missing to_address for EVM dispatch")
	}

	from := crypto.PubkeyToAddress(s.privateKey.PublicKey)
	nonce, err := s.client.PendingNonceAt(ctx, from)
	if err != nil {
		return "", err
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", err
	}

	value := big.NewInt(0)
	if route.ValueWei != nil {
		if v, ok := new(big.Int).SetString(*route.ValueWei, 10); ok {
			value = v
		}
	}

	toAddr := common.HexToAddress(route.ToAddress)

	gasLimit, err := s.client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &toAddr, Value: value, Data: route.CallData})
	if err != nil {
		gasLimit = 250000
	}

	tx := types.NewTransaction(nonce, toAddr, value, gasLimit, gasPrice, route.CallData)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(s.chainID), s.privateKey)
	if err != nil {
		return "", err
	}
	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return "", err
	}
	return signedTx.Hash().Hex(), nil
}
