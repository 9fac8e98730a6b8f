// Package evm implements the chain.Adapter for EVM-compatible networks
// (Ethereum, Matic, ...) on top of go-ethereum's ethclient, the same RPC
// library the teacher uses for order-signing support code.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Adapter drives fee estimation, funding broadcast, and confirmation
// polling for one EVM chain over JSON-RPC.
type Adapter struct {
	currency      domain.Currency
	client        *ethclient.Client
	requiredConfs uint64
	pollInterval  time.Duration
}

// Dial connects to an EVM JSON-RPC endpoint and returns an Adapter for
// currency, requiring requiredConfs confirmations before a transaction is
// considered final.
func Dial(ctx context.Context, currency domain.Currency, rpcURL string, requiredConfs uint64) (*Adapter, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}
	return &Adapter{
		currency:      currency,
		client:        client,
		requiredConfs: requiredConfs,
		pollInterval:  4 * time.Second,
	}, nil
}

func (a *Adapter) Currency() domain.Currency { return a.currency }

// Fee estimates gas cost for a plain value transfer at the network's
// current suggested gas price. amount is unused for a native transfer's
// fee (gas cost doesn't depend on value) but kept for adapters that wrap
// ERC-20 transfers later.
func (a *Adapter) Fee(ctx context.Context, address string, amount *big.Int) (*big.Int, error) {
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm: suggest gas price: %w", err)
	}
	const nativeTransferGas = 21000
	return new(big.Int).Mul(gasPrice, big.NewInt(nativeTransferGas)), nil
}

// SubmitFunding broadcasts a pre-signed raw transaction and returns its
// hash. signedTx must be an RLP-encoded signed transaction; to/amount are
// accepted for interface symmetry with other chains and are not
// reinterpreted here.
func (a *Adapter) SubmitFunding(ctx context.Context, to string, amount *big.Int, signedTx []byte) (string, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(signedTx); err != nil {
		return "", fmt.Errorf("evm: decode signed tx: %w", err)
	}
	if err := a.client.SendTransaction(ctx, tx); err != nil {
		return "", fmt.Errorf("evm: send transaction: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// Confirmations reports txID's confirmation depth: the including block
// counts as the first confirmation, and each block mined on top of it adds
// one.
func (a *Adapter) Confirmations(ctx context.Context, txID string) (uint64, error) {
	hash := common.HexToHash(txID)
	receipt, err := a.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return 0, domain.ErrTxNotFound
		}
		return 0, fmt.Errorf("evm: transaction receipt: %w", err)
	}

	head, err := a.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("evm: block number: %w", err)
	}
	if head < receipt.BlockNumber.Uint64() {
		return 0, nil
	}
	return head - receipt.BlockNumber.Uint64() + 1, nil
}

// AwaitConfirmed polls Confirmations until the adapter's threshold is
// reached or ctx is cancelled.
func (a *Adapter) AwaitConfirmed(ctx context.Context, txID string) error {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		confs, err := a.Confirmations(ctx, txID)
		if err != nil && !errors.Is(err, domain.ErrTxNotFound) {
			return err
		}
		if confs >= a.requiredConfs {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("evm: await confirmed %s: %w", txID, ctx.Err())
		case <-ticker.C:
		}
	}
}
