// Package chain abstracts the source-chain operations the service needs
// from a funding/withdrawal flow: reading a suggested fee, broadcasting a
// funding transaction, and polling for confirmations. Each currency gets
// its own Adapter implementation (evm, solana, ...); unimplemented chains
// report domain.ErrUnsupported rather than silently no-opping.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"golang.org/x/sync/errgroup"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Adapter is the per-chain funding/withdrawal surface the client layer
// drives. Implementations wrap a chain-specific RPC client; none of them
// touch signing, which stays entirely in internal/signer.
type Adapter interface {
	// Currency is the chain this adapter serves.
	Currency() domain.Currency

	// Fee estimates the network fee for sending amount to address.
	Fee(ctx context.Context, address string, amount *big.Int) (*big.Int, error)

	// SubmitFunding broadcasts a signed funding transfer and returns its
	// chain-native transaction id.
	SubmitFunding(ctx context.Context, to string, amount *big.Int, signedTx []byte) (string, error)

	// Confirmations reports how many confirmations txID currently has.
	// It returns domain.ErrTxNotFound if the chain has never seen txID.
	Confirmations(ctx context.Context, txID string) (uint64, error)

	// AwaitConfirmed blocks until txID reaches the adapter's confirmation
	// threshold or ctx is cancelled.
	AwaitConfirmed(ctx context.Context, txID string) error
}

// Registry maps currencies to their adapters.
type Registry map[domain.Currency]Adapter

// Adapter looks up the adapter for currency, or domain.ErrUnsupported.
func (r Registry) Adapter(currency domain.Currency) (Adapter, error) {
	a, ok := r[currency]
	if !ok {
		return nil, &domain.UnsupportedError{Reason: "no chain adapter registered for " + string(currency)}
	}
	return a, nil
}

// Pending names one in-flight funding transaction to wait on.
type Pending struct {
	Currency domain.Currency
	TxID     string
}

// AwaitAllConfirmed polls every pending transaction's adapter concurrently
// and returns once all of them report confirmed, or the first one fails.
// Order-independent by construction: each poll loop is isolated to its own
// currency and txID, so nothing here touches the item/deep-hash code paths'
// single-threaded ordering guarantee.
func (r Registry) AwaitAllConfirmed(ctx context.Context, pending []Pending) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range pending {
		g.Go(func() error {
			a, err := r.Adapter(p.Currency)
			if err != nil {
				return err
			}
			if err := a.AwaitConfirmed(ctx, p.TxID); err != nil {
				return fmt.Errorf("chain: %s tx %s: %w", p.Currency, p.TxID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
