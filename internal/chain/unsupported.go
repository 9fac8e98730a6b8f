package chain

import (
	"context"
	"math/big"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Unsupported is a placeholder Adapter for chains the client recognizes
// (for signing purposes, via internal/signer) but has no funding/
// withdrawal RPC integration for yet, such as Aptos and Cosmos. Every
// method reports domain.ErrUnsupported rather than being omitted from the
// registry, so callers get a consistent error instead of a nil lookup.
type Unsupported struct {
	currency domain.Currency
}

// NewUnsupported builds a placeholder Adapter for currency.
func NewUnsupported(currency domain.Currency) *Unsupported {
	return &Unsupported{currency: currency}
}

func (u *Unsupported) Currency() domain.Currency { return u.currency }

func (u *Unsupported) unsupported() error {
	return &domain.UnsupportedError{Reason: "chain adapter not implemented for " + string(u.currency)}
}

func (u *Unsupported) Fee(ctx context.Context, address string, amount *big.Int) (*big.Int, error) {
	return nil, u.unsupported()
}

func (u *Unsupported) SubmitFunding(ctx context.Context, to string, amount *big.Int, signedTx []byte) (string, error) {
	return "", u.unsupported()
}

func (u *Unsupported) Confirmations(ctx context.Context, txID string) (uint64, error) {
	return 0, u.unsupported()
}

func (u *Unsupported) AwaitConfirmed(ctx context.Context, txID string) error {
	return u.unsupported()
}
