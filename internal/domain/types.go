package domain

import "math/big"

// Currency identifies a source chain's base-unit denomination (e.g.
// "ethereum", "matic", "solana", "aptos").
type Currency string

// Info is the service's published configuration, cached by the client after
// the first call.
type Info struct {
	Version   string
	Gateway   string
	Addresses map[Currency]string
}

// Balance is an account's balance on one source chain, in that chain's base
// units (wei, lamports, octas, ...).
type Balance struct {
	Currency Currency
	Address  string
	Amount   *big.Int
}

// PriceQuote is the cost, in destination-network base units, of storing
// Bytes bytes, as quoted for funding in Currency.
type PriceQuote struct {
	Currency Currency
	Bytes    int64
	Winston  *big.Int
}

// Receipt is the service's acknowledgement of a successful item upload.
type Receipt struct {
	ID        string
	Timestamp int64
	Signature string
	Deadline  int64
}

// FundAck acknowledges that the service has observed a funding transaction.
type FundAck struct {
	Confirmed bool
	Balance   *big.Int
}

// WithdrawAck acknowledges a withdrawal request.
type WithdrawAck struct {
	Accepted bool
	TxID     string
}
