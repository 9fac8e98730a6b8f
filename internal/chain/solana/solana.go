// Package solana implements the chain.Adapter for Solana over its JSON-RPC
// HTTP API, using the same plain net/http request/response shape the
// teacher's REST clients use rather than pulling in a full Solana SDK (the
// example pack carries none).
package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Adapter drives fee estimation, funding broadcast, and confirmation
// polling against one Solana RPC endpoint.
type Adapter struct {
	rpcURL        string
	http          *http.Client
	requiredConfs uint64
	pollInterval  time.Duration
}

// New builds an Adapter against a Solana JSON-RPC endpoint (e.g.
// "https://api.mainnet-beta.solana.com").
func New(rpcURL string, requiredConfs uint64) *Adapter {
	return &Adapter{
		rpcURL:        rpcURL,
		http:          &http.Client{Timeout: 30 * time.Second},
		requiredConfs: requiredConfs,
		pollInterval:  2 * time.Second,
	}
}

func (a *Adapter) Currency() domain.Currency { return domain.Currency("solana") }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *Adapter) call(ctx context.Context, method string, params []any, out any) error {
	reqBody, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("solana: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.rpcURL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("solana: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("solana: %s: decode: %w", method, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("solana: %s: rpc error %d: %s", method, envelope.Error.Code, envelope.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("solana: %s: decode result: %w", method, err)
		}
	}
	return nil
}

// Fee returns the fee, in lamports, for a signature of a standard transfer
// message under the cluster's current fee schedule.
func (a *Adapter) Fee(ctx context.Context, address string, amount *big.Int) (*big.Int, error) {
	var out struct {
		Value struct {
			FeeCalculator struct {
				LamportsPerSignature uint64 `json:"lamportsPerSignature"`
			} `json:"feeCalculator"`
		} `json:"value"`
	}
	if err := a.call(ctx, "getFees", nil, &out); err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(out.Value.FeeCalculator.LamportsPerSignature), nil
}

// SubmitFunding submits a base64-encoded signed transaction via
// sendTransaction and returns the resulting signature (Solana's
// transaction id).
func (a *Adapter) SubmitFunding(ctx context.Context, to string, amount *big.Int, signedTx []byte) (string, error) {
	encoded := base64.StdEncoding.EncodeToString(signedTx)
	var sig string
	params := []any{encoded, map[string]any{"encoding": "base64"}}
	if err := a.call(ctx, "sendTransaction", params, &sig); err != nil {
		return "", err
	}
	return sig, nil
}

// Confirmations reports the confirmation count for a signature via
// getSignatureStatuses.
func (a *Adapter) Confirmations(ctx context.Context, txID string) (uint64, error) {
	var out struct {
		Value []*struct {
			Confirmations     *uint64 `json:"confirmations"`
			ConfirmationStatus string `json:"confirmationStatus"`
		} `json:"value"`
	}
	params := []any{[]string{txID}}
	if err := a.call(ctx, "getSignatureStatuses", params, &out); err != nil {
		return 0, err
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return 0, domain.ErrTxNotFound
	}
	status := out.Value[0]
	if status.ConfirmationStatus == "finalized" {
		return a.requiredConfs, nil
	}
	if status.Confirmations == nil {
		return 0, nil
	}
	return *status.Confirmations, nil
}

// AwaitConfirmed polls Confirmations until the adapter's threshold is
// reached or ctx is cancelled.
func (a *Adapter) AwaitConfirmed(ctx context.Context, txID string) error {
	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		confs, err := a.Confirmations(ctx, txID)
		if err != nil && err != domain.ErrTxNotFound {
			return err
		}
		if confs >= a.requiredConfs {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("solana: await confirmed %s: %w", txID, ctx.Err())
		case <-ticker.C:
		}
	}
}
