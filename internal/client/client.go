// Package client is the façade external callers use: it holds a service
// base URL, an HTTP client, a chosen signer, and cached public service
// info, and exposes create/sign/send/upload-file/fund/withdraw/balance/
// price. It is grounded on the teacher's
// internal/platform/polymarket/clob.go REST client (doAuthenticatedRequest /
// checkHTTPStatus shape, fixed *http.Client timeout, fmt.Errorf("pkg: verb:
// %w", err) wrapping) generalized from HMAC-header auth to this service's
// plain-body-and-signed-item auth.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bundlr-go/bundlr/internal/bundle"
	"github.com/bundlr-go/bundlr/internal/domain"
	"github.com/bundlr-go/bundlr/internal/item"
	"github.com/bundlr-go/bundlr/internal/signer"
	"github.com/bundlr-go/bundlr/internal/tag"
)

// Client is the bundler service façade.
type Client struct {
	baseURL   string
	http      *http.Client
	signer    signer.Signer
	userAgent string

	mu   sync.Mutex
	info *domain.Info // cached after the first successful Info call
}

// New builds a Client against baseURL, signing uploaded items with s.
func New(baseURL string, s signer.Signer, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: defaultTimeout},
		signer:    s,
		userAgent: "bundlr-go/1",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Info fetches (and caches) the service's published configuration.
func (c *Client) Info(ctx context.Context) (domain.Info, error) {
	c.mu.Lock()
	if c.info != nil {
		info := *c.info
		c.mu.Unlock()
		return info, nil
	}
	c.mu.Unlock()

	body, err := c.doRequest(ctx, http.MethodGet, "/info", nil, "")
	if err != nil {
		return domain.Info{}, fmt.Errorf("client: info: %w", err)
	}

	var resp struct {
		Version   string            `json:"version"`
		Gateway   string            `json:"gateway"`
		Addresses map[string]string `json:"addresses"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Info{}, fmt.Errorf("client: info: decode: %w", err)
	}

	info := domain.Info{Version: resp.Version, Gateway: resp.Gateway, Addresses: map[domain.Currency]string{}}
	for k, v := range resp.Addresses {
		info.Addresses[domain.Currency(k)] = v
	}

	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()

	return info, nil
}

// Balance fetches an account's balance in currency's base units.
func (c *Client) Balance(ctx context.Context, currency domain.Currency, address string) (domain.Balance, error) {
	path := fmt.Sprintf("/account/balance/%s?%s", url.PathEscape(string(currency)), url.Values{"address": {address}}.Encode())

	body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return domain.Balance{}, fmt.Errorf("client: balance: %w", err)
	}

	var resp struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Balance{}, fmt.Errorf("client: balance: decode: %w", err)
	}
	amount, ok := new(big.Int).SetString(resp.Balance, 10)
	if !ok {
		return domain.Balance{}, fmt.Errorf("client: balance: invalid amount %q", resp.Balance)
	}

	return domain.Balance{Currency: currency, Address: address, Amount: amount}, nil
}

// Price quotes the cost of storing n bytes, payable in currency.
func (c *Client) Price(ctx context.Context, currency domain.Currency, n int64) (domain.PriceQuote, error) {
	path := fmt.Sprintf("/price/%s/%d", url.PathEscape(string(currency)), n)

	body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return domain.PriceQuote{}, fmt.Errorf("client: price: %w", err)
	}

	amount, ok := new(big.Int).SetString(strings.TrimSpace(string(body)), 10)
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("client: price: invalid amount %q", body)
	}

	return domain.PriceQuote{Currency: currency, Bytes: n, Winston: amount}, nil
}

// PrepareUpload fetches the service's published Info and a Price quote for
// n bytes on currency concurrently — the one place a single upload benefits
// from true fan-out, since neither call depends on the other's result. It
// never touches the item or deep-hash code paths, which stay single-threaded
// per the core's ordering guarantee.
func (c *Client) PrepareUpload(ctx context.Context, currency domain.Currency, n int64) (domain.Info, domain.PriceQuote, error) {
	g, ctx := errgroup.WithContext(ctx)

	var info domain.Info
	var quote domain.PriceQuote

	g.Go(func() error {
		var err error
		info, err = c.Info(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		quote, err = c.Price(ctx, currency, n)
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.Info{}, domain.PriceQuote{}, err
	}
	return info, quote, nil
}

// NewItem builds an unsigned item over data and tags.
func (c *Client) NewItem(data item.Data, tags []tag.Tag) (*item.Item, error) {
	return item.New(data, tags)
}

// SignItem signs it with the client's configured signer.
func (c *Client) SignItem(it *item.Item) error {
	return it.Sign(c.signer)
}

// VerifyItem re-verifies a parsed item's signature.
func (c *Client) VerifyItem(it *item.Item) error {
	return it.Verify()
}

// VerifyBundle verifies every item in the bundle file at path.
func (c *Client) VerifyBundle(path string) ([]bundle.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("client: verify bundle: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("client: verify bundle: stat: %w", err)
	}

	return bundle.Verify(f, stat.Size())
}

// Upload signs (if not already signed) and submits it to the service.
func (c *Client) Upload(ctx context.Context, currency domain.Currency, it *item.Item) (domain.Receipt, error) {
	if it.SigType == 0 || len(it.Signature) == 0 {
		if err := it.SignContext(ctx, c.signer); err != nil {
			return domain.Receipt{}, fmt.Errorf("client: upload: sign: %w", err)
		}
	}

	body, total, err := it.Reader()
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("client: upload: %w", err)
	}

	path := fmt.Sprintf("/tx/%s", url.PathEscape(string(currency)))
	respBody, err := c.doStreamRequest(ctx, http.MethodPost, path, body, total, "application/octet-stream")
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("client: upload: %w", err)
	}

	return decodeReceipt(respBody)
}

// UploadFile builds a streamed item over the file at path (read in
// ChunkSize windows at sign and send time, never loaded whole), signs it,
// and uploads it.
func (c *Client) UploadFile(ctx context.Context, currency domain.Currency, path string, tags []tag.Tag) (domain.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("client: upload file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("client: upload file: stat: %w", err)
	}

	it, err := item.New(item.NewDataWindow(f, 0, stat.Size()), tags)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("client: upload file: %w", err)
	}
	if err := it.SignContext(ctx, c.signer); err != nil {
		return domain.Receipt{}, fmt.Errorf("client: upload file: sign: %w", err)
	}

	return c.Upload(ctx, currency, it)
}

// Fund notifies the service that a funding transaction txID has been
// broadcast on currency's chain.
func (c *Client) Fund(ctx context.Context, currency domain.Currency, txID string) (domain.FundAck, error) {
	reqBody, err := json.Marshal(map[string]string{"tx_id": txID})
	if err != nil {
		return domain.FundAck{}, fmt.Errorf("client: fund: encode: %w", err)
	}

	path := fmt.Sprintf("/account/balance/%s", url.PathEscape(string(currency)))
	body, err := c.doRequest(ctx, http.MethodPost, path, reqBody, "application/json")
	if err != nil {
		return domain.FundAck{}, fmt.Errorf("client: fund: %w", err)
	}

	var resp struct {
		Confirmed bool   `json:"confirmed"`
		Balance   string `json:"balance"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.FundAck{}, fmt.Errorf("client: fund: decode: %w", err)
	}
	bal, _ := new(big.Int).SetString(resp.Balance, 10)
	return domain.FundAck{Confirmed: resp.Confirmed, Balance: bal}, nil
}

// WithdrawalNonce fetches the next withdrawal nonce for address on
// currency's chain, required to build a signed withdrawal request.
func (c *Client) WithdrawalNonce(ctx context.Context, currency domain.Currency, address string) (uint64, error) {
	path := fmt.Sprintf("/account/withdrawals/%s?%s", url.PathEscape(string(currency)), url.Values{"address": {address}}.Encode())

	body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, fmt.Errorf("client: withdrawal nonce: %w", err)
	}
	nonce, err := strconv.ParseUint(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("client: withdrawal nonce: invalid value %q", body)
	}
	return nonce, nil
}

// Withdraw signs and submits a withdrawal of amount (currency base units).
func (c *Client) Withdraw(ctx context.Context, currency domain.Currency, address string, amount *big.Int) (domain.WithdrawAck, error) {
	nonce, err := c.WithdrawalNonce(ctx, currency, address)
	if err != nil {
		return domain.WithdrawAck{}, err
	}

	payload := map[string]any{
		"currency": string(currency),
		"address":  address,
		"amount":   amount.String(),
		"nonce":    nonce,
		"owner":    string(c.signer.PubKey()),
	}
	msg, err := json.Marshal(payload)
	if err != nil {
		return domain.WithdrawAck{}, fmt.Errorf("client: withdraw: encode: %w", err)
	}
	sig, err := c.signer.Sign(msg)
	if err != nil {
		return domain.WithdrawAck{}, fmt.Errorf("client: withdraw: sign: %w", err)
	}
	payload["signature"] = sig

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return domain.WithdrawAck{}, fmt.Errorf("client: withdraw: encode signed: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/account/withdraw", reqBody, "application/json")
	if err != nil {
		return domain.WithdrawAck{}, fmt.Errorf("client: withdraw: %w", err)
	}

	var resp struct {
		Accepted bool   `json:"accepted"`
		TxID     string `json:"tx_id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.WithdrawAck{}, fmt.Errorf("client: withdraw: decode: %w", err)
	}
	return domain.WithdrawAck{Accepted: resp.Accepted, TxID: resp.TxID}, nil
}

// --------------------------------------------------------------------------
// Internal HTTP helpers
// --------------------------------------------------------------------------

func decodeReceipt(body []byte) (domain.Receipt, error) {
	var resp struct {
		ID        string `json:"id"`
		Timestamp int64  `json:"timestamp"`
		Signature string `json:"signature"`
		Deadline  int64  `json:"deadlineHeight"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Receipt{}, fmt.Errorf("decode receipt: %w", err)
	}
	return domain.Receipt{ID: resp.ID, Timestamp: resp.Timestamp, Signature: resp.Signature, Deadline: resp.Deadline}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	return c.doStreamRequest(ctx, method, path, reader, int64(len(body)), contentType)
}

// doStreamRequest builds, sends, and reads an HTTP request, tagging it with
// a correlation id so a single upload can be traced through service logs.
func (c *Client) doStreamRequest(ctx context.Context, method, path string, body io.Reader, contentLength int64, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
		req.ContentLength = contentLength
	}
	req.Header.Set("User-Agent", c.userAgent)
	requestID := uuid.NewString()
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request %s: %w", requestID, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", requestID, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		slog.Default().Error("bundlr: request failed",
			slog.String("request_id", requestID),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
		)
		return nil, err
	}

	return respBody, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, body)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, body)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, body)
	default:
		return &domain.ResponseError{Status: statusCode, Body: string(body)}
	}
}
