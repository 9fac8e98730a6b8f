package client_test

import (
	"context"
	"crypto/ed25519"
	cryptorand "crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bundlr-go/bundlr/internal/client"
	"github.com/bundlr-go/bundlr/internal/domain"
	"github.com/bundlr-go/bundlr/internal/item"
	"github.com/bundlr-go/bundlr/internal/signer"
)

func newTestSigner(t *testing.T) signer.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(cryptorand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	s, err := signer.NewEd25519(signer.TagEd25519, priv)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestInfoFetchesAndCaches(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/info" {
			t.Fatalf("path = %q, want /info", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"version": "1.0",
			"gateway": "https://gateway.example",
			"addresses": map[string]string{
				"arweave": "addr1",
			},
		})
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))

	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Version != "1.0" || info.Gateway != "https://gateway.example" {
		t.Fatalf("info = %+v", info)
	}
	if info.Addresses["arweave"] != "addr1" {
		t.Fatalf("addresses = %+v", info.Addresses)
	}

	if _, err := c.Info(context.Background()); err != nil {
		t.Fatalf("Info (cached): %v", err)
	}
	if calls != 1 {
		t.Fatalf("server called %d times, want 1 (second Info should hit the cache)", calls)
	}
}

func TestBalanceDecodesAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"balance": "123456789012345678"})
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))
	bal, err := c.Balance(context.Background(), domain.Currency("arweave"), "some-address")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal.Amount.String() != "123456789012345678" {
		t.Fatalf("Amount = %s", bal.Amount)
	}
}

func TestPriceDecodesWinstonAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price/arweave/1024" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		io.WriteString(w, "4200\n")
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))
	quote, err := c.Price(context.Background(), domain.Currency("arweave"), 1024)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if quote.Winston.String() != "4200" {
		t.Fatalf("Winston = %s", quote.Winston)
	}
	if quote.Bytes != 1024 {
		t.Fatalf("Bytes = %d", quote.Bytes)
	}
}

func TestPrepareUploadFetchesBothConcurrently(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/info":
			json.NewEncoder(w).Encode(map[string]any{"version": "1.0", "gateway": "g", "addresses": map[string]string{}})
		default:
			io.WriteString(w, "99")
		}
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))
	info, quote, err := c.PrepareUpload(context.Background(), domain.Currency("arweave"), 10)
	if err != nil {
		t.Fatalf("PrepareUpload: %v", err)
	}
	if info.Version != "1.0" {
		t.Fatalf("info = %+v", info)
	}
	if quote.Winston.String() != "99" {
		t.Fatalf("quote = %+v", quote)
	}
}

func TestPrepareUploadPropagatesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/info" {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, "boom")
			return
		}
		io.WriteString(w, "1")
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))
	if _, _, err := c.PrepareUpload(context.Background(), domain.Currency("arweave"), 10); err == nil {
		t.Fatal("PrepareUpload succeeded, want error from failing Info call")
	}
}

func TestCheckHTTPStatusNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "no such account")
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))
	_, err := c.Balance(context.Background(), domain.Currency("arweave"), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want wrapping %v", err, domain.ErrNotFound)
	}
}

func TestCheckHTTPStatusUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, "nope")
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))
	_, err := c.Balance(context.Background(), domain.Currency("arweave"), "addr")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want wrapping %v", err, domain.ErrUnauthorized)
	}
}

func TestCheckHTTPStatusRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, "slow down")
	}))
	defer srv.Close()

	c := client.New(srv.URL, newTestSigner(t))
	_, err := c.Balance(context.Background(), domain.Currency("arweave"), "addr")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("err = %v, want wrapping %v", err, domain.ErrRateLimited)
	}
}

func TestUploadSendsSignedItemAndDecodesReceipt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tx/arweave" {
			t.Fatalf("path = %q", r.URL.Path)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		if len(body) == 0 {
			t.Fatal("empty request body")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":             "item-id-123",
			"timestamp":      1700000000,
			"signature":      "sig",
			"deadlineHeight": 999,
		})
	}))
	defer srv.Close()

	s := newTestSigner(t)
	c := client.New(srv.URL, s)

	it, err := c.NewItem(item.NewData([]byte("payload")), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SignItem(it); err != nil {
		t.Fatal(err)
	}

	receipt, err := c.Upload(context.Background(), domain.Currency("arweave"), it)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if receipt.ID != "item-id-123" {
		t.Fatalf("receipt = %+v", receipt)
	}
}
