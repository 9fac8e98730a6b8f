package signer_test

import (
	stded25519 "crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/bundlr-go/bundlr/internal/domain"
	"github.com/bundlr-go/bundlr/internal/signer"
)

func TestLookupRejectsUnknownTag(t *testing.T) {
	if _, err := signer.Lookup(0); !errors.Is(err, domain.ErrInvalidSignerType) {
		t.Fatalf("Lookup(0) err = %v, want %v", err, domain.ErrInvalidSignerType)
	}
	if _, err := signer.Lookup(99); !errors.Is(err, domain.ErrInvalidSignerType) {
		t.Fatalf("Lookup(99) err = %v, want %v", err, domain.ErrInvalidSignerType)
	}
}

func TestLockedTable(t *testing.T) {
	want := map[uint16]struct{ sig, pub int }{
		signer.TagRSAPSS:         {512, 512},
		signer.TagEd25519:        {64, 32},
		signer.TagSecp256k1:      {65, 65},
		signer.TagEd25519Solana:  {64, 32},
		signer.TagAptos:          {64, 32},
		signer.TagAptosMulti:     {64*32 + 4, 32*32 + 1},
		signer.TagSecp256k1Typed: {65, 42},
	}
	for tag, lens := range want {
		v, err := signer.Lookup(tag)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", tag, err)
		}
		if v.SigLen != lens.sig || v.PubLen != lens.pub {
			t.Fatalf("tag %d: SigLen/PubLen = %d/%d, want %d/%d", tag, v.SigLen, v.PubLen, lens.sig, lens.pub)
		}
	}
}

func genEd25519(t *testing.T) stded25519.PrivateKey {
	t.Helper()
	_, priv, err := stded25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}
	return priv
}

func TestEd25519SignVerify(t *testing.T) {
	for _, tag := range []uint16{signer.TagEd25519, signer.TagEd25519Solana} {
		s, err := signer.NewEd25519(tag, genEd25519(t))
		if err != nil {
			t.Fatalf("NewEd25519(%d): %v", tag, err)
		}
		msg := []byte("deep hash digest stand-in")
		sig, err := s.Sign(msg)
		if err != nil {
			t.Fatalf("Sign: %v", err)
		}
		if err := signer.Verify(tag, s.PubKey(), msg, sig); err != nil {
			t.Fatalf("Verify: %v", err)
		}

		tampered := append([]byte(nil), sig...)
		tampered[0] ^= 0xff
		if err := signer.Verify(tag, s.PubKey(), msg, tampered); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Fatalf("Verify(tampered sig) err = %v, want %v", err, domain.ErrInvalidSignature)
		}
	}
}

func TestEd25519RawSignaturesCrossVerifyAcrossTags(t *testing.T) {
	secret := genEd25519(t)
	generic, err := signer.NewEd25519(signer.TagEd25519, secret)
	if err != nil {
		t.Fatal(err)
	}
	solana, err := signer.NewEd25519(signer.TagEd25519Solana, secret)
	if err != nil {
		t.Fatal(err)
	}

	msg := []byte("same secret, distinct tag")
	sigA, _ := generic.Sign(msg)
	sigB, _ := solana.Sign(msg)

	// Raw ed25519 signing is deterministic and tag-agnostic; the two
	// variants only diverge once embedded in the item transcript (which
	// mixes the tag into the signed message). Confirm cross-verification
	// with the wrong tag's registry entry still succeeds at this layer...
	if err := signer.Verify(signer.TagEd25519Solana, generic.PubKey(), msg, sigA); err != nil {
		t.Fatalf("Verify generic signature under solana tag: %v", err)
	}
	if err := signer.Verify(signer.TagEd25519, solana.PubKey(), msg, sigB); err != nil {
		t.Fatalf("Verify solana signature under generic tag: %v", err)
	}
}

func TestSecp256k1SignVerify(t *testing.T) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	s := signer.NewSecp256k1(priv)

	msg := []byte("eth-style message")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if sig[64] != 27 && sig[64] != 28 {
		t.Fatalf("sig[64] (v) = %d, want 27 or 28", sig[64])
	}
	if err := signer.Verify(signer.TagSecp256k1, s.PubKey(), msg, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	tampered := append([]byte(nil), sig...)
	tampered[10] ^= 0xff
	if err := signer.Verify(signer.TagSecp256k1, s.PubKey(), msg, tampered); err == nil {
		t.Fatal("Verify(tampered sig) succeeded, want error")
	}
}

func TestSecp256k1TypedSignVerify(t *testing.T) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	s := signer.NewSecp256k1Typed(priv)

	if got := len(s.PubKey()); got != 42 {
		t.Fatalf("PubKey length = %d, want 42", got)
	}

	digest := make([]byte, 32)
	for i := range digest {
		digest[i] = byte(i)
	}
	sig, err := s.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := signer.Verify(signer.TagSecp256k1Typed, s.PubKey(), digest, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	wrongPubkey := []byte("0x0000000000000000000000000000000000000000")
	if err := signer.Verify(signer.TagSecp256k1Typed, wrongPubkey, digest, sig); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("Verify(wrong address) err = %v, want %v", err, domain.ErrInvalidSignature)
	}
}

func TestAptosSignVerify(t *testing.T) {
	secret := genEd25519(t)
	s, err := signer.NewAptos(secret)
	if err != nil {
		t.Fatalf("NewAptos: %v", err)
	}

	msg := []byte("aptos wrapped message")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := signer.Verify(signer.TagAptos, s.PubKey(), msg, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	// Verifying against a different message must fail: the wrapped envelope
	// carries the exact payload bytes, so appending one byte changes what
	// the genuine signature is checked against.
	if err := signer.Verify(signer.TagAptos, s.PubKey(), append(msg, 0), sig); err == nil {
		t.Fatal("Verify(unwrapped/mismatched message) succeeded, want error")
	}
}

func TestAptosMultiSignVerify(t *testing.T) {
	const n = 4
	pubKeys := make([][]byte, n)
	secrets := make(map[int][]byte)
	for i := 0; i < n; i++ {
		pub, priv, err := stded25519.GenerateKey(rand.Reader)
		if err != nil {
			t.Fatalf("GenerateKey: %v", err)
		}
		pubKeys[i] = pub
		if i%2 == 0 {
			secrets[i] = priv
		}
	}

	s, err := signer.NewAptosMulti(pubKeys, 2, secrets)
	if err != nil {
		t.Fatalf("NewAptosMulti: %v", err)
	}

	msg := []byte("multi-sig transcript digest")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := signer.Verify(signer.TagAptosMulti, s.PubKey(), msg, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0xff
	if err := signer.Verify(signer.TagAptosMulti, s.PubKey(), msg, tampered); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("Verify(tampered slot) err = %v, want %v", err, domain.ErrInvalidSignature)
	}
}

func TestRSAPSSSignVerify(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 4096)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	s, err := signer.NewRSAPSS(priv)
	if err != nil {
		t.Fatalf("NewRSAPSS: %v", err)
	}

	if got := len(s.PubKey()); got != 512 {
		t.Fatalf("PubKey length = %d, want 512", got)
	}

	msg := []byte("rsa-pss message")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != 512 {
		t.Fatalf("signature length = %d, want 512", len(sig))
	}
	if err := signer.Verify(signer.TagRSAPSS, s.PubKey(), msg, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	tampered := append([]byte(nil), sig...)
	tampered[0] ^= 0xff
	if err := signer.Verify(signer.TagRSAPSS, s.PubKey(), msg, tampered); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("Verify(tampered sig) err = %v, want %v", err, domain.ErrInvalidSignature)
	}
}
