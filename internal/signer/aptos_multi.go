package signer

import (
	stded25519 "crypto/ed25519"
	"encoding/binary"
	"fmt"

	"github.com/bundlr-go/bundlr/internal/domain"
)

const (
	aptosMultiMaxKeys = 32
	aptosMultiSigLen  = stded25519.SignatureSize*aptosMultiMaxKeys + 4
	aptosMultiPubLen  = stded25519.PublicKeySize*aptosMultiMaxKeys + 1
)

// AptosMultiSigner is the tag-6 variant: up to 32 Ed25519 public-key slots
// with a threshold byte, signed by whichever subset of slots this signer
// holds the secret key for. Every slot — contributing or not — occupies a
// fixed 64-byte window in the signature and a fixed 32-byte window in the
// owner field, so the wire lengths never vary with how many keys actually
// sign; a 4-byte bitmap records which slots are meaningful.
type AptosMultiSigner struct {
	pubKeys   [aptosMultiMaxKeys]stded25519.PublicKey
	threshold byte
	secrets   map[int]stded25519.PrivateKey // contributing slot -> private key
}

// NewAptosMulti builds a tag-6 signer. pubKeys gives the full (≤32) set of
// public key slots in order; secrets maps the indices this signer will
// actually sign with to their private keys.
func NewAptosMulti(pubKeys [][]byte, threshold byte, secrets map[int][]byte) (*AptosMultiSigner, error) {
	if len(pubKeys) > aptosMultiMaxKeys {
		return nil, fmt.Errorf("signer: aptos multi supports at most %d keys, got %d", aptosMultiMaxKeys, len(pubKeys))
	}
	if int(threshold) < 1 || int(threshold) > len(pubKeys) {
		return nil, fmt.Errorf("signer: aptos multi threshold %d out of range [1, %d]", threshold, len(pubKeys))
	}
	if len(secrets) < int(threshold) {
		return nil, fmt.Errorf("signer: aptos multi: %d contributing secrets, threshold requires %d", len(secrets), threshold)
	}
	s := &AptosMultiSigner{threshold: threshold, secrets: make(map[int]stded25519.PrivateKey, len(secrets))}
	for i, pk := range pubKeys {
		if len(pk) != stded25519.PublicKeySize {
			return nil, fmt.Errorf("signer: aptos multi public key %d: want %d bytes, got %d", i, stded25519.PublicKeySize, len(pk))
		}
		s.pubKeys[i] = stded25519.PublicKey(pk)
	}
	for idx, secret := range secrets {
		if idx < 0 || idx >= len(pubKeys) {
			return nil, fmt.Errorf("signer: aptos multi secret slot %d out of range", idx)
		}
		if len(secret) != stded25519.PrivateKeySize {
			return nil, fmt.Errorf("signer: aptos multi secret %d: want %d bytes, got %d", idx, stded25519.PrivateKeySize, len(secret))
		}
		key := make(stded25519.PrivateKey, stded25519.PrivateKeySize)
		copy(key, secret)
		s.secrets[idx] = key
	}
	return s, nil
}

func (s *AptosMultiSigner) SigType() uint16 { return TagAptosMulti }
func (s *AptosMultiSigner) SigLen() int     { return aptosMultiSigLen }
func (s *AptosMultiSigner) PubLen() int     { return aptosMultiPubLen }

func (s *AptosMultiSigner) PubKey() []byte {
	out := make([]byte, aptosMultiPubLen)
	for i := 0; i < aptosMultiMaxKeys; i++ {
		copy(out[i*stded25519.PublicKeySize:], s.pubKeys[i])
	}
	out[aptosMultiPubLen-1] = s.threshold
	return out
}

func (s *AptosMultiSigner) Sign(msg []byte) ([]byte, error) {
	out := make([]byte, aptosMultiSigLen)
	var bitmap uint32

	for idx, key := range s.secrets {
		sig := stded25519.Sign(key, msg)
		copy(out[idx*stded25519.SignatureSize:], sig)
		bitmap |= 1 << uint(aptosMultiMaxKeys-1-idx)
	}
	if bitmap == 0 {
		return nil, fmt.Errorf("signer: aptos multi: no contributing keys")
	}
	binary.BigEndian.PutUint32(out[aptosMultiMaxKeys*stded25519.SignatureSize:], bitmap)
	return out, nil
}

func verifyAptosMulti(pubkey, msg, sig []byte) error {
	bitmap := binary.BigEndian.Uint32(sig[aptosMultiMaxKeys*stded25519.SignatureSize:])
	if bitmap == 0 {
		return fmt.Errorf("%w: aptos multi: empty bitmap", domain.ErrInvalidSignature)
	}

	for i := 0; i < aptosMultiMaxKeys; i++ {
		bit := uint32(1) << uint(aptosMultiMaxKeys-1-i)
		if bitmap&bit == 0 {
			continue
		}
		pub := stded25519.PublicKey(pubkey[i*stded25519.PublicKeySize : (i+1)*stded25519.PublicKeySize])
		sigChunk := sig[i*stded25519.SignatureSize : (i+1)*stded25519.SignatureSize]
		if !stded25519.Verify(pub, msg, sigChunk) {
			return fmt.Errorf("%w: aptos multi: slot %d", domain.ErrInvalidSignature, i)
		}
	}
	return nil
}
