package signer

import (
	stded25519 "crypto/ed25519"
	"fmt"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Ed25519Signer covers tags 2 ("generic") and 4 ("solana"): the same curve
// and key expansion, distinguished only by which tag they claim in the item
// — distinct tags feed distinct literals into the deep-hash transcript, so
// the two produce distinct signatures over otherwise-identical items.
type Ed25519Signer struct {
	tag uint16
	key stded25519.PrivateKey // 64 bytes: seed || public key, Go's native layout
}

// NewEd25519 builds a signer for tag (TagEd25519 or TagEd25519Solana) from a
// raw 64-byte secret key (seed concatenated with its public key — the layout
// Go's crypto/ed25519 and the Solana keypair format both use).
func NewEd25519(tag uint16, secret []byte) (*Ed25519Signer, error) {
	if tag != TagEd25519 && tag != TagEd25519Solana {
		return nil, fmt.Errorf("signer: tag %d is not an ed25519 variant", tag)
	}
	if len(secret) != stded25519.PrivateKeySize {
		return nil, fmt.Errorf("signer: ed25519 secret must be %d bytes, got %d", stded25519.PrivateKeySize, len(secret))
	}
	key := make(stded25519.PrivateKey, stded25519.PrivateKeySize)
	copy(key, secret)
	return &Ed25519Signer{tag: tag, key: key}, nil
}

func (s *Ed25519Signer) SigType() uint16 { return s.tag }
func (s *Ed25519Signer) SigLen() int     { return stded25519.SignatureSize }
func (s *Ed25519Signer) PubLen() int     { return stded25519.PublicKeySize }

func (s *Ed25519Signer) PubKey() []byte {
	pub := s.key.Public().(stded25519.PublicKey)
	out := make([]byte, len(pub))
	copy(out, pub)
	return out
}

func (s *Ed25519Signer) Sign(msg []byte) ([]byte, error) {
	return stded25519.Sign(s.key, msg), nil
}

func verifyEd25519(pubkey, msg, sig []byte) error {
	if stded25519.Verify(stded25519.PublicKey(pubkey), msg, sig) {
		return nil
	}
	return domain.ErrInvalidSignature
}
