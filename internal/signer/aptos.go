package signer

import (
	stded25519 "crypto/ed25519"
	"fmt"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// AptosSigner is the tag-5 variant: plain Ed25519 over a message wrapped in
// the Aptos convenience-signing envelope before delegating to the same
// primitive the tag-2/4 signers use directly.
type AptosSigner struct {
	key stded25519.PrivateKey
}

// NewAptos builds a tag-5 signer from a raw 64-byte ed25519 secret key.
func NewAptos(secret []byte) (*AptosSigner, error) {
	if len(secret) != stded25519.PrivateKeySize {
		return nil, fmt.Errorf("signer: aptos secret must be %d bytes, got %d", stded25519.PrivateKeySize, len(secret))
	}
	key := make(stded25519.PrivateKey, stded25519.PrivateKeySize)
	copy(key, secret)
	return &AptosSigner{key: key}, nil
}

func (s *AptosSigner) SigType() uint16 { return TagAptos }
func (s *AptosSigner) SigLen() int     { return stded25519.SignatureSize }
func (s *AptosSigner) PubLen() int     { return stded25519.PublicKeySize }

func (s *AptosSigner) PubKey() []byte {
	pub := s.key.Public().(stded25519.PublicKey)
	out := make([]byte, len(pub))
	copy(out, pub)
	return out
}

func (s *AptosSigner) Sign(msg []byte) ([]byte, error) {
	return stded25519.Sign(s.key, aptosWrap(msg)), nil
}

func verifyAptos(pubkey, msg, sig []byte) error {
	if stded25519.Verify(stded25519.PublicKey(pubkey), aptosWrap(msg), sig) {
		return nil
	}
	return domain.ErrInvalidSignature
}

// aptosWrap implements the Aptos wallet message-signing convention: wrap the
// raw payload with a human-readable preamble and a fixed nonce before it is
// handed to Ed25519.
func aptosWrap(msg []byte) []byte {
	out := make([]byte, 0, len("APTOS\nmessage: ")+len(msg)+len("\nnonce: bundlr"))
	out = append(out, "APTOS\nmessage: "...)
	out = append(out, msg...)
	out = append(out, "\nnonce: bundlr"...)
	return out
}
