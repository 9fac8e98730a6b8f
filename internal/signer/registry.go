// Package signer implements the closed set of cryptosystems a signed item
// may use. Each variant is a concrete struct rather than an interface value
// stored behind a vtable: the registry below is an exhaustive dispatch table
// keyed by the 16-bit wire tag, so an unrecognized tag is a lookup miss
// rather than a runtime type assertion.
package signer

import (
	"fmt"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Tag values from the locked signer table. Tag 0 and any value outside this
// set are rejected with domain.ErrInvalidSignerType.
const (
	TagRSAPSS         uint16 = 1
	TagEd25519        uint16 = 2
	TagSecp256k1      uint16 = 3
	TagEd25519Solana  uint16 = 4
	TagAptos          uint16 = 5
	TagAptosMulti     uint16 = 6
	TagSecp256k1Typed uint16 = 7
)

// Signer signs a message (the 48-byte deep-hash digest of an item's
// transcript, or in the typed-ethereum case a value it further wraps itself)
// and exposes the public key bytes that go into the item's owner field.
type Signer interface {
	SigType() uint16
	SigLen() int
	PubLen() int
	PubKey() []byte
	Sign(msg []byte) ([]byte, error)
}

// VerifyFunc checks a signature over msg against pubkey for one variant.
type VerifyFunc func(pubkey, msg, sig []byte) error

// Variant is the capability tuple the registry exposes for a tag: fixed byte
// lengths plus the verify operation. Signing requires key material and so
// lives on the concrete Signer types instead.
type Variant struct {
	SigLen int
	PubLen int
	Verify VerifyFunc
}

var registry = map[uint16]Variant{
	TagRSAPSS:         {SigLen: 512, PubLen: 512, Verify: verifyRSAPSS},
	TagEd25519:        {SigLen: 64, PubLen: 32, Verify: verifyEd25519},
	TagSecp256k1:      {SigLen: 65, PubLen: 65, Verify: verifySecp256k1},
	TagEd25519Solana:  {SigLen: 64, PubLen: 32, Verify: verifyEd25519},
	TagAptos:          {SigLen: 64, PubLen: 32, Verify: verifyAptos},
	TagAptosMulti:     {SigLen: aptosMultiSigLen, PubLen: aptosMultiPubLen, Verify: verifyAptosMulti},
	TagSecp256k1Typed: {SigLen: 65, PubLen: 42, Verify: verifySecp256k1Typed},
}

// Lookup returns the capability tuple for tag, or domain.ErrInvalidSignerType
// if tag is not one of the seven supported values.
func Lookup(tag uint16) (Variant, error) {
	v, ok := registry[tag]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %d", domain.ErrInvalidSignerType, tag)
	}
	return v, nil
}

// Verify checks sig over msg under pubkey for the variant identified by tag.
func Verify(tag uint16, pubkey, msg, sig []byte) error {
	v, err := Lookup(tag)
	if err != nil {
		return err
	}
	if len(pubkey) != v.PubLen {
		return fmt.Errorf("%w: owner length %d, want %d", domain.ErrInvalidSignature, len(pubkey), v.PubLen)
	}
	if len(sig) != v.SigLen {
		return fmt.Errorf("%w: signature length %d, want %d", domain.ErrInvalidSignature, len(sig), v.SigLen)
	}
	return v.Verify(pubkey, msg, sig)
}
