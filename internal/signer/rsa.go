package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// rsaModulusLen is the fixed 4096-bit modulus length in bytes.
const rsaModulusLen = 512

// rsaPublicExponent is the exponent assumed for any RSA-PSS owner key
// reconstructed from its bare modulus bytes. 65537 is the exponent every
// ecosystem RSA-PSS key in practice uses; the wire format carries only the
// modulus; see DESIGN.md for this locked-in assumption.
const rsaPublicExponent = 65537

var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: crypto.SHA256}

// RSAPSSSigner is the tag-1 variant: RSA-PSS over SHA-256 with a 4096-bit
// modulus, default (hash-length) salt.
type RSAPSSSigner struct {
	priv *rsa.PrivateKey
}

// NewRSAPSS builds a signer from an RSA private key. priv.N must be exactly
// 4096 bits (512 bytes).
func NewRSAPSS(priv *rsa.PrivateKey) (*RSAPSSSigner, error) {
	if priv.N.BitLen() != rsaModulusLen*8 {
		return nil, fmt.Errorf("signer: rsa modulus must be %d bits, got %d", rsaModulusLen*8, priv.N.BitLen())
	}
	return &RSAPSSSigner{priv: priv}, nil
}

func (s *RSAPSSSigner) SigType() uint16 { return TagRSAPSS }
func (s *RSAPSSSigner) SigLen() int     { return rsaModulusLen }
func (s *RSAPSSSigner) PubLen() int     { return rsaModulusLen }

// PubKey returns the modulus, big-endian, left-padded to exactly 512 bytes.
func (s *RSAPSSSigner) PubKey() []byte {
	return leftPad(s.priv.N.Bytes(), rsaModulusLen)
}

func (s *RSAPSSSigner) Sign(msg []byte) ([]byte, error) {
	hashed := sha256.Sum256(msg)
	sig, err := rsa.SignPSS(rand.Reader, s.priv, crypto.SHA256, hashed[:], pssOptions)
	if err != nil {
		return nil, fmt.Errorf("signer: rsa-pss sign: %w", err)
	}
	return leftPad(sig, rsaModulusLen), nil
}

func verifyRSAPSS(pubkey, msg, sig []byte) error {
	pub := &rsa.PublicKey{
		N: new(big.Int).SetBytes(pubkey),
		E: rsaPublicExponent,
	}
	hashed := sha256.Sum256(msg)
	if err := rsa.VerifyPSS(pub, crypto.SHA256, hashed[:], sig, pssOptions); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return nil
}

func leftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b[len(b)-size:]
	}
	out := make([]byte, size)
	copy(out[size-len(b):], b)
	return out
}
