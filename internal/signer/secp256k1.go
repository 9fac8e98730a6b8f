package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Secp256k1Signer is the tag-3 variant: secp256k1 over a Keccak-256 of an
// eth_sign-style wrapped message, recoverable signature.
type Secp256k1Signer struct {
	priv *ecdsa.PrivateKey
	pub  []byte // 65-byte uncompressed point, 0x04 prefix
}

// NewSecp256k1 builds a tag-3 signer from a secp256k1 private key.
func NewSecp256k1(priv *ecdsa.PrivateKey) *Secp256k1Signer {
	return &Secp256k1Signer{priv: priv, pub: ethcrypto.FromECDSAPub(&priv.PublicKey)}
}

func (s *Secp256k1Signer) SigType() uint16 { return TagSecp256k1 }
func (s *Secp256k1Signer) SigLen() int     { return 65 }
func (s *Secp256k1Signer) PubLen() int     { return 65 }

func (s *Secp256k1Signer) PubKey() []byte {
	out := make([]byte, len(s.pub))
	copy(out, s.pub)
	return out
}

func (s *Secp256k1Signer) Sign(msg []byte) ([]byte, error) {
	digest := ethMessageHash(msg)
	sig, err := ethcrypto.Sign(digest, s.priv)
	if err != nil {
		return nil, fmt.Errorf("signer: secp256k1 sign: %w", err)
	}
	// go-ethereum returns v in {0,1}; the wire format expects v in {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

func verifySecp256k1(pubkey, msg, sig []byte) error {
	digest := ethMessageHash(msg)

	rs := make([]byte, 65)
	copy(rs, sig)
	if rs[64] >= 27 {
		rs[64] -= 27
	}

	recovered, err := ethcrypto.SigToPub(digest, rs)
	if err != nil {
		return fmt.Errorf("%w: recovering pubkey: %v", domain.ErrInvalidSignature, err)
	}
	recoveredAddr := ethcrypto.PubkeyToAddress(*recovered)

	wantAddr := ethcrypto.Keccak256(pubkey[1:])[12:]
	if string(recoveredAddr.Bytes()) != string(wantAddr) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// ethMessageHash computes keccak256("\x19Ethereum Signed Message:\n" ||
// ascii(len(msg)) || msg), the personal-message digest tag 3 signs.
func ethMessageHash(msg []byte) []byte {
	prefix := "\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg))
	return ethcrypto.Keccak256([]byte(prefix), msg)
}
