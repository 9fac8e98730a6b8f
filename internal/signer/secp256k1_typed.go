package signer

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// eip712 type hashes for the fixed Bundlr domain/primary-type pair tag 7
// signs over. The domain has no chainId field, unlike a typical EIP-712
// domain — this variant signs a single message type, not chain-scoped
// transactions, so there is nothing to bind it to.
var (
	bundlrDomainTypeHash = ethcrypto.Keccak256([]byte("EIP712Domain(string name,string version)"))
	bundlrTxTypeHash     = ethcrypto.Keccak256([]byte("Bundlr(bytes Transaction hash,address address)"))
	bundlrDomainSep      = ethcrypto.Keccak256(
		bundlrDomainTypeHash,
		ethcrypto.Keccak256([]byte("Bundlr")),
		ethcrypto.Keccak256([]byte("1")),
	)
)

// Secp256k1TypedSigner is the tag-7 variant: secp256k1 over the EIP-712
// structured-data hash of a fixed Bundlr{Transaction hash, address} message.
// Its owner field is the ASCII 0x-prefixed address, not raw key bytes.
type Secp256k1TypedSigner struct {
	priv *ecdsa.PrivateKey
	addr common.Address
}

// NewSecp256k1Typed builds a tag-7 signer from a secp256k1 private key.
func NewSecp256k1Typed(priv *ecdsa.PrivateKey) *Secp256k1TypedSigner {
	return &Secp256k1TypedSigner{priv: priv, addr: ethcrypto.PubkeyToAddress(priv.PublicKey)}
}

func (s *Secp256k1TypedSigner) SigType() uint16 { return TagSecp256k1Typed }
func (s *Secp256k1TypedSigner) SigLen() int     { return 65 }
func (s *Secp256k1TypedSigner) PubLen() int     { return 42 }

func (s *Secp256k1TypedSigner) PubKey() []byte {
	return []byte(s.addr.Hex())
}

func (s *Secp256k1TypedSigner) Sign(msg []byte) ([]byte, error) {
	digest := bundlrTypedDigest(msg, s.addr)
	sig, err := ethcrypto.Sign(digest, s.priv)
	if err != nil {
		return nil, fmt.Errorf("signer: secp256k1 typed sign: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

func verifySecp256k1Typed(pubkey, msg, sig []byte) error {
	if !common.IsHexAddress(string(pubkey)) {
		return fmt.Errorf("%w: owner %q is not a hex address", domain.ErrInvalidSignature, pubkey)
	}
	addr := common.HexToAddress(string(pubkey))

	digest := bundlrTypedDigest(msg, addr)

	rs := make([]byte, 65)
	copy(rs, sig)
	if rs[64] >= 27 {
		rs[64] -= 27
	}

	recovered, err := ethcrypto.SigToPub(digest, rs)
	if err != nil {
		return fmt.Errorf("%w: recovering pubkey: %v", domain.ErrInvalidSignature, err)
	}
	if ethcrypto.PubkeyToAddress(*recovered) != addr {
		return domain.ErrInvalidSignature
	}
	return nil
}

// bundlrTypedDigest computes keccak256("\x19\x01" || domainSeparator ||
// structHash) for the fixed Bundlr{bytes txHash, address address} type.
func bundlrTypedDigest(txHash []byte, addr common.Address) []byte {
	structHash := ethcrypto.Keccak256(
		bundlrTxTypeHash,
		ethcrypto.Keccak256(txHash),
		common.LeftPadBytes(addr.Bytes(), 32),
	)
	return ethcrypto.Keccak256([]byte{0x19, 0x01}, bundlrDomainSep, structHash)
}
