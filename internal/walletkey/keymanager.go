// Package walletkey provides key management for the signer registry's
// closed set of cryptosystems: resolving a configured key source (raw hex,
// raw base58, a PEM-encoded RSA key, a JSON aptos multi-key bundle, or an
// encrypted key file) into a signer.Signer, and
// encrypting/decrypting key material at rest with PBKDF2-HMAC-SHA256 and
// AES-256-GCM, the same scheme the teacher's keymanager.go uses for its
// single secp256k1 key.
package walletkey

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mr-tron/base58"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/pbkdf2"

	"github.com/bundlr-go/bundlr/internal/signer"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	// saltLen is the random salt length in bytes.
	saltLen = 16
	// aesKeyLen is the derived AES-256 key length.
	aesKeyLen = 32
	// currentVersion is the encrypted-key JSON schema version.
	currentVersion = 1
)

// encryptedKeyJSON is the on-disk format for an encrypted key blob. Tag
// records which signer.Signer variant Plaintext decodes into once
// decrypted, so a single file format covers all seven registry entries.
type encryptedKeyJSON struct {
	Version    int    `json:"version"`
	Tag        uint16 `json:"tag"`
	Salt       string `json:"salt"`       // base64 standard encoding
	Nonce      string `json:"nonce"`      // base64 standard encoding
	Ciphertext string `json:"ciphertext"` // base64 standard encoding
}

// KeyConfig carries the information LoadSigner needs to resolve a signer.
// Populate the fields from internal/config or environment variables.
type KeyConfig struct {
	// Tag selects the signer variant for RawSecretHex and RawSecretBase58.
	// RawPEM always yields an RSA-PSS signer and RawAptosMultiJSON an Aptos
	// multi signer; an encrypted key file carries its own tag.
	Tag uint16

	// RawSecretHex is a hex-encoded secret (with or without 0x prefix):
	// a 32-byte secp256k1 key or a 64-byte Ed25519 seed||pubkey pair.
	RawSecretHex string

	// RawSecretBase58 is a base58-encoded secret, for the solana-style
	// Ed25519 tag, which conventionally stores keys this way.
	RawSecretBase58 string

	// RawPEM is a PEM-encoded RSA private key, for the RSA-PSS tag.
	RawPEM string

	// RawAptosMultiJSON is a JSON aptos-multi-key bundle (see
	// aptosMultiJSON below), for the Aptos Multi-Ed25519 tag.
	RawAptosMultiJSON string

	// EncryptedKeyPath is the path to a JSON file produced by EncryptKey.
	EncryptedKeyPath string

	// KeyPassword is the password used to decrypt the file at
	// EncryptedKeyPath.
	KeyPassword string
}

// aptosMultiJSON is the plaintext JSON shape for a tag-6 key bundle, used
// both as RawAptosMultiJSON and as the plaintext an encrypted tag-6 blob
// decrypts to.
type aptosMultiJSON struct {
	PubKeys   []string       `json:"pub_keys"` // hex-encoded, in slot order
	Threshold byte           `json:"threshold"`
	Secrets   map[int]string `json:"secrets"` // slot index -> hex-encoded private key
}

// EncryptKey encrypts raw key-source bytes for tag with a password using
// PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM authenticated
// encryption. It returns the JSON blob suitable for writing to disk.
func EncryptKey(tag uint16, plaintext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("walletkey: password must not be empty")
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("walletkey: generating salt: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("walletkey: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("walletkey: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("walletkey: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := encryptedKeyJSON{
		Version:    currentVersion,
		Tag:        tag,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}

	return json.MarshalIndent(out, "", "  ")
}

// DecryptKey decrypts a JSON blob produced by EncryptKey, returning the
// signer tag and the plaintext key-source bytes.
func DecryptKey(encryptedJSON []byte, password string) (uint16, []byte, error) {
	if password == "" {
		return 0, nil, errors.New("walletkey: password must not be empty")
	}

	var stored encryptedKeyJSON
	if err := json.Unmarshal(encryptedJSON, &stored); err != nil {
		return 0, nil, fmt.Errorf("walletkey: parsing encrypted key JSON: %w", err)
	}
	if stored.Version != currentVersion {
		return 0, nil, fmt.Errorf("walletkey: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return 0, nil, fmt.Errorf("walletkey: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return 0, nil, fmt.Errorf("walletkey: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return 0, nil, fmt.Errorf("walletkey: decoding ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return 0, nil, fmt.Errorf("walletkey: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return 0, nil, fmt.Errorf("walletkey: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("walletkey: decryption failed (wrong password?): %w", err)
	}

	return stored.Tag, plaintext, nil
}

// LoadSigner resolves a signer.Signer from the provided configuration.
//
// Resolution order: RawSecretHex, RawSecretBase58, RawPEM,
// RawAptosMultiJSON, then EncryptedKeyPath. The first non-empty source
// wins.
func LoadSigner(cfg KeyConfig) (signer.Signer, error) {
	switch {
	case cfg.RawSecretHex != "":
		secret, err := hex.DecodeString(strings.TrimPrefix(cfg.RawSecretHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("walletkey: RawSecretHex is not valid hex: %w", err)
		}
		return buildSigner(cfg.Tag, secret)

	case cfg.RawSecretBase58 != "":
		secret, err := base58.Decode(cfg.RawSecretBase58)
		if err != nil {
			return nil, fmt.Errorf("walletkey: RawSecretBase58 is not valid base58: %w", err)
		}
		return buildSigner(cfg.Tag, secret)

	case cfg.RawPEM != "":
		return buildRSASigner([]byte(cfg.RawPEM))

	case cfg.RawAptosMultiJSON != "":
		var bundle aptosMultiJSON
		if err := json.Unmarshal([]byte(cfg.RawAptosMultiJSON), &bundle); err != nil {
			return nil, fmt.Errorf("walletkey: parsing aptos multi bundle: %w", err)
		}
		return buildAptosMultiSigner(bundle)

	case cfg.EncryptedKeyPath != "":
		data, err := os.ReadFile(cfg.EncryptedKeyPath)
		if err != nil {
			return nil, fmt.Errorf("walletkey: reading encrypted key file: %w", err)
		}
		tag, plaintext, err := DecryptKey(data, cfg.KeyPassword)
		if err != nil {
			return nil, err
		}
		if tag == signer.TagRSAPSS {
			return buildRSASigner(plaintext)
		}
		if tag == signer.TagAptosMulti {
			var bundle aptosMultiJSON
			if err := json.Unmarshal(plaintext, &bundle); err != nil {
				return nil, fmt.Errorf("walletkey: parsing decrypted aptos multi bundle: %w", err)
			}
			return buildAptosMultiSigner(bundle)
		}
		return buildSigner(tag, plaintext)
	}

	return nil, errors.New("walletkey: no key source configured")
}

func buildSigner(tag uint16, secret []byte) (signer.Signer, error) {
	switch tag {
	case signer.TagEd25519, signer.TagEd25519Solana:
		return signer.NewEd25519(tag, secret)

	case signer.TagSecp256k1, signer.TagSecp256k1Typed:
		priv, err := ethcrypto.ToECDSA(secret)
		if err != nil {
			return nil, fmt.Errorf("walletkey: invalid secp256k1 secret: %w", err)
		}
		if tag == signer.TagSecp256k1Typed {
			return signer.NewSecp256k1Typed(priv), nil
		}
		return signer.NewSecp256k1(priv), nil

	case signer.TagAptos:
		return signer.NewAptos(secret)

	default:
		return nil, fmt.Errorf("walletkey: tag %d has no raw-secret key source (use RawPEM or RawAptosMultiJSON)", tag)
	}
}

func buildRSASigner(pemBytes []byte) (signer.Signer, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, errors.New("walletkey: no PEM block found in RSA key material")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return signer.NewRSAPSS(key)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("walletkey: parsing RSA private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("walletkey: PKCS8 key is not an RSA private key")
	}
	return signer.NewRSAPSS(key)
}

func buildAptosMultiSigner(bundle aptosMultiJSON) (signer.Signer, error) {
	pubKeys := make([][]byte, len(bundle.PubKeys))
	for i, hexKey := range bundle.PubKeys {
		pk, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("walletkey: aptos multi pub key %d: %w", i, err)
		}
		pubKeys[i] = pk
	}

	secrets := make(map[int][]byte, len(bundle.Secrets))
	for idx, hexSecret := range bundle.Secrets {
		sk, err := hex.DecodeString(hexSecret)
		if err != nil {
			return nil, fmt.Errorf("walletkey: aptos multi secret %d: %w", idx, err)
		}
		secrets[idx] = sk
	}

	return signer.NewAptosMulti(pubKeys, bundle.Threshold, secrets)
}
