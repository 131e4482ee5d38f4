// Package crypto provides the secp256k1 key-pair primitives, key-encryption-key
// (KEK) resolution, and ECIES construction used by the key server and by the
// issuer/validator paths.
package crypto

import (
	"crypto/rand"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// PrivateKeySize is the length in bytes of a serialized secp256k1 scalar.
const PrivateKeySize = 32

// PublicKeySize is the length in bytes of a compressed secp256k1 point.
const PublicKeySize = 33

// PrivateKey wraps a secp256k1 scalar used as a KS-managed secret key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// PublicKey wraps a secp256k1 point used as a KS-managed public key.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// GenerateKeyPair produces a fresh secp256k1 key pair for a new KeyRecord.
func GenerateKeyPair() (*PrivateKey, *PublicKey, error) {
	sk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, nil, fmt.Errorf("crypto: generate key pair: %w", err)
	}
	return &PrivateKey{key: sk}, &PublicKey{key: sk.PubKey()}, nil
}

// Bytes returns the 32-byte encoding of the private key scalar.
func (k *PrivateKey) Bytes() []byte {
	b := k.key.Serialize()
	out := make([]byte, PrivateKeySize)
	copy(out, b)
	return out
}

// PubKey derives the public key corresponding to this private key.
func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// inner exposes the underlying secp256k1 private key for package-internal use
// (ECIES/ECDH).
func (k *PrivateKey) inner() *secp256k1.PrivateKey { return k.key }

// Bytes returns the 33-byte compressed point encoding of the public key.
func (k *PublicKey) Bytes() []byte {
	return k.key.SerializeCompressed()
}

// inner exposes the underlying secp256k1 public key for package-internal use.
func (k *PublicKey) inner() *secp256k1.PublicKey { return k.key }

// PrivateKeyFromBytes parses a 32-byte scalar into a PrivateKey.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != PrivateKeySize {
		return nil, fmt.Errorf("crypto: private key must be %d bytes, got %d", PrivateKeySize, len(b))
	}
	return &PrivateKey{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

// PublicKeyFromBytes parses a 33-byte compressed point into a PublicKey.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	return &PublicKey{key: pk}, nil
}

// RandomBytes draws n cryptographically secure random bytes, used for PSKs
// and nonces.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("crypto: read random bytes: %w", err)
	}
	return b, nil
}
