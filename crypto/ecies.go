package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/hkdf"
)

// eciesInfo domain-separates the HKDF expansion so this construction cannot
// be confused with any other secp256k1+AES-GCM scheme sharing the same curve.
const eciesInfo = "actrix-aid-ecies-v1"

const (
	gcmNonceSize = 12
	aesKeySize   = 32
)

// EciesEncrypt implements the ECIES construction bound to secp256k1 + HKDF-SHA256
// + AES-256-GCM: an ephemeral key pair is generated, ECDH'd against the
// recipient's public key, the shared secret is expanded with HKDF (salted with
// the ephemeral compressed public key) into an AES-256 key, and the plaintext
// is sealed under that key with a random 12-byte nonce.
//
// Wire layout: ephemeral_pubkey(33) || nonce(12) || ciphertext+tag.
func EciesEncrypt(recipient *PublicKey, plaintext []byte) ([]byte, error) {
	if recipient == nil {
		return nil, errors.New("crypto: ecies encrypt: nil recipient public key")
	}
	ephPriv, ephPub, err := GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("crypto: ecies ephemeral key: %w", err)
	}

	shared := secp256k1.GenerateSharedSecret(ephPriv.inner(), recipient.inner())

	aesKey, err := deriveAESKey(shared, ephPub.Bytes())
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(aesKey)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcmNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: ecies nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, PublicKeySize+gcmNonceSize+len(sealed))
	out = append(out, ephPub.Bytes()...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// EciesDecrypt reverses EciesEncrypt using the recipient's private key. Any
// malformed envelope or AEAD failure is reported as a generic decryption
// error — callers must not surface the underlying cause, which could leak
// information about the key material.
func EciesDecrypt(recipient *PrivateKey, envelope []byte) ([]byte, error) {
	if recipient == nil {
		return nil, errors.New("crypto: ecies decrypt: nil recipient private key")
	}
	if len(envelope) < PublicKeySize+gcmNonceSize {
		return nil, errors.New("crypto: ecies envelope truncated")
	}

	ephPubBytes := envelope[:PublicKeySize]
	nonce := envelope[PublicKeySize : PublicKeySize+gcmNonceSize]
	sealed := envelope[PublicKeySize+gcmNonceSize:]

	ephPub, err := PublicKeyFromBytes(ephPubBytes)
	if err != nil {
		return nil, fmt.Errorf("crypto: ecies ephemeral public key: %w", err)
	}

	shared := secp256k1.GenerateSharedSecret(recipient.inner(), ephPub.inner())

	aesKey, err := deriveAESKey(shared, ephPubBytes)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(aesKey)
	if err != nil {
		return nil, err
	}

	pt, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.New("crypto: ecies decryption failed")
	}
	return pt, nil
}

func deriveAESKey(sharedSecret, salt []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, sharedSecret, salt, []byte(eciesInfo))
	key := make([]byte, aesKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("crypto: ecies hkdf: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: ecies cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: ecies gcm: %w", err)
	}
	return gcm, nil
}
