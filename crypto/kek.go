package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/actor-rtc/actrix-core/aiderr"
)

// KEKSize is the required length in bytes of a resolved key-encryption key.
const KEKSize = 32

// KekSourceKind enumerates where a KEK's bytes are read from. Precedence when
// more than one is configured is fixed: File > Environment > Direct.
type KekSourceKind int

const (
	// KekNone selects no-op mode: sealed_secret_key is stored verbatim. Only
	// valid for test/dev configurations; the caller must opt in explicitly.
	KekNone KekSourceKind = iota
	KekDirect
	KekEnvironment
	KekFile
)

// KekSource names where to read the KEK's raw material from.
type KekSource struct {
	Direct      string // inline hex/base64 value
	EnvVar      string // environment variable name holding hex/base64
	FilePath    string // path to a file holding hex/base64
	AllowNoKEK  bool   // explicit opt-in to no-op mode when nothing is configured
}

// KeyEncryptor seals and opens KS secret-key material under a resolved KEK.
// The noop flag, set by ResolveKEK only under AllowNoKEK with no source
// configured, puts the encryptor into no-op mode.
type KeyEncryptor struct {
	key    []byte // nil in no-op mode
	noop   bool
}

// ResolveKEK implements the fixed file > env > direct precedence from the
// configuration contract. It decodes the winning source as either 64 hex
// characters or 44 base64 characters into exactly 32 bytes.
func ResolveKEK(src KekSource) (*KeyEncryptor, error) {
	if path := strings.TrimSpace(src.FilePath); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("crypto: read kek file: %w", err)
		}
		return newKeyEncryptor(strings.TrimSpace(string(raw)))
	}
	if name := strings.TrimSpace(src.EnvVar); name != "" {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			return newKeyEncryptor(strings.TrimSpace(v))
		}
	}
	if direct := strings.TrimSpace(src.Direct); direct != "" {
		return newKeyEncryptor(direct)
	}
	if src.AllowNoKEK {
		return &KeyEncryptor{noop: true}, nil
	}
	return nil, errors.New("crypto: no kek source configured (file, env, direct all empty) and no-op mode not enabled")
}

func newKeyEncryptor(material string) (*KeyEncryptor, error) {
	key, err := decodeKEKMaterial(material)
	if err != nil {
		return nil, err
	}
	return &KeyEncryptor{key: key}, nil
}

func decodeKEKMaterial(material string) ([]byte, error) {
	switch len(material) {
	case hex.EncodedLen(KEKSize):
		b, err := hex.DecodeString(material)
		if err != nil {
			return nil, fmt.Errorf("crypto: decode kek as hex: %w", err)
		}
		return b, nil
	case base64.StdEncoding.EncodedLen(KEKSize), base64.StdEncoding.WithPadding(base64.NoPadding).EncodedLen(KEKSize):
		b, err := base64.StdEncoding.DecodeString(material)
		if err != nil {
			b, err = base64.RawStdEncoding.DecodeString(material)
			if err != nil {
				return nil, fmt.Errorf("crypto: decode kek as base64: %w", err)
			}
		}
		if len(b) != KEKSize {
			return nil, fmt.Errorf("crypto: kek must decode to %d bytes, got %d", KEKSize, len(b))
		}
		return b, nil
	default:
		return nil, fmt.Errorf("crypto: kek material has unexpected length %d (want %d hex chars or %d base64 chars)",
			len(material), hex.EncodedLen(KEKSize), base64.StdEncoding.EncodedLen(KEKSize))
	}
}

// IsNoop reports whether this encryptor is in identity (test/dev) mode.
func (e *KeyEncryptor) IsNoop() bool { return e.noop }

// Seal encrypts pt under AES-256-GCM with a fresh random nonce, returning
// nonce‖ciphertext‖tag. In no-op mode it returns pt unchanged.
func (e *KeyEncryptor) Seal(pt []byte) ([]byte, error) {
	if e.noop {
		return append([]byte(nil), pt...), nil
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: kek cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: kek gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: kek nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, pt, nil), nil
}

// Open reverses Seal, failing with a DecryptionFailed-class error on any AEAD
// failure. In no-op mode it returns ct unchanged.
func (e *KeyEncryptor) Open(ct []byte) ([]byte, error) {
	if e.noop {
		return append([]byte(nil), ct...), nil
	}
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("crypto: kek cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: kek gcm: %w", err)
	}
	if len(ct) < gcm.NonceSize() {
		return nil, errors.New("crypto: sealed secret key truncated")
	}
	nonce, body := ct[:gcm.NonceSize()], ct[gcm.NonceSize():]
	pt, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, aiderr.Wrap(aiderr.KindDecryptionFailed, "crypto: open sealed secret key", err)
	}
	return pt, nil
}
