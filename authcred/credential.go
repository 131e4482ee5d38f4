// Package authcred implements the nonce-bound HMAC credential protocol (C4)
// used on every inter-service RPC: KS<->AIS, KS<->validator. It is grounded
// on the teacher's gateway/auth Authenticator, generalized from an
// HTTP-method/path-specific signature to a payload-generic one so the same
// bytes can be verified by a reimplementation in another language.
package authcred

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/actor-rtc/actrix-core/aiderr"
	"github.com/actor-rtc/actrix-core/noncestore"
)

// DefaultWindow is the default acceptance window W for |now - timestamp|.
const DefaultWindow = 300 * time.Second

// MinNonceTTL is the minimum nonce-store TTL the verifier will accept; T >= W
// always, per §4.1.
const MinNonceTTL = DefaultWindow

// NonceByteLen is the length of the random nonce Build draws (>= 128 bits).
const NonceByteLen = 16

// Credential is the NonceCredential RPC auth object.
type Credential struct {
	Timestamp int64  // unix seconds
	Nonce     string // opaque token, hex-encoded random bytes
	Signature string // hex(HMAC-SHA256(secret, serialize(...)))
}

// Build produces a fresh Credential over payload, signed with secret, using
// the current time as observed by nowFn (time.Now if nil).
func Build(secret []byte, payload []byte, nowFn func() time.Time) (Credential, error) {
	if nowFn == nil {
		nowFn = time.Now
	}
	nonceBytes := make([]byte, NonceByteLen)
	if _, err := rand.Read(nonceBytes); err != nil {
		return Credential{}, fmt.Errorf("authcred: generate nonce: %w", err)
	}
	nonce := hex.EncodeToString(nonceBytes)
	ts := nowFn().UTC().Unix()

	sig := sign(secret, ts, nonce, payload)
	return Credential{Timestamp: ts, Nonce: nonce, Signature: hex.EncodeToString(sig)}, nil
}

// Verifier checks Credentials against a nonce store, enforcing the
// acceptance window and claiming the nonce atomically.
type Verifier struct {
	Store  noncestore.Store
	Window time.Duration // default DefaultWindow if zero
	TTL    time.Duration // default max(Window, MinNonceTTL) if zero
	NowFn  func() time.Time
}

// Verify implements §4.1's Verify algorithm exactly: window check, constant-time
// signature check, then atomic nonce claim. context scopes the nonce
// namespace (e.g. "ks" vs "supervisor") so the same nonce value presented to
// two different services never collides.
func (v *Verifier) Verify(ctx context.Context, cred Credential, secret []byte, payload []byte, context_ string) error {
	now := time.Now
	if v.NowFn != nil {
		now = v.NowFn
	}
	nowTime := now().UTC()

	window := v.Window
	if window <= 0 {
		window = DefaultWindow
	}
	ttl := v.TTL
	if ttl <= 0 {
		ttl = window
	}
	if ttl < window {
		ttl = window
	}
	if ttl < MinNonceTTL {
		ttl = MinNonceTTL
	}

	skew := nowTime.Unix() - cred.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > int64(window/time.Second) {
		return aiderr.New(aiderr.KindTimestampOutOfWindow, "timestamp outside allowed window")
	}

	expected := sign(secret, cred.Timestamp, cred.Nonce, payload)
	given, err := hex.DecodeString(cred.Signature)
	if err != nil {
		return aiderr.Wrap(aiderr.KindInvalidSignature, "signature is not valid hex", err)
	}
	if !hmac.Equal(given, expected) {
		return aiderr.New(aiderr.KindInvalidSignature, "signature mismatch")
	}

	if v.Store == nil {
		return aiderr.New(aiderr.KindInternal, "nonce store not configured")
	}
	duplicate, err := v.Store.Claim(ctx, cred.Nonce, context_, nowTime, ttl)
	if err != nil {
		return aiderr.Wrap(aiderr.KindInternal, "claim nonce", err)
	}
	if duplicate {
		return aiderr.New(aiderr.KindDuplicateNonce, "nonce already used")
	}

	return nil
}

// sign implements the fixed, payload-generic serialization §4 mandates:
// len(timestamp_be_8) || timestamp_be_8 || len(nonce) || nonce ||
// len(payload) || payload, with 4-byte big-endian uint32 length prefixes.
// This differs deliberately from the teacher's newline-joined
// ComputeSignature, which bakes in HTTP method/path; this scheme must be
// reproducible bit-for-bit by a validator written in any language, for any
// payload shape (not just HTTP requests).
func sign(secret []byte, timestamp int64, nonce string, payload []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(serialize(timestamp, nonce, payload))
	return mac.Sum(nil)
}

func serialize(timestamp int64, nonce string, payload []byte) []byte {
	nonceBytes := []byte(nonce)

	tsBuf := make([]byte, 8)
	binary.BigEndian.PutUint64(tsBuf, uint64(timestamp))

	out := make([]byte, 0, 4+8+4+len(nonceBytes)+4+len(payload))
	out = appendUint32Prefixed(out, tsBuf)
	out = appendUint32Prefixed(out, nonceBytes)
	out = appendUint32Prefixed(out, payload)
	return out
}

func appendUint32Prefixed(dst []byte, field []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field)))
	dst = append(dst, lenBuf[:]...)
	dst = append(dst, field...)
	return dst
}

// PayloadGenerateKey is the fixed domain-separated payload signed for KS's
// GenerateKey RPC.
func PayloadGenerateKey() []byte { return []byte("generate_key") }

// PayloadGetSecretKey is the fixed domain-separated payload signed for KS's
// GetSecretKey RPC.
func PayloadGetSecretKey(keyID uint32) []byte {
	return []byte(fmt.Sprintf("get_secret_key:%d", keyID))
}

// PayloadSupervisor is the fixed domain-separated payload signed for
// Supervisor<->Node RPCs: "<action>:<node_id>[:<subject>]".
func PayloadSupervisor(action, nodeID, subject string) []byte {
	if subject == "" {
		return []byte(fmt.Sprintf("%s:%s", action, nodeID))
	}
	return []byte(fmt.Sprintf("%s:%s:%s", action, nodeID, subject))
}
