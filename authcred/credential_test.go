package authcred

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/actor-rtc/actrix-core/aiderr"
	"github.com/actor-rtc/actrix-core/noncestore"
)

func newVerifier(t *testing.T) *Verifier {
	t.Helper()
	store, err := noncestore.NewLevelDBStore(filepath.Join(t.TempDir(), "nonces.ldb"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return &Verifier{Store: store}
}

func TestBuildVerifyRoundTrip(t *testing.T) {
	secret := []byte("test-ks-grpc-psk")
	payload := PayloadGenerateKey()

	cred, err := Build(secret, payload, nil)
	require.NoError(t, err)

	v := newVerifier(t)
	require.NoError(t, v.Verify(context.Background(), cred, secret, payload, "ks"))
}

func TestVerifyRejectsDuplicateNonce(t *testing.T) {
	secret := []byte("test-ks-grpc-psk")
	payload := PayloadGenerateKey()
	cred, err := Build(secret, payload, nil)
	require.NoError(t, err)

	v := newVerifier(t)
	require.NoError(t, v.Verify(context.Background(), cred, secret, payload, "ks"))

	err = v.Verify(context.Background(), cred, secret, payload, "ks")
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindDuplicateNonce))
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	secret := []byte("test-ks-grpc-psk")
	payload := PayloadGenerateKey()
	atZero := func() time.Time { return time.Unix(0, 0) }

	cred, err := Build(secret, payload, atZero)
	require.NoError(t, err)

	v := newVerifier(t)
	err = v.Verify(context.Background(), cred, secret, payload, "ks")
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindTimestampOutOfWindow))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	secret := []byte("test-ks-grpc-psk")
	payload := PayloadGenerateKey()
	cred, err := Build(secret, payload, nil)
	require.NoError(t, err)
	last := "0"
	if cred.Signature[len(cred.Signature)-1] == '0' {
		last = "1"
	}
	cred.Signature = cred.Signature[:len(cred.Signature)-1] + last

	v := newVerifier(t)
	err = v.Verify(context.Background(), cred, secret, payload, "ks")
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindInvalidSignature))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	payload := PayloadGenerateKey()
	cred, err := Build([]byte("correct-secret"), payload, nil)
	require.NoError(t, err)

	v := newVerifier(t)
	err = v.Verify(context.Background(), cred, []byte("wrong-secret"), payload, "ks")
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindInvalidSignature))
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	secret := []byte("test-ks-grpc-psk")
	cred, err := Build(secret, PayloadGenerateKey(), nil)
	require.NoError(t, err)

	v := newVerifier(t)
	err = v.Verify(context.Background(), cred, secret, []byte("get_secret_key:1"), "ks")
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindInvalidSignature))
}

func TestPayloadHelpersAreDomainSeparated(t *testing.T) {
	require.Equal(t, []byte("generate_key"), PayloadGenerateKey())
	require.Equal(t, []byte("get_secret_key:42"), PayloadGetSecretKey(42))
	require.Equal(t, []byte("rotate:node-1:subject-a"), PayloadSupervisor("rotate", "node-1", "subject-a"))
	require.Equal(t, []byte("rotate:node-1"), PayloadSupervisor("rotate", "node-1", ""))
}
