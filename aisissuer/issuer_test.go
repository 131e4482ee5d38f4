package aisissuer_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/actor-rtc/actrix-core/actorid"
	"github.com/actor-rtc/actrix-core/aiderr"
	"github.com/actor-rtc/actrix-core/aisissuer"
	"github.com/actor-rtc/actrix-core/authcred"
	"github.com/actor-rtc/actrix-core/crypto"
	"github.com/actor-rtc/actrix-core/keycache"
	"github.com/actor-rtc/actrix-core/ksclient"
	"github.com/actor-rtc/actrix-core/ksserver"
	"github.com/actor-rtc/actrix-core/ksstore"
	"github.com/actor-rtc/actrix-core/noncestore"
	"github.com/actor-rtc/actrix-core/snowflake"
	ksv1 "github.com/actor-rtc/actrix-core/wire/ks/v1"
)

const testSecret = "test-ais-issuer-ks-psk"

func startTestKS(t *testing.T) *ksclient.Client {
	t.Helper()

	store, err := ksstore.OpenSQLiteStore(filepath.Join(t.TempDir(), "ks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	nonces, err := noncestore.NewLevelDBStore(filepath.Join(t.TempDir(), "nonces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = nonces.Close() })

	encryptor, err := crypto.ResolveKEK(crypto.KekSource{AllowNoKEK: true})
	require.NoError(t, err)

	verifier := &authcred.Verifier{Store: nonces}
	srv := ksserver.New(store, verifier, encryptor, ksserver.Config{Secret: []byte(testSecret), KeyTTL: time.Hour}, nil)

	listener := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer()
	ksv1.RegisterKeyServerServer(grpcServer, srv)
	go func() { _ = grpcServer.Serve(listener) }()
	t.Cleanup(grpcServer.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	client, err := ksclient.Dial(ctx, "bufconn", []byte(testSecret),
		ksclient.WithInsecure(),
		ksclient.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func newTestIssuer(t *testing.T) *aisissuer.Issuer {
	t.Helper()
	ks := startTestKS(t)

	cache, err := keycache.OpenPublicKeyCache(filepath.Join(t.TempDir(), "pub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	sn := snowflake.New(nil)
	iss := aisissuer.New(ks, cache, sn, aisissuer.Config{AllowedRealms: map[uint32]bool{1001: true}}, nil)
	require.NoError(t, iss.Start(context.Background()))
	return iss
}

func TestIssueCredentialHappyPath(t *testing.T) {
	iss := newTestIssuer(t)
	ctx := context.Background()

	cred, err := iss.IssueCredential(ctx, aisissuer.RegisterRequest{
		RealmID:   1001,
		ActorType: actorid.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
	})
	require.NoError(t, err)
	require.Equal(t, uint32(1001), cred.ActorID.RealmID)
	require.NotZero(t, cred.ActorID.SerialNumber)
	require.Len(t, cred.PSK, 32)
	require.NotEmpty(t, cred.EncryptedToken)
	require.True(t, cred.CredentialExpiresAt.After(time.Now()))
}

func TestIssueCredentialRejectsUnconfiguredRealm(t *testing.T) {
	iss := newTestIssuer(t)
	_, err := iss.IssueCredential(context.Background(), aisissuer.RegisterRequest{
		RealmID:   9999,
		ActorType: actorid.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
	})
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindRealmError))
}

func TestIssueCredentialRejectsZeroRealm(t *testing.T) {
	iss := newTestIssuer(t)
	_, err := iss.IssueCredential(context.Background(), aisissuer.RegisterRequest{
		ActorType: actorid.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
	})
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindRealmError))
}

func TestIssueCredentialFailsWithoutCachedKey(t *testing.T) {
	ks := startTestKS(t)
	cache, err := keycache.OpenPublicKeyCache(filepath.Join(t.TempDir(), "pub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	sn := snowflake.New(nil)
	iss := aisissuer.New(ks, cache, sn, aisissuer.Config{}, nil)
	// Deliberately skip Start: the cache is empty.

	_, err = iss.IssueCredential(context.Background(), aisissuer.RegisterRequest{
		RealmID:   1001,
		ActorType: actorid.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
	})
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindGenerationFailed))
}

func TestRotateKeyReplacesCachedRow(t *testing.T) {
	iss := newTestIssuer(t)
	ctx := context.Background()

	before, err := iss.IssueCredential(ctx, aisissuer.RegisterRequest{
		RealmID:   1001,
		ActorType: actorid.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
	})
	require.NoError(t, err)

	require.NoError(t, iss.RotateKey(ctx))

	after, err := iss.IssueCredential(ctx, aisissuer.RegisterRequest{
		RealmID:   1001,
		ActorType: actorid.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"},
	})
	require.NoError(t, err)
	require.NotEqual(t, before.TokenKeyID, after.TokenKeyID)
}

func TestCheckHealthAllGreen(t *testing.T) {
	iss := newTestIssuer(t)
	status := iss.CheckHealth(context.Background(), time.Second)
	require.True(t, status.Healthy())
	require.True(t, status.CacheOK)
	require.True(t, status.KSOK)
	require.True(t, status.KeyFresh)
}
