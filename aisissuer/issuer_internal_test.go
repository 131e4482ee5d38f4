package aisissuer

import (
	"context"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/actor-rtc/actrix-core/actorid"
	"github.com/actor-rtc/actrix-core/aiderr"
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

const internalTestSecret = "test-ais-issuer-outage-psk"

// TestIssuerSurvivesBriefKSOutage is the S5 scenario: with a cached key still
// valid for another 10 minutes, KS goes away; issuance keeps succeeding from
// the cached key alone until it passes expires_at + tolerance, at which point
// it fails GenerationFailed rather than blocking on an unreachable KS.
func TestIssuerSurvivesBriefKSOutage(t *testing.T) {
	store, err := ksstore.OpenSQLiteStore(filepath.Join(t.TempDir(), "ks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	nonces, err := noncestore.NewLevelDBStore(filepath.Join(t.TempDir(), "nonces.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = nonces.Close() })

	encryptor, err := crypto.ResolveKEK(crypto.KekSource{AllowNoKEK: true})
	require.NoError(t, err)

	verifier := &authcred.Verifier{Store: nonces}
	srv := ksserver.New(store, verifier, encryptor, ksserver.Config{Secret: []byte(internalTestSecret), KeyTTL: time.Hour}, nil)

	listener := bufconn.Listen(1024 * 1024)
	grpcServer := grpc.NewServer()
	ksv1.RegisterKeyServerServer(grpcServer, srv)
	go func() { _ = grpcServer.Serve(listener) }()

	dialCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	ks, err := ksclient.Dial(dialCtx, "bufconn", []byte(internalTestSecret),
		ksclient.WithInsecure(),
		ksclient.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
	)
	cancel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ks.Close() })

	cache, err := keycache.OpenPublicKeyCache(filepath.Join(t.TempDir(), "pub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	base := time.Now().UTC()
	clock := base
	iss := &Issuer{
		ks:    ks,
		cache: cache,
		sn:    snowflake.New(nil),
		cfg: Config{
			AllowedRealms: map[uint32]bool{1001: true},
			KeyTolerance:  time.Minute,
		},
		log:   slog.Default(),
		nowFn: func() time.Time { return clock },
	}
	require.NoError(t, iss.Start(context.Background()))

	// Simulate the cache already holding a key valid for another 10 minutes.
	row, ok, err := cache.Get(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	row.ExpiresAt = clock.Add(10 * time.Minute)
	row.ToleranceSeconds = time.Minute
	require.NoError(t, cache.Update(context.Background(), row))

	// KS goes away.
	grpcServer.Stop()

	req := RegisterRequest{RealmID: 1001, ActorType: actorid.ActorType{Manufacturer: "test-manufacturer", Name: "test-device"}}
	for i := 0; i < 100; i++ {
		_, err := iss.IssueCredential(context.Background(), req)
		require.NoError(t, err)
	}

	clock = row.ExpiresAt.Add(row.ToleranceSeconds).Add(time.Second)
	_, err = iss.IssueCredential(context.Background(), req)
	require.Error(t, err)
	require.True(t, aiderr.OfKind(err, aiderr.KindGenerationFailed))
}
