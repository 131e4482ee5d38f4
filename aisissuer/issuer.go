// Package aisissuer implements the AIS issuer (C9): it owns the issuer-side
// public-key cache, keeps it fresh against KS in the background, and turns a
// RegisterRequest into an ECIES-encrypted AIdCredential.
package aisissuer

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/actor-rtc/actrix-core/actorid"
	"github.com/actor-rtc/actrix-core/aiderr"
	"github.com/actor-rtc/actrix-core/claims"
	"github.com/actor-rtc/actrix-core/crypto"
	"github.com/actor-rtc/actrix-core/keycache"
	"github.com/actor-rtc/actrix-core/ksclient"
	"github.com/actor-rtc/actrix-core/observability/logging"
	"github.com/actor-rtc/actrix-core/snowflake"
)

// DefaultKeyRefreshInterval is how often the background task checks
// ShouldRefresh when Config.KeyRefreshInterval is unset.
const DefaultKeyRefreshInterval = time.Hour

// DefaultTokenTTL is the credential lifetime used when Config.TokenTTL is unset.
const DefaultTokenTTL = time.Hour

// DefaultHeartbeatInterval is the signaling heartbeat interval handed back to
// registering clients when Config.HeartbeatInterval is unset.
const DefaultHeartbeatInterval = 30 * time.Second

// DefaultKeyTolerance is the grace period the issuer keeps serving a cached
// public key past its expires_at once KS becomes unreachable, used when
// Config.KeyTolerance is unset. KS's own GenerateKeyResponse carries no
// tolerance_seconds field (only key_id/public_key/expires_at), so this is an
// AIS-local policy rather than a value handed down by KS.
const DefaultKeyTolerance = 10 * time.Minute

// Config configures an Issuer.
type Config struct {
	// AllowedRealms, if non-empty, restricts issue_credential to these realm
	// IDs. An empty set means any non-zero realm is accepted.
	AllowedRealms map[uint32]bool

	KeyRefreshInterval time.Duration
	TokenTTL           time.Duration
	HeartbeatInterval  time.Duration
	KeyTolerance       time.Duration
}

func (c Config) keyRefreshInterval() time.Duration {
	if c.KeyRefreshInterval > 0 {
		return c.KeyRefreshInterval
	}
	return DefaultKeyRefreshInterval
}

func (c Config) tokenTTL() time.Duration {
	if c.TokenTTL > 0 {
		return c.TokenTTL
	}
	return DefaultTokenTTL
}

func (c Config) heartbeatInterval() time.Duration {
	if c.HeartbeatInterval > 0 {
		return c.HeartbeatInterval
	}
	return DefaultHeartbeatInterval
}

func (c Config) keyTolerance() time.Duration {
	if c.KeyTolerance > 0 {
		return c.KeyTolerance
	}
	return DefaultKeyTolerance
}

// RegisterRequest is the issuer's input, mirroring wire/aid/v1.RegisterRequest
// minus the wire-specific framing.
type RegisterRequest struct {
	RealmID     uint32
	ActorType   actorid.ActorType
	ServiceSpec string
	ACL         []string
}

// Credential is the issuer's output on success.
type Credential struct {
	ActorID                        actorid.ActorId
	TokenKeyID                     uint32
	EncryptedToken                 []byte
	PSK                            []byte
	CredentialExpiresAt            time.Time
	SignalingHeartbeatIntervalSecs int32
}

// Issuer is the AIS-side component assembling and ECIES-encrypting claims.
// One Issuer is constructed per AIS process; it owns a background refresh
// goroutine started by Run.
type Issuer struct {
	ks    *ksclient.Client
	cache *keycache.PublicKeyCache
	sn    *snowflake.Generator
	cfg   Config
	log   *slog.Logger

	nowFn func() time.Time
}

// New constructs an Issuer. ks, cache, and sn must all be non-nil.
func New(ks *ksclient.Client, cache *keycache.PublicKeyCache, sn *snowflake.Generator, cfg Config, log *slog.Logger) *Issuer {
	if log == nil {
		log = slog.Default()
	}
	return &Issuer{ks: ks, cache: cache, sn: sn, cfg: cfg, log: log, nowFn: time.Now}
}

func (iss *Issuer) now() time.Time {
	if iss.nowFn != nil {
		return iss.nowFn()
	}
	return time.Now()
}

// Start performs the startup check from §4.7: if the cache is empty or due
// for refresh, it fetches a fresh key from KS before returning. Callers
// should call Start once before serving traffic.
func (iss *Issuer) Start(ctx context.Context) error {
	shouldRefresh, err := iss.cache.ShouldRefresh(ctx, iss.now(), keycache.DefaultAdvanceWindow)
	if err != nil {
		return fmt.Errorf("aisissuer: start: read public key cache: %w", err)
	}
	if !shouldRefresh {
		return nil
	}
	return iss.refresh(ctx)
}

// Run starts the background refresh loop and blocks until ctx is canceled.
// Every key_refresh_interval_secs tick it checks ShouldRefresh and, if due,
// requests a new key; refresh errors are logged and retried on the next tick
// rather than propagated, so a transient KS outage never kills the loop.
func (iss *Issuer) Run(ctx context.Context) {
	interval := iss.cfg.keyRefreshInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			shouldRefresh, err := iss.cache.ShouldRefresh(ctx, iss.now(), keycache.DefaultAdvanceWindow)
			if err != nil {
				iss.log.Warn("aisissuer: background refresh check failed", slog.Any("error", err))
				continue
			}
			if !shouldRefresh {
				continue
			}
			if err := iss.refresh(ctx); err != nil {
				iss.log.Warn("aisissuer: background key refresh failed, serving cached key until tolerance expires", slog.Any("error", err))
			}
		}
	}
}

// RotateKey forces a refresh regardless of ShouldRefresh, per the §4.11
// idempotent rotate-key supplement.
func (iss *Issuer) RotateKey(ctx context.Context) error {
	return iss.refresh(ctx)
}

func (iss *Issuer) refresh(ctx context.Context) error {
	resp, err := iss.ks.GenerateKey(ctx)
	if err != nil {
		return fmt.Errorf("aisissuer: generate key: %w", err)
	}
	row := keycache.PublicKeyRow{
		KeyID:            resp.KeyID,
		PublicKey:        resp.PublicKey,
		FetchedAt:        iss.now().UTC(),
		ToleranceSeconds: iss.cfg.keyTolerance(),
	}
	if resp.ExpiresAt != 0 {
		row.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
	}
	if err := iss.cache.Update(ctx, row); err != nil {
		return fmt.Errorf("aisissuer: persist refreshed key: %w", err)
	}
	return nil
}

// IssueCredential implements issue_credential per §4.7's 8-step algorithm.
func (iss *Issuer) IssueCredential(ctx context.Context, req RegisterRequest) (Credential, error) {
	if req.RealmID == 0 {
		return Credential{}, aiderr.New(aiderr.KindRealmError, "realm_id must be non-zero")
	}
	if len(iss.cfg.AllowedRealms) > 0 && !iss.cfg.AllowedRealms[req.RealmID] {
		return Credential{}, aiderr.Newf(aiderr.KindRealmError, "realm %d is not configured", req.RealmID)
	}

	row, ok, err := iss.cache.Get(ctx)
	if err != nil {
		return Credential{}, aiderr.Wrap(aiderr.KindGenerationFailed, "KS unavailable, failed to read cached key", err)
	}
	if !ok {
		return Credential{}, aiderr.New(aiderr.KindGenerationFailed, "KS unavailable, no cached key")
	}
	if row.IsExpiredBeyondTolerance(iss.now()) {
		return Credential{}, aiderr.New(aiderr.KindGenerationFailed, "KS unavailable, key expired")
	}

	pubKey, err := crypto.PublicKeyFromBytes(row.PublicKey)
	if err != nil {
		return Credential{}, aiderr.Wrap(aiderr.KindInternal, "cached public key unparseable", err)
	}

	serial := iss.sn.Next(req.RealmID)

	psk, err := crypto.RandomBytes(32)
	if err != nil {
		return Credential{}, aiderr.Wrap(aiderr.KindInternal, "draw psk", err)
	}

	actorID, err := actorid.New(req.RealmID, serial.Value(), req.ActorType)
	if err != nil {
		return Credential{}, aiderr.Wrap(aiderr.KindInvalidFormat, "construct actor id", err)
	}

	issuedAt := iss.now()
	expiresAt := issuedAt.Add(iss.cfg.tokenTTL())
	idClaims := claims.IdentityClaims{
		RealmID:    req.RealmID,
		ActorIDStr: actorID.String(),
		ExprTime:   expiresAt.Unix(),
		PSK:        psk,
	}
	if idClaims.IsExpired(issuedAt) {
		return Credential{}, aiderr.New(aiderr.KindGenerationFailed, "credential expiry is not in the future")
	}

	serialized, err := idClaims.Marshal()
	if err != nil {
		return Credential{}, aiderr.Wrap(aiderr.KindJSONSerialization, "serialize claims", err)
	}

	encrypted, err := crypto.EciesEncrypt(pubKey, serialized)
	if err != nil {
		return Credential{}, aiderr.Wrap(aiderr.KindEciesError, "encrypt claims", err)
	}

	iss.log.Debug("aisissuer: issued credential",
		slog.String("actor_id", actorID.String()),
		slog.Uint64("token_key_id", uint64(row.KeyID)),
		logging.MaskField("psk", hex.EncodeToString(psk)),
	)

	return Credential{
		ActorID:                        actorID,
		TokenKeyID:                     row.KeyID,
		EncryptedToken:                 encrypted,
		PSK:                            psk,
		CredentialExpiresAt:            expiresAt,
		SignalingHeartbeatIntervalSecs: int32(iss.cfg.heartbeatInterval() / time.Second),
	}, nil
}

// CurrentKeyID returns the cached public key's ID, for GET /ais/current-key.
// ok is false if no row is cached.
func (iss *Issuer) CurrentKeyID(ctx context.Context) (keyID uint32, ok bool, err error) {
	row, ok, err := iss.cache.Get(ctx)
	if err != nil || !ok {
		return 0, ok, err
	}
	return row.KeyID, true, nil
}

// HealthStatus is the three-part independent check from §4.11/handlers.rs:
// database (here, the public key cache database), KS reachability, and
// key-cache freshness.
type HealthStatus struct {
	CacheOK  bool
	CacheErr string
	KSOK     bool
	KSErr    string
	KeyFresh bool
	KeyErr   string
}

// Healthy reports whether all three checks passed.
func (h HealthStatus) Healthy() bool { return h.CacheOK && h.KSOK && h.KeyFresh }

// CheckHealth runs the three checks concurrently with a short per-check
// timeout, per §4.11's note that handlers.rs runs them concurrently rather
// than sequentially.
func (iss *Issuer) CheckHealth(ctx context.Context, perCheckTimeout time.Duration) HealthStatus {
	if perCheckTimeout <= 0 {
		perCheckTimeout = 2 * time.Second
	}

	var status HealthStatus
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, perCheckTimeout)
		defer cancel()
		_, _, err := iss.cache.Get(cctx)
		status.CacheOK = err == nil
		if err != nil {
			status.CacheErr = err.Error()
		}
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, perCheckTimeout)
		defer cancel()
		_, err := iss.ks.HealthCheck(cctx, perCheckTimeout)
		status.KSOK = err == nil
		if err != nil {
			status.KSErr = err.Error()
		}
	}()

	go func() {
		defer wg.Done()
		cctx, cancel := context.WithTimeout(ctx, perCheckTimeout)
		defer cancel()
		row, ok, err := iss.cache.Get(cctx)
		switch {
		case err != nil:
			status.KeyErr = err.Error()
		case !ok:
			status.KeyErr = "no cached key"
		case row.IsExpiredBeyondTolerance(iss.now()):
			status.KeyErr = "cached key expired beyond tolerance"
		default:
			status.KeyFresh = true
		}
	}()

	wg.Wait()
	return status
}
