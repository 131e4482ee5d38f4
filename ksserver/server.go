// Package ksserver implements the KS gRPC service (C5): GenerateKey,
// GetSecretKey, HealthCheck. It wraps a ksstore.Store (C2) and an
// authcred.Verifier (C4), grounded on the teacher's governd server shape.
package ksserver

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/actor-rtc/actrix-core/aiderr"
	"github.com/actor-rtc/actrix-core/authcred"
	"github.com/actor-rtc/actrix-core/crypto"
	"github.com/actor-rtc/actrix-core/ksstore"
	"github.com/actor-rtc/actrix-core/observability/logging"
	commonv1 "github.com/actor-rtc/actrix-core/wire/common/v1"
	ksv1 "github.com/actor-rtc/actrix-core/wire/ks/v1"
)

// NonceContext scopes the KS<->caller authcred nonce namespace, distinct
// from the Supervisor<->Node namespace so identical nonce values presented
// to different services never collide.
const NonceContext = "ks"

// Config carries the fixed values the KS service needs at construction: the
// shared authentication secret verified against every credential, and the
// generated-key lifetime.
type Config struct {
	Secret        []byte
	KeyTTL        time.Duration // 0 means keys never expire
	ToleranceTime time.Duration // grace period after expiry before GetSecretKey refuses
}

// Server implements ksv1.KeyServerServer.
type Server struct {
	ksv1.UnimplementedKeyServerServer

	store     ksstore.Store
	verifier  *authcred.Verifier
	encryptor *crypto.KeyEncryptor
	cfg       Config
	nowFn     func() time.Time
	log       *slog.Logger
}

// New constructs a Server from its dependencies. log may be nil, in which
// case slog.Default() is used.
func New(store ksstore.Store, verifier *authcred.Verifier, encryptor *crypto.KeyEncryptor, cfg Config, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{store: store, verifier: verifier, encryptor: encryptor, cfg: cfg, nowFn: time.Now, log: log}
}

func (s *Server) now() time.Time {
	if s.nowFn != nil {
		return s.nowFn()
	}
	return time.Now()
}

func (s *Server) verify(ctx context.Context, cred *commonv1.NonceCredential, payload []byte) error {
	if cred == nil {
		return aiderr.New(aiderr.KindInvalidSignature, "credential required")
	}
	return s.verifier.Verify(ctx, cred.ToCredential(), s.cfg.Secret, payload, NonceContext)
}

// GenerateKey implements the GenerateKey RPC.
func (s *Server) GenerateKey(ctx context.Context, req *ksv1.GenerateKeyRequest) (*ksv1.GenerateKeyResponse, error) {
	if err := s.verify(ctx, req.GetCredential(), authcred.PayloadGenerateKey()); err != nil {
		return nil, toGRPCError(err)
	}

	priv, pub, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, toGRPCError(aiderr.Wrap(aiderr.KindGenerationFailed, "generate key pair", err))
	}

	sealed, err := s.encryptor.Seal(priv.Bytes())
	if err != nil {
		return nil, toGRPCError(aiderr.Wrap(aiderr.KindInternal, "seal secret key", err))
	}

	now := s.now().UTC()
	var expiresAt time.Time
	if s.cfg.KeyTTL > 0 {
		expiresAt = now.Add(s.cfg.KeyTTL)
	}

	keyID, err := s.store.Insert(ctx, ksstore.Record{
		PublicKey:       pub.Bytes(),
		SealedSecretKey: sealed,
		CreatedAt:       now,
		ExpiresAt:       expiresAt,
	})
	if err != nil {
		return nil, toGRPCError(aiderr.Wrap(aiderr.KindInternal, "insert key record", err))
	}

	s.log.Debug("ksserver: generated key",
		slog.Uint64("key_id", uint64(keyID)),
		logging.MaskField("sealed_secret_key", hex.EncodeToString(sealed)),
	)

	return &ksv1.GenerateKeyResponse{
		KeyID:     keyID,
		PublicKey: pub.Bytes(),
		ExpiresAt: unixOrZero(expiresAt),
	}, nil
}

// GetSecretKey implements the GetSecretKey RPC.
func (s *Server) GetSecretKey(ctx context.Context, req *ksv1.GetSecretKeyRequest) (*ksv1.GetSecretKeyResponse, error) {
	if err := s.verify(ctx, req.GetCredential(), authcred.PayloadGetSecretKey(req.GetKeyID())); err != nil {
		return nil, toGRPCError(err)
	}

	rec, err := s.store.GetByID(ctx, req.GetKeyID())
	if err != nil {
		if !errors.Is(err, ksstore.ErrNotFound) {
			return nil, toGRPCError(aiderr.Wrap(aiderr.KindInternal, "load key record", err))
		}
		// Uniform NotFound whether the record is truly absent or merely
		// expired past tolerance: an unauthenticated-looking observer must
		// not be able to distinguish the two.
		return nil, toGRPCError(aiderr.New(aiderr.KindNotFound, "key not found"))
	}

	now := s.now().UTC()
	inTolerance := false
	if !rec.ExpiresAt.IsZero() {
		tolerance := s.cfg.ToleranceTime
		if now.After(rec.ExpiresAt.Add(tolerance)) {
			return nil, toGRPCError(aiderr.New(aiderr.KindNotFound, "key not found"))
		}
		inTolerance = now.After(rec.ExpiresAt)
	}

	sk, err := s.encryptor.Open(rec.SealedSecretKey)
	if err != nil {
		return nil, toGRPCError(aiderr.Wrap(aiderr.KindInternal, "open sealed secret key", err))
	}

	s.log.Debug("ksserver: released secret key",
		slog.Uint64("key_id", uint64(rec.KeyID)),
		logging.MaskField("secret_key", hex.EncodeToString(sk)),
	)

	return &ksv1.GetSecretKeyResponse{
		KeyID:             rec.KeyID,
		SecretKey:         sk,
		ExpiresAt:         unixOrZero(rec.ExpiresAt),
		InTolerancePeriod: inTolerance,
	}, nil
}

// HealthCheck implements the HealthCheck RPC. No credential is required.
func (s *Server) HealthCheck(ctx context.Context, _ *ksv1.HealthCheckRequest) (*ksv1.HealthCheckResponse, error) {
	health, err := s.store.HealthCheck(ctx)
	if err != nil {
		return &ksv1.HealthCheckResponse{
			Status:    "unhealthy",
			Service:   "ks",
			Backend:   health.Backend,
			Timestamp: s.now().UTC().Unix(),
			Degraded:  true,
			Detail:    err.Error(),
		}, nil
	}
	return &ksv1.HealthCheckResponse{
		Status:    "healthy",
		Service:   "ks",
		Backend:   health.Backend,
		KeyCount:  health.KeyCount,
		Timestamp: s.now().UTC().Unix(),
	}, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// toGRPCError maps the failure taxonomy in §4.4 to grpc status codes: bad
// signature/timestamp and duplicate nonce all surface as Unauthenticated, but
// each keeps its own message text (the nonce value and signature bytes
// themselves are what must never leak, not the failure category) so a caller
// can distinguish "signature mismatch" from "timestamp outside allowed
// window" from "nonce already used"; missing/expired key is a uniform
// NotFound since there the category itself (absent vs. expired) is the thing
// that must not leak; storage or crypto failures surface as Internal.
func toGRPCError(err error) error {
	switch {
	case aiderr.OfKind(err, aiderr.KindInvalidSignature),
		aiderr.OfKind(err, aiderr.KindTimestampOutOfWindow),
		aiderr.OfKind(err, aiderr.KindDuplicateNonce):
		return status.Error(codes.Unauthenticated, err.Error())
	case aiderr.OfKind(err, aiderr.KindNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
