package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/actor-rtc/actrix-core/authcred"
	"github.com/actor-rtc/actrix-core/cmd/ks/config"
	"github.com/actor-rtc/actrix-core/crypto"
	"github.com/actor-rtc/actrix-core/ksserver"
	"github.com/actor-rtc/actrix-core/ksstore"
	"github.com/actor-rtc/actrix-core/noncestore"
	"github.com/actor-rtc/actrix-core/observability/logging"
	ksv1 "github.com/actor-rtc/actrix-core/wire/ks/v1"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "cmd/ks/config.yaml", "path to ks config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ACTRIX_ENV"))
	log := logging.Setup("ks", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(log, "load config", err)
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		fatal(log, "open key store", err)
	}
	defer func() { _ = store.Close() }()

	nonces, err := openNonceStore(cfg.Nonces)
	if err != nil {
		fatal(log, "open nonce store", err)
	}
	defer func() { _ = nonces.Close() }()

	encryptor, err := crypto.ResolveKEK(crypto.KekSource{
		Direct:     cfg.KEK.Direct,
		EnvVar:     cfg.KEK.EnvVar,
		FilePath:   cfg.KEK.FilePath,
		AllowNoKEK: cfg.KEK.AllowNoKEK,
	})
	if err != nil {
		fatal(log, "resolve kek", err)
	}

	verifier := &authcred.Verifier{Store: nonces}
	srv := ksserver.New(store, verifier, encryptor, ksserver.Config{
		Secret:        []byte(cfg.SharedKey),
		KeyTTL:        cfg.Storage.KeyTTL(),
		ToleranceTime: cfg.Storage.Tolerance(),
	}, log)

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		fatal(log, "listen on "+cfg.ListenAddress, err)
	}

	grpcServer := grpc.NewServer()
	ksv1.RegisterKeyServerServer(grpcServer, srv)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runNoncePruner(rootCtx, log, nonces)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("ks listening", slog.String("address", cfg.ListenAddress))
		serverErr <- grpcServer.Serve(listener)
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			log.Warn("forcing shutdown")
			grpcServer.Stop()
		}
	case err := <-serverErr:
		if err != nil {
			fatal(log, "serve grpc", err)
		}
	}
}

// noncePruneInterval bounds how often the nonce store's periodic cleanup
// sweep runs, per spec.md §3.3's "periodic sweep" requirement.
const noncePruneInterval = 10 * time.Minute

// runNoncePruner sweeps expired nonce records on a fixed interval until ctx
// is canceled, mirroring the private-key cache's bounded-cadence cleanup.
func runNoncePruner(ctx context.Context, log *slog.Logger, nonces noncestore.Store) {
	ticker := time.NewTicker(noncePruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := nonces.Prune(ctx, time.Now()); err != nil {
				log.Warn("ks: nonce store prune failed", slog.Any("error", err))
			}
		}
	}
}

func openStore(cfg config.StorageConfig) (ksstore.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "sqlite":
		return ksstore.OpenSQLiteStore(cfg.DSN)
	case "postgres":
		return ksstore.OpenPostgresStore(cfg.DSN)
	case "redis":
		return ksstore.OpenRedisStore(context.Background(), cfg.DSN)
	default:
		log.Fatalf("unknown storage backend %q", cfg.Backend)
		return nil, nil
	}
}

func openNonceStore(cfg config.NonceConfig) (noncestore.Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "leveldb":
		return noncestore.NewLevelDBStore(cfg.Path)
	case "sqlite":
		return noncestore.OpenSQLiteStore(cfg.Path)
	default:
		log.Fatalf("unknown nonce backend %q", cfg.Backend)
		return nil, nil
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
