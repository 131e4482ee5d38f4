package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/actor-rtc/actrix-core/aishttp"
	"github.com/actor-rtc/actrix-core/aisissuer"
	"github.com/actor-rtc/actrix-core/cmd/ais/config"
	"github.com/actor-rtc/actrix-core/keycache"
	"github.com/actor-rtc/actrix-core/ksclient"
	"github.com/actor-rtc/actrix-core/observability/logging"
	"github.com/actor-rtc/actrix-core/ratelimit"
	"github.com/actor-rtc/actrix-core/snowflake"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "cmd/ais/config.yaml", "path to ais config")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("ACTRIX_ENV"))
	log := logging.Setup("ais", env)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatal(log, "load config", err)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	ks, err := ksclient.Dial(dialCtx, cfg.KSEndpoint, []byte(cfg.SharedKey))
	cancel()
	if err != nil {
		fatal(log, "dial ks", err)
	}
	defer func() { _ = ks.Close() }()

	pubCache, err := keycache.OpenPublicKeyCache(cfg.IssuerKeyCachePath)
	if err != nil {
		fatal(log, "open issuer key cache", err)
	}
	defer func() { _ = pubCache.Close() }()

	sn := snowflake.New(log)

	issuer := aisissuer.New(ks, pubCache, sn, aisissuer.Config{
		AllowedRealms:      cfg.AllowedRealmSet(),
		KeyRefreshInterval: cfg.KeyRefreshInterval(),
		TokenTTL:           cfg.TokenTTL(),
		HeartbeatInterval:  cfg.HeartbeatInterval(),
	}, log)
	if err := issuer.Start(rootCtx); err != nil {
		fatal(log, "issuer startup refresh", err)
	}
	go issuer.Run(rootCtx)

	limiter := ratelimit.New(ratelimit.Config{
		RatePerSecond: cfg.RateLimit.RatePerSecond,
		Burst:         cfg.RateLimit.Burst,
		TrustProxy:    cfg.RateLimit.TrustProxy,
	})

	handler := aishttp.New(aishttp.Config{
		Issuer:      issuer,
		Limiter:     limiter,
		ServiceName: "ais",
		Version:     "dev",
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: handler,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("ais listening", slog.String("address", cfg.ListenAddress))
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("forcing shutdown", slog.Any("error", err))
			_ = srv.Close()
		}
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			fatal(log, "serve http", err)
		}
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, slog.Any("error", err))
	os.Exit(1)
}
