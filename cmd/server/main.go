package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/collabtext/core/internal/config"
	"github.com/collabtext/core/internal/restapi"
	"github.com/collabtext/core/pkg/auth"
	"github.com/collabtext/core/pkg/hub"
	"github.com/collabtext/core/pkg/logger"
	"github.com/collabtext/core/pkg/metrics"
	"github.com/collabtext/core/pkg/pipeline"
	"github.com/collabtext/core/pkg/server"
	"github.com/collabtext/core/pkg/store"
)

func main() {
	logger.Init()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Info("starting collabtext server...")
	logger.Info("listen address: %s", cfg.ListenAddr)

	st, err := newStore(cfg)
	if err != nil {
		logger.Error("failed to initialize store: %v", err)
		log.Fatalf("failed to initialize store: %v", err)
	}
	defer st.Close()

	verifier, err := newVerifier(cfg)
	if err != nil {
		logger.Error("failed to initialize auth verifier: %v", err)
		log.Fatalf("failed to initialize auth verifier: %v", err)
	}

	h := hub.New(cfg.BroadcastBufferSize)
	p := pipeline.New(st, h)

	srv := server.New(server.Config{
		BroadcastBufferSize: cfg.BroadcastBufferSize,
		WSReadTimeout:       cfg.WSReadTimeout,
		WSWriteTimeout:      cfg.WSWriteTimeout,
		IdleDocumentTTL:     cfg.IdleDocumentTTL,
	}, st, h, p, verifier)

	restHandler := restapi.New(st, verifier)
	mux := http.NewServeMux()
	mux.Handle("/api/v1/docs", restHandler)
	mux.Handle("/api/v1/docs/", restHandler)
	mux.Handle("/", srv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.StartIdleEvictor(ctx, cfg.IdleCleanupInterval)
	go serveMetrics(cfg.MetricsAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error: %v", err)
		}
		os.Exit(0)
	}()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	log.Fatal(httpServer.ListenAndServe())
}

// newStore picks the Store adapter the way the teacher's main.go picked
// between an optional SQLite database and a pure in-memory Rustpad:
// a Postgres DSN wins if set, else a SQLite file path, else memory.
func newStore(cfg *config.Config) (store.Store, error) {
	if cfg.PostgresDSN != "" {
		logger.Info("store: postgres")
		return store.NewPostgresStore(cfg.PostgresDSN)
	}
	if cfg.SQLitePath != "" {
		logger.Info("store: sqlite (%s)", cfg.SQLitePath)
		return store.NewSQLiteStore(cfg.SQLitePath)
	}
	logger.Info("store: in-memory only")
	return store.NewMemoryStore(), nil
}

func newVerifier(cfg *config.Config) (auth.Verifier, error) {
	if cfg.AnonymousAuth {
		logger.Info("auth: anonymous (development mode)")
		return auth.AnonymousVerifier{}, nil
	}
	return auth.NewJWTVerifier([]byte(cfg.JWTSecret))
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.Info("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics listener stopped: %v", err)
	}
}
