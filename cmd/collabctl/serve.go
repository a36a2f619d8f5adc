package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

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

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the collabtext websocket + REST server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

// runServe is the same wiring cmd/server/main.go runs directly; kept
// here too so operators can reach it through the single collabctl
// binary without a separate build target.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Info("starting collabtext server...")
	logger.Info("listen address: %s", cfg.ListenAddr)

	st, err := newStoreFromConfig(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var verifier auth.Verifier
	if cfg.AnonymousAuth {
		logger.Info("auth: anonymous (development mode)")
		verifier = auth.AnonymousVerifier{}
	} else {
		verifier, err = auth.NewJWTVerifier([]byte(cfg.JWTSecret))
		if err != nil {
			return err
		}
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
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		logger.Info("metrics listening on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil {
			logger.Error("metrics listener stopped: %v", err)
		}
	}()

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
	return nil
}

func newStoreFromConfig(cfg *config.Config) (store.Store, error) {
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
