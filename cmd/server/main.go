package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/harfgames/hayawan/internal/config"
	"github.com/harfgames/hayawan/internal/database"
	"github.com/harfgames/hayawan/internal/migrations"
	"github.com/harfgames/hayawan/internal/oracle"
	"github.com/harfgames/hayawan/internal/room"
	"github.com/harfgames/hayawan/internal/server"
	"github.com/harfgames/hayawan/internal/session"
	"github.com/harfgames/hayawan/internal/transport"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite (local session state) ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Redis (room pub/sub) ---
	bus, err := transport.Dial(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer bus.Close()
	logger.Info("connected to redis")

	// --- Scoring oracle ---
	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY not set, rounds will score zero until configured")
	}
	judge := oracle.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.OracleTimeout)

	// --- Room service ---
	sessions := session.NewStore(db)
	svc := room.NewService(logger, bus, cfg.TopicPrefix, sessions, judge, cfg.OracleTimeout)

	// --- HTTP server ---
	checks := map[string]server.Checker{
		"sqlite": db.PingContext,
		"redis":  bus.Ping,
	}
	srv := server.New(cfg.HTTPAddr, logger, svc, checks, cfg.SPADir)

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
