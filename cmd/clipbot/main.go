package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NikitosKh/clipbot/internal/api"
	"github.com/NikitosKh/clipbot/internal/bot"
	"github.com/NikitosKh/clipbot/internal/clip"
	"github.com/NikitosKh/clipbot/internal/config"
	"github.com/NikitosKh/clipbot/internal/db"
	"github.com/NikitosKh/clipbot/internal/extract"
	"github.com/NikitosKh/clipbot/internal/journal"
	"github.com/NikitosKh/clipbot/internal/logging"
	"github.com/NikitosKh/clipbot/internal/resolve"
	"github.com/NikitosKh/clipbot/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel())
	logger.Info("starting clipbot",
		"version", config.Version,
		"data_dir", cfg.DataDir(),
		"workers", cfg.Workers(),
		"token", logging.SanitizeToken(cfg.Token()),
	)

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	repo := journal.NewRepository(database.Conn())

	apiToken, err := ensureAPIToken(repo)
	if err != nil {
		return fmt.Errorf("failed to ensure api token: %w", err)
	}
	logger.Info("local API ready",
		"url", fmt.Sprintf("http://127.0.0.1:%d", cfg.Port()),
		"token", logging.SanitizeToken(apiToken),
	)

	extractor, err := extract.NewFFmpeg(cfg.FFmpegPath(), logging.WithComponent(logger, "extract"))
	if err != nil {
		return fmt.Errorf("ffmpeg not available: %w", err)
	}
	resolver, err := resolve.NewYTDLPResolver(cfg.YTDLPPath(), logging.WithComponent(logger, "resolve"))
	if err != nil {
		return fmt.Errorf("yt-dlp not available: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := clip.NewPool(cfg.Workers())
	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	orch := clip.NewOrchestrator(resolver, extractor, pool, repo, cfg.WorkDir(),
		logging.WithComponent(logger, "clip"))

	transport := telegram.NewClient(cfg.APIBase(), cfg.Token(),
		logging.WithComponent(logger, "telegram"))
	b := bot.New(transport, orch, repo, logging.WithComponent(logger, "bot"))

	apiServer := api.NewServer(api.ServerConfig{
		Port:       cfg.Port(),
		Repository: repo,
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
		Version:    config.Version,
		Workers:    cfg.Workers(),
	})

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := b.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("bot stopped", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())

	cancel()

	// Clips already being cut are allowed to finish before the pool
	// drains; polling and new submissions stop immediately.
	pool.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown HTTP server", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func ensureAPIToken(repo journal.Repository) (string, error) {
	ctx := context.Background()

	existing, err := repo.GetConfig(ctx, api.APITokenKey)
	if err == nil && existing != "" {
		return existing, nil
	}

	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := hex.EncodeToString(tokenBytes)

	if err := repo.SetConfig(ctx, api.APITokenKey, token); err != nil {
		return "", err
	}

	return token, nil
}
