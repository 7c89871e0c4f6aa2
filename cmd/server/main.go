package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aniscope/aniscope/internal/analytics"
	"github.com/aniscope/aniscope/internal/anilist"
	"github.com/aniscope/aniscope/internal/config"
	httpserver "github.com/aniscope/aniscope/internal/http"
	"github.com/aniscope/aniscope/internal/pipeline"
	"github.com/aniscope/aniscope/internal/repository"
	"github.com/aniscope/aniscope/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config error")
	}

	logger := newLogger(cfg.Log)

	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.Database.URL, store.Options{
		MaxConns:               cfg.Database.MaxConns,
		MinConns:               cfg.Database.MinConns,
		MaxConnIdleTime:        cfg.Database.MaxConnIdleTime,
		MaxConnLifetime:        cfg.Database.MaxConnLifetime,
		ConnTimeout:            cfg.Database.ConnTimeout,
		StatementCacheCapacity: cfg.Database.StatementCache,
		Logger:                 logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer st.Close()

	client, err := anilist.NewHTTPClient(cfg.AniList.URL, cfg.AniList.Timeout, cfg.AniList.RatePerSec, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("init anilist client")
	}

	repo := repository.New(st)
	cache := analytics.NewCache(cfg.Snapshots.Dir, repo.Analytics, logger)
	runner := pipeline.NewRunner(client, repo, cache, logger)
	server := httpserver.New(cfg, st, runner, logger)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("graceful shutdown error")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", "aniscope").Logger()
}
