package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nkapur/syncbridge/internal/config"
	"github.com/nkapur/syncbridge/internal/consumer"
	"github.com/nkapur/syncbridge/internal/db"
	"github.com/nkapur/syncbridge/internal/httpapi"
	"github.com/nkapur/syncbridge/internal/metrics"
	"github.com/nkapur/syncbridge/internal/policy"
	"github.com/nkapur/syncbridge/internal/sink"
)

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "syncd").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Pretty logging for local dev
	if !cfg.Production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
	log.Logger = log.With().Str("region", string(cfg.Region)).Logger()

	ctx := context.Background()

	// The sink must be reachable at startup.
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	store := metrics.NewStore()
	writer := sink.NewWriter(pool)

	// Consumer setup. An unreachable bus is not fatal: the service keeps
	// serving the stats API without sync.
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	consumerDone := make(chan struct{})

	go func() {
		defer close(consumerDone)

		client, err := consumer.Dial(consumerCtx, cfg)
		if err != nil {
			log.Error().Err(err).Msg("bus unreachable, continuing without sync")
			return
		}

		c := consumer.New(client, policy.NewGate(cfg.Region, cfg.Regions), writer, writer, store, cfg.Region)
		defer c.Close()

		log.Info().Str("peer", string(cfg.Peer())).Msg("inbound change processor started")
		if err := c.Run(consumerCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("consumer stopped")
		}
	}()

	// HTTP server setup
	srv := &httpapi.Server{
		DB:        pool,
		Metrics:   store,
		Local:     cfg.Region,
		Peer:      cfg.Peer(),
		JWTSecret: cfg.JWTSecret,
	}
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	// Stop pulling and let the in-flight message finish, bounded at 30s.
	stopConsumer()
	select {
	case <-consumerDone:
	case <-time.After(30 * time.Second):
		log.Warn().Msg("consumer did not stop within 30s")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}
