// Command focus stands up the bridge-selection and colibri session
// management core as a standalone process: it loads config, builds the
// configured selection strategy, the bridge registry and the rate limiter,
// then waits for a termination signal. It runs no discovery source and
// creates no session managers itself.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebas/focus/internal/focus/bridge"
	"github.com/sebas/focus/internal/focus/config"
	"github.com/sebas/focus/internal/focus/events"
	"github.com/sebas/focus/internal/focus/logging"
	"github.com/sebas/focus/internal/focus/ratelimit"
	"github.com/sebas/focus/internal/focus/selection"
)

func main() {
	cfg := config.Load()
	logging.Init(cfg.LogLevel)
	log := logging.For("main")

	strategy, err := selection.NewFromConfig(cfg)
	if err != nil {
		log.Error("failed to build selection strategy", "error", err)
		os.Exit(1)
	}

	pub := events.NewFanOut()
	pub.Subscribe(func(e events.Event) {
		log.Debug("event", "type", e.Type(), "time", e.Timestamp())
	})

	registry := bridge.NewRegistry(pub)
	limiter := ratelimit.New(cfg.RateLimitMinInterval, cfg.RateLimitMaxRequests, cfg.RateLimitInterval)

	log.Info("focus core starting",
		"strategy", cfg.Strategy,
		"max_bridge_stress", cfg.MaxBridgeStress,
		"rate_limit_max_requests", cfg.RateLimitMaxRequests,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run(ctx, registry, strategy, limiter, log)
}

// run waits for a termination signal, then unwinds. Bridge discovery and
// the control-channel listener that feeds live SessionManagers are wired
// up by the embedding deployment (see bridge.DiscoverySource and
// colibri.NewSessionManager); this binary's job ends at standing up the
// shared core.
func run(ctx context.Context, registry *bridge.Registry, strategy selection.Strategy, limiter *ratelimit.RateLimiter, log *slog.Logger) {
	_ = strategy
	_ = limiter

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Info("focus core ready", "bridges", registry.Len())

	sig := <-sigCh
	log.Info("received signal, shutting down", "signal", sig)
}
