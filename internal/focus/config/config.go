// Package config loads the focus core's tunables from flags and
// environment variables, following the same load-and-override shape the
// rest of the fleet uses: typed defaults, flag.Parse, then env overrides.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable named in the bridge-selection specification.
type Config struct {
	LogLevel string

	// Bridge selection.
	MaxBridgeStress               float64
	AllowSelectionIfNoPinnedMatch bool
	ParticipantRegionPinned       bool
	AllowSelectionIfNoRegionalMatch bool
	StrategyMaxStressLevel        float64

	// Strategy selection: "region", "intra-region", "split", "single", or
	// "visitor" (in which case VisitorParticipantStrategy/VisitorStrategy
	// name the two inner strategies).
	Strategy                 string
	VisitorParticipantStrategy string
	VisitorStrategy            string

	// Rate limiting.
	RateLimitMinInterval time.Duration
	RateLimitMaxRequests int
	RateLimitInterval    time.Duration

	// Control channel.
	GRPCConnectTimeout    time.Duration
	GRPCKeepaliveInterval time.Duration
	GRPCKeepaliveTimeout  time.Duration
}

// Default returns the configuration defaults named in the specification.
func Default() *Config {
	return &Config{
		LogLevel:                        "info",
		MaxBridgeStress:                 0.85,
		AllowSelectionIfNoPinnedMatch:   false,
		ParticipantRegionPinned:         false,
		AllowSelectionIfNoRegionalMatch: true,
		StrategyMaxStressLevel:          0.8,
		Strategy:                        "region",
		RateLimitMinInterval:            10 * time.Second,
		RateLimitMaxRequests:            3,
		RateLimitInterval:               60 * time.Second,
		GRPCConnectTimeout:              10 * time.Second,
		GRPCKeepaliveInterval:           30 * time.Second,
		GRPCKeepaliveTimeout:            10 * time.Second,
	}
}

// Load builds a Config from command-line flags, then applies environment
// variable overrides on top (env wins, matching the signaling server's
// convention).
func Load() *Config {
	cfg := Default()

	flag.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.Float64Var(&cfg.MaxBridgeStress, "max-bridge-stress", cfg.MaxBridgeStress, "overload threshold for selectable bridges")
	flag.BoolVar(&cfg.AllowSelectionIfNoPinnedMatch, "allow-selection-if-no-pinned-match", cfg.AllowSelectionIfNoPinnedMatch, "fall back to any version if no bridge matches the pinned version")
	flag.BoolVar(&cfg.ParticipantRegionPinned, "participant-region-pinned", cfg.ParticipantRegionPinned, "require bridges to match the participant's region")
	flag.BoolVar(&cfg.AllowSelectionIfNoRegionalMatch, "allow-selection-if-no-regional-match", cfg.AllowSelectionIfNoRegionalMatch, "fall back to any region if none match")
	flag.Float64Var(&cfg.StrategyMaxStressLevel, "strategy-max-stress-level", cfg.StrategyMaxStressLevel, "not-loaded threshold used by selection strategies")
	flag.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "selection strategy: region, intra-region, split, single, visitor")
	flag.StringVar(&cfg.VisitorParticipantStrategy, "visitor-participant-strategy", cfg.VisitorParticipantStrategy, "inner strategy for non-visitor participants when strategy=visitor")
	flag.StringVar(&cfg.VisitorStrategy, "visitor-strategy", cfg.VisitorStrategy, "inner strategy for visitor participants when strategy=visitor")
	flag.DurationVar(&cfg.RateLimitMinInterval, "rate-limit-min-interval", cfg.RateLimitMinInterval, "minimum time between accepted requests")
	flag.IntVar(&cfg.RateLimitMaxRequests, "rate-limit-max-requests", cfg.RateLimitMaxRequests, "max accepted requests within the trailing window")
	flag.DurationVar(&cfg.RateLimitInterval, "rate-limit-interval", cfg.RateLimitInterval, "trailing window duration")
	flag.DurationVar(&cfg.GRPCConnectTimeout, "grpc-connect-timeout", cfg.GRPCConnectTimeout, "control channel connect timeout")
	flag.DurationVar(&cfg.GRPCKeepaliveInterval, "grpc-keepalive-interval", cfg.GRPCKeepaliveInterval, "control channel keepalive ping interval")
	flag.DurationVar(&cfg.GRPCKeepaliveTimeout, "grpc-keepalive-timeout", cfg.GRPCKeepaliveTimeout, "control channel keepalive timeout")
	flag.Parse()

	if v := os.Getenv("LOGLEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MAX_BRIDGE_STRESS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxBridgeStress = f
		}
	}
	if v := os.Getenv("ALLOW_SELECTION_IF_NO_PINNED_MATCH"); v != "" {
		cfg.AllowSelectionIfNoPinnedMatch = parseBool(v, cfg.AllowSelectionIfNoPinnedMatch)
	}
	if v := os.Getenv("PARTICIPANT_REGION_PINNED"); v != "" {
		cfg.ParticipantRegionPinned = parseBool(v, cfg.ParticipantRegionPinned)
	}
	if v := os.Getenv("ALLOW_SELECTION_IF_NO_REGIONAL_MATCH"); v != "" {
		cfg.AllowSelectionIfNoRegionalMatch = parseBool(v, cfg.AllowSelectionIfNoRegionalMatch)
	}
	if v := os.Getenv("STRATEGY"); v != "" {
		cfg.Strategy = v
	}
	if v := os.Getenv("VISITOR_PARTICIPANT_STRATEGY"); v != "" {
		cfg.VisitorParticipantStrategy = v
	}
	if v := os.Getenv("VISITOR_STRATEGY"); v != "" {
		cfg.VisitorStrategy = v
	}

	return cfg
}

func parseBool(s string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
