// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Loading and validation errors wrap this package's sentinel errors.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":5001".
	Addr string `koanf:"addr" validate:"required"`

	// DataDir selects the Badger store when set; empty keeps everything in memory.
	DataDir string `koanf:"data_dir"`

	// SeedFile is an optional YAML catalog loaded at startup.
	SeedFile string `koanf:"seed_file"`

	// DefaultLimit is used when a request omits limit; MaxLimit caps it.
	DefaultLimit int `koanf:"default_limit" validate:"min=1"`
	MaxLimit     int `koanf:"max_limit" validate:"gtefield=DefaultLimit"`

	// ScoringWorkers bounds per-request parallelism; 0 uses the CPU count.
	ScoringWorkers int `koanf:"scoring_workers" validate:"min=0"`

	// ParallelThreshold is the catalog size at which scoring fans out.
	ParallelThreshold int `koanf:"parallel_threshold" validate:"min=0"`

	// ClampFeatures clamps every feature into [0,1] before scoring.
	ClampFeatures bool `koanf:"clamp_features"`

	// UnresolvedPolicy decides what happens to ratings of unknown items: drop or fallback.
	UnresolvedPolicy string `koanf:"unresolved_policy" validate:"oneof=drop fallback"`

	// QueueSize bounds the in-memory rating queue.
	QueueSize int `koanf:"queue_size" validate:"min=1"`

	// WorkerCount sets the number of rating workers; 0 uses twice the CPU count.
	WorkerCount int `koanf:"worker_count" validate:"min=0"`

	// DedupeSize sets the size of the rating event dedupe cache; 0 is unbounded.
	DedupeSize int `koanf:"dedupe_size" validate:"min=0"`

	// CORSAllowedOrigins lists origins allowed by the CORS middleware.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"dive,required"`

	// RateLimitRequests per RateLimitWindowMS per client IP; 0 disables limiting.
	RateLimitRequests int `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindowMS int `koanf:"rate_limit_window_ms" validate:"min=1"`

	// ShutdownTimeoutMS bounds graceful shutdown of the HTTP server and workers.
	ShutdownTimeoutMS int `koanf:"shutdown_timeout_ms" validate:"min=1"`

	// MetricsIntervalMS is the period of the background gauge updater.
	MetricsIntervalMS int `koanf:"metrics_interval_ms" validate:"min=100"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":5001",
		DefaultLimit:       10,
		MaxLimit:           100,
		ScoringWorkers:     runtime.NumCPU(),
		ParallelThreshold:  2048,
		UnresolvedPolicy:   "drop",
		QueueSize:          100_000,
		WorkerCount:        runtime.NumCPU() * 2,
		DedupeSize:         50_000,
		CORSAllowedOrigins: []string{"*"},
		RateLimitRequests:  100,
		RateLimitWindowMS:  1000,
		ShutdownTimeoutMS:  10_000,
		MetricsIntervalMS:  5000,
	}
}
