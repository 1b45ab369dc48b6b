// Package config aggregates the environment-driven tunables for the
// delivery execution core's process entrypoint. Each component keeps its
// own LoadConfig (proxy.LoadConfig, delivery.LoadWorkerConfig) for its
// internal tunables; this package holds the top-level wiring decisions
// that decide which backends and how many workers the process runs.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds process-level wiring decisions read from the environment.
type Config struct {
	// HTTPAddr is the address the admin/intake API listens on.
	HTTPAddr string

	// PostgresDSN, if set, selects the durable Postgres store. Empty
	// falls back to the in-memory store (single-process/dev mode).
	PostgresDSN string

	// RedisAddr, if set, backs the idempotency cache and the distributed
	// coordinator. Empty falls back to in-memory equivalents.
	RedisAddr string

	// WorkerCount is how many Delivery Worker instances this process
	// runs locally, each claiming disjoint tasks from the shared pool.
	WorkerCount int

	// PlaysPerHourPerNode feeds the capacity planner's throughput model.
	PlaysPerHourPerNode int

	// OrphanSweepInterval is how often SweepOrphans runs.
	OrphanSweepInterval time.Duration

	// SettlementInterval is how often the settlement ledger scans for
	// orders whose tasks have all reached a terminal state.
	SettlementInterval time.Duration
}

// Load reads process configuration from the environment, defaulting to a
// single-process, in-memory, single-worker development setup.
func Load() Config {
	cfg := Config{
		HTTPAddr:            ":8080",
		PostgresDSN:         os.Getenv("DATABASE_URL"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		WorkerCount:         1,
		PlaysPerHourPerNode: 60,
		OrphanSweepInterval: 30 * time.Second,
		SettlementInterval:  10 * time.Second,
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.HTTPAddr = addr
	}
	if v := os.Getenv("WORKER_COUNT"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.WorkerCount = n
		}
	}
	if v := os.Getenv("PLAYS_PER_HOUR_PER_NODE"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.PlaysPerHourPerNode = n
		}
	}
	if v := os.Getenv("ORPHAN_SWEEP_INTERVAL_SECONDS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.OrphanSweepInterval = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("SETTLEMENT_INTERVAL_SECONDS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 0 {
			cfg.SettlementInterval = time.Duration(n) * time.Second
		}
	}

	return cfg
}
