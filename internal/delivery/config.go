package delivery

import (
	"fmt"
	"os"
	"time"
)

// WorkerConfig is the configuration record passed once at worker
// startup: orphan threshold, backoff cap, poll interval and
// concurrency limit. Nothing here is mutated after construction.
type WorkerConfig struct {
	WorkerID         string
	PollInterval     time.Duration
	Concurrency      int
	ClaimBatchSize   int
	MaxClaimRetries  int
	OrphanThreshold  time.Duration
	MaxRetryInterval time.Duration
}

func DefaultWorkerConfig(workerID string) WorkerConfig {
	return WorkerConfig{
		WorkerID:         workerID,
		PollInterval:     2 * time.Second,
		Concurrency:      20,
		ClaimBatchSize:   50,
		MaxClaimRetries:  3,
		OrphanThreshold:  30 * time.Second,
		MaxRetryInterval: 30 * time.Minute,
	}
}

// LoadWorkerConfig overlays environment overrides onto the defaults.
func LoadWorkerConfig(workerID string) WorkerConfig {
	cfg := DefaultWorkerConfig(workerID)
	if v := os.Getenv("WORKER_CONCURRENCY"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			cfg.Concurrency = n
		}
	}
	if v := os.Getenv("WORKER_CLAIM_BATCH_SIZE"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			cfg.ClaimBatchSize = n
		}
	}
	if v := os.Getenv("WORKER_ORPHAN_THRESHOLD_SECONDS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			cfg.OrphanThreshold = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("WORKER_MAX_RETRY_INTERVAL_MINUTES"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		if n > 0 {
			cfg.MaxRetryInterval = time.Duration(n) * time.Minute
		}
	}
	return cfg
}
