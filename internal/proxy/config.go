package proxy

import (
	"fmt"
	"os"
	"time"
)

// Config holds the tunables for node rate limiting and window resets.
type Config struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	WindowResetPeriod  time.Duration
}

// LoadConfig reads proxy tuning from the environment, falling back to
// defaults that suit a single-node development setup.
func LoadConfig() Config {
	cfg := Config{
		RateLimitPerSecond: 5.0,
		RateLimitBurst:     10,
		WindowResetPeriod:  10 * time.Minute,
	}
	if v := os.Getenv("PROXY_RATE_LIMIT_PER_SECOND"); v != "" {
		var r float64
		fmt.Sscanf(v, "%f", &r)
		if r > 0 {
			cfg.RateLimitPerSecond = r
		}
	}
	if v := os.Getenv("PROXY_RATE_LIMIT_BURST"); v != "" {
		var b int
		fmt.Sscanf(v, "%d", &b)
		if b > 0 {
			cfg.RateLimitBurst = b
		}
	}
	if v := os.Getenv("PROXY_WINDOW_RESET_MINUTES"); v != "" {
		var m int
		fmt.Sscanf(v, "%d", &m)
		if m > 0 {
			cfg.WindowResetPeriod = time.Duration(m) * time.Minute
		}
	}
	return cfg
}
