// ABOUTME: Startup health probing of backends with bounded exponential backoff
// ABOUTME: Applies only at boot; tool invocations are never retried by the gateway

package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ProbeConfig bounds the startup health probe.
type ProbeConfig struct {
	// MaxRetries caps probe attempts per backend. 0 means probe once.
	MaxRetries uint64
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
}

// DefaultProbeConfig returns the probe settings used when unconfigured.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		MaxRetries:      4,
		InitialInterval: 500 * time.Millisecond,
	}
}

// Probe health-checks every adapter, retrying transient failures with
// exponential backoff. A backend that stays down is reported but does not
// abort startup; its circuit breaker handles it from then on.
func Probe(ctx context.Context, adapters []Adapter, cfg ProbeConfig, logger *slog.Logger) map[Kind]error {
	if cfg.InitialInterval == 0 {
		cfg = DefaultProbeConfig()
	}

	results := make(map[Kind]error, len(adapters))
	for _, a := range adapters {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.InitialInterval
		policy := backoff.WithContext(backoff.WithMaxRetries(b, cfg.MaxRetries), ctx)

		attempt := 0
		err := backoff.Retry(func() error {
			attempt++
			if err := a.HealthCheck(ctx); err != nil {
				logger.Debug("backend probe failed",
					"backend", a.Kind(),
					"attempt", attempt,
					"error", err,
				)
				return err
			}
			return nil
		}, policy)

		if err != nil {
			results[a.Kind()] = fmt.Errorf("probing backend %q: %w", a.Kind(), err)
			logger.Warn("backend unhealthy at startup", "backend", a.Kind(), "error", err)
		} else {
			results[a.Kind()] = nil
			logger.Info("backend healthy", "backend", a.Kind(), "attempts", attempt)
		}
	}
	return results
}
