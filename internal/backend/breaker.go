// ABOUTME: Circuit breaker wrapper around a backend adapter using sony/gobreaker
// ABOUTME: Fails fast when a backend is down; never retries (retry is the caller's call)

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/stackmesh/infragate/internal/fault"
)

// BreakerConfig configures the circuit breaker around one adapter.
type BreakerConfig struct {
	// MaxFailures is the consecutive failure count that opens the circuit.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a half-open probe.
	OpenTimeout time.Duration
}

// DefaultBreakerConfig returns the breaker settings used when the config
// file does not override them.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures: 5,
		OpenTimeout: 30 * time.Second,
	}
}

// BreakerAdapter wraps an Adapter with a circuit breaker. While the circuit
// is open every Invoke fails immediately with a backend-unreachable fault,
// protecting a struggling backend from the gateway's request volume. The
// breaker only counts infrastructure failures; a backend that answers with
// an application error (KindBackendError) is healthy and does not trip it.
type BreakerAdapter struct {
	inner   Adapter
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewBreakerAdapter wraps inner with a circuit breaker.
func NewBreakerAdapter(inner Adapter, cfg BreakerConfig, logger *slog.Logger) *BreakerAdapter {
	if cfg.MaxFailures == 0 {
		cfg = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:    string(inner.Kind()),
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("backend circuit state change",
				"backend", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Backend-rejected operations mean the backend is reachable
			return fault.KindOf(err) == fault.KindBackendError
		},
	}

	return &BreakerAdapter{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Kind returns the wrapped adapter's kind.
func (b *BreakerAdapter) Kind() Kind {
	return b.inner.Kind()
}

// Invoke executes the tool through the circuit breaker.
func (b *BreakerAdapter) Invoke(ctx context.Context, toolName string, arguments json.RawMessage) (*Result, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Invoke(ctx, toolName, arguments)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fault.Newf(fault.KindBackendUnreachable, "backend %q is unavailable", b.inner.Kind()).
				WithDetail(err.Error())
		}
		return nil, err
	}
	result, ok := out.(*Result)
	if !ok {
		return nil, fault.New(fault.KindInternal, "internal error").
			WithDetail("breaker returned unexpected result type")
	}
	return result, nil
}

// HealthCheck probes the wrapped adapter directly, bypassing the breaker
// so a half-open circuit can recover via readiness probes.
func (b *BreakerAdapter) HealthCheck(ctx context.Context) error {
	return b.inner.HealthCheck(ctx)
}
