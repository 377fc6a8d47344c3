// ABOUTME: Tests for the circuit breaker adapter wrapper
// ABOUTME: Opens on consecutive infrastructure failures, ignores backend-rejected ops

package backend

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmesh/infragate/internal/fault"
)

type scriptedAdapter struct {
	kind      Kind
	invoke    func() (*Result, error)
	healthErr error
	calls     int
}

func (s *scriptedAdapter) Kind() Kind { return s.kind }

func (s *scriptedAdapter) Invoke(_ context.Context, _ string, _ json.RawMessage) (*Result, error) {
	s.calls++
	return s.invoke()
}

func (s *scriptedAdapter) HealthCheck(_ context.Context) error { return s.healthErr }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBreakerAdapter_PassThrough(t *testing.T) {
	inner := &scriptedAdapter{
		kind:   KindStorage,
		invoke: func() (*Result, error) { return &Result{Output: json.RawMessage(`{"pools":[]}`)}, nil },
	}
	b := NewBreakerAdapter(inner, BreakerConfig{MaxFailures: 3, OpenTimeout: time.Minute}, discardLogger())

	result, err := b.Invoke(context.Background(), "storage_list_pools", nil)
	require.NoError(t, err)
	assert.Equal(t, `{"pools":[]}`, result.Text())
	assert.Equal(t, KindStorage, b.Kind())
}

func TestBreakerAdapter_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &scriptedAdapter{
		kind: KindStorage,
		invoke: func() (*Result, error) {
			return nil, fault.New(fault.KindBackendUnreachable, "connection refused")
		},
	}
	b := NewBreakerAdapter(inner, BreakerConfig{MaxFailures: 3, OpenTimeout: time.Minute}, discardLogger())

	for i := 0; i < 3; i++ {
		_, err := b.Invoke(context.Background(), "storage_list_pools", nil)
		require.Error(t, err)
	}
	callsBeforeOpen := inner.calls

	// Circuit is now open: the inner adapter is no longer reached
	_, err := b.Invoke(context.Background(), "storage_list_pools", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindBackendUnreachable, fault.KindOf(err))
	assert.Contains(t, err.Error(), "unavailable")
	assert.Equal(t, callsBeforeOpen, inner.calls)
}

func TestBreakerAdapter_BackendErrorDoesNotTrip(t *testing.T) {
	inner := &scriptedAdapter{
		kind: KindFirewall,
		invoke: func() (*Result, error) {
			return nil, fault.New(fault.KindBackendError, "rule validation failed")
		},
	}
	b := NewBreakerAdapter(inner, BreakerConfig{MaxFailures: 2, OpenTimeout: time.Minute}, discardLogger())

	// Backend-rejected operations mean the backend is up; the circuit
	// must stay closed no matter how many of them arrive.
	for i := 0; i < 10; i++ {
		_, err := b.Invoke(context.Background(), "firewall_add_rule", nil)
		require.Error(t, err)
		assert.Equal(t, fault.KindBackendError, fault.KindOf(err))
	}
	assert.Equal(t, 10, inner.calls)
}

func TestBreakerAdapter_HealthCheckBypassesBreaker(t *testing.T) {
	inner := &scriptedAdapter{
		kind: KindBMC,
		invoke: func() (*Result, error) {
			return nil, fault.New(fault.KindBackendUnreachable, "connection refused")
		},
	}
	b := NewBreakerAdapter(inner, BreakerConfig{MaxFailures: 1, OpenTimeout: time.Hour}, discardLogger())

	_, err := b.Invoke(context.Background(), "bmc_power_status", nil)
	require.Error(t, err)

	// Circuit open, but health checks still reach the adapter so readiness
	// probes observe recovery.
	assert.NoError(t, b.HealthCheck(context.Background()))
}

func TestBreakerAdapter_ZeroConfigUsesDefaults(t *testing.T) {
	inner := &scriptedAdapter{
		kind:   KindStorage,
		invoke: func() (*Result, error) { return &Result{}, nil },
	}
	b := NewBreakerAdapter(inner, BreakerConfig{}, discardLogger())

	result, err := b.Invoke(context.Background(), "storage_list_pools", nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", result.Text())
}
