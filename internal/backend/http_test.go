// ABOUTME: Tests for the generic HTTP bridge adapter
// ABOUTME: Fault normalization for unreachable, rejected, and slow backends

package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmesh/infragate/internal/fault"
)

func TestHTTPAdapter_InvokeSuccess(t *testing.T) {
	var gotReq invokeRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/invoke", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pools":[{"name":"tank","health":"ONLINE"}]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(KindStorage, srv.URL, "test-key")
	result, err := a.Invoke(context.Background(), "storage_list_pools", json.RawMessage(`{}`))
	require.NoError(t, err)

	assert.Equal(t, "storage_list_pools", gotReq.Tool)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.JSONEq(t, `{"pools":[{"name":"tank","health":"ONLINE"}]}`, result.Text())
}

func TestHTTPAdapter_InvokeBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"pool tank does not exist"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(KindStorage, srv.URL, "")
	_, err := a.Invoke(context.Background(), "storage_list_datasets", json.RawMessage(`{"pool":"tank"}`))
	require.Error(t, err)

	f := fault.From(err)
	assert.Equal(t, fault.KindBackendError, f.Kind)
	// The raw backend body stays in log-only detail
	assert.NotContains(t, f.Message, "does not exist")
	assert.Contains(t, f.Detail, "does not exist")
}

func TestHTTPAdapter_InvokeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	a := NewHTTPAdapter(KindFirewall, srv.URL, "")
	_, err := a.Invoke(context.Background(), "firewall_list_rules", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindBackendUnreachable, fault.KindOf(err))
}

func TestHTTPAdapter_InvokeTimeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	a := NewHTTPAdapter(KindBMC, srv.URL, "")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.Invoke(ctx, "bmc_power_status", json.RawMessage(`{"server":"node1"}`))
	require.Error(t, err)
	assert.Equal(t, fault.KindTimeout, fault.KindOf(err))
}

func TestHTTPAdapter_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		a := NewHTTPAdapter(KindHypervisor, srv.URL, "")
		assert.NoError(t, a.HealthCheck(context.Background()))
	})

	t.Run("unhealthy status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		a := NewHTTPAdapter(KindHypervisor, srv.URL, "")
		err := a.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Equal(t, fault.KindBackendError, fault.KindOf(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		a := NewHTTPAdapter(KindHypervisor, srv.URL, "")
		err := a.HealthCheck(context.Background())
		require.Error(t, err)
		assert.Equal(t, fault.KindBackendUnreachable, fault.KindOf(err))
	})
}
