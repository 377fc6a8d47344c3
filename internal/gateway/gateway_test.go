// ABOUTME: End-to-end gateway tests through the assembled HTTP handler
// ABOUTME: Auth in front of MCP, tool dispatch, health and readiness endpoints

package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmesh/infragate/internal/backend"
	"github.com/stackmesh/infragate/internal/config"
	"github.com/stackmesh/infragate/internal/fault"
)

type fakeAdapter struct {
	kind      backend.Kind
	output    string
	healthErr error
}

func (f *fakeAdapter) Kind() backend.Kind { return f.kind }

func (f *fakeAdapter) Invoke(_ context.Context, _ string, _ json.RawMessage) (*backend.Result, error) {
	return &backend.Result{Output: json.RawMessage(f.output)}, nil
}

func (f *fakeAdapter) HealthCheck(_ context.Context) error { return f.healthErr }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:   config.ServerConfig{HTTPAddr: "localhost:0"},
		Auth:     config.AuthConfig{JWTSecret: "test-secret-for-gateway-tests"},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "audit.db")},
		Backends: []config.BackendConfig{
			{Kind: "storage", BaseURL: "http://localhost:9001"},
			{Kind: "firewall", BaseURL: "http://localhost:9002"},
		},
	}
}

func newTestGateway(t *testing.T, healthErr error) *Gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gw, err := NewWithAdapters(testConfig(t), logger, func(cfg config.BackendConfig) backend.Adapter {
		return &fakeAdapter{
			kind:      backend.Kind(cfg.Kind),
			output:    `{"ok":true}`,
			healthErr: healthErr,
		}
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
	})
	return gw
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func postMCP(t *testing.T, gw *Gateway, token, sessionID, body string) (*httptest.ResponseRecorder, rpcResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	rr := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rr, req)

	var resp rpcResponse
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), "body: %s", rr.Body.String())
	}
	return rr, resp
}

func TestGateway_RejectsUnauthenticated(t *testing.T) {
	gw := newTestGateway(t, nil)

	rr, resp := postMCP(t, gw, "", "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, fault.CodeUnauthorized, resp.Error.Code)
}

func TestGateway_RejectsBadToken(t *testing.T) {
	gw := newTestGateway(t, nil)

	rr, resp := postMCP(t, gw, "not-a-real-token", "", `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, fault.CodeUnauthorized, resp.Error.Code)
}

func TestGateway_EndToEnd(t *testing.T) {
	gw := newTestGateway(t, nil)

	token, err := gw.TokenManager().Issue("operator:alice", time.Hour)
	require.NoError(t, err)

	// initialize
	req := httptest.NewRequest(http.MethodPost, "/mcp",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"e2e","version":"1.0"}}}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	sessionID := rr.Header().Get("Mcp-Session-Id")
	require.NotEmpty(t, sessionID)

	// tools/list shows both configured backends' tools
	_, resp := postMCP(t, gw, token, sessionID, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	require.Nil(t, resp.Error)
	var list struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &list))
	assert.Equal(t, gw.Registry().Len(), len(list.Tools))

	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "storage_list_pools")
	assert.Contains(t, names, "firewall_apply")

	// tools/call dispatches through the breaker to the fake adapter
	_, resp = postMCP(t, gw, token, sessionID,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"storage_list_pools"}}`)
	require.Nil(t, resp.Error)
	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &envelope))
	assert.False(t, envelope.IsError)
	require.Len(t, envelope.Content, 1)
	assert.Equal(t, `{"ok":true}`, envelope.Content[0].Text)

	// The invocation was audited
	count, err := gw.auditStore.CountInvocations(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGateway_UnknownBackendKindFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backends = []config.BackendConfig{{Kind: "mainframe", BaseURL: "http://localhost:9001"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Validate catches this at config load; building a gateway from an
	// unvalidated config yields an empty tool set rather than a panic.
	gw, err := NewWithAdapters(cfg, logger, func(bcfg config.BackendConfig) backend.Adapter {
		return &fakeAdapter{kind: backend.Kind(bcfg.Kind), output: `{}`}
	})
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
	}()
	assert.Equal(t, 0, gw.Registry().Len())
}

func TestGateway_Healthz(t *testing.T) {
	gw := newTestGateway(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	gw.httpServer.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGateway_Readyz(t *testing.T) {
	t.Run("all backends healthy", func(t *testing.T) {
		gw := newTestGateway(t, nil)

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()
		gw.httpServer.Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "ready")
	})

	t.Run("backend down", func(t *testing.T) {
		gw := newTestGateway(t, fault.New(fault.KindBackendUnreachable, "connection refused"))

		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rr := httptest.NewRecorder()
		gw.httpServer.Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "unhealthy")
	})
}
