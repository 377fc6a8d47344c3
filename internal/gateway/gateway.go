// ABOUTME: Gateway orchestrator wiring auth, registry, session handler, and audit store
// ABOUTME: Owns the HTTP server lifecycle including boot probes and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stackmesh/infragate/internal/auth"
	"github.com/stackmesh/infragate/internal/backend"
	"github.com/stackmesh/infragate/internal/catalog"
	"github.com/stackmesh/infragate/internal/config"
	"github.com/stackmesh/infragate/internal/fault"
	"github.com/stackmesh/infragate/internal/mcp"
	"github.com/stackmesh/infragate/internal/registry"
	"github.com/stackmesh/infragate/internal/store"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 5 * time.Second

// Version is reported in initialize responses. Set by the build.
var Version = "dev"

// Gateway orchestrates the infragate server components: token auth in
// front, the MCP session handler behind it, the frozen tool registry, the
// backend adapters, and the invocation audit store.
type Gateway struct {
	config     *config.Config
	logger     *slog.Logger
	tokens     *auth.TokenManager
	registry   *registry.Registry
	adapters   []backend.Adapter
	mcpServer  *mcp.Server
	auditStore *store.SQLiteStore
	httpServer *http.Server
}

// AdapterFactory builds the adapter for one configured backend. Overridable
// in tests; the default builds the HTTP bridge adapter.
type AdapterFactory func(cfg config.BackendConfig) backend.Adapter

// defaultAdapterFactory builds the HTTP bridge adapter for a backend.
func defaultAdapterFactory(cfg config.BackendConfig) backend.Adapter {
	return backend.NewHTTPAdapter(backend.Kind(cfg.Kind), cfg.BaseURL, cfg.APIKey)
}

// New creates a gateway from configuration using the default adapter
// factory.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	return NewWithAdapters(cfg, logger, defaultAdapterFactory)
}

// NewWithAdapters creates a gateway with a custom adapter factory.
func NewWithAdapters(cfg *config.Config, logger *slog.Logger, factory AdapterFactory) (*Gateway, error) {
	tokens, err := auth.NewTokenManager([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	auditStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening audit store: %w", err)
	}

	reg := registry.New(logger)
	var adapters []backend.Adapter
	for _, bcfg := range cfg.Backends {
		adapter := factory(bcfg)

		breakerCfg := backend.BreakerConfig{
			MaxFailures: bcfg.Breaker.MaxFailures,
			OpenTimeout: bcfg.Breaker.OpenTimeout,
		}
		if breakerCfg.MaxFailures == 0 {
			breakerCfg = backend.DefaultBreakerConfig()
		}
		wrapped := backend.NewBreakerAdapter(adapter, breakerCfg, logger)
		adapters = append(adapters, wrapped)

		for _, desc := range catalog.Descriptors(backend.Kind(bcfg.Kind)) {
			if err := reg.Register(desc, wrapped); err != nil {
				auditStore.Close()
				return nil, fmt.Errorf("registering tool %q: %w", desc.Name, err)
			}
		}
	}
	reg.Freeze()

	mcpServer, err := mcp.NewServer(mcp.Config{
		Registry:           reg,
		Audit:              auditStore,
		Logger:             logger,
		ServerName:         cfg.MCP.ServerName,
		ServerVersion:      Version,
		RequestTimeout:     cfg.MCP.RequestTimeout,
		SessionIdleTimeout: cfg.MCP.SessionIdleTimeout,
	})
	if err != nil {
		auditStore.Close()
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	gw := &Gateway{
		config:     cfg,
		logger:     logger,
		tokens:     tokens,
		registry:   reg,
		adapters:   adapters,
		mcpServer:  mcpServer,
		auditStore: auditStore,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", gw.handleHealth)
	mux.HandleFunc("/readyz", gw.handleReady)

	// Auth runs before any protocol logic: unauthenticated requests get a
	// fixed 401 JSON-RPC error and never reach the session handler.
	authMiddleware := auth.Middleware(tokens, rejectUnauthenticated)
	mcpMux := http.NewServeMux()
	mcpServer.RegisterRoutes(mcpMux)
	mux.Handle("/mcp", authMiddleware(mcpMux))

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// rejectUnauthenticated writes the fixed unauthenticated response: a
// JSON-RPC error body so rejected clients still get a parseable envelope.
func rejectUnauthenticated(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"jsonrpc":"2.0","id":null,"error":{"code":%d,"message":%q}}`+"\n",
		fault.CodeUnauthorized, message)
}

// TokenManager exposes the gateway's token manager (for the issue-token
// command).
func (g *Gateway) TokenManager() *auth.TokenManager {
	return g.tokens
}

// Registry exposes the frozen tool registry.
func (g *Gateway) Registry() *registry.Registry {
	return g.registry
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails. Backends are probed first; an unhealthy backend is logged
// but does not abort startup, its circuit breaker covers it from there.
func (g *Gateway) Run(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	backend.Probe(probeCtx, g.adapters, backend.DefaultProbeConfig(), g.logger)
	cancel()

	ln, err := net.Listen("tcp", g.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.httpServer.Addr, err)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		g.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := g.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		g.logger.Info("shutting down")
		// Fresh context: groupCtx is already cancelled
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return g.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// Shutdown stops the HTTP server, session sweeper, and audit store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	g.mcpServer.Close()
	if err := g.auditStore.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing audit store: %w", err))
	}
	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the server is alive.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports readiness: every configured backend must pass a
// health check.
func (g *Gateway) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var unhealthy []string
	for _, a := range g.adapters {
		if err := a.HealthCheck(ctx); err != nil {
			unhealthy = append(unhealthy, string(a.Kind()))
		}
	}

	if len(unhealthy) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = fmt.Fprintf(w, "backends unhealthy: %v", unhealthy)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d tools, %d sessions)", g.registry.Len(), g.mcpServer.SessionCount())
}
