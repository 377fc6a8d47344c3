// ABOUTME: MCP-compatible HTTP server implementing initialize, tools/list, tools/call
// ABOUTME: Enforces the session state machine and normalizes faults into the envelope

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackmesh/infragate/internal/auth"
	"github.com/stackmesh/infragate/internal/backend"
	"github.com/stackmesh/infragate/internal/fault"
	"github.com/stackmesh/infragate/internal/registry"
	"github.com/stackmesh/infragate/internal/store"
)

// Supported MCP protocol versions
var supportedProtocolVersions = map[string]bool{
	"2024-11-05": true,
	"2025-03-26": true,
	"2025-11-25": true,
}

// latestProtocolVersion is assumed when a client omits protocolVersion.
// A version outside the supported set is rejected, never downgraded.
const latestProtocolVersion = "2025-11-25"

// MaxRequestBodySize is the maximum allowed size for request bodies (1MB).
const MaxRequestBodySize = 1 << 20

// DefaultRequestTimeout bounds a single tools/call when unconfigured.
const DefaultRequestTimeout = 30 * time.Second

// DefaultSessionIdleTimeout is how long an inactive session survives.
const DefaultSessionIdleTimeout = 30 * time.Minute

// AuditRecorder receives the detailed record of every tool invocation,
// including fault detail that never reaches the wire.
type AuditRecorder interface {
	RecordInvocation(ctx context.Context, inv *store.Invocation) error
}

// Config holds configuration for the MCP server.
type Config struct {
	Registry           *registry.Registry
	Audit              AuditRecorder // optional
	Logger             *slog.Logger
	ServerName         string
	ServerVersion      string
	RequestTimeout     time.Duration
	SessionIdleTimeout time.Duration
}

// Server implements the MCP protocol session handler over HTTP POST.
// Authentication happens upstream in the gateway; by the time a request
// reaches this handler its identity is in the context.
type Server struct {
	registry       *registry.Registry
	audit          AuditRecorder
	logger         *slog.Logger
	serverName     string
	serverVersion  string
	requestTimeout time.Duration
	sessions       *sessionStore
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("registry is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.SessionIdleTimeout == 0 {
		cfg.SessionIdleTimeout = DefaultSessionIdleTimeout
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "infragate"
	}

	s := &Server{
		registry:       cfg.Registry,
		audit:          cfg.Audit,
		logger:         logger,
		serverName:     cfg.ServerName,
		serverVersion:  cfg.ServerVersion,
		requestTimeout: cfg.RequestTimeout,
	}
	s.sessions = newSessionStore(cfg.SessionIdleTimeout, func(id string) {
		logger.Info("MCP session expired", "session_id", id)
	})
	return s, nil
}

// Close stops the session sweeper.
func (s *Server) Close() {
	s.sessions.Close()
}

// SessionCount returns the number of live sessions (for readiness probes).
func (s *Server) SessionCount() int {
	return s.sessions.count()
}

// RegisterRoutes registers the MCP endpoint on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleMCP)
}

// handleMCP is the single MCP endpoint supporting POST and DELETE.
func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// handleDelete terminates a session. The caller must be the identity that
// created it, preventing unauthorized termination.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		http.Error(w, "Bad Request: missing Mcp-Session-Id", http.StatusBadRequest)
		return
	}

	sess, ok := s.sessions.get(sessionID)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if sess.ownerIdentity != "" && sess.ownerIdentity != auth.IdentityFromContext(r.Context()) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	s.sessions.delete(sessionID)
	s.logger.Info("MCP session terminated", "session_id", sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handlePost processes JSON-RPC messages sent via HTTP POST.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		s.sendError(w, nil, fault.CodeParseError, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		s.sendError(w, nil, fault.CodeInvalidRequest, http.StatusBadRequest, "request body too large")
		return
	}

	var req JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.sendError(w, nil, fault.CodeParseError, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.JSONRPC != "2.0" {
		s.sendError(w, req.ID, fault.CodeInvalidRequest, http.StatusBadRequest, "invalid JSON-RPC version")
		return
	}

	isNotification := len(req.ID) == 0 || string(req.ID) == "null"

	s.logger.Debug("MCP request",
		"method", req.Method,
		"is_notification", isNotification,
		"identity", auth.IdentityFromContext(r.Context()),
	)

	// Notifications get HTTP 202 with no body
	if isNotification {
		if !strings.HasPrefix(req.Method, "notifications/") {
			s.logger.Warn("received notification for non-notification method", "method", req.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		return
	}

	switch req.Method {
	case "initialize":
		s.handleInitialize(w, r, req)
	case "tools/list":
		s.handleToolsList(w, r, req)
	case "tools/call":
		s.handleToolsCall(w, r, req)
	default:
		s.sendError(w, req.ID, fault.CodeMethodNotFound, http.StatusBadRequest, "method not found")
	}
}

// handleInitialize negotiates the protocol version and creates a session.
// A second initialize carrying an existing session id is a protocol error:
// idempotence is deliberately not offered, so client bugs surface early.
func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	if sessionID := r.Header.Get("Mcp-Session-Id"); sessionID != "" {
		if _, ok := s.sessions.get(sessionID); ok {
			s.sendFault(w, req.ID, fault.New(fault.KindProtocol, "session already initialized"))
			return
		}
	}

	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(w, req.ID, fault.CodeInvalidParams, http.StatusBadRequest, "invalid params")
			return
		}
	}

	version := params.ProtocolVersion
	if version == "" {
		version = latestProtocolVersion
	}
	if !supportedProtocolVersions[version] {
		s.sendFault(w, req.ID, fault.Newf(fault.KindProtocol,
			"unsupported protocol version %q", params.ProtocolVersion))
		return
	}

	sess := s.sessions.create(version, params.Capabilities, params.ClientInfo, auth.IdentityFromContext(r.Context()))

	s.logger.Info("MCP session created",
		"session_id", sess.id,
		"protocol_version", sess.protocolVersion,
		"client", params.ClientInfo.Name,
	)

	w.Header().Set("Mcp-Session-Id", sess.id)

	s.sendResult(w, req.ID, InitializeResult{
		ProtocolVersion: version,
		Capabilities: map[string]any{
			"tools": map[string]any{},
		},
		ServerInfo: ServerInfo{
			Name:    s.serverName,
			Version: s.serverVersion,
		},
	})
}

// requireSession resolves the request's session, enforcing the state
// machine: tools/* before initialize is a protocol error.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request, id json.RawMessage) (*Session, bool) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		s.sendFault(w, id, fault.New(fault.KindProtocol, "session not initialized"))
		return nil, false
	}
	sess, ok := s.sessions.get(sessionID)
	if !ok || !sess.initialized() {
		s.sendFault(w, id, fault.New(fault.KindProtocol, "session not initialized"))
		return nil, false
	}
	return sess, true
}

// handleToolsList returns the full catalog in registration order. No
// pagination: the catalog is tens of entries at most.
func (s *Server) handleToolsList(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	if _, ok := s.requireSession(w, r, req.ID); !ok {
		return
	}

	descriptors := s.registry.List()
	result := ListToolsResult{
		Tools: make([]ToolInfo, 0, len(descriptors)),
	}
	for _, d := range descriptors {
		schemaJSON, err := s.registry.SchemaJSON(d.Name)
		if err != nil {
			s.logger.Error("missing schema for registered tool", "tool", d.Name, "error", err)
			continue
		}
		result.Tools = append(result.Tools, ToolInfo{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: schemaJSON,
		})
	}

	s.logger.Debug("tools/list", "count", len(result.Tools))
	s.sendResult(w, req.ID, result)
}

// handleToolsCall resolves, validates, and dispatches one tool invocation.
//
// Fault routing: unknown tools and bad arguments never reach an adapter
// and come back as JSON-RPC errors; faults from the invocation itself
// (backend unreachable, backend error, timeout) come back inside the
// tool-call envelope with isError set, keeping the envelope shape
// identical to the success case.
func (s *Server) handleToolsCall(w http.ResponseWriter, r *http.Request, req JSONRPCRequest) {
	sess, ok := s.requireSession(w, r, req.ID)
	if !ok {
		return
	}

	var params CallToolParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			s.sendError(w, req.ID, fault.CodeInvalidParams, http.StatusBadRequest, "invalid params")
			return
		}
	}
	if params.Name == "" {
		s.sendError(w, req.ID, fault.CodeInvalidParams, http.StatusBadRequest, "tool name is required")
		return
	}

	// Request ID for adapter correlation and the audit trail; distinct from
	// the JSON-RPC id, which belongs to the client.
	requestID := uuid.New().String()

	desc, adapter, err := s.registry.Resolve(params.Name)
	if err != nil {
		s.sendFault(w, req.ID, fault.From(err))
		return
	}

	if err := s.registry.Validate(params.Name, params.Arguments); err != nil {
		s.sendFault(w, req.ID, fault.From(err))
		return
	}

	sess.beginCall()
	defer sess.endCall()

	s.logger.Debug("tools/call",
		"tool", params.Name,
		"request_id", requestID,
		"session_id", sess.id,
	)

	args := params.Arguments
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage(`{}`)
	}

	// The timeout bounds the response, not the backend side-effect:
	// at-most-once delivery, the adapter is told to stop via ctx.
	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	type invokeOutcome struct {
		result *backend.Result
		err    error
	}
	outcome := make(chan invokeOutcome, 1)
	start := time.Now()
	go func() {
		result, err := adapter.Invoke(ctx, params.Name, args)
		outcome <- invokeOutcome{result, err}
	}()

	// Wait for the adapter or the deadline, whichever comes first. An
	// adapter that ignores ctx cannot hold the response past the deadline;
	// its late result is discarded.
	var envelope CallToolResult
	var f *fault.Fault
	select {
	case out := <-outcome:
		if out.err == nil {
			envelope = textResult(out.result.Text(), false)
		} else {
			f = s.normalizeInvokeError(ctx, out.err)
			envelope = textResult(f.Message, true)
		}
	case <-ctx.Done():
		f = s.normalizeInvokeError(ctx, ctx.Err())
		envelope = textResult(f.Message, true)
	}
	elapsed := time.Since(start)

	s.recordInvocation(sess, requestID, desc, f, elapsed, r)

	s.logger.Debug("tools/call complete",
		"tool", params.Name,
		"request_id", requestID,
		"is_error", envelope.IsError,
		"duration", elapsed,
	)

	s.sendResult(w, req.ID, envelope)
}

// normalizeInvokeError maps an adapter error to the fault taxonomy. The
// gateway deadline shows up as a timeout fault; everything unrecognized
// becomes a generic internal fault so raw backend text never leaks.
func (s *Server) normalizeInvokeError(ctx context.Context, err error) *fault.Fault {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fault.New(fault.KindTimeout, "tool execution timed out").WithDetail(err.Error())
	case errors.Is(err, context.Canceled):
		return fault.New(fault.KindInternal, "request cancelled").WithDetail(err.Error())
	}

	f := fault.From(err)
	switch f.Kind {
	case fault.KindBackendUnreachable, fault.KindBackendError, fault.KindTimeout:
		return f
	default:
		// Unexpected adapter failure: keep the original text for the audit
		// log, surface nothing specific.
		return fault.New(fault.KindInternal, "tool execution failed").WithDetail(err.Error())
	}
}

// recordInvocation writes the audit row. Failures to audit are logged,
// never surfaced: the client's response does not depend on the audit store.
func (s *Server) recordInvocation(sess *Session, requestID string, desc registry.Descriptor, f *fault.Fault, elapsed time.Duration, r *http.Request) {
	if s.audit == nil {
		if f != nil {
			s.logger.Warn("tool invocation failed",
				"tool", desc.Name,
				"request_id", requestID,
				"fault_kind", f.Kind,
				"detail", f.Detail,
			)
		}
		return
	}

	inv := &store.Invocation{
		SessionID: sess.id,
		RequestID: requestID,
		Identity:  auth.IdentityFromContext(r.Context()),
		Tool:      desc.Name,
		Backend:   string(desc.Backend),
		Duration:  elapsed,
	}
	if f != nil {
		inv.FaultKind = string(f.Kind)
		inv.Message = f.Message
		inv.Detail = f.Detail
	}

	// Fresh context: the request context may already be past its deadline.
	auditCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.audit.RecordInvocation(auditCtx, inv); err != nil {
		s.logger.Error("recording invocation audit", "error", err, "request_id", requestID)
	}
}

// sendResult sends a successful JSON-RPC response.
func (s *Server) sendResult(w http.ResponseWriter, id json.RawMessage, result any) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Result:  result,
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC response", "error", err)
	}
}

// sendFault sends a JSON-RPC error derived from a fault, using the fixed
// kind -> code/status table.
func (s *Server) sendFault(w http.ResponseWriter, id json.RawMessage, f *fault.Fault) {
	s.sendError(w, id, f.Kind.JSONRPCCode(), f.Kind.HTTPStatus(), f.Message)
}

// sendError sends a JSON-RPC error response.
func (s *Server) sendError(w http.ResponseWriter, id json.RawMessage, code, status int, message string) {
	resp := JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to encode JSON-RPC error response", "error", err)
	}
}
