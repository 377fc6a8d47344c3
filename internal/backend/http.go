// ABOUTME: Generic HTTP bridge adapter posting tool invocations to a backend connector
// ABOUTME: Vendor semantics live on the other side; this side only moves JSON and maps faults

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stackmesh/infragate/internal/fault"
)

// maxResponseBody caps how much backend output the gateway will buffer.
const maxResponseBody = 4 << 20

// HTTPAdapter invokes tools against a backend connector over HTTP. The
// connector (vendor client) receives POST {tool, arguments} on /invoke
// and answers with the operation's JSON output; GET /health reports
// liveness. Connection failures normalize to backend-unreachable faults,
// non-2xx answers to backend-error faults with the body kept as log-only
// detail.
type HTTPAdapter struct {
	kind    Kind
	baseURL string
	apiKey  string
	client  *http.Client
}

// invokeRequest is the wire shape sent to the connector.
type invokeRequest struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewHTTPAdapter creates an adapter for one backend connector.
func NewHTTPAdapter(kind Kind, baseURL, apiKey string) *HTTPAdapter {
	return &HTTPAdapter{
		kind:    kind,
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			// Transport-level ceiling; the per-request deadline comes from ctx
			Timeout: 2 * time.Minute,
		},
	}
}

// Kind returns the backend kind this adapter serves.
func (a *HTTPAdapter) Kind() Kind {
	return a.kind
}

// Invoke posts the tool invocation to the connector and returns its output.
func (a *HTTPAdapter) Invoke(ctx context.Context, toolName string, arguments json.RawMessage) (*Result, error) {
	payload, err := json.Marshal(invokeRequest{Tool: toolName, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("encoding invoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/invoke", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fault.Newf(fault.KindTimeout, "backend %q did not respond in time", a.kind).
				WithDetail(err.Error())
		}
		return nil, fault.Newf(fault.KindBackendUnreachable, "backend %q is unreachable", a.kind).
			WithDetail(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fault.Newf(fault.KindBackendUnreachable, "reading backend %q response failed", a.kind).
			WithDetail(err.Error())
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fault.Newf(fault.KindBackendError, "backend %q rejected the operation (status %d)", a.kind, resp.StatusCode).
			WithDetail(string(body))
	}

	return &Result{Output: body}, nil
}

// HealthCheck probes the connector's health endpoint.
func (a *HTTPAdapter) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fault.Newf(fault.KindBackendUnreachable, "backend %q is unreachable", a.kind).
			WithDetail(err.Error())
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	if resp.StatusCode != http.StatusOK {
		return fault.Newf(fault.KindBackendError, "backend %q health check failed (status %d)", a.kind, resp.StatusCode)
	}
	return nil
}
