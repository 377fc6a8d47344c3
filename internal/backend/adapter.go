// ABOUTME: Adapter contracts for the infrastructure backends behind the gateway
// ABOUTME: Vendor HTTP clients implement Adapter; the gateway only sees this interface

package backend

import (
	"context"
	"encoding/json"
)

// Kind identifies the class of infrastructure backend an adapter talks to.
// Tool names are namespaced by kind (e.g. "storage_list_pools").
type Kind string

const (
	KindStorage    Kind = "storage"
	KindFirewall   Kind = "firewall"
	KindBMC        Kind = "bmc"
	KindHypervisor Kind = "hypervisor"
)

// Valid reports whether k is a known backend kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStorage, KindFirewall, KindBMC, KindHypervisor:
		return true
	}
	return false
}

// Result is the success payload of a tool invocation: an opaque structured
// value produced by the backend, serialized for the MCP text envelope.
type Result struct {
	Output json.RawMessage
}

// Text renders the result payload for the tool-call envelope.
func (r *Result) Text() string {
	if r == nil || len(r.Output) == 0 {
		return "{}"
	}
	return string(r.Output)
}

// Adapter performs the actual remote call against one backend. Exactly one
// implementation exists per backend kind; all of them live outside the
// gateway core. Invoke returns either a result or an error that converts
// to a normalized fault, never both.
type Adapter interface {
	// Kind returns the backend kind this adapter serves.
	Kind() Kind

	// Invoke executes the named tool against the backend. The context
	// carries the gateway's per-request deadline; an expired context means
	// the call is abandoned, not that the backend side-effect did not
	// happen (at-most-once, not exactly-once).
	Invoke(ctx context.Context, toolName string, arguments json.RawMessage) (*Result, error)

	// HealthCheck probes the backend. Used at startup and by readiness
	// checks, never on the tool-call hot path.
	HealthCheck(ctx context.Context) error
}
