// ABOUTME: Normalized fault taxonomy for everything that crosses the gateway boundary.
// ABOUTME: Maps fault kinds to JSON-RPC error codes and HTTP status codes.

package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a fault for wire mapping and logging.
type Kind string

const (
	// KindProtocol covers malformed or out-of-sequence MCP calls. Client bug,
	// never retried.
	KindProtocol Kind = "protocol"
	// KindAuth covers expired or invalid tokens.
	KindAuth Kind = "auth"
	// KindValidation covers bad tool arguments. Never forwarded to a backend.
	KindValidation Kind = "validation"
	// KindNotFound covers unknown tool names.
	KindNotFound Kind = "not_found"
	// KindBackendUnreachable covers network failures talking to a backend.
	// The caller may retry; the gateway never does.
	KindBackendUnreachable Kind = "backend_unreachable"
	// KindBackendError covers operations the backend rejected.
	KindBackendError Kind = "backend_error"
	// KindTimeout covers the gateway-enforced call deadline.
	KindTimeout Kind = "timeout"
	// KindInternal covers unexpected failures. Surfaced generically,
	// details logged, never returned.
	KindInternal Kind = "internal"
	// KindConfig covers startup misconfiguration (missing signing key,
	// duplicate tool names). Never reaches the wire.
	KindConfig Kind = "config"
)

// Standard JSON-RPC 2.0 error codes plus the -32000 server range used
// for auth and backend faults.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeUnauthorized       = -32000
	CodeBackendUnreachable = -32001
	CodeBackendError       = -32002
	CodeTimeout            = -32003
)

// Fault is the single error currency inside the gateway core. Message is
// safe to put on the wire; Detail may carry backend output or credentials
// and is only ever logged or written to the audit store.
type Fault struct {
	Kind    Kind
	Message string
	Detail  string
}

func (f *Fault) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Message, f.Detail)
}

// New creates a fault with a wire-safe message.
func New(kind Kind, message string) *Fault {
	return &Fault{Kind: kind, Message: message}
}

// Newf creates a fault with a formatted wire-safe message.
func Newf(kind Kind, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches log-only detail to a fault.
func (f *Fault) WithDetail(detail string) *Fault {
	f.Detail = detail
	return f
}

// From converts any error into a fault. Faults pass through unchanged;
// everything else becomes an internal fault with the original error text
// kept as log-only detail.
func From(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{
		Kind:    KindInternal,
		Message: "internal error",
		Detail:  err.Error(),
	}
}

// KindOf returns the fault kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	return From(err).Kind
}

// JSONRPCCode returns the JSON-RPC error code for a fault kind. The
// mapping is fixed; changing it changes the wire contract.
func (k Kind) JSONRPCCode() int {
	switch k {
	case KindProtocol:
		return CodeInvalidRequest
	case KindAuth:
		return CodeUnauthorized
	case KindValidation:
		return CodeInvalidParams
	case KindNotFound:
		return CodeMethodNotFound
	case KindBackendUnreachable:
		return CodeBackendUnreachable
	case KindBackendError:
		return CodeBackendError
	case KindTimeout:
		return CodeTimeout
	default:
		return CodeInternalError
	}
}

// HTTPStatus returns the transport status for a fault kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindAuth:
		return http.StatusUnauthorized
	case KindProtocol, KindValidation, KindNotFound:
		return http.StatusBadRequest
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindBackendUnreachable, KindBackendError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
