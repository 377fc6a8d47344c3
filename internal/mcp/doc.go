// Package mcp implements the Model Context Protocol session handler for
// the gateway: the three request kinds (initialize, tools/list,
// tools/call) over JSON-RPC 2.0, the session state machine, and the
// normalization of faults into the tool-call envelope.
//
// # Protocol
//
// Requests arrive as JSON-RPC 2.0 over HTTP POST, one exchange per call:
//
//	{"jsonrpc":"2.0","id":1,"method":"initialize",
//	 "params":{"protocolVersion":"2024-11-05","capabilities":{},
//	           "clientInfo":{"name":"client","version":"1.0"}}}
//
// initialize negotiates the protocol version and returns a session id in
// the Mcp-Session-Id header; subsequent requests carry the same header.
// Calling tools/list or tools/call without an initialized session is a
// protocol error, and initialize on an existing session is too:
// idempotent initialize is deliberately not offered so client bugs
// surface instead of being papered over.
//
// # Tool calls
//
// tools/call resolves the tool in the registry, validates arguments
// against the tool's schema, and invokes the backend adapter under the
// configured per-request deadline. The result - success or fault - is
// wrapped in the envelope every client depends on:
//
//	{"content":[{"type":"text","text":"..."}],"isError":false}
//
// The envelope shape is identical for success and failure; only isError
// and the text differ. Unknown tools and invalid arguments are rejected
// before dispatch as JSON-RPC errors (-32601 and -32602). Backend fault
// detail goes to the audit recorder and the log, never to the wire.
//
// # Sessions
//
// Sessions live in memory and are garbage-collected after the configured
// inactivity timeout; a session with calls in flight is never collected.
// Multiple tools/call invocations may run concurrently on one session,
// each response tagged with its own request id.
package mcp
