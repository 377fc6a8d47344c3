// Package gateway wires the infragate components together and owns the
// HTTP server lifecycle: bearer auth in front of the MCP endpoint, the
// frozen tool registry built from the catalog and configured backends,
// circuit-broken adapters, boot-time health probes, and the invocation
// audit store.
package gateway
