// Package fault defines the normalized fault taxonomy shared by the
// registry, session handler, and gateway server, together with the fixed
// mapping from fault kinds to JSON-RPC error codes and HTTP statuses.
//
// Every error that crosses the gateway boundary is converted to a Fault
// first. The Message field is the only part that reaches the wire; Detail
// carries backend output that may contain secrets and is restricted to
// logs and the audit store.
package fault
