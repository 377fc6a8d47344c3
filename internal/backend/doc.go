// Package backend defines the adapter contract between the gateway core
// and the per-vendor infrastructure clients (storage appliance, firewall,
// server BMC, hypervisor).
//
// The gateway never talks to a vendor API directly. Each backend kind has
// exactly one Adapter implementation, registered at startup and resolved
// through the tool registry. Adapters return either a Result or an error
// that normalizes to a fault; the gateway wraps them with a circuit
// breaker (BreakerAdapter) and probes them once at boot (Probe).
//
// The gateway does not retry failed invocations. A timeout abandons the
// wait for the adapter, not the backend side-effect: delivery is
// at-most-once.
package backend
