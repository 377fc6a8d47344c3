// Package store provides SQLite persistence for the invocation audit log.
//
// Every tool invocation is recorded with its session, request id, caller
// identity, outcome, and duration. Fault detail is stored unsanitized
// here so the wire response can stay generic without losing the
// information an operator needs to debug a backend failure.
package store
