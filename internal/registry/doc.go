// Package registry holds the tool catalog: the mapping from tool names to
// descriptors, compiled input schemas, and target backend adapters.
//
// # Lifecycle
//
// The registry is built once at process start from the static catalog and
// then frozen:
//
//	reg := registry.New(logger)
//	for _, desc := range catalog.Descriptors(kind) {
//	    reg.Register(desc, adapter)
//	}
//	reg.Freeze()
//
// After Freeze the registry is immutable and shared read-only across all
// sessions; the request path reads it without locks.
//
// # Validation
//
// Each descriptor's parameter table compiles to a JSON Schema with
// additionalProperties:false. Validate rejects missing required fields,
// mistyped values, and unknown fields, naming the offending field, so bad
// arguments never reach a backend.
package registry
