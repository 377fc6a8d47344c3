// ABOUTME: Immutable tool registry mapping tool names to descriptors and adapters
// ABOUTME: Built once at startup, frozen, then read concurrently without locks

package registry

import (
	"encoding/json"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/stackmesh/infragate/internal/backend"
	"github.com/stackmesh/infragate/internal/fault"
)

// Param describes one named input parameter of a tool.
type Param struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"` // string, integer, number, boolean, array, object
	Required    bool   `yaml:"required"`
	Description string `yaml:"description"`
}

// Descriptor is an immutable catalog entry for one tool. Name is unique
// across the registry and namespaced by backend kind (e.g.
// "storage_list_pools").
type Descriptor struct {
	Name        string
	Description string
	Backend     backend.Kind
	Params      []Param
}

// InputSchemaJSON renders the parameter table as a JSON Schema document.
// Unknown properties are rejected so argument typos never reach a backend.
func (d *Descriptor) InputSchemaJSON() (json.RawMessage, error) {
	properties := make(map[string]any, len(d.Params))
	var required []string
	for _, p := range d.Params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}

	return json.Marshal(schema)
}

// entry pairs a descriptor with its compiled schema and target adapter.
type entry struct {
	descriptor Descriptor
	schemaJSON json.RawMessage
	schema     *gojsonschema.Schema
	adapter    backend.Adapter
}

// Registry holds the tool catalog. Register during startup, then call
// Freeze; after that the registry is read-only and safe for
// unsynchronized concurrent reads on the request path.
type Registry struct {
	order   []string
	entries map[string]*entry
	frozen  bool
	logger  *slog.Logger
}

// New creates an empty registry.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		logger:  logger,
	}
}

// Register adds a tool descriptor bound to its target adapter. Returns a
// config fault on duplicate names, schema problems, or registration after
// Freeze.
func (r *Registry) Register(desc Descriptor, adapter backend.Adapter) error {
	if r.frozen {
		return fault.New(fault.KindConfig, "registry is frozen")
	}
	if desc.Name == "" {
		return fault.New(fault.KindConfig, "tool name is required")
	}
	if adapter == nil {
		return fault.Newf(fault.KindConfig, "tool %q has no adapter", desc.Name)
	}
	if _, exists := r.entries[desc.Name]; exists {
		return fault.Newf(fault.KindConfig, "duplicate tool name %q", desc.Name)
	}
	for _, p := range desc.Params {
		if !validParamType(p.Type) {
			return fault.Newf(fault.KindConfig, "tool %q parameter %q has unknown type %q", desc.Name, p.Name, p.Type)
		}
	}

	schemaJSON, err := desc.InputSchemaJSON()
	if err != nil {
		return fault.Newf(fault.KindConfig, "tool %q schema: %v", desc.Name, err)
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	if err != nil {
		return fault.Newf(fault.KindConfig, "tool %q schema compile: %v", desc.Name, err)
	}

	r.entries[desc.Name] = &entry{
		descriptor: desc,
		schemaJSON: schemaJSON,
		schema:     schema,
		adapter:    adapter,
	}
	r.order = append(r.order, desc.Name)

	r.logger.Debug("tool registered", "tool", desc.Name, "backend", desc.Backend)
	return nil
}

// Freeze marks the registry read-only. Called once after startup
// registration completes.
func (r *Registry) Freeze() {
	r.frozen = true
	r.logger.Info("tool registry frozen", "tool_count", len(r.order))
}

// List returns all descriptors in registration order. The order is stable
// across calls. Params slices are copied so callers cannot mutate the
// frozen catalog through a returned descriptor.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		d := r.entries[name].descriptor
		d.Params = append([]Param(nil), d.Params...)
		out = append(out, d)
	}
	return out
}

// SchemaJSON returns the rendered input schema for a registered tool.
func (r *Registry) SchemaJSON(name string) (json.RawMessage, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, fault.Newf(fault.KindNotFound, "unknown tool %q", name)
	}
	return e.schemaJSON, nil
}

// Resolve returns the descriptor and adapter for a tool name.
func (r *Registry) Resolve(name string) (Descriptor, backend.Adapter, error) {
	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, nil, fault.Newf(fault.KindNotFound, "unknown tool %q", name)
	}
	return e.descriptor, e.adapter, nil
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.order)
}

func validParamType(t string) bool {
	switch t {
	case "string", "integer", "number", "boolean", "array", "object":
		return true
	}
	return false
}
