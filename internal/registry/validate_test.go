// ABOUTME: Tests for argument validation against tool schemas
// ABOUTME: Required fields, type mismatches, unknown fields, and fault field naming

package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackmesh/infragate/internal/backend"
	"github.com/stackmesh/infragate/internal/fault"
)

func validationRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New(testLogger())
	desc := Descriptor{
		Name:    "storage_create_dataset",
		Backend: backend.KindStorage,
		Params: []Param{
			{Name: "pool", Type: "string", Required: true},
			{Name: "name", Type: "string", Required: true},
			{Name: "quota", Type: "string"},
			{Name: "recursive", Type: "boolean"},
			{Name: "size", Type: "integer"},
		},
	}
	require.NoError(t, r.Register(desc, &stubAdapter{kind: backend.KindStorage}))

	noParams := Descriptor{Name: "storage_list_pools", Backend: backend.KindStorage}
	require.NoError(t, r.Register(noParams, &stubAdapter{kind: backend.KindStorage}))

	r.Freeze()
	return r
}

func TestValidate_ValidArguments(t *testing.T) {
	r := validationRegistry(t)

	tests := []struct {
		name string
		args string
	}{
		{"all fields", `{"pool":"tank","name":"backups","quota":"100G","recursive":true,"size":3}`},
		{"required only", `{"pool":"tank","name":"backups"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate("storage_create_dataset", json.RawMessage(tt.args))
			assert.NoError(t, err)
		})
	}
}

func TestValidate_EmptyArguments(t *testing.T) {
	r := validationRegistry(t)

	// A tool with no parameters accepts absent, null, and empty-object args
	for _, args := range []json.RawMessage{nil, json.RawMessage(`null`), json.RawMessage(`{}`)} {
		assert.NoError(t, r.Validate("storage_list_pools", args))
	}

	// Absent args on a tool with required fields fail with the field named
	err := r.Validate("storage_create_dataset", nil)
	require.Error(t, err)
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestValidate_MissingRequiredField(t *testing.T) {
	r := validationRegistry(t)

	err := r.Validate("storage_create_dataset", json.RawMessage(`{"pool":"tank"}`))
	require.Error(t, err)
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
	assert.Contains(t, err.Error(), "name")
}

func TestValidate_WrongType(t *testing.T) {
	r := validationRegistry(t)

	err := r.Validate("storage_create_dataset", json.RawMessage(`{"pool":"tank","name":"backups","recursive":"yes"}`))
	require.Error(t, err)
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
	assert.Contains(t, err.Error(), "recursive")
}

func TestValidate_UnknownField(t *testing.T) {
	r := validationRegistry(t)

	err := r.Validate("storage_create_dataset", json.RawMessage(`{"pool":"tank","name":"backups","compression":"lz4"}`))
	require.Error(t, err)
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
	assert.Contains(t, err.Error(), "compression")
}

func TestValidate_MalformedJSON(t *testing.T) {
	r := validationRegistry(t)

	err := r.Validate("storage_create_dataset", json.RawMessage(`{"pool":`))
	require.Error(t, err)
	assert.Equal(t, fault.KindValidation, fault.KindOf(err))
}

func TestValidate_UnknownTool(t *testing.T) {
	r := validationRegistry(t)

	err := r.Validate("no_such_tool", json.RawMessage(`{}`))
	require.Error(t, err)
	assert.Equal(t, fault.KindNotFound, fault.KindOf(err))
}
