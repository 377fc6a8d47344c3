// ABOUTME: Invocation audit log entities and store methods
// ABOUTME: Records who called which tool, the outcome, and the unsanitized fault detail

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Invocation is one audited tool invocation. Detail holds the raw fault
// text including anything too sensitive for the wire; it exists precisely
// so the wire response can stay generic.
type Invocation struct {
	ID        string
	SessionID string
	RequestID string
	Identity  string
	Tool      string
	Backend   string
	FaultKind string // empty for successful invocations
	Message   string
	Detail    string
	Duration  time.Duration
	CreatedAt time.Time
}

// RecordInvocation inserts one audit row. The ID is assigned here.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, inv *Invocation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocations (id, session_id, request_id, identity, tool, backend, fault_kind, message, detail, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.SessionID, inv.RequestID, inv.Identity, inv.Tool, inv.Backend,
		inv.FaultKind, inv.Message, inv.Detail, inv.Duration.Milliseconds(), inv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting invocation: %w", err)
	}
	return nil
}

// ListInvocations returns the most recent invocations, newest first.
func (s *SQLiteStore) ListInvocations(ctx context.Context, limit int) ([]*Invocation, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, request_id, identity, tool, backend, fault_kind, message, detail, duration_ms, created_at
		FROM invocations ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying invocations: %w", err)
	}
	defer rows.Close()

	var result []*Invocation
	for rows.Next() {
		inv := &Invocation{}
		var durationMS int64
		if err := rows.Scan(&inv.ID, &inv.SessionID, &inv.RequestID, &inv.Identity,
			&inv.Tool, &inv.Backend, &inv.FaultKind, &inv.Message, &inv.Detail,
			&durationMS, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning invocation: %w", err)
		}
		inv.Duration = time.Duration(durationMS) * time.Millisecond
		result = append(result, inv)
	}
	return result, rows.Err()
}

// CountInvocations returns the number of audited invocations, optionally
// restricted to one fault kind ("" counts everything).
func (s *SQLiteStore) CountInvocations(ctx context.Context, faultKind string) (int, error) {
	var count int
	var err error
	if faultKind == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invocations`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invocations WHERE fault_kind = ?`, faultKind).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting invocations: %w", err)
	}
	return count, nil
}
