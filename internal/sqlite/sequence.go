package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/repository"
)

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SequenceRepository implements registry.SequenceStore for SQLite
type SequenceRepository struct {
	db *DB
}

// NewSequenceRepository creates a new SequenceRepository
func NewSequenceRepository(db *DB) *SequenceRepository {
	return &SequenceRepository{db: db}
}

// Next atomically increments the counter for key and returns the new value.
// The row is created on first use. A counter already at limit is left
// untouched and repository.ErrExhausted is returned.
func (r *SequenceRepository) Next(ctx context.Context, tenantID string, key registry.Key, limit int64) (int64, error) {
	return nextSequence(ctx, r.db, tenantID, key, limit)
}

// Peek returns the last issued value, zero when the counter does not exist.
func (r *SequenceRepository) Peek(ctx context.Context, tenantID string, key registry.Key) (int64, error) {
	query := `
		SELECT last_value
		FROM registry_sequences
		WHERE tenant_id = ? AND category = ? AND scope_key = ?
	`

	var value int64
	err := r.db.QueryRowContext(ctx, query, tenantID, key.Category, key.ScopeKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read sequence: %w", err)
	}
	return value, nil
}

// Release steps the counter back to value-1 if value is still the last
// issued value.
func (r *SequenceRepository) Release(ctx context.Context, tenantID string, key registry.Key, value int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE registry_sequences
		SET last_value = last_value - 1
		WHERE tenant_id = ? AND category = ? AND scope_key = ? AND last_value = ?
	`, tenantID, key.Category, key.ScopeKey, value)
	if err != nil {
		return false, fmt.Errorf("failed to release sequence: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

// nextSequence advances the counter through q, which may be an open
// transaction.
func nextSequence(ctx context.Context, q queryRower, tenantID string, key registry.Key, limit int64) (int64, error) {
	if limit < 1 {
		return 0, repository.ErrExhausted
	}

	query := `
		INSERT INTO registry_sequences (tenant_id, category, scope_key, last_value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (tenant_id, category, scope_key)
		DO UPDATE SET last_value = last_value + 1 WHERE last_value < ?
		RETURNING last_value
	`

	var value int64
	err := q.QueryRowContext(ctx, query, tenantID, key.Category, key.ScopeKey, limit).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, repository.ErrExhausted
	}
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence: %w", err)
	}
	return value, nil
}
