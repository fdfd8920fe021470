package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/saraban/internal/repository"
)

// APIKeyRepository maps bearer tokens to tenants. Only token hashes are stored.
type APIKeyRepository struct {
	db *DB
}

func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Add registers token for tenantID, replacing any previous mapping.
func (r *APIKeyRepository) Add(ctx context.Context, token, tenantID, description string) error {
	if token == "" || tenantID == "" {
		return repository.ErrInvalidInput
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, tenant_id, created_at, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key_hash) DO UPDATE SET tenant_id = excluded.tenant_id, description = excluded.description
	`, HashToken(token), tenantID, time.Now().UTC(), description)
	if err != nil {
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveTenant returns the tenant owning token and records its use.
func (r *APIKeyRepository) ResolveTenant(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)

	var tenantID string
	err := r.db.QueryRowContext(ctx, `SELECT tenant_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&tenantID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return tenantID, nil
}

// HashToken returns the hex SHA-256 of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
