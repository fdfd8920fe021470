package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/repository"
)

// BlobRepository implements document.BlobStore for SQLite. Blobs are content
// addressed, so storing the same payload twice returns the same reference.
type BlobRepository struct {
	db *DB
}

// NewBlobRepository creates a new BlobRepository
func NewBlobRepository(db *DB) *BlobRepository {
	return &BlobRepository{db: db}
}

// Put stores a payload and returns its reference.
func (r *BlobRepository) Put(ctx context.Context, tenantID string, blob document.Blob) (string, error) {
	if len(blob.Data) == 0 {
		return "", repository.ErrInvalidInput
	}
	sum := sha256.Sum256(blob.Data)
	ref := "sha256:" + hex.EncodeToString(sum[:])

	_, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO blobs (tenant_id, ref, kind, content_type, size, data)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tenantID, ref, blob.Kind, blob.ContentType, len(blob.Data), blob.Data)
	if err != nil {
		return "", fmt.Errorf("failed to store blob: %w", err)
	}
	return ref, nil
}

// Get returns a stored payload.
func (r *BlobRepository) Get(ctx context.Context, tenantID, ref string) (*document.Blob, error) {
	var blob document.Blob
	err := r.db.QueryRowContext(ctx, `
		SELECT kind, content_type, data FROM blobs WHERE tenant_id = ? AND ref = ?
	`, tenantID, ref).Scan(&blob.Kind, &blob.ContentType, &blob.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blob: %w", err)
	}
	return &blob, nil
}
