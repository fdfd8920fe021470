package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/saraban/internal/repository"
)

// ErrAppendOnly is reported when a statement tries to rewrite the ledger.
var ErrAppendOnly = errors.New("endorsements are append-only")

// storeError maps SQLite constraint failures onto repository errors. Other
// failures are wrapped with op.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return repository.ErrDuplicate
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return repository.ErrForeignKeyViolation
	case strings.Contains(msg, ErrAppendOnly.Error()):
		return fmt.Errorf("%s: %w", op, ErrAppendOnly)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
