package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rpggio/saraban/internal/domain/document"
)

// SearchRepository implements document.SearchRepository for SQLite
type SearchRepository struct {
	db *DB
}

// NewSearchRepository creates a new SearchRepository
func NewSearchRepository(db *DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Search performs a full-text search over titles, registry numbers and
// origin metadata.
func (r *SearchRepository) Search(ctx context.Context, tenantID, query string, opts document.SearchOptions) ([]document.SearchResult, error) {
	baseQuery := `
		SELECT
			d.id, d.category, d.title, d.status, d.stage_index,
			d.current_approver_id, d.registry_number, d.scope_key, d.modified_at,
			(SELECT COUNT(*) FROM endorsements e WHERE e.document_id = d.id) AS endorsement_count,
			bm25(documents_fts) AS rank,
			snippet(documents_fts, 0, '[', ']', '…', 8) AS snippet
		FROM documents_fts
		JOIN documents d ON d.rowid = documents_fts.rowid
		WHERE d.tenant_id = ? AND documents_fts MATCH ?
	`

	args := []any{tenantID, query}
	conditions := []string{}

	if len(opts.Categories) > 0 {
		conditions = append(conditions, fmt.Sprintf("d.category IN (%s)", placeholders(len(opts.Categories))))
		for _, category := range opts.Categories {
			args = append(args, category)
		}
	}

	if len(opts.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("d.status IN (%s)", placeholders(len(opts.Statuses))))
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}

	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY rank"
	baseQuery, args = paginate(baseQuery, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	results := []document.SearchResult{}
	for rows.Next() {
		var result document.SearchResult
		var approver, number sql.NullString
		err := rows.Scan(
			&result.Document.ID,
			&result.Document.Category,
			&result.Document.Title,
			&result.Document.Status,
			&result.Document.StageIndex,
			&approver,
			&number,
			&result.Document.ScopeKey,
			&result.Document.ModifiedAt,
			&result.Document.EndorsementCount,
			&result.Rank,
			&result.Snippet,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		result.Document.CurrentApproverID = nullString(approver)
		result.Document.RegistryNumber = nullString(number)
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	return results, nil
}
