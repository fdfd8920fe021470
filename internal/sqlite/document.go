package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/saraban/internal/domain/document"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/repository"
)

const documentColumns = `
	id, tenant_id, category, title, origin_meta, attachment_ref,
	status, stage_index, current_approver_id, registry_number, scope_key,
	created_by, created_at, modified_at, version
`

var endorsementFields = []string{
	"id", "document_id", "seq", "stage_index", "stage_role", "signer_id", "signer_name",
	"signer_position", "decision", "comment", "signature_ref", "placement_x",
	"placement_y", "placement_scale", "delegate_target_id", "idempotency_key",
	"created_at", "prev_hash", "hash",
}

type scanner interface {
	Scan(dest ...any) error
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// DocumentRepository implements document.DocumentRepository for SQLite
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new DocumentRepository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a document with its recipients and any endorsements.
func (r *DocumentRepository) Create(ctx context.Context, tenantID string, doc *document.Document) error {
	return r.create(ctx, tenantID, doc, nil)
}

// CreateNumbered inserts a document and issues its registry number from plan
// in the same transaction. doc.RegistryNumber is set only once the
// transaction committed.
func (r *DocumentRepository) CreateNumbered(ctx context.Context, tenantID string, doc *document.Document, plan registry.Plan) error {
	return r.create(ctx, tenantID, doc, &plan)
}

func (r *DocumentRepository) create(ctx context.Context, tenantID string, doc *document.Document, plan *registry.Plan) error {
	meta, err := encodeMeta(doc.OriginMeta)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	number, err := issueNumber(ctx, tx, tenantID, doc, plan)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		doc.ID,
		tenantID,
		doc.Category,
		doc.Title,
		meta,
		doc.AttachmentRef,
		doc.Status,
		doc.StageIndex,
		doc.CurrentApproverID,
		number,
		doc.ScopeKey,
		doc.CreatedBy,
		doc.CreatedAt,
		doc.ModifiedAt,
		doc.Version,
	)
	if err != nil {
		return storeError("failed to create document", err)
	}

	if err := insertEndorsements(ctx, tx, doc.ID, doc.Endorsements); err != nil {
		return err
	}
	if err := insertRecipients(ctx, tx, doc.ID, doc.Recipients); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	doc.TenantID = tenantID
	doc.RegistryNumber = number
	return nil
}

// Get retrieves a document with its recipients and ledger.
func (r *DocumentRepository) Get(ctx context.Context, tenantID, id string) (*document.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ? AND tenant_id = ?`, id, tenantID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	recipients, err := r.loadRecipients(ctx, `WHERE r.document_id = ?`, id)
	if err != nil {
		return nil, err
	}
	doc.Recipients = append(doc.Recipients, recipients[id]...)

	ledgers, err := r.loadEndorsements(ctx, `WHERE e.document_id = ?`, id)
	if err != nil {
		return nil, err
	}
	doc.Endorsements = append(doc.Endorsements, ledgers[id]...)

	return doc, nil
}

// Commit stores a transition with optimistic concurrency control. The
// document row, new endorsements and new recipients are written in one
// transaction.
func (r *DocumentRepository) Commit(ctx context.Context, tenantID string, doc *document.Document, expectedVersion int64) error {
	return r.commit(ctx, tenantID, doc, expectedVersion, nil)
}

// CommitNumbered is Commit that also issues the document's registry number
// from plan. A lost version check rolls the sequence back with the rest of
// the transaction.
func (r *DocumentRepository) CommitNumbered(ctx context.Context, tenantID string, doc *document.Document, expectedVersion int64, plan registry.Plan) error {
	return r.commit(ctx, tenantID, doc, expectedVersion, &plan)
}

func (r *DocumentRepository) commit(ctx context.Context, tenantID string, doc *document.Document, expectedVersion int64, plan *registry.Plan) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	number, err := issueNumber(ctx, tx, tenantID, doc, plan)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET status = ?, stage_index = ?, current_approver_id = ?,
		    registry_number = ?, modified_at = ?, version = ?
		WHERE id = ? AND tenant_id = ? AND version = ?
	`,
		doc.Status,
		doc.StageIndex,
		doc.CurrentApproverID,
		number,
		doc.ModifiedAt,
		doc.Version,
		doc.ID,
		tenantID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		var exists bool
		err = tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM documents WHERE id = ? AND tenant_id = ?)`, doc.ID, tenantID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check document existence: %w", err)
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM endorsements WHERE document_id = ?`, doc.ID).Scan(&stored); err != nil {
		return fmt.Errorf("failed to read ledger length: %w", err)
	}
	var fresh []document.Endorsement
	for _, e := range doc.Endorsements {
		if e.Seq > stored {
			fresh = append(fresh, e)
		}
	}
	if err := insertEndorsements(ctx, tx, doc.ID, fresh); err != nil {
		return err
	}
	if err := insertRecipients(ctx, tx, doc.ID, doc.Recipients); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	doc.RegistryNumber = number
	return nil
}

// issueNumber advances the plan's sequence inside tx. Without a plan the
// document keeps the number it already carries.
func issueNumber(ctx context.Context, tx *sql.Tx, tenantID string, doc *document.Document, plan *registry.Plan) (*string, error) {
	if plan == nil {
		return doc.RegistryNumber, nil
	}
	if doc.RegistryNumber != nil {
		return nil, fmt.Errorf("document %s already numbered", doc.ID)
	}
	seq, err := nextSequence(ctx, tx, tenantID, plan.Key, plan.Template.Limit())
	if err != nil {
		return nil, err
	}
	number := plan.Format(seq)
	return &number, nil
}

// List returns document references matching the given options.
func (r *DocumentRepository) List(ctx context.Context, tenantID string, opts document.ListDocumentsOptions) ([]document.DocumentRef, error) {
	query := `
		SELECT
			d.id, d.category, d.title, d.status, d.stage_index,
			d.current_approver_id, d.registry_number, d.scope_key, d.modified_at,
			(SELECT COUNT(*) FROM endorsements e WHERE e.document_id = d.id) AS endorsement_count
		FROM documents d
		WHERE d.tenant_id = ?
	`

	args := []any{tenantID}
	conditions := []string{}

	if opts.Category != nil {
		conditions = append(conditions, "d.category = ?")
		args = append(args, *opts.Category)
	}
	if len(opts.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("d.status IN (%s)", placeholders(len(opts.Statuses))))
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	if opts.ScopeKey != nil {
		conditions = append(conditions, "d.scope_key = ?")
		args = append(args, *opts.ScopeKey)
	}

	if len(conditions) > 0 {
		query += " AND " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY d.created_at DESC, d.id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	refs := []document.DocumentRef{}
	for rows.Next() {
		var ref document.DocumentRef
		var approver, number sql.NullString
		if err := rows.Scan(
			&ref.ID,
			&ref.Category,
			&ref.Title,
			&ref.Status,
			&ref.StageIndex,
			&approver,
			&number,
			&ref.ScopeKey,
			&ref.ModifiedAt,
			&ref.EndorsementCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document ref: %w", err)
		}
		ref.CurrentApproverID = nullString(approver)
		ref.RegistryNumber = nullString(number)
		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return refs, nil
}

// ListAll returns every document of the tenant with recipients and ledgers.
func (r *DocumentRepository) ListAll(ctx context.Context, tenantID string) ([]document.Document, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE tenant_id = ? ORDER BY created_at DESC, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := []document.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	recipients, err := r.loadRecipients(ctx, `JOIN documents d ON d.id = r.document_id WHERE d.tenant_id = ?`, tenantID)
	if err != nil {
		return nil, err
	}
	ledgers, err := r.loadEndorsements(ctx, `JOIN documents d ON d.id = e.document_id WHERE d.tenant_id = ?`, tenantID)
	if err != nil {
		return nil, err
	}

	for i := range docs {
		docs[i].Recipients = append(docs[i].Recipients, recipients[docs[i].ID]...)
		docs[i].Endorsements = append(docs[i].Endorsements, ledgers[docs[i].ID]...)
	}
	return docs, nil
}

func (r *DocumentRepository) loadRecipients(ctx context.Context, where string, arg any) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.document_id, r.person_id
		FROM document_recipients r `+where+`
		ORDER BY r.document_id, r.position
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	defer rows.Close()

	out := map[string][]string{}
	for rows.Next() {
		var docID, personID string
		if err := rows.Scan(&docID, &personID); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		out[docID] = append(out[docID], personID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) loadEndorsements(ctx context.Context, where string, arg any) (map[string][]document.Endorsement, error) {
	prefixed := make([]string, len(endorsementFields))
	for i, col := range endorsementFields {
		prefixed[i] = "e." + col
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+strings.Join(prefixed, ", ")+`
		FROM endorsements e `+where+`
		ORDER BY e.document_id, e.seq
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to load endorsements: %w", err)
	}
	defer rows.Close()

	out := map[string][]document.Endorsement{}
	for rows.Next() {
		e, err := scanEndorsement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan endorsement: %w", err)
		}
		out[e.DocumentID] = append(out[e.DocumentID], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating endorsements: %w", err)
	}
	return out, nil
}

func insertEndorsements(ctx context.Context, tx execer, documentID string, ledger []document.Endorsement) error {
	for _, e := range ledger {
		var x, y, scale *float64
		if e.Placement != nil {
			x, y, scale = &e.Placement.XPercent, &e.Placement.YPercent, &e.Placement.Scale
		}
		var key *string
		if e.IdempotencyKey != "" {
			key = &e.IdempotencyKey
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO endorsements (`+strings.Join(endorsementFields, ", ")+`)
			VALUES (`+placeholders(len(endorsementFields))+`)
		`,
			e.ID,
			documentID,
			e.Seq,
			e.StageIndex,
			e.StageRole,
			e.SignerID,
			e.SignerName,
			e.SignerPosition,
			e.Decision,
			e.Comment,
			e.SignatureRef,
			x,
			y,
			scale,
			e.DelegateTargetID,
			key,
			e.CreatedAt.UTC().Format(time.RFC3339Nano),
			e.PrevHash,
			e.Hash,
		)
		if err != nil {
			return storeError("failed to append endorsement", err)
		}
	}
	return nil
}

func insertRecipients(ctx context.Context, tx execer, documentID string, recipients []string) error {
	for i, personID := range recipients {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO document_recipients (document_id, person_id, position)
			VALUES (?, ?, ?)
		`, documentID, personID, i)
		if err != nil {
			return fmt.Errorf("failed to add recipient: %w", err)
		}
	}
	return nil
}

func scanDocument(row scanner) (*document.Document, error) {
	var doc document.Document
	var meta string
	var approver, number sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.TenantID,
		&doc.Category,
		&doc.Title,
		&meta,
		&doc.AttachmentRef,
		&doc.Status,
		&doc.StageIndex,
		&approver,
		&number,
		&doc.ScopeKey,
		&doc.CreatedBy,
		&doc.CreatedAt,
		&doc.ModifiedAt,
		&doc.Version,
	)
	if err != nil {
		return nil, err
	}
	doc.CurrentApproverID = nullString(approver)
	doc.RegistryNumber = nullString(number)
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &doc.OriginMeta); err != nil {
			return nil, fmt.Errorf("failed to decode origin meta: %w", err)
		}
	}
	doc.Recipients = []string{}
	doc.Endorsements = []document.Endorsement{}
	return &doc, nil
}

func scanEndorsement(row scanner) (document.Endorsement, error) {
	var e document.Endorsement
	var x, y, scale sql.NullFloat64
	var target, key sql.NullString
	var createdAt string
	err := row.Scan(
		&e.ID,
		&e.DocumentID,
		&e.Seq,
		&e.StageIndex,
		&e.StageRole,
		&e.SignerID,
		&e.SignerName,
		&e.SignerPosition,
		&e.Decision,
		&e.Comment,
		&e.SignatureRef,
		&x,
		&y,
		&scale,
		&target,
		&key,
		&createdAt,
		&e.PrevHash,
		&e.Hash,
	)
	if err != nil {
		return e, err
	}
	if x.Valid && y.Valid && scale.Valid {
		e.Placement = &document.Placement{XPercent: x.Float64, YPercent: y.Float64, Scale: scale.Float64}
	}
	e.DelegateTargetID = nullString(target)
	if key.Valid {
		e.IdempotencyKey = key.String
	}
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return e, fmt.Errorf("failed to parse endorsement time: %w", err)
	}
	return e, nil
}

func encodeMeta(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode origin meta: %w", err)
	}
	return string(b), nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// paginate appends LIMIT/OFFSET. SQLite requires a LIMIT before OFFSET.
func paginate(query string, args []any, limit, offset int) (string, []any) {
	if limit <= 0 && offset <= 0 {
		return query, args
	}
	if limit <= 0 {
		limit = -1
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if offset > 0 {
		query += " OFFSET ?"
		args = append(args, offset)
	}
	return query, args
}
