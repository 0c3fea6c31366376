// Package postgres provides a loom.Repository backed by PostgreSQL. Entry
// data lives in a JSONB column so one pair of tables serves every content
// type; see migrations/postgres for the schema.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loomcms/loom/pkg/loom"
)

// DBTX is satisfied by both a pgx connection and a transaction.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements loom.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

func (r *Repository) handleError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", loom.ErrContentTypeExists, pgErr.ConstraintName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Content type operations

func (r *Repository) CreateContentType(ctx context.Context, ct *loom.ContentType) error {
	fields, err := json.Marshal(ct.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		INSERT INTO content_types (api_id, display_name, description, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	if _, err := r.db.Exec(ctx, query,
		ct.APIID, ct.DisplayName, ct.Description, fields, ct.CreatedAt, ct.UpdatedAt); err != nil {
		return r.handleError("create content type", err)
	}
	return nil
}

func (r *Repository) GetContentType(ctx context.Context, apiID string) (*loom.ContentType, error) {
	query := `
		SELECT api_id, display_name, description, fields, created_at, updated_at
		FROM content_types WHERE api_id = $1`

	ct, err := scanContentType(r.db.QueryRow(ctx, query, apiID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loom.ErrContentTypeNotFound
		}
		return nil, r.handleError("get content type", err)
	}
	return ct, nil
}

func (r *Repository) ListContentTypes(ctx context.Context) ([]*loom.ContentType, error) {
	query := `
		SELECT api_id, display_name, description, fields, created_at, updated_at
		FROM content_types ORDER BY api_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, r.handleError("list content types", err)
	}
	defer rows.Close()

	var result []*loom.ContentType
	for rows.Next() {
		ct, err := scanContentType(rows)
		if err != nil {
			return nil, r.handleError("list content types", err)
		}
		result = append(result, ct)
	}
	return result, rows.Err()
}

func (r *Repository) UpdateContentType(ctx context.Context, apiID string, ct *loom.ContentType) error {
	fields, err := json.Marshal(ct.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		UPDATE content_types
		SET api_id = $2, display_name = $3, description = $4, fields = $5, updated_at = $6
		WHERE api_id = $1`

	tag, err := r.db.Exec(ctx, query,
		apiID, ct.APIID, ct.DisplayName, ct.Description, fields, ct.UpdatedAt)
	if err != nil {
		return r.handleError("update content type", err)
	}
	if tag.RowsAffected() == 0 {
		return loom.ErrContentTypeNotFound
	}

	if ct.APIID != apiID {
		if _, err := r.db.Exec(ctx, `UPDATE entries SET type_id = $2 WHERE type_id = $1`, apiID, ct.APIID); err != nil {
			return r.handleError("move entries", err)
		}
	}
	return nil
}

func (r *Repository) DeleteContentType(ctx context.Context, apiID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_types WHERE api_id = $1`, apiID)
	if err != nil {
		return r.handleError("delete content type", err)
	}
	if tag.RowsAffected() == 0 {
		return loom.ErrContentTypeNotFound
	}
	return nil
}

// Entry operations

func (r *Repository) CreateEntry(ctx context.Context, entry *loom.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshal entry data: %w", err)
	}

	query := `
		INSERT INTO entries (id, type_id, data, state, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if _, err := r.db.Exec(ctx, query,
		entry.ID, entry.TypeID, data, entry.State, entry.CreatedBy,
		entry.CreatedAt, entry.UpdatedAt); err != nil {
		return r.handleError("create entry", err)
	}
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, typeID string, id uuid.UUID) (*loom.Entry, error) {
	query := `
		SELECT id, type_id, data, state, created_by, created_at, updated_at
		FROM entries WHERE type_id = $1 AND id = $2`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, typeID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, loom.ErrEntryNotFound
		}
		return nil, r.handleError("get entry", err)
	}
	return entry, nil
}

func (r *Repository) UpdateEntry(ctx context.Context, entry *loom.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshal entry data: %w", err)
	}

	query := `
		UPDATE entries SET data = $3, state = $4, updated_at = $5
		WHERE type_id = $1 AND id = $2`

	tag, err := r.db.Exec(ctx, query,
		entry.TypeID, entry.ID, data, entry.State, entry.UpdatedAt)
	if err != nil {
		return r.handleError("update entry", err)
	}
	if tag.RowsAffected() == 0 {
		return loom.ErrEntryNotFound
	}
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, typeID string, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM entries WHERE type_id = $1 AND id = $2`, typeID, id)
	if err != nil {
		return r.handleError("delete entry", err)
	}
	if tag.RowsAffected() == 0 {
		return loom.ErrEntryNotFound
	}
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, params loom.ListEntriesParams) ([]*loom.Entry, int, error) {
	where := []string{"type_id = $1"}
	args := []interface{}{params.TypeID}

	if params.Search != "" && len(params.SearchFields) > 0 {
		var clauses []string
		for _, field := range params.SearchFields {
			args = append(args, field)
			fieldArg := len(args)
			args = append(args, "%"+params.Search+"%")
			termArg := len(args)
			clauses = append(clauses, fmt.Sprintf("(data->>$%d) ILIKE $%d", fieldArg, termArg))
		}
		where = append(where, "("+strings.Join(clauses, " OR ")+")")
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT count(*) FROM entries WHERE " + whereSQL
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, r.handleError("count entries", err)
	}

	orderSQL, args := orderClause(params, args)
	args = append(args, params.Limit)
	limitArg := len(args)
	args = append(args, params.Offset)
	offsetArg := len(args)

	query := fmt.Sprintf(`
		SELECT id, type_id, data, state, created_by, created_at, updated_at
		FROM entries WHERE %s %s LIMIT $%d OFFSET $%d`,
		whereSQL, orderSQL, limitArg, offsetArg)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, r.handleError("list entries", err)
	}
	defer rows.Close()

	var entries []*loom.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, r.handleError("list entries", err)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (r *Repository) DeleteEntriesByType(ctx context.Context, typeID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM entries WHERE type_id = $1`, typeID)
	if err != nil {
		return 0, r.handleError("delete entries by type", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repository) CountEntriesWithValue(ctx context.Context, typeID, field string, value interface{}, excludeID *uuid.UUID) (int, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("marshal value: %w", err)
	}

	query := `SELECT count(*) FROM entries WHERE type_id = $1 AND data -> $2 = $3::jsonb`
	args := []interface{}{typeID, field, string(encoded)}
	if excludeID != nil {
		query += ` AND id <> $4`
		args = append(args, *excludeID)
	}

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, r.handleError("count entries with value", err)
	}
	return count, nil
}

// orderClause builds the ORDER BY fragment. System columns are whitelisted;
// anything else sorts on the JSONB field of that name.
func orderClause(params loom.ListEntriesParams, args []interface{}) (string, []interface{}) {
	dir := "ASC"
	if params.SortDesc {
		dir = "DESC"
	}
	switch params.SortField {
	case "", "created_at":
		return "ORDER BY created_at " + dir + ", id", args
	case "updated_at":
		return "ORDER BY updated_at " + dir + ", id", args
	case "state":
		return "ORDER BY state " + dir + ", id", args
	default:
		args = append(args, params.SortField)
		return fmt.Sprintf("ORDER BY data->>$%d %s, id", len(args), dir), args
	}
}

func scanContentType(row pgx.Row) (*loom.ContentType, error) {
	var ct loom.ContentType
	var fields []byte
	if err := row.Scan(&ct.APIID, &ct.DisplayName, &ct.Description, &fields, &ct.CreatedAt, &ct.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fields, &ct.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return &ct, nil
}

func scanEntry(row pgx.Row) (*loom.Entry, error) {
	var entry loom.Entry
	var data []byte
	if err := row.Scan(&entry.ID, &entry.TypeID, &data, &entry.State, &entry.CreatedBy, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &entry.Data); err != nil {
		return nil, fmt.Errorf("unmarshal entry data: %w", err)
	}
	return &entry, nil
}
