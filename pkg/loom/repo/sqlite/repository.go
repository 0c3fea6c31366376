// Package sqlite provides a loom.Repository backed by an embedded SQLite
// database (modernc.org/sqlite, no cgo). It serves local single-node
// deployments and the loomctl CLI. Entry data is stored as a JSON text
// column and queried with json_extract.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/loomcms/loom/pkg/loom"
)

//go:embed schema.sql
var schemaSQL string

// Repository implements loom.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path and initializes
// the schema. Use ":memory:" for an ephemeral database.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc.org/sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY on concurrent writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Content type operations

func (r *Repository) CreateContentType(ctx context.Context, ct *loom.ContentType) error {
	fields, err := json.Marshal(ct.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		INSERT INTO content_types (api_id, display_name, description, fields, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query,
		ct.APIID, ct.DisplayName, ct.Description, string(fields),
		formatTime(ct.CreatedAt), formatTime(ct.UpdatedAt)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", loom.ErrContentTypeExists, ct.APIID)
		}
		return fmt.Errorf("create content type: %w", err)
	}
	return nil
}

func (r *Repository) GetContentType(ctx context.Context, apiID string) (*loom.ContentType, error) {
	query := `
		SELECT api_id, display_name, description, fields, created_at, updated_at
		FROM content_types WHERE api_id = ?`

	ct, err := scanContentType(r.db.QueryRowContext(ctx, query, apiID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loom.ErrContentTypeNotFound
		}
		return nil, fmt.Errorf("get content type: %w", err)
	}
	return ct, nil
}

func (r *Repository) ListContentTypes(ctx context.Context) ([]*loom.ContentType, error) {
	query := `
		SELECT api_id, display_name, description, fields, created_at, updated_at
		FROM content_types ORDER BY api_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list content types: %w", err)
	}
	defer rows.Close()

	var result []*loom.ContentType
	for rows.Next() {
		ct, err := scanContentType(rows)
		if err != nil {
			return nil, fmt.Errorf("list content types: %w", err)
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
		SET api_id = ?, display_name = ?, description = ?, fields = ?, updated_at = ?
		WHERE api_id = ?`

	res, err := r.db.ExecContext(ctx, query,
		ct.APIID, ct.DisplayName, ct.Description, string(fields), formatTime(ct.UpdatedAt), apiID)
	if err != nil {
		return fmt.Errorf("update content type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loom.ErrContentTypeNotFound
	}

	if ct.APIID != apiID {
		if _, err := r.db.ExecContext(ctx, `UPDATE entries SET type_id = ? WHERE type_id = ?`, ct.APIID, apiID); err != nil {
			return fmt.Errorf("move entries: %w", err)
		}
	}
	return nil
}

func (r *Repository) DeleteContentType(ctx context.Context, apiID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM content_types WHERE api_id = ?`, apiID)
	if err != nil {
		return fmt.Errorf("delete content type: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
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
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query,
		entry.ID.String(), entry.TypeID, string(data), string(entry.State),
		entry.CreatedBy.String(), formatTime(entry.CreatedAt), formatTime(entry.UpdatedAt)); err != nil {
		return fmt.Errorf("create entry: %w", err)
	}
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, typeID string, id uuid.UUID) (*loom.Entry, error) {
	query := `
		SELECT id, type_id, data, state, created_by, created_at, updated_at
		FROM entries WHERE type_id = ? AND id = ?`

	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, typeID, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, loom.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

func (r *Repository) UpdateEntry(ctx context.Context, entry *loom.Entry) error {
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("marshal entry data: %w", err)
	}

	query := `
		UPDATE entries SET data = ?, state = ?, updated_at = ?
		WHERE type_id = ? AND id = ?`

	res, err := r.db.ExecContext(ctx, query,
		string(data), string(entry.State), formatTime(entry.UpdatedAt),
		entry.TypeID, entry.ID.String())
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loom.ErrEntryNotFound
	}
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, typeID string, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE type_id = ? AND id = ?`, typeID, id.String())
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return loom.ErrEntryNotFound
	}
	return nil
}

func (r *Repository) ListEntries(ctx context.Context, params loom.ListEntriesParams) ([]*loom.Entry, int, error) {
	where := []string{"type_id = ?"}
	args := []interface{}{params.TypeID}

	if params.Search != "" && len(params.SearchFields) > 0 {
		var clauses []string
		for _, field := range params.SearchFields {
			clauses = append(clauses, "lower(coalesce(json_extract(data, ?), '')) LIKE ?")
			args = append(args, "$."+field, "%"+strings.ToLower(params.Search)+"%")
		}
		where = append(where, "("+strings.Join(clauses, " OR ")+")")
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT count(*) FROM entries WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	orderSQL, args := orderClause(params, args)
	args = append(args, params.Limit, params.Offset)

	query := fmt.Sprintf(`
		SELECT id, type_id, data, state, created_by, created_at, updated_at
		FROM entries WHERE %s %s LIMIT ? OFFSET ?`, whereSQL, orderSQL)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*loom.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (r *Repository) DeleteEntriesByType(ctx context.Context, typeID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE type_id = ?`, typeID)
	if err != nil {
		return 0, fmt.Errorf("delete entries by type: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (r *Repository) CountEntriesWithValue(ctx context.Context, typeID, field string, value interface{}, excludeID *uuid.UUID) (int, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("marshal value: %w", err)
	}

	// json_extract yields SQL scalars for primitives and JSON text for
	// objects/arrays; extracting '$' from the encoded value gives the same
	// representation, so equality holds across all value shapes.
	query := `
		SELECT count(*) FROM entries
		WHERE type_id = ? AND json_extract(data, ?) IS NOT NULL
		  AND json_extract(data, ?) = json_extract(?, '$')`
	args := []interface{}{typeID, "$." + field, "$." + field, string(encoded)}
	if excludeID != nil {
		query += ` AND id <> ?`
		args = append(args, excludeID.String())
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries with value: %w", err)
	}
	return count, nil
}

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
		args = append(args, "$."+params.SortField)
		return "ORDER BY json_extract(data, ?) " + dir + ", id", args
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContentType(row rowScanner) (*loom.ContentType, error) {
	var ct loom.ContentType
	var fields, createdAt, updatedAt string
	if err := row.Scan(&ct.APIID, &ct.DisplayName, &ct.Description, &fields, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &ct.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	var err error
	if ct.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if ct.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &ct, nil
}

func scanEntry(row rowScanner) (*loom.Entry, error) {
	var entry loom.Entry
	var id, state, createdBy, data, createdAt, updatedAt string
	if err := row.Scan(&id, &entry.TypeID, &data, &state, &createdBy, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if entry.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse entry id: %w", err)
	}
	if entry.CreatedBy, err = uuid.Parse(createdBy); err != nil {
		return nil, fmt.Errorf("parse created_by: %w", err)
	}
	entry.State = loom.EntryState(state)
	if err := json.Unmarshal([]byte(data), &entry.Data); err != nil {
		return nil, fmt.Errorf("unmarshal entry data: %w", err)
	}
	if entry.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if entry.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &entry, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
