// Package sqlite provides a record.Store backed by an embedded SQLite
// database. Documents are stored as JSON text and queried with the JSON1
// functions.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       TEXT NOT NULL,
	UNIQUE (collection, id)
)`

// SQLiteRecordStore implements record.Store on a single SQLite database.
// Thread-safe: the connection pool is limited to one connection, which
// serializes access and keeps in-memory databases shared.
type SQLiteRecordStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRecordStore opens (creating if needed) the database at dsn and
// prepares the schema. Use MemoryDSN for a throwaway store.
func NewRecordStore(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteRecordStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", dsn, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Info("sqlite record store ready", "dsn", dsn)
	return &SQLiteRecordStore{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *SQLiteRecordStore) Close() error {
	return s.db.Close()
}

// Find returns the documents of a collection selected by q.
func (s *SQLiteRecordStore) Find(ctx context.Context, collection string, q record.Query) ([]record.Document, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	query, args, err := buildFind(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer func() { _ = rows.Close() }()

	result := []record.Document{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", collection, err)
		}
		doc, err := record.Decode([]byte(body))
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", collection, err)
		}
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return result, nil
}

// buildFind renders q as a SELECT over one collection. Filter fields are
// emitted in sorted order so identical queries produce identical SQL.
func buildFind(collection string, q record.Query) (string, []any, error) {
	var b strings.Builder
	args := []any{collection}
	b.WriteString("SELECT body FROM documents WHERE collection = ?")

	fields := make([]string, 0, len(q.Filter))
	for f := range q.Filter {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		path := jsonPath(f)
		want := q.Filter[f]
		if want == nil {
			b.WriteString(" AND (json_type(body, ?) IS NULL OR json_type(body, ?) = 'null')")
			args = append(args, path, path)
			continue
		}
		enc, err := json.Marshal(want)
		if err != nil {
			return "", nil, fmt.Errorf("%w: filter %s: %v", record.ErrInvalidQuery, f, err)
		}
		b.WriteString(" AND json_extract(body, ?) = json_extract(?, '$')")
		// json_extract renders arrays and objects as text; keep them from
		// equalling a string with the same spelling.
		if record.IsComposite(want) {
			b.WriteString(" AND json_type(body, ?) IN ('array', 'object')")
		} else {
			b.WriteString(" AND json_type(body, ?) NOT IN ('array', 'object')")
		}
		args = append(args, path, string(enc), path)
	}

	if q.SortField != "" {
		dir := ""
		if q.Descending {
			dir = " DESC"
		}
		// Arrays and objects sort after every scalar.
		b.WriteString(" ORDER BY COALESCE(json_type(body, ?) IN ('array', 'object'), 0)" + dir)
		b.WriteString(", json_extract(body, ?)" + dir + ", seq")
		path := jsonPath(q.SortField)
		args = append(args, path, path)
	} else {
		b.WriteString(" ORDER BY seq")
	}

	limit := -1
	if q.Limit > 0 {
		limit = q.Limit
	}
	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, q.Skip)

	return b.String(), args, nil
}

// jsonPath addresses a top-level key. Field names are validated to contain
// no quotes or backslashes.
func jsonPath(field string) string {
	return `$."` + field + `"`
}

// Get returns a single document by ID.
// Returns record.ErrNotFound if the document does not exist.
func (s *SQLiteRecordStore) Get(ctx context.Context, collection, id string) (record.Document, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return record.Decode([]byte(body))
}

// Insert stores doc under its _id.
// Returns record.ErrDuplicateID if the ID is taken.
func (s *SQLiteRecordStore) Insert(ctx context.Context, collection string, doc record.Document) error {
	id, err := doc.ID()
	if err != nil {
		return err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", record.ErrInvalidDocument, err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		 ON CONFLICT (collection, id) DO NOTHING`, collection, id, string(body))
	if err != nil {
		return fmt.Errorf("insert %s/%s: %w", collection, id, err)
	}
	return expectOneRow(res, record.ErrDuplicateID)
}

// Replace overwrites an existing document, keeping its position.
// Returns record.ErrNotFound if the document does not exist.
func (s *SQLiteRecordStore) Replace(ctx context.Context, collection, id string, doc record.Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", record.ErrInvalidDocument, err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET body = ? WHERE collection = ? AND id = ?`, string(body), collection, id)
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	return expectOneRow(res, record.ErrNotFound)
}

// Delete removes a document by ID.
// Returns record.ErrNotFound if the document does not exist.
func (s *SQLiteRecordStore) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return expectOneRow(res, record.ErrNotFound)
}

func expectOneRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return none
	}
	return nil
}

// Compile-time interface verification.
var _ record.Store = (*SQLiteRecordStore)(nil)

// Ping verifies the database connection.
func (s *SQLiteRecordStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
