package sqlite

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
	"github.com/Sentinel-Gate/restprovider/internal/domain/record/recordtest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func openStore(t *testing.T, dsn string) *SQLiteRecordStore {
	t.Helper()
	s, err := NewRecordStore(context.Background(), dsn, testLogger())
	if err != nil {
		t.Fatalf("NewRecordStore(%q) error: %v", dsn, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordStore_Contract(t *testing.T) {
	recordtest.Run(t, func(t *testing.T) record.Store {
		return openStore(t, MemoryDSN)
	})
}

func TestRecordStore_Persistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	s, err := NewRecordStore(ctx, path, testLogger())
	if err != nil {
		t.Fatalf("NewRecordStore() error: %v", err)
	}
	if err := s.Insert(ctx, "users", record.Document{"_id": "1", "name": "eoin"}); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reopened := openStore(t, path)
	got, err := reopened.Get(ctx, "users", "1")
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if got["name"] != "eoin" {
		t.Errorf("name = %v, want eoin", got["name"])
	}
}

func TestBuildFind(t *testing.T) {
	query, args, err := buildFind("users", record.Query{
		Filter:     map[string]any{"role": "admin", "deleted": nil},
		SortField:  "name",
		Descending: true,
		Skip:       20,
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("buildFind() error: %v", err)
	}

	wantSQL := "SELECT body FROM documents WHERE collection = ?" +
		" AND (json_type(body, ?) IS NULL OR json_type(body, ?) = 'null')" +
		" AND json_extract(body, ?) = json_extract(?, '$')" +
		" AND json_type(body, ?) NOT IN ('array', 'object')" +
		" ORDER BY COALESCE(json_type(body, ?) IN ('array', 'object'), 0) DESC," +
		" json_extract(body, ?) DESC, seq LIMIT ? OFFSET ?"
	if query != wantSQL {
		t.Errorf("query =\n%s\nwant\n%s", query, wantSQL)
	}

	wantArgs := []any{"users", `$."deleted"`, `$."deleted"`, `$."role"`, `"admin"`, `$."role"`, `$."name"`, `$."name"`, 10, 20}
	if len(args) != len(wantArgs) {
		t.Fatalf("args = %v, want %v", args, wantArgs)
	}
	for i := range args {
		if args[i] != wantArgs[i] {
			t.Errorf("args[%d] = %v, want %v", i, args[i], wantArgs[i])
		}
	}
}

func TestBuildFind_NoLimit(t *testing.T) {
	query, args, err := buildFind("users", record.Query{})
	if err != nil {
		t.Fatalf("buildFind() error: %v", err)
	}
	if !strings.HasSuffix(query, "ORDER BY seq LIMIT ? OFFSET ?") {
		t.Errorf("query = %q", query)
	}
	if args[1] != -1 || args[2] != 0 {
		t.Errorf("limit/offset args = %v, want -1, 0", args[1:])
	}
}

func TestNewRecordStore_BadPath(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "missing", "dir", "records.db")
	if _, err := NewRecordStore(context.Background(), dsn, testLogger()); err == nil {
		t.Error("NewRecordStore() with unreachable path succeeded, want error")
	}
}
