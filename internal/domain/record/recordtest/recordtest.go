// Package recordtest holds the behaviour every record.Store implementation
// must share. Store packages call Run from their own tests.
package recordtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) record.Store

// Run exercises newStore against the record.Store contract.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s record.Store)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"GetMissing", testGetMissing},
		{"InsertDuplicate", testInsertDuplicate},
		{"InsertWithoutID", testInsertWithoutID},
		{"FindOrder", testFindOrder},
		{"FindFilter", testFindFilter},
		{"FindSortAndPage", testFindSortAndPage},
		{"FindUnknownCollection", testFindUnknownCollection},
		{"FindInvalidQuery", testFindInvalidQuery},
		{"Replace", testReplace},
		{"Delete", testDelete},
		{"CollectionsIsolated", testCollectionsIsolated},
		{"ReturnsCopies", testReturnsCopies},
		{"ConcurrentInsert", testConcurrentInsert},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func mustDoc(t *testing.T, raw string) record.Document {
	t.Helper()
	doc, err := record.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("bad fixture %s: %v", raw, err)
	}
	return doc
}

func seed(t *testing.T, s record.Store, collection string, raws ...string) {
	t.Helper()
	for _, raw := range raws {
		if err := s.Insert(context.Background(), collection, mustDoc(t, raw)); err != nil {
			t.Fatalf("Insert(%s) error: %v", raw, err)
		}
	}
}

func idsOf(docs []record.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		id, _ := d.ID()
		out = append(out, id)
	}
	return out
}

func find(t *testing.T, s record.Store, q record.Query) []string {
	t.Helper()
	docs, err := s.Find(context.Background(), "users", q)
	if err != nil {
		t.Fatalf("Find(%+v) error: %v", q, err)
	}
	return idsOf(docs)
}

func testInsertAndGet(t *testing.T, s record.Store) {
	ctx := context.Background()
	seed(t, s, "users", `{"_id":"a1","name":"eoin","age":30,"score":1.50,"tags":["x","y"],"meta":{"admin":true}}`)

	got, err := s.Get(ctx, "users", "a1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	want := mustDoc(t, `{"_id":"a1","name":"eoin","age":30,"score":1.50,"tags":["x","y"],"meta":{"admin":true}}`)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %#v, want %#v", got, want)
	}
	if got["score"] != json.Number("1.50") {
		t.Errorf("score = %#v, want json.Number(1.50)", got["score"])
	}
}

func testGetMissing(t *testing.T, s record.Store) {
	ctx := context.Background()
	if _, err := s.Get(ctx, "users", "nope"); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Get() on empty store error = %v, want ErrNotFound", err)
	}
	seed(t, s, "users", `{"_id":"a1"}`)
	if _, err := s.Get(ctx, "users", "nope"); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func testInsertDuplicate(t *testing.T, s record.Store) {
	seed(t, s, "users", `{"_id":"a1","v":1}`)
	err := s.Insert(context.Background(), "users", mustDoc(t, `{"_id":"a1","v":2}`))
	if !errors.Is(err, record.ErrDuplicateID) {
		t.Fatalf("Insert() error = %v, want ErrDuplicateID", err)
	}
	got, _ := s.Get(context.Background(), "users", "a1")
	if got["v"] != json.Number("1") {
		t.Errorf("v = %v, want original value 1", got["v"])
	}
}

func testInsertWithoutID(t *testing.T, s record.Store) {
	err := s.Insert(context.Background(), "users", record.Document{"name": "x"})
	if !errors.Is(err, record.ErrMissingID) {
		t.Errorf("Insert() error = %v, want ErrMissingID", err)
	}
}

func testFindOrder(t *testing.T, s record.Store) {
	seed(t, s, "users", `{"_id":"c"}`, `{"_id":"a"}`, `{"_id":"b"}`)
	if got, want := find(t, s, record.Query{}), []string{"c", "a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Find() ids = %v, want insertion order %v", got, want)
	}
}

func testFindFilter(t *testing.T, s record.Store) {
	seed(t, s, "users",
		`{"_id":"1","role":"admin","age":30,"tags":["x"]}`,
		`{"_id":"2","role":"user","age":30.0}`,
		`{"_id":"3","role":"admin","age":"30","note":null}`,
		`{"_id":"4","role":"staff","tags":"[\"x\"]"}`,
	)

	tests := []struct {
		filter map[string]any
		want   []string
	}{
		{filter: map[string]any{"role": "admin"}, want: []string{"1", "3"}},
		{filter: map[string]any{"age": json.Number("30")}, want: []string{"1", "2"}},
		{filter: map[string]any{"age": "30"}, want: []string{"3"}},
		{filter: map[string]any{"role": "admin", "age": float64(30)}, want: []string{"1"}},
		{filter: map[string]any{"tags": []any{"x"}}, want: []string{"1"}},
		{filter: map[string]any{"tags": `["x"]`}, want: []string{"4"}},
		{filter: map[string]any{"tags": nil}, want: []string{"2", "3"}},
		{filter: map[string]any{"note": nil}, want: []string{"1", "2", "3", "4"}},
		{filter: map[string]any{"role": "guest"}, want: []string{}},
	}

	for _, tt := range tests {
		got := find(t, s, record.Query{Filter: tt.filter})
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Find(filter=%v) ids = %v, want %v", tt.filter, got, tt.want)
		}
	}
}

func testFindSortAndPage(t *testing.T, s record.Store) {
	seed(t, s, "users",
		`{"_id":"1","name":"eoin","age":30}`,
		`{"_id":"2","name":"des","age":25}`,
		`{"_id":"3","name":"ann","age":30}`,
		`{"_id":"4","name":"bob"}`,
	)

	tests := []struct {
		q    record.Query
		want []string
	}{
		{q: record.Query{SortField: "name"}, want: []string{"3", "4", "2", "1"}},
		{q: record.Query{SortField: "name", Descending: true}, want: []string{"1", "2", "4", "3"}},
		{q: record.Query{SortField: "age"}, want: []string{"4", "2", "1", "3"}},
		{q: record.Query{SortField: "age", Descending: true}, want: []string{"1", "3", "2", "4"}},
		{q: record.Query{SortField: "name", Limit: 2}, want: []string{"3", "4"}},
		{q: record.Query{SortField: "name", Skip: 2, Limit: 10}, want: []string{"2", "1"}},
		{q: record.Query{Skip: 4}, want: []string{}},
	}

	for _, tt := range tests {
		if got := find(t, s, tt.q); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Find(%+v) ids = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func testFindUnknownCollection(t *testing.T, s record.Store) {
	docs, err := s.Find(context.Background(), "ghosts", record.Query{})
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if docs == nil || len(docs) != 0 {
		t.Errorf("Find() = %#v, want empty non-nil slice", docs)
	}
}

func testFindInvalidQuery(t *testing.T, s record.Store) {
	for _, q := range []record.Query{
		{SortField: `bad"field`},
		{Skip: -1},
		{Filter: map[string]any{"": "x"}},
	} {
		if _, err := s.Find(context.Background(), "users", q); !errors.Is(err, record.ErrInvalidQuery) {
			t.Errorf("Find(%+v) error = %v, want ErrInvalidQuery", q, err)
		}
	}
}

func testReplace(t *testing.T, s record.Store) {
	ctx := context.Background()
	seed(t, s, "users", `{"_id":"1","n":1}`, `{"_id":"2","n":2}`)

	if err := s.Replace(ctx, "users", "1", mustDoc(t, `{"_id":"1","n":10}`)); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	got, _ := s.Get(ctx, "users", "1")
	if got["n"] != json.Number("10") {
		t.Errorf("n = %v, want 10", got["n"])
	}
	if ids := find(t, s, record.Query{}); !reflect.DeepEqual(ids, []string{"1", "2"}) {
		t.Errorf("order after Replace = %v, want [1 2]", ids)
	}
	if err := s.Replace(ctx, "users", "9", mustDoc(t, `{"_id":"9"}`)); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Replace(missing) error = %v, want ErrNotFound", err)
	}
}

func testDelete(t *testing.T, s record.Store) {
	ctx := context.Background()
	seed(t, s, "users", `{"_id":"1"}`, `{"_id":"2"}`, `{"_id":"3"}`)

	if err := s.Delete(ctx, "users", "2"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, "users", "2"); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Get(deleted) error = %v, want ErrNotFound", err)
	}
	if ids := find(t, s, record.Query{}); !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Errorf("ids after Delete = %v, want [1 3]", ids)
	}
	if err := s.Delete(ctx, "users", "2"); !errors.Is(err, record.ErrNotFound) {
		t.Errorf("Delete(twice) error = %v, want ErrNotFound", err)
	}

	// The ID is free again.
	seed(t, s, "users", `{"_id":"2"}`)
	if ids := find(t, s, record.Query{}); !reflect.DeepEqual(ids, []string{"1", "3", "2"}) {
		t.Errorf("ids after re-insert = %v, want [1 3 2]", ids)
	}
}

func testCollectionsIsolated(t *testing.T, s record.Store) {
	ctx := context.Background()
	seed(t, s, "users", `{"_id":"1","kind":"user"}`)
	seed(t, s, "posts", `{"_id":"1","kind":"post"}`)

	got, err := s.Get(ctx, "posts", "1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got["kind"] != "post" {
		t.Errorf("kind = %v, want post", got["kind"])
	}
	if err := s.Delete(ctx, "posts", "1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, "users", "1"); err != nil {
		t.Errorf("Get(users/1) after deleting posts/1 error: %v", err)
	}
}

func testReturnsCopies(t *testing.T, s record.Store) {
	ctx := context.Background()
	doc := mustDoc(t, `{"_id":"1","tags":["x"]}`)
	if err := s.Insert(ctx, "users", doc); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	doc["tags"].([]any)[0] = "mutated"

	got, _ := s.Get(ctx, "users", "1")
	got["tags"].([]any)[0] = "mutated-again"

	again, _ := s.Get(ctx, "users", "1")
	if again["tags"].([]any)[0] != "x" {
		t.Errorf("tags = %v, store was mutated through a caller's reference", again["tags"])
	}
}

func testConcurrentInsert(t *testing.T, s record.Store) {
	ctx := context.Background()
	const n = 50

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Insert(ctx, "users", record.Document{"_id": fmt.Sprintf("id-%d", i)}); err != nil {
				errs <- err
			}
			if _, err := s.Find(ctx, "users", record.Query{Limit: 5}); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent operation error: %v", err)
	}
	if got := find(t, s, record.Query{}); len(got) != n {
		t.Errorf("Find() returned %d documents, want %d", len(got), n)
	}
}
