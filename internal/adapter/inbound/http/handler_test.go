package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Sentinel-Gate/restprovider/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
	"github.com/Sentinel-Gate/restprovider/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// discardLogger returns a logger that discards all output (for tests)
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testServer returns a server over a fresh memory store and its handler.
func testServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	store := memory.NewRecordStore()
	records := service.NewRecordService(store, discardLogger())
	srv := NewServer(records,
		WithLogger(discardLogger()),
		WithRegistry(prometheus.NewRegistry()),
		WithHealthChecker(NewHealthChecker(store, "test")),
	)
	return srv, srv.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeObject(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response %q is not a JSON object: %v", rec.Body.String(), err)
	}
	return out
}

func decodeArray(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response %q is not a JSON array: %v", rec.Body.String(), err)
	}
	return out
}

func seedUsers(t *testing.T, h http.Handler) {
	t.Helper()
	for _, body := range []string{
		`{"_id":"1","name":"eoin","age":30}`,
		`{"_id":"2","name":"des","age":25}`,
		`{"_id":"3","name":"ann","age":30}`,
	} {
		if rec := do(t, h, http.MethodPost, "/users", body); rec.Code != http.StatusCreated {
			t.Fatalf("POST /users status = %d, body %s", rec.Code, rec.Body.String())
		}
	}
}

func TestHandler_CreateGeneratesID(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, http.MethodPost, "/users", `{"name":"eoin"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	got := decodeObject(t, rec)
	id, _ := got["_id"].(string)
	if id == "" {
		t.Fatalf("_id = %v, want generated id", got["_id"])
	}

	rec = do(t, h, http.MethodGet, "/users/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec.Code)
	}
	if decodeObject(t, rec)["name"] != "eoin" {
		t.Errorf("GET body = %s", rec.Body.String())
	}
}

func TestHandler_ListEmptyCollection(t *testing.T) {
	_, h := testServer(t)

	rec := do(t, h, http.MethodGet, "/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestHandler_ListQueryParams(t *testing.T) {
	_, h := testServer(t)
	seedUsers(t, h)

	tests := []struct {
		target string
		want   []string
	}{
		{target: "/users", want: []string{"1", "2", "3"}},
		{target: "/users?sort=name", want: []string{"3", "2", "1"}},
		{target: "/users?sort=-name", want: []string{"1", "2", "3"}},
		{target: "/users?limit=2&skip=1&sort=name", want: []string{"2", "1"}},
		{target: "/users?query=%7B%22age%22%3A30%7D", want: []string{"1", "3"}},
		{target: "/users?limit=10&skip=0&query=%7B%7D&sort=id", want: []string{"1", "2", "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			docs := decodeArray(t, rec)
			got := make([]string, 0, len(docs))
			for _, d := range docs {
				got = append(got, d["_id"].(string))
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandler_BadRequests(t *testing.T) {
	_, h := testServer(t)
	seedUsers(t, h)

	tests := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{name: "bad limit", method: http.MethodGet, target: "/users?limit=ten", want: http.StatusBadRequest},
		{name: "negative skip", method: http.MethodGet, target: "/users?skip=-1", want: http.StatusBadRequest},
		{name: "query not json", method: http.MethodGet, target: "/users?query=nope", want: http.StatusBadRequest},
		{name: "query not object", method: http.MethodGet, target: "/users?query=%5B1%5D", want: http.StatusBadRequest},
		{name: "bad sort field", method: http.MethodGet, target: "/users?sort=a%22b", want: http.StatusBadRequest},
		{name: "empty create body", method: http.MethodPost, target: "/users", want: http.StatusBadRequest},
		{name: "array create body", method: http.MethodPost, target: "/users", body: `[1]`, want: http.StatusBadRequest},
		{name: "invalid json", method: http.MethodPost, target: "/users", body: `{"a":`, want: http.StatusBadRequest},
		{name: "duplicate id", method: http.MethodPost, target: "/users", body: `{"_id":"1"}`, want: http.StatusConflict},
		{name: "bad id type", method: http.MethodPost, target: "/users", body: `{"_id":true}`, want: http.StatusBadRequest},
		{name: "get missing", method: http.MethodGet, target: "/users/404", want: http.StatusNotFound},
		{name: "patch missing", method: http.MethodPatch, target: "/users/404", body: `{"a":1}`, want: http.StatusNotFound},
		{name: "patch empty body", method: http.MethodPatch, target: "/users/1", want: http.StatusBadRequest},
		{name: "delete missing", method: http.MethodDelete, target: "/users/404", want: http.StatusNotFound},
		{name: "put unsupported", method: http.MethodPut, target: "/users/1", body: `{}`, want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, tt.method, tt.target, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d; body %s", rec.Code, tt.want, rec.Body.String())
			}
			if tt.want == http.StatusMethodNotAllowed {
				return
			}
			if msg, _ := decodeObject(t, rec)["error"].(string); msg == "" {
				t.Errorf("body = %s, want {\"error\": ...}", rec.Body.String())
			}
		})
	}
}

func TestHandler_OversizedBody(t *testing.T) {
	_, h := testServer(t)

	body := `{"blob":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	rec := do(t, h, http.MethodPost, "/users", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_PatchMerges(t *testing.T) {
	_, h := testServer(t)
	seedUsers(t, h)

	rec := do(t, h, http.MethodPatch, "/users/1", `{"age":31,"city":"Cork","_id":"ignored"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeObject(t, rec)
	if got["_id"] != "1" || got["name"] != "eoin" || got["age"] != float64(31) || got["city"] != "Cork" {
		t.Errorf("PATCH body = %v", got)
	}
}

func TestHandler_DeleteReturnsDocument(t *testing.T) {
	_, h := testServer(t)
	seedUsers(t, h)

	rec := do(t, h, http.MethodDelete, "/users/2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if decodeObject(t, rec)["name"] != "des" {
		t.Errorf("DELETE body = %s", rec.Body.String())
	}
	if rec := do(t, h, http.MethodGet, "/users/2", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET after DELETE status = %d, want 404", rec.Code)
	}
}

func TestHandler_PreservesNumbers(t *testing.T) {
	_, h := testServer(t)

	do(t, h, http.MethodPost, "/items", `{"_id":"big","n":12345678901234567890,"f":1.50}`)
	rec := do(t, h, http.MethodGet, "/items/big", "")
	if !strings.Contains(rec.Body.String(), `"n":12345678901234567890`) || !strings.Contains(rec.Body.String(), `"f":1.50`) {
		t.Errorf("body = %s, want numbers preserved verbatim", rec.Body.String())
	}
}

func TestHandler_RequestID(t *testing.T) {
	_, h := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "req-123" {
		t.Errorf("X-Request-ID = %q, want req-123", got)
	}

	rec = do(t, h, http.MethodGet, "/users", "")
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("X-Request-ID not generated")
	}
}

func TestHandler_RecordsOperations(t *testing.T) {
	srv, h := testServer(t)
	seedUsers(t, h)
	do(t, h, http.MethodGet, "/users/404", "")

	m := srv.Metrics()
	if got := testutil.ToFloat64(m.RecordOperations.WithLabelValues("create", "ok")); got != 3 {
		t.Errorf("create/ok = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.RecordOperations.WithLabelValues("get", "error")); got != 1 {
		t.Errorf("get/error = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "4xx")); got != 1 {
		t.Errorf("requests GET/4xx = %v, want 1", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{record.ErrNotFound, http.StatusNotFound},
		{record.ErrDuplicateID, http.StatusConflict},
		{record.ErrInvalidCollection, http.StatusBadRequest},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
