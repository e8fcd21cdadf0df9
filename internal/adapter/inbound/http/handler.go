package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Sentinel-Gate/restprovider/internal/domain/record"
	"github.com/Sentinel-Gate/restprovider/internal/service"
)

// maxRequestBodySize is the maximum allowed request body size (1 MB).
const maxRequestBodySize = 1 << 20

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// recordHandler serves the REST routes for every collection.
type recordHandler struct {
	records *service.RecordService
	metrics *Metrics
}

// register adds the collection routes to mux.
func (h *recordHandler) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{collection}", h.list)
	mux.HandleFunc("POST /{collection}", h.create)
	mux.HandleFunc("GET /{collection}/{id}", h.get)
	mux.HandleFunc("PATCH /{collection}/{id}", h.update)
	mux.HandleFunc("DELETE /{collection}/{id}", h.remove)
}

func (h *recordHandler) list(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	docs, err := h.records.List(r.Context(), r.PathValue("collection"), q)
	h.metrics.recordOperation("list", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *recordHandler) get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.records.Get(r.Context(), r.PathValue("collection"), r.PathValue("id"))
	h.metrics.recordOperation("get", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *recordHandler) create(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.records.Create(r.Context(), r.PathValue("collection"), doc)
	h.metrics.recordOperation("create", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *recordHandler) update(w http.ResponseWriter, r *http.Request) {
	patch, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.records.Update(r.Context(), r.PathValue("collection"), r.PathValue("id"), patch)
	h.metrics.recordOperation("update", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *recordHandler) remove(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.records.Delete(r.Context(), r.PathValue("collection"), r.PathValue("id"))
	h.metrics.recordOperation("delete", err)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted)
}

// fail maps service errors to status codes. Unexpected errors are logged and
// hidden from the client.
func (h *recordHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		LoggerFromContext(r.Context()).Error("request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}
	LoggerFromContext(r.Context()).Debug("request rejected",
		"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, record.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, record.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, record.ErrInvalidQuery),
		errors.Is(err, record.ErrInvalidDocument),
		errors.Is(err, record.ErrMissingID),
		errors.Is(err, record.ErrInvalidCollection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseQuery reads limit, skip, query and sort from the URL.
func parseQuery(r *http.Request) (record.Query, error) {
	values := r.URL.Query()
	var q record.Query

	if s := values.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("limit must be a non-negative integer, got %q", s)
		}
		q.Limit = n
	}
	if s := values.Get("skip"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("skip must be a non-negative integer, got %q", s)
		}
		q.Skip = n
	}
	if s := values.Get("query"); s != "" {
		filter, err := record.Decode([]byte(s))
		if err != nil {
			return q, fmt.Errorf("query must be a JSON object: %v", err)
		}
		q.Filter = filter
	}
	if s := values.Get("sort"); s != "" {
		q.SortField, q.Descending = record.ParseSort(s)
	}

	return q, q.Validate()
}

// decodeBody reads a JSON object from the request body.
func decodeBody(r *http.Request) (record.Document, error) {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxRequestBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return nil, errors.New("body must be a JSON object")
	}
	doc, err := record.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("body must be a JSON object: %v", err)
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Debug("write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
