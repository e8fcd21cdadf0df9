package dataprovider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// ContentTypeJSON is the only header attached to a Request.
const ContentTypeJSON = "application/json"

// Request is the HTTP request descriptor produced by BuildRequest. A Request
// is consumed once by a Transport and is not modified after it is built.
// Body is a shallow copy of Params.Data: its top-level keys belong to the
// Request, nested maps and slices are still shared with the caller.
type Request struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Body    map[string]any    `json:"body,omitempty"`
	Headers map[string]string `json:"headers"`
}

// rule holds the per-action overrides. Zero fields take the value from
// defaultRule.
type rule struct {
	method    string
	path      func(Params) (string, error)
	body      func(Params) map[string]any
	normalize func(data any, primaryKey string) (*Result, error)
}

var defaultRule = rule{
	method:    http.MethodGet,
	path:      idPath,
	body:      dataBody,
	normalize: normalizeOne,
}

var rules = map[ActionType]rule{
	GetList: {path: listPath, normalize: normalizeList},
	GetOne:  {},
	Create:  {method: http.MethodPost, path: rootPath},
	Update:  {method: http.MethodPatch},
	Delete:  {method: http.MethodDelete},
}

// ruleFor merges the override for a over defaultRule. Unknown action types
// get defaultRule unchanged.
func ruleFor(a ActionType) rule {
	r := rules[a]
	if r.method == "" {
		r.method = defaultRule.method
	}
	if r.path == nil {
		r.path = defaultRule.path
	}
	if r.body == nil {
		r.body = defaultRule.body
	}
	if r.normalize == nil {
		r.normalize = defaultRule.normalize
	}
	return r
}

// BuildRequest produces the descriptor for one action against baseURL. The
// URL is baseURL + "/" + resource + path, concatenated verbatim.
func BuildRequest(baseURL string, action ActionType, resource string, params Params) (Request, error) {
	r := ruleFor(action)
	path, err := r.path(params)
	if err != nil {
		return Request{}, fmt.Errorf("%s %s: %w", action, resource, err)
	}
	return Request{
		Method:  r.method,
		URL:     baseURL + "/" + resource + path,
		Body:    r.body(params),
		Headers: map[string]string{"Content-Type": ContentTypeJSON},
	}, nil
}

func idPath(p Params) (string, error) {
	if p.ID == "" {
		return "", fmt.Errorf("%w: id is required", ErrMalformedParams)
	}
	return "/" + string(p.ID), nil
}

func rootPath(Params) (string, error) {
	return "", nil
}

// dataBody forwards a shallow copy of params.Data for every action, DELETE
// included.
func dataBody(p Params) map[string]any {
	return maps.Clone(p.Data)
}

// listPath renders the GET_LIST query string. Parameters keep the fixed
// order limit, skip, query, sort.
func listPath(p Params) (string, error) {
	if p.Pagination == nil {
		return "", fmt.Errorf("%w: pagination is required", ErrMalformedParams)
	}
	if p.Sort == nil {
		return "", fmt.Errorf("%w: sort is required", ErrMalformedParams)
	}
	query, err := encodeFilter(p.Filter)
	if err != nil {
		return "", fmt.Errorf("%w: filter: %v", ErrMalformedParams, err)
	}

	perPage := p.Pagination.PerPage
	pairs := [][2]string{
		{"limit", strconv.Itoa(perPage)},
		{"skip", strconv.Itoa(perPage * (p.Pagination.Page - 1))},
		{"query", query},
		{"sort", sortParam(*p.Sort)},
	}

	var b strings.Builder
	b.WriteByte('?')
	for i, kv := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeComponent(kv[0]))
		b.WriteByte('=')
		b.WriteString(escapeComponent(kv[1]))
	}
	return b.String(), nil
}

func sortParam(s Sort) string {
	if s.Order == OrderASC {
		return s.Field
	}
	return "-" + s.Field
}

func encodeFilter(filter map[string]any) (string, error) {
	if filter == nil {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(filter); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// componentUnescaper undoes url.QueryEscape for the characters a URI
// component leaves literal.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// escapeComponent percent-encodes s the way a URI component is encoded:
// spaces become %20 and !'()* stay literal.
func escapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}
