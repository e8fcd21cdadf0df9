package dataprovider

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultPrimaryKey is the backend field renamed to "id" in every record.
const DefaultPrimaryKey = "_id"

// IDField is the caller-facing identifier field.
const IDField = "id"

// Record is a single backend document.
type Record map[string]any

// Result is the normalized response envelope. Data holds a Record for
// singular actions and a []Record for GET_LIST. Total is set only for
// GET_LIST and equals the number of records on the returned page.
type Result struct {
	Data  any  `json:"data" yaml:"data"`
	Total *int `json:"total,omitempty" yaml:"total,omitempty"`
}

// Record returns Data as a single record.
func (r *Result) Record() (Record, bool) {
	rec, ok := r.Data.(Record)
	return rec, ok
}

// Records returns Data as a list of records.
func (r *Result) Records() ([]Record, bool) {
	recs, ok := r.Data.([]Record)
	return recs, ok
}

// NormalizeResponse reshapes raw for action using DefaultPrimaryKey.
func NormalizeResponse(action ActionType, raw *RawResponse) (*Result, error) {
	return normalizeResponse(action, raw, DefaultPrimaryKey)
}

func normalizeResponse(action ActionType, raw *RawResponse, primaryKey string) (*Result, error) {
	if raw == nil {
		return nil, fmt.Errorf("%w: no response", ErrMalformedResponse)
	}
	data, err := decodeData(raw.Data)
	if err != nil {
		return nil, err
	}
	return ruleFor(action).normalize(data, primaryKey)
}

// decodeData parses the payload keeping numbers as json.Number so values
// are carried through unchanged.
func decodeData(b json.RawMessage) (any, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: data is missing", ErrMalformedResponse)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if v == nil {
		return nil, fmt.Errorf("%w: data is null", ErrMalformedResponse)
	}
	return v, nil
}

func normalizeOne(data any, primaryKey string) (*Result, error) {
	obj, ok := data.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a record, got %s", ErrMalformedResponse, jsonKind(data))
	}
	return &Result{Data: RenameKey(obj, primaryKey, IDField)}, nil
}

func normalizeList(data any, primaryKey string) (*Result, error) {
	items, ok := data.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of records, got %s", ErrMalformedResponse, jsonKind(data))
	}
	records := make([]Record, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d: expected a record, got %s", ErrMalformedResponse, i, jsonKind(item))
		}
		records = append(records, RenameKey(obj, primaryKey, IDField))
	}
	total := len(records)
	return &Result{Data: records, Total: &total}, nil
}

// RenameKey returns a copy of rec with field from renamed to to. When from
// is absent the copy is otherwise identical to rec, so applying RenameKey to
// an already renamed record is a no-op. rec is never modified.
func RenameKey(rec map[string]any, from, to string) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		if k == from {
			continue
		}
		out[k] = v
	}
	if v, ok := rec[from]; ok {
		out[to] = v
	}
	return out
}

func jsonKind(v any) string {
	switch v.(type) {
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}
