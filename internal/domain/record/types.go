// Package record defines the documents served by the sandbox backend and
// the query rules every store implementation follows.
package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// PrimaryKey is the identifier field stored in every document.
const PrimaryKey = "_id"

// Document is a schemaless JSON object.
type Document map[string]any

// ID returns the document's primary key as a string.
func (d Document) ID() (string, error) {
	v, ok := d[PrimaryKey]
	if !ok {
		return "", ErrMissingID
	}
	return FormatID(v)
}

// FormatID converts a primary key value into its path form.
func FormatID(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", ErrMissingID
		}
		return id, nil
	case json.Number:
		return id.String(), nil
	case int:
		return strconv.Itoa(id), nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: unsupported id type %T", ErrInvalidDocument, v)
	}
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]any(d)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Document:
		return Document(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Decode parses a JSON object keeping numbers as json.Number.
func Decode(b []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is null", ErrInvalidDocument)
	}
	return doc, nil
}

// Normalize round-trips v through JSON so documents from any source (YAML
// seeds, request bodies) share the same value types.
func Normalize(v any) (Document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return Decode(b)
}

// ValidateCollection rejects names that cannot appear as a single URL path
// segment.
func ValidateCollection(name string) error {
	if name == "" || strings.ContainsAny(name, "/?#") {
		return fmt.Errorf("%w: %q", ErrInvalidCollection, name)
	}
	return nil
}

// Query selects a page of documents from a collection.
type Query struct {
	// Filter holds top-level field equality constraints. A nil value matches
	// documents where the field is missing or null.
	Filter map[string]any
	// SortField orders the result; empty keeps insertion order.
	SortField string
	// Descending reverses the sort order.
	Descending bool
	// Skip drops the first Skip matches.
	Skip int
	// Limit caps the page size; zero or negative means no limit.
	Limit int
}

// ParseSort splits a sort parameter such as "-name" into field and direction.
func ParseSort(s string) (field string, descending bool) {
	if strings.HasPrefix(s, "-") {
		return s[1:], true
	}
	return s, false
}

// ValidateField rejects field names that cannot be addressed as a top-level
// JSON key.
func ValidateField(field string) error {
	if field == "" || strings.ContainsAny(field, "\"\\") {
		return fmt.Errorf("%w: invalid field name %q", ErrInvalidQuery, field)
	}
	return nil
}

// Validate checks the query's field names and bounds.
func (q Query) Validate() error {
	if q.Skip < 0 {
		return fmt.Errorf("%w: skip must not be negative", ErrInvalidQuery)
	}
	if q.SortField != "" {
		if err := ValidateField(q.SortField); err != nil {
			return err
		}
	}
	for field := range q.Filter {
		if err := ValidateField(field); err != nil {
			return err
		}
	}
	return nil
}
