package record

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Matches reports whether doc satisfies every equality in filter.
func Matches(doc Document, filter map[string]any) bool {
	for field, want := range filter {
		got, ok := doc[field]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || !Equal(got, want) {
			return false
		}
	}
	return true
}

// Equal compares two JSON values. Numbers compare by value regardless of
// their Go representation.
func Equal(a, b any) bool {
	ra, ka := sortKey(a)
	rb, kb := sortKey(b)
	if ra != rb {
		return false
	}
	switch ra {
	case rankNull:
		return true
	case rankNumber:
		return ka.(float64) == kb.(float64)
	default:
		return ka.(string) == kb.(string)
	}
}

// Compare orders two JSON values: null first, then numbers (booleans count
// as 0 and 1), then strings, then arrays and objects. Arrays and objects
// compare with each other by their JSON text and never equal a string.
func Compare(a, b any) int {
	ra, ka := sortKey(a)
	rb, kb := sortKey(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNull:
		return 0
	case rankNumber:
		fa, fb := ka.(float64), kb.(float64)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	default:
		sa, sb := ka.(string), kb.(string)
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	}
}

const (
	rankNull = iota
	rankNumber
	rankText
	rankComposite
)

// IsComposite reports whether v is a JSON array or object.
func IsComposite(v any) bool {
	r, _ := sortKey(v)
	return r == rankComposite
}

func sortKey(v any) (int, any) {
	switch t := v.(type) {
	case nil:
		return rankNull, nil
	case bool:
		if t {
			return rankNumber, float64(1)
		}
		return rankNumber, float64(0)
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return rankText, t.String()
		}
		return rankNumber, f
	case float64:
		return rankNumber, t
	case float32:
		return rankNumber, float64(t)
	case int:
		return rankNumber, float64(t)
	case int64:
		return rankNumber, float64(t)
	case string:
		return rankText, t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return rankComposite, ""
		}
		return rankComposite, string(b)
	}
}

// Apply filters, sorts and pages docs according to q. docs must be in
// insertion order; ties keep that order.
func Apply(docs []Document, q Query) []Document {
	matched := make([]Document, 0, len(docs))
	for _, d := range docs {
		if Matches(d, q.Filter) {
			matched = append(matched, d)
		}
	}

	if q.SortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := Compare(matched[i][q.SortField], matched[j][q.SortField])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}

	if q.Skip > 0 {
		if q.Skip >= len(matched) {
			return []Document{}
		}
		matched = matched[q.Skip:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched
}
