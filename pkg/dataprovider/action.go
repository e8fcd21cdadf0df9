package dataprovider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ActionType selects the request and response rules applied to a call.
type ActionType string

// Supported action types.
const (
	GetList ActionType = "GET_LIST"
	GetOne  ActionType = "GET_ONE"
	Create  ActionType = "CREATE"
	Update  ActionType = "UPDATE"
	Delete  ActionType = "DELETE"
)

// ActionTypes lists the action types with dedicated rules, in display order.
var ActionTypes = []ActionType{GetList, GetOne, Create, Update, Delete}

// ParseActionType converts s into an ActionType. Unknown names are accepted
// and served by the default rule, so only empty input is rejected.
func ParseActionType(s string) (ActionType, error) {
	if s == "" {
		return "", fmt.Errorf("%w: action type is empty", ErrMalformedParams)
	}
	return ActionType(s), nil
}

// Known reports whether a has a dedicated rule.
func (a ActionType) Known() bool {
	_, ok := rules[a]
	return ok
}

// Sort orders. Anything other than OrderASC sorts descending.
const (
	OrderASC  = "ASC"
	OrderDESC = "DESC"
)

// Pagination selects a single 1-indexed page.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// Sort names the sort field and direction.
type Sort struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// Params carries the per-action arguments. Which fields are read depends on
// the action: GET_LIST uses Filter, Pagination and Sort; GET_ONE, UPDATE and
// DELETE use ID; CREATE and UPDATE use Data.
type Params struct {
	ID         ID             `json:"id,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Filter     map[string]any `json:"filter,omitempty"`
	Pagination *Pagination    `json:"pagination,omitempty"`
	Sort       *Sort          `json:"sort,omitempty"`
}

// ID identifies a single record. It decodes from either a JSON string or a
// JSON number so params written as {"id": 1} work unchanged.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// IntID formats an integer identifier.
func IntID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}
