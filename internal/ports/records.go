package ports

import (
	"context"
	"encoding/json"
)

// Operator is a filter comparison operator understood by the record service.
type Operator string

const (
	OpEq       Operator = "eq"
	OpContains Operator = "contains"
)

// Condition is one node of the record-service filter grammar. A leaf sets
// Field/Operator/Value; a composite sets exactly one of And or Or. The
// zero value means "no filter".
type Condition struct {
	Field    string      `json:"field,omitempty"`
	Operator Operator    `json:"operator,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	And      []Condition `json:"and,omitempty"`
	Or       []Condition `json:"or,omitempty"`
}

// Eq builds an equality leaf condition.
func Eq(field string, value interface{}) Condition {
	return Condition{Field: field, Operator: OpEq, Value: value}
}

// Contains builds a substring-match leaf condition. Matching is
// case-sensitive on the service side.
func Contains(field string, value interface{}) Condition {
	return Condition{Field: field, Operator: OpContains, Value: value}
}

// And combines conditions conjunctively.
func And(conditions ...Condition) Condition {
	return Condition{And: conditions}
}

// Or combines conditions disjunctively.
func Or(conditions ...Condition) Condition {
	return Condition{Or: conditions}
}

// IsLeaf reports whether the condition is a field comparison rather than
// a composite.
func (c Condition) IsLeaf() bool {
	return len(c.And) == 0 && len(c.Or) == 0
}

// OrderBy names a sort field and direction ("asc" or "desc").
type OrderBy struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// PagingInfo is the record service's offset pagination window.
type PagingInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// RecordQuery shapes a fetchRecords call: requested field list, optional
// filter tree, pagination window and sort order.
type RecordQuery struct {
	Fields  []string    `json:"fields,omitempty"`
	Filter  *Condition  `json:"filter,omitempty"`
	Paging  *PagingInfo `json:"pagingInfo,omitempty"`
	OrderBy []OrderBy   `json:"orderBy,omitempty"`
}

// RecordPage is one page of query results plus the server-reported total
// row count, used to derive page counts client-side.
type RecordPage struct {
	Data  []json.RawMessage `json:"data"`
	Total int               `json:"totalRecordCount"`
}

// RecordClient is the consumed record-service contract: table-like CRUD
// storage hosted by the external backend. All calls are single
// request/response exchanges; no call retries on failure.
type RecordClient interface {
	FetchRecords(ctx context.Context, table string, query RecordQuery) (*RecordPage, error)
	FetchRecord(ctx context.Context, table, id string) (json.RawMessage, error)
	CreateRecord(ctx context.Context, table string, record interface{}) (json.RawMessage, error)
	UpdateRecord(ctx context.Context, table, id string, record interface{}) (json.RawMessage, error)
	DeleteRecord(ctx context.Context, table, id string) error

	// SetToken binds the session token attached to subsequent requests.
	// An empty token clears it.
	SetToken(token string)
}
