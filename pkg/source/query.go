package source

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Filter is an equality condition on one column
type Filter struct {
	Column string
	Value  any
}

// Query is a record-source query specification.
// It is a value type: Where returns a structural copy with one more filter and
// never mutates the receiver, so a template can be refined per parent record.
type Query struct {
	Table   string
	Columns []string // Empty selects all columns
	Filters []Filter
	OrderBy []string
	Route   string // URL route template for the records this query returns
}

// Clone returns a deep copy of the slice-backed fields
func (q Query) Clone() Query {
	c := q
	c.Columns = append([]string(nil), q.Columns...)
	c.Filters = append([]Filter(nil), q.Filters...)
	c.OrderBy = append([]string(nil), q.OrderBy...)
	return c
}

// Where returns a copy of q with an equality filter appended
func (q Query) Where(column string, value any) Query {
	c := q.Clone()
	c.Filters = append(c.Filters, Filter{Column: column, Value: value})
	return c
}

// Matches reports whether attrs satisfy every filter of q
func (q Query) Matches(attrs map[string]any) bool {
	for _, f := range q.Filters {
		v, ok := attrs[f.Column]
		if !ok || !looseEqual(v, f.Value) {
			return false
		}
	}
	return true
}

// ToSQL renders the query with squirrel using the given placeholder format
func (q Query) ToSQL(placeholders sq.PlaceholderFormat) (string, []any, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("query has no table")
	}
	columns := q.Columns
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	builder := sq.Select(columns...).From(q.Table)
	for _, f := range q.Filters {
		builder = builder.Where(sq.Eq{f.Column: f.Value})
	}
	if len(q.OrderBy) > 0 {
		builder = builder.OrderBy(q.OrderBy...)
	}
	return builder.PlaceholderFormat(placeholders).ToSql()
}

// looseEqual compares attribute values across the integer/string shapes that
// YAML fixtures and SQL drivers produce for the same key
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
