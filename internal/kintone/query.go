package kintone

import (
	"strconv"
	"strings"
)

// Query builds a record store query string. Conditions are joined with "and".
type Query struct {
	where []string
	order []string
	limit int
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{}
}

// Where appends one condition built with Eq, NotIn or Or.
func (q *Query) Where(cond string) *Query {
	if strings.TrimSpace(cond) != "" {
		q.where = append(q.where, cond)
	}
	return q
}

// OrderBy appends a sort key.
func (q *Query) OrderBy(field string, desc bool) *Query {
	dir := "asc"
	if desc {
		dir = "desc"
	}
	q.order = append(q.order, field+" "+dir)
	return q
}

// Limit caps the number of returned records. Zero leaves the server default.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// String renders the query.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(q.where, " and "))
	if len(q.order) > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("order by " + strings.Join(q.order, ", "))
	}
	if q.limit > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("limit " + strconv.Itoa(q.limit))
	}
	return b.String()
}

// Eq renders field = "value".
func Eq(field, value string) string {
	return field + " = " + quote(value)
}

// NotIn renders field not in ("a", "b").
func NotIn(field string, values ...string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, quote(v))
	}
	return field + " not in (" + strings.Join(quoted, ", ") + ")"
}

// Or groups conditions with "or".
func Or(conds ...string) string {
	return "(" + strings.Join(conds, " or ") + ")"
}

func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `"`, `\"`)
	return `"` + value + `"`
}
