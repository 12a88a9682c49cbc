package db

import (
	"fmt"
	"reflect"
	"strings"
)

// SELECT builder for the raw queries the repositories issue, such as the
// join table lookups of many-to-many relations.
//
// SECURITY WARNING:
// Table and column names are NOT escaped. They must come from trusted
// configuration. User input belongs in condition values only, which are
// passed as placeholders.

// Operator represents SQL comparison operators
type Operator string

const (
	Equal     Operator = "="
	NotEqual  Operator = "!="
	In        Operator = "IN"
	NotIn     Operator = "NOT IN"
	IsNull    Operator = "IS NULL"
	IsNotNull Operator = "IS NOT NULL"
)

// Condition represents a WHERE clause condition
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// Builder helps build SELECT queries
type Builder struct {
	table      string
	selectCols []string
	distinct   bool
	where      []Condition
	orderBy    []string
	limit      int
}

// NewBuilder creates a new query builder.
// SECURITY: table must be a trusted identifier.
func NewBuilder(table string) *Builder {
	return &Builder{
		table:      table,
		selectCols: []string{"*"},
	}
}

// Select sets the columns to select
func (b *Builder) Select(cols ...string) *Builder {
	b.selectCols = cols
	return b
}

// Distinct enables DISTINCT selection
func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// Where adds a condition; conditions are combined with AND
func (b *Builder) Where(field string, operator Operator, value interface{}) *Builder {
	b.where = append(b.where, Condition{
		Field:    field,
		Operator: operator,
		Value:    value,
	})
	return b
}

// OrderBy adds an ORDER BY clause
func (b *Builder) OrderBy(field string, desc bool) *Builder {
	if desc {
		b.orderBy = append(b.orderBy, field+" DESC")
	} else {
		b.orderBy = append(b.orderBy, field+" ASC")
	}
	return b
}

// Limit sets the LIMIT clause; negative values are normalized to 0
func (b *Builder) Limit(limit int) *Builder {
	if limit < 0 {
		limit = 0
	}
	b.limit = limit
	return b
}

// BuildSelect builds the SELECT query and its placeholder arguments
func (b *Builder) BuildSelect() (string, []interface{}) {
	var query strings.Builder
	var args []interface{}

	query.WriteString("SELECT ")
	if b.distinct {
		query.WriteString("DISTINCT ")
	}
	query.WriteString(strings.Join(b.selectCols, ", "))
	query.WriteString(" FROM ")
	query.WriteString(b.table)

	if len(b.where) > 0 {
		conditions := make([]string, 0, len(b.where))
		for _, cond := range b.where {
			condSQL, condArgs := buildCondition(cond)
			conditions = append(conditions, condSQL)
			args = append(args, condArgs...)
		}
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(conditions, " AND "))
	}

	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limit > 0 {
		fmt.Fprintf(&query, " LIMIT %d", b.limit)
	}

	return query.String(), args
}

// buildCondition builds SQL for a single condition
func buildCondition(cond Condition) (string, []interface{}) {
	switch cond.Operator {
	case IsNull, IsNotNull:
		return fmt.Sprintf("%s %s", cond.Field, cond.Operator), nil
	case In, NotIn:
		return buildInCondition(cond)
	default:
		return fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), []interface{}{cond.Value}
	}
}

// buildInCondition builds IN/NOT IN conditions with one placeholder per value
func buildInCondition(cond Condition) (string, []interface{}) {
	if cond.Value == nil {
		return emptyIn(cond.Operator), nil
	}

	v := reflect.ValueOf(cond.Value)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return fmt.Sprintf("%s %s (?)", cond.Field, cond.Operator), []interface{}{cond.Value}
	}

	length := v.Len()
	if length == 0 {
		return emptyIn(cond.Operator), nil
	}

	placeholders := make([]string, length)
	args := make([]interface{}, length)
	for i := 0; i < length; i++ {
		placeholders[i] = "?"
		args[i] = v.Index(i).Interface()
	}

	return fmt.Sprintf("%s %s (%s)", cond.Field, cond.Operator, strings.Join(placeholders, ", ")), args
}

// emptyIn returns a condition that never (IN) or always (NOT IN) matches
func emptyIn(op Operator) string {
	if op == In {
		return "1 = 0"
	}
	return "1 = 1"
}
