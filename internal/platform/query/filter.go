package query

import (
	"fmt"
	"strings"
)

// Op identifies how a filter value is matched against its column.
type Op int

const (
	OpEq      Op = iota // exact equality
	OpLike              // case-insensitive substring match
	OpLikeAny           // substring match over several columns, OR'd
	OpBetween           // inclusive range, requires both bounds
	OpJSONAny           // any of the values present in a jsonb string array, OR'd
)

// Filter is one declarative predicate. A filter whose value is absent or empty
// contributes no clause, so an all-empty filter set compiles to an unfiltered
// listing.
type Filter struct {
	Column  string
	Columns []string // OpLikeAny only
	Op      Op
	Value   interface{}
	Upper   interface{} // OpBetween upper bound
	Values  []string    // OpJSONAny members
}

// Builder assembles a parameterized page query with a window total count.
// Values are always bound positionally, never interpolated.
type Builder struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

func NewBuilder(table, cols string) *Builder {
	return &Builder{table: table, cols: cols, idx: 1}
}

// Apply compiles every supplied filter into the WHERE clause in order.
func (b *Builder) Apply(filters []Filter) {
	for _, f := range filters {
		b.apply(f)
	}
}

func (b *Builder) apply(f Filter) {
	switch f.Op {
	case OpEq:
		if empty(f.Value) {
			return
		}
		b.add(fmt.Sprintf("%s = $%d", f.Column, b.idx), f.Value)
	case OpLike:
		s, ok := f.Value.(string)
		if !ok || s == "" {
			return
		}
		b.add(fmt.Sprintf("%s ILIKE $%d", f.Column, b.idx), "%"+s+"%")
	case OpLikeAny:
		s, ok := f.Value.(string)
		if !ok || s == "" || len(f.Columns) == 0 {
			return
		}
		parts := make([]string, len(f.Columns))
		for i, col := range f.Columns {
			parts[i] = fmt.Sprintf("%s ILIKE $%d", col, b.idx)
		}
		b.add("("+strings.Join(parts, " OR ")+")", "%"+s+"%")
	case OpBetween:
		if empty(f.Value) || empty(f.Upper) {
			return
		}
		b.add(fmt.Sprintf("%s BETWEEN $%d AND $%d", f.Column, b.idx, b.idx+1), f.Value, f.Upper)
	case OpJSONAny:
		if len(f.Values) == 0 {
			return
		}
		parts := make([]string, len(f.Values))
		args := make([]interface{}, len(f.Values))
		for i, v := range f.Values {
			parts[i] = fmt.Sprintf("jsonb_exists(%s, $%d)", f.Column, b.idx+i)
			args[i] = v
		}
		b.add("("+strings.Join(parts, " OR ")+")", args...)
	}
}

// Add appends a raw WHERE clause fragment (without leading "AND").
func (b *Builder) add(clause string, args ...interface{}) {
	b.where += " AND " + clause
	b.args = append(b.args, args...)
	b.idx += len(args)
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (b *Builder) OrderBy(orderBy string) {
	b.orderBy = orderBy
}

// SQL returns the page query. Each row carries a total_count window column so
// the total rides along with the page; an empty page therefore means total 0.
func (b *Builder) SQL() string {
	sql := fmt.Sprintf("SELECT %s, COUNT(*) OVER() AS total_count FROM %s WHERE 1=1%s", b.cols, b.table, b.where)
	if b.orderBy != "" {
		sql += " ORDER BY " + b.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", b.idx, b.idx+1)
	return sql
}

// Args returns the bound arguments for SQL (filter args + limit + offset).
func (b *Builder) Args(limit, offset int) []interface{} {
	result := make([]interface{}, len(b.args)+2)
	copy(result, b.args)
	result[len(b.args)] = limit
	result[len(b.args)+1] = offset
	return result
}

func empty(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}
