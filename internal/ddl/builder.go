// Package ddl builds SQL statements for the metadata store and the physical
// dataset tables. Every table and column name reaching SQL text is an
// Identifier; every value is a bind parameter.
package ddl

import (
	"fmt"
	"strconv"
	"strings"
)

// ColumnDef describes a column for CREATE TABLE.
type ColumnDef struct {
	Name       Identifier
	Type       string
	PrimaryKey bool
	NotNull    bool
	Default    DefaultExpr
}

// CreateTable returns a DDL statement:
// CREATE TABLE "<table>" ("<col1>" TYPE1 [PRIMARY KEY] [NOT NULL] [DEFAULT ...], ...).
func (d Dialect) CreateTable(table Identifier, columns []ColumnDef) (string, error) {
	if table.IsZero() {
		return "", fmt.Errorf("table name is required")
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("at least one column is required")
	}

	seen := make(map[string]bool, len(columns))
	colDefs := make([]string, 0, len(columns))
	for _, c := range columns {
		if c.Name.IsZero() {
			return "", fmt.Errorf("column name is required")
		}
		key := strings.ToLower(c.Name.String())
		if seen[key] {
			return "", fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[key] = true
		if err := ValidateColumnType(c.Type); err != nil {
			return "", fmt.Errorf("invalid column type for %q: %w", c.Name, err)
		}
		def := c.Name.Quoted() + " " + c.Type
		if c.PrimaryKey {
			def += " PRIMARY KEY"
		}
		if c.NotNull {
			def += " NOT NULL"
		}
		if !c.Default.IsZero() {
			def += " DEFAULT " + c.Default.sql
		}
		colDefs = append(colDefs, def)
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", table.Quoted(), strings.Join(colDefs, ", ")), nil
}

// DropTable returns a DDL statement: DROP TABLE [IF EXISTS] "<table>".
func (d Dialect) DropTable(table Identifier, ifExists bool) (string, error) {
	if table.IsZero() {
		return "", fmt.Errorf("table name is required")
	}
	if ifExists {
		return "DROP TABLE IF EXISTS " + table.Quoted(), nil
	}
	return "DROP TABLE " + table.Quoted(), nil
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	Column Identifier
	Desc   bool
}

// SelectQuery describes a single-table SELECT.
type SelectQuery struct {
	Table   Identifier
	Columns []Identifier
	Where   Predicate
	OrderBy []OrderTerm
	Limit   int // 0 means no LIMIT
	Offset  int
}

// Select renders q. WHERE is omitted for always-true predicates and ORDER BY
// for an empty order list.
func (d Dialect) Select(q SelectQuery) (string, []any, error) {
	if q.Table.IsZero() {
		return "", nil, fmt.Errorf("table name is required")
	}
	if len(q.Columns) == 0 {
		return "", nil, fmt.Errorf("at least one column is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return "", nil, fmt.Errorf("limit and offset must not be negative")
	}

	pb := d.NewParamBuilder()
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(joinQuoted(q.Columns))
	b.WriteString(" FROM ")
	b.WriteString(q.Table.Quoted())

	if !IsTrue(q.Where) {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where.render(pb))
	}

	if len(q.OrderBy) > 0 {
		terms := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			terms[i] = o.Column.Quoted() + " " + dir
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(terms, ", "))
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT " + strconv.Itoa(q.Limit))
		if q.Offset > 0 {
			b.WriteString(" OFFSET " + strconv.Itoa(q.Offset))
		}
	}
	return b.String(), pb.Params(), nil
}

// Insert renders INSERT INTO "<table>" (cols...) VALUES (params...).
func (d Dialect) Insert(table Identifier, columns []Identifier, values []any) (string, []any, error) {
	if table.IsZero() {
		return "", nil, fmt.Errorf("table name is required")
	}
	if len(columns) == 0 {
		return "", nil, fmt.Errorf("at least one column is required")
	}
	if len(columns) != len(values) {
		return "", nil, fmt.Errorf("got %d values for %d columns", len(values), len(columns))
	}
	pb := d.NewParamBuilder()
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = pb.Add(v)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table.Quoted(), joinQuoted(columns), strings.Join(placeholders, ", "))
	return stmt, pb.Params(), nil
}

// Assignment is one SET entry of an UPDATE.
type Assignment struct {
	Column Identifier
	Value  any
}

// Update renders UPDATE "<table>" SET ... WHERE .... An always-true predicate
// is refused so a bug can never rewrite a whole table.
func (d Dialect) Update(table Identifier, set []Assignment, where Predicate) (string, []any, error) {
	if table.IsZero() {
		return "", nil, fmt.Errorf("table name is required")
	}
	if len(set) == 0 {
		return "", nil, fmt.Errorf("at least one assignment is required")
	}
	if IsTrue(where) {
		return "", nil, fmt.Errorf("update requires a WHERE predicate")
	}
	pb := d.NewParamBuilder()
	sets := make([]string, len(set))
	for i, a := range set {
		sets[i] = a.Column.Quoted() + " = " + pb.Add(a.Value)
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table.Quoted(), strings.Join(sets, ", "), where.render(pb))
	return stmt, pb.Params(), nil
}

func joinQuoted(ids []Identifier) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.Quoted()
	}
	return strings.Join(parts, ", ")
}
