package ddl

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for timestamps stored as text.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Dialect selects the SQL flavour of generated statements.
type Dialect string

// Supported dialects.
const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a driver or dialect name to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported database dialect %q", s)
	}
}

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

// GooseDialect returns the goose dialect name.
func (d Dialect) GooseDialect() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

// ColumnKind is the logical type of a physical column.
type ColumnKind int

// Column kinds understood by ColumnType.
const (
	KindText ColumnKind = iota
	KindInteger
	KindFloat
	KindBoolean
	KindTimestamp
)

// ColumnType returns the physical SQL type for a column kind.
func (d Dialect) ColumnType(k ColumnKind) string {
	switch k {
	case KindInteger:
		if d == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case KindFloat:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case KindBoolean:
		return "BOOLEAN"
	case KindTimestamp:
		if d == Postgres {
			return "TIMESTAMPTZ"
		}
		return "TEXT"
	default:
		return "TEXT"
	}
}

// DefaultExpr is a column default expression. Values can only be obtained
// from Dialect methods, never from caller-supplied text.
type DefaultExpr struct {
	sql string
}

// IsZero reports whether no default is set.
func (e DefaultExpr) IsZero() bool { return e.sql == "" }

// RandomIDDefault is the column default for generated text keys.
func (d Dialect) RandomIDDefault() DefaultExpr {
	if d == Postgres {
		return DefaultExpr{sql: "(gen_random_uuid()::text)"}
	}
	return DefaultExpr{sql: "(lower(hex(randomblob(16))))"}
}

// NowDefault is the column default for the current UTC timestamp.
func (d Dialect) NowDefault() DefaultExpr {
	if d == Postgres {
		return DefaultExpr{sql: "now()"}
	}
	return DefaultExpr{sql: "(strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))"}
}

// BoolDefault is the column default for a boolean constant.
func (d Dialect) BoolDefault(v bool) DefaultExpr {
	return DefaultExpr{sql: d.BoolLiteral(v)}
}

// BoolLiteral renders a boolean constant.
func (d Dialect) BoolLiteral(v bool) string {
	if d == Postgres {
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
	if v {
		return "1"
	}
	return "0"
}

// Timestamp converts t to the bind value stored in a timestamp column: a
// UTC ISO-8601 string on SQLite, a time.Time on Postgres.
func (d Dialect) Timestamp(t time.Time) any {
	t = t.UTC()
	if d == Postgres {
		return t
	}
	return t.Format(TimestampLayout)
}

// NewParamBuilder returns a builder producing placeholders for this dialect.
func (d Dialect) NewParamBuilder() *ParamBuilder {
	return &ParamBuilder{dialect: d}
}

// ParamBuilder collects bind parameters and hands out the matching placeholder.
type ParamBuilder struct {
	dialect Dialect
	params  []any
}

// Add appends v and returns its placeholder ("?" or "$n").
func (pb *ParamBuilder) Add(v any) string {
	pb.params = append(pb.params, v)
	if pb.dialect == Postgres {
		return "$" + strconv.Itoa(len(pb.params))
	}
	return "?"
}

// Params returns the collected bind parameters in placeholder order.
func (pb *ParamBuilder) Params() []any {
	return pb.params
}

// Rebind rewrites the "?" placeholders of a static query for the dialect.
// The query must not contain "?" inside string literals.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
