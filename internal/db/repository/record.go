package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	internaldb "gridbase/internal/db"
	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

// Compile-time check.
var _ domain.RecordRepository = (*RecordRepo)(nil)

// RecordRepo executes grid statements against physical dataset tables.
type RecordRepo struct {
	write   *sql.DB
	read    *sql.DB
	dialect ddl.Dialect
}

// NewRecordRepo creates a new RecordRepo.
func NewRecordRepo(pools *internaldb.Pools) *RecordRepo {
	return &RecordRepo{write: pools.Write, read: pools.Read, dialect: pools.Dialect}
}

// Dialect returns the SQL dialect of the underlying database.
func (r *RecordRepo) Dialect() ddl.Dialect { return r.dialect }

// Select runs q and decodes every row by the types of ds's fields.
func (r *RecordRepo) Select(ctx context.Context, ds *domain.Dataset, q ddl.SelectQuery) ([]domain.Record, error) {
	stmt, args, err := r.dialect.Select(q)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := r.read.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, domain.ErrStorage("select records", err)
	}
	defer rows.Close()

	kinds := make([]columnKind, len(q.Columns))
	for i, c := range q.Columns {
		kinds[i] = kindOf(ds, c.String())
	}

	out := make([]domain.Record, 0)
	for rows.Next() {
		values := make([]any, len(q.Columns))
		ptrs := make([]any, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, domain.ErrStorage("scan record", err)
		}
		rec := make(domain.Record, len(q.Columns))
		for i, c := range q.Columns {
			rec[c.String()] = decodeValue(kinds[i], values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStorage("select records", err)
	}
	return out, nil
}

// Insert adds one row.
func (r *RecordRepo) Insert(ctx context.Context, ds *domain.Dataset, values []ddl.Assignment) error {
	table, err := ddl.NewIdentifier(ds.TableName)
	if err != nil {
		return domain.ErrIdentifier(ds.TableName, err)
	}
	cols := make([]ddl.Identifier, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		cols[i] = v.Column
		args[i] = r.bind(v.Value)
	}
	stmt, params, err := r.dialect.Insert(table, cols, args)
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.write.ExecContext(ctx, stmt, params...); err != nil {
		return mapDBError("insert record", err)
	}
	return nil
}

// Update applies set to the rows matching where and returns how many rows
// changed.
func (r *RecordRepo) Update(ctx context.Context, ds *domain.Dataset, set []ddl.Assignment, where ddl.Predicate) (int64, error) {
	table, err := ddl.NewIdentifier(ds.TableName)
	if err != nil {
		return 0, domain.ErrIdentifier(ds.TableName, err)
	}
	bound := make([]ddl.Assignment, len(set))
	for i, a := range set {
		bound[i] = ddl.Assignment{Column: a.Column, Value: r.bind(a.Value)}
	}
	stmt, params, err := r.dialect.Update(table, bound, where)
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}
	res, err := r.write.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, mapDBError("update record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.ErrStorage("rows affected", err)
	}
	return n, nil
}

// bind converts time values to the dialect's timestamp representation.
func (r *RecordRepo) bind(v any) any {
	if t, ok := v.(time.Time); ok {
		return r.dialect.Timestamp(t)
	}
	return v
}

type columnKind int

const (
	kindText columnKind = iota
	kindInteger
	kindFloat
	kindBoolean
	kindTimestamp
)

func kindOf(ds *domain.Dataset, column string) columnKind {
	switch column {
	case domain.ColumnTrashed:
		return kindBoolean
	case domain.ColumnCreatedAt, domain.ColumnUpdatedAt:
		return kindTimestamp
	}
	f, ok := ds.FieldByName(column)
	if !ok {
		return kindText
	}
	switch f.Type {
	case domain.FieldInteger:
		return kindInteger
	case domain.FieldFloat:
		return kindFloat
	case domain.FieldBoolean:
		return kindBoolean
	default:
		return kindText
	}
}

// decodeValue normalizes driver values so SQLite and Postgres rows look the
// same: booleans as bool, timestamps as ISO-8601 strings, text as string.
func decodeValue(kind columnKind, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}
	switch kind {
	case kindBoolean:
		switch x := v.(type) {
		case int64:
			return x != 0
		case string:
			return x == "1" || x == "true" || x == "TRUE"
		}
	case kindInteger:
		if x, ok := v.(float64); ok && x == float64(int64(x)) {
			return int64(x)
		}
	case kindFloat:
		if x, ok := v.(int64); ok {
			return float64(x)
		}
	case kindTimestamp:
		if x, ok := v.(time.Time); ok {
			return x.UTC().Format(ddl.TimestampLayout)
		}
	case kindText:
		switch x := v.(type) {
		case int64, float64, bool:
			return fmt.Sprint(x)
		}
	}
	return v
}
