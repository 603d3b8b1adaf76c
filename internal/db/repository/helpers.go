// Package repository implements the domain repositories on database/sql for
// SQLite and Postgres.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"gridbase/internal/domain"
)

// pgUniqueViolation is the SQLSTATE of a unique constraint violation.
const pgUniqueViolation = "23505"

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// mapDBError classifies a driver error: missing rows become NotFound, unique
// violations become Conflict and everything else a StorageError for op.
func mapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if isUniqueViolation(err) {
		return domain.ErrConflict("resource already exists")
	}
	return domain.ErrStorage(op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// dbTime scans timestamps stored as ISO-8601 text (SQLite) or TIMESTAMPTZ
// (Postgres).
type dbTime struct {
	Time time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// dbJSON scans an opaque JSON document stored as TEXT or JSONB.
type dbJSON struct {
	Raw json.RawMessage
}

func (j *dbJSON) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		j.Raw = nil
	case string:
		j.Raw = json.RawMessage(v)
	case []byte:
		j.Raw = append(json.RawMessage(nil), v...)
	default:
		return fmt.Errorf("unsupported json type %T", src)
	}
	return nil
}

var (
	_ sql.Scanner = (*dbTime)(nil)
	_ sql.Scanner = (*dbJSON)(nil)
)

// settingsValue returns the stored form of an opaque settings document.
func settingsValue(raw json.RawMessage) driver.Value {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
