package db

import (
	"database/sql"
	"errors"
	"fmt"

	"gridbase/internal/ddl"
)

// Pools bundles the write and read handles of the metadata database. On
// Postgres both fields point at the same pool.
type Pools struct {
	Dialect ddl.Dialect
	Write   *sql.DB
	Read    *sql.DB
}

// Open opens the pools for dialect. For SQLite dsn is a file path.
func Open(dialect ddl.Dialect, dsn string, readMaxOpen int) (*Pools, error) {
	switch dialect {
	case ddl.SQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite database path is required")
		}
		w, r, err := OpenSQLitePair(dsn, readMaxOpen)
		if err != nil {
			return nil, err
		}
		return &Pools{Dialect: dialect, Write: w, Read: r}, nil
	case ddl.Postgres:
		if dsn == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		pg, err := OpenPostgres(dsn, readMaxOpen)
		if err != nil {
			return nil, err
		}
		return &Pools{Dialect: dialect, Write: pg, Read: pg}, nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

// Close closes every distinct pool.
func (p *Pools) Close() error {
	if p.Read == p.Write {
		return p.Write.Close()
	}
	return errors.Join(p.Read.Close(), p.Write.Close())
}
