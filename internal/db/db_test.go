package db

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbase/internal/ddl"
)

func TestBuildDSN(t *testing.T) {
	write := buildDSN("/tmp/grid.sqlite", ModeWrite)
	read := buildDSN("/tmp/grid.sqlite", ModeRead)

	for _, dsn := range []string{write, read} {
		assert.True(t, strings.HasPrefix(dsn, "/tmp/grid.sqlite?"))
		assert.Contains(t, dsn, "_journal_mode=WAL")
		assert.Contains(t, dsn, "_busy_timeout=5000")
		assert.Contains(t, dsn, "_foreign_keys=on")
	}
	assert.Contains(t, write, "_txlock=immediate")
	assert.NotContains(t, read, "_txlock")
}

func TestOpenSQLite_InvalidMode(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "grid.db"), "both", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid SQLite mode")
}

func TestOpenSQLite_InvalidPath(t *testing.T) {
	_, err := OpenSQLite("/nonexistent/dir/grid.db", ModeWrite, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping sqlite")
}

func TestOpenSQLitePair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.db")

	writeDB, readDB, err := OpenSQLitePair(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = writeDB.Close()
		_ = readDB.Close()
	})

	assert.Equal(t, 1, writeDB.Stats().MaxOpenConnections)
	assert.Equal(t, defaultReadConns, readDB.Stats().MaxOpenConnections)

	var fk int
	require.NoError(t, writeDB.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	_, err = writeDB.Exec(`CREATE TABLE "t" ("id" TEXT PRIMARY KEY, "v" TEXT)`)
	require.NoError(t, err)
	_, err = writeDB.Exec(`INSERT INTO "t" ("id", "v") VALUES (?, ?)`, "a", "hello")
	require.NoError(t, err)

	var v string
	require.NoError(t, readDB.QueryRow(`SELECT "v" FROM "t" WHERE "id" = ?`, "a").Scan(&v))
	assert.Equal(t, "hello", v)
}

func TestOpenSQLitePair_ConcurrentReads(t *testing.T) {
	writeDB, readDB := OpenTestSQLite(t)

	_, err := writeDB.Exec(`CREATE TABLE "nums" ("n" INTEGER)`)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = writeDB.Exec(`INSERT INTO "nums" ("n") VALUES (?)`, i)
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			var count int
			errs[idx] = readDB.QueryRow(`SELECT count(*) FROM "nums"`).Scan(&count)
		}(i)
	}
	wg.Wait()

	for i, e := range errs {
		assert.NoError(t, e, "reader %d failed", i)
	}
}

func TestRunMigrations_CreatesMetadataTables(t *testing.T) {
	writeDB, _ := OpenTestSQLite(t)

	for _, table := range []string{"DataSets", "DataFields"} {
		var name string
		err := writeDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	v, err := MigrationVersion(writeDB, ddl.SQLite)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v, int64(1))

	// idempotent
	require.NoError(t, RunMigrations(writeDB, ddl.SQLite))
}

func TestRunMigrations_FieldsCascadeWithDataset(t *testing.T) {
	writeDB, _ := OpenTestSQLite(t)

	_, err := writeDB.Exec(`INSERT INTO "DataSets" ("id", "name", "table_name", "createdAt", "updatedAt") VALUES ('d1', 'books', 'ds_x', 'now', 'now')`)
	require.NoError(t, err)
	_, err = writeDB.Exec(`INSERT INTO "DataFields" ("id", "dataset_id", "name", "type", "position", "createdAt", "updatedAt") VALUES ('f1', 'd1', 'id', 'STRING', 0, 'now', 'now')`)
	require.NoError(t, err)

	_, err = writeDB.Exec(`INSERT INTO "DataFields" ("id", "dataset_id", "name", "type", "position", "createdAt", "updatedAt") VALUES ('f2', 'd1', 'x', 'DATE', 1, 'now', 'now')`)
	require.Error(t, err, "type check constraint")

	_, err = writeDB.Exec(`DELETE FROM "DataSets" WHERE "id" = 'd1'`)
	require.NoError(t, err)

	var n int
	require.NoError(t, writeDB.QueryRow(`SELECT count(*) FROM "DataFields"`).Scan(&n))
	assert.Equal(t, 0, n)
}

func TestOpen(t *testing.T) {
	pools, err := Open(ddl.SQLite, filepath.Join(t.TempDir(), "grid.db"), 2)
	require.NoError(t, err)
	assert.Equal(t, ddl.SQLite, pools.Dialect)
	assert.NotSame(t, pools.Write, pools.Read)
	assert.Equal(t, 2, pools.Read.Stats().MaxOpenConnections)
	require.NoError(t, pools.Close())

	_, err = Open(ddl.SQLite, "", 0)
	require.Error(t, err)

	_, err = Open(ddl.Postgres, "", 0)
	require.Error(t, err)

	_, err = Open(ddl.Dialect("oracle"), "x", 0)
	require.Error(t, err)
}

func TestOpenPostgres_BadDSN(t *testing.T) {
	_, err := OpenPostgres("postgres://%zz", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse postgres dsn")
}
