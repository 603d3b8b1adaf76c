package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	internaldb "gridbase/internal/db"
	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

// Compile-time check.
var _ domain.DatasetRepository = (*DatasetRepo)(nil)

const (
	datasetColumns = `"id", "name", "table_name", "title", "pluralTitle", "settings", "createdAt", "updatedAt"`
	fieldColumns   = `"id", "dataset_id", "name", "type", "title", "system", "position", "settings", "createdAt", "updatedAt"`
)

var (
	tblDataSets      = ddl.MustIdentifier("DataSets")
	colDatasetID     = ddl.MustIdentifier("id")
	colDatasetName   = ddl.MustIdentifier("name")
	colDatasetTitle  = ddl.MustIdentifier("title")
	colPluralTitle   = ddl.MustIdentifier("pluralTitle")
	colSettings      = ddl.MustIdentifier("settings")
	colMetaUpdatedAt = ddl.MustIdentifier("updatedAt")
)

// DatasetRepo implements DatasetRepository. Writes go through the write
// pool; plain reads use the read pool.
type DatasetRepo struct {
	write   *sql.DB
	read    *sql.DB
	dialect ddl.Dialect
	now     func() time.Time
}

// NewDatasetRepo creates a new DatasetRepo.
func NewDatasetRepo(pools *internaldb.Pools) *DatasetRepo {
	return &DatasetRepo{
		write:   pools.Write,
		read:    pools.Read,
		dialect: pools.Dialect,
		now:     time.Now,
	}
}

// Get returns a dataset with its fields ordered by position.
func (r *DatasetRepo) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	return r.getDataset(ctx, r.read, id)
}

func (r *DatasetRepo) getDataset(ctx context.Context, q querier, id string) (*domain.Dataset, error) {
	row := q.QueryRowContext(ctx,
		r.dialect.Rebind(`SELECT `+datasetColumns+` FROM "DataSets" WHERE "id" = ?`), id)
	ds, err := scanDataset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("dataset %q not found", id)
	}
	if err != nil {
		return nil, mapDBError("get dataset", err)
	}
	list := []domain.Dataset{*ds}
	if err := r.attachFields(ctx, q, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// List returns a page of datasets ordered by creation time, plus the total.
func (r *DatasetRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	var total int64
	if err := r.read.QueryRowContext(ctx, `SELECT count(*) FROM "DataSets"`).Scan(&total); err != nil {
		return nil, 0, mapDBError("count datasets", err)
	}

	rows, err := r.read.QueryContext(ctx,
		r.dialect.Rebind(`SELECT `+datasetColumns+` FROM "DataSets" ORDER BY "createdAt", "id" LIMIT ? OFFSET ?`),
		page.Limit(), page.Offset())
	if err != nil {
		return nil, 0, mapDBError("list datasets", err)
	}
	datasets, err := scanDatasets(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachFields(ctx, r.read, datasets); err != nil {
		return nil, 0, err
	}
	return datasets, total, nil
}

// ListAll returns every dataset with its fields.
func (r *DatasetRepo) ListAll(ctx context.Context) ([]domain.Dataset, error) {
	rows, err := r.read.QueryContext(ctx, `SELECT `+datasetColumns+` FROM "DataSets" ORDER BY "createdAt", "id"`)
	if err != nil {
		return nil, mapDBError("list datasets", err)
	}
	datasets, err := scanDatasets(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachFields(ctx, r.read, datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

// Update changes dataset metadata. The physical table is left untouched.
func (r *DatasetRepo) Update(ctx context.Context, id string, req domain.UpdateDatasetRequest) (*domain.Dataset, error) {
	tx, err := r.write.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapDBError("begin update dataset", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, r.dialect.Rebind(`SELECT 1 FROM "DataSets" WHERE "id" = ?`), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("dataset %q not found", id)
	}
	if err != nil {
		return nil, mapDBError("get dataset", err)
	}

	var set []ddl.Assignment
	if req.Name != nil {
		set = append(set, ddl.Assignment{Column: colDatasetName, Value: *req.Name})
	}
	if req.Title != nil {
		set = append(set, ddl.Assignment{Column: colDatasetTitle, Value: *req.Title})
	}
	if req.PluralTitle != nil {
		set = append(set, ddl.Assignment{Column: colPluralTitle, Value: *req.PluralTitle})
	}
	if len(req.Settings) > 0 {
		set = append(set, ddl.Assignment{Column: colSettings, Value: settingsValue(req.Settings)})
	}
	set = append(set, ddl.Assignment{Column: colMetaUpdatedAt, Value: r.dialect.Timestamp(r.now())})

	stmt, args, err := r.dialect.Update(tblDataSets, set, ddl.Eq(colDatasetID, id))
	if err != nil {
		return nil, fmt.Errorf("build update dataset: %w", err)
	}
	if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
		return nil, mapDBError("update dataset", err)
	}

	ds, err := r.getDataset(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, mapDBError("commit update dataset", err)
	}
	return ds, nil
}

// TableExists reports whether a physical table called table exists.
func (r *DatasetRepo) TableExists(ctx context.Context, table string) (bool, error) {
	query := `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if r.dialect == ddl.Postgres {
		query = `SELECT count(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = $1`
	}
	var n int
	if err := r.read.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, mapDBError("check table", err)
	}
	return n > 0, nil
}

// attachFields loads the fields of every dataset in one query.
func (r *DatasetRepo) attachFields(ctx context.Context, q querier, datasets []domain.Dataset) error {
	if len(datasets) == 0 {
		return nil
	}
	index := make(map[string]int, len(datasets))
	placeholders := make([]string, len(datasets))
	args := make([]any, len(datasets))
	for i, ds := range datasets {
		index[ds.ID] = i
		placeholders[i] = "?"
		args[i] = ds.ID
		datasets[i].Fields = []domain.Field{}
	}

	query := `SELECT ` + fieldColumns + ` FROM "DataFields" WHERE "dataset_id" IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY "dataset_id", "position"`
	rows, err := q.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return mapDBError("list fields", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return mapDBError("scan field", err)
		}
		i := index[f.DatasetID]
		datasets[i].Fields = append(datasets[i].Fields, *f)
	}
	return mapDBError("list fields", rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDataset(row rowScanner) (*domain.Dataset, error) {
	var (
		ds                   domain.Dataset
		settings             dbJSON
		createdAt, updatedAt dbTime
	)
	if err := row.Scan(&ds.ID, &ds.Name, &ds.TableName, &ds.Title, &ds.PluralTitle,
		&settings, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	ds.Settings = settings.Raw
	ds.CreatedAt = createdAt.Time
	ds.UpdatedAt = updatedAt.Time
	return &ds, nil
}

func scanDatasets(rows *sql.Rows) ([]domain.Dataset, error) {
	defer rows.Close()
	var out []domain.Dataset
	for rows.Next() {
		ds, err := scanDataset(rows)
		if err != nil {
			return nil, mapDBError("scan dataset", err)
		}
		out = append(out, *ds)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError("list datasets", err)
	}
	return out, nil
}

func scanField(row rowScanner) (*domain.Field, error) {
	var (
		f                    domain.Field
		typ                  string
		settings             dbJSON
		createdAt, updatedAt dbTime
	)
	if err := row.Scan(&f.ID, &f.DatasetID, &f.Name, &typ, &f.Title, &f.System, &f.Position,
		&settings, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	f.Type = domain.FieldType(typ)
	f.Settings = settings.Raw
	f.CreatedAt = createdAt.Time
	f.UpdatedAt = updatedAt.Time
	return &f, nil
}
