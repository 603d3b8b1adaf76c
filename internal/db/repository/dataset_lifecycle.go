package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

var (
	colRecordID  = ddl.MustIdentifier(domain.ColumnID)
	colTrashed   = ddl.MustIdentifier(domain.ColumnTrashed)
	colCreatedAt = ddl.MustIdentifier(domain.ColumnCreatedAt)
	colUpdatedAt = ddl.MustIdentifier(domain.ColumnUpdatedAt)
)

// Create inserts the dataset row, its field rows and the physical table in
// one transaction. ds must carry its ID, TableName and Fields; timestamps
// are assigned here. Nothing is left behind when any step fails. Every
// failure, unique violations included, is a StorageError.
func (r *DatasetRepo) Create(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	createTable, err := r.createTableStmt(ds)
	if err != nil {
		return nil, err
	}

	tx, err := r.write.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.ErrStorage("begin create dataset", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := r.now().UTC()
	ts := r.dialect.Timestamp(now)

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(`INSERT INTO "DataSets" (`+datasetColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		ds.ID, ds.Name, ds.TableName, ds.Title, ds.PluralTitle, settingsValue(ds.Settings), ts, ts)
	if err != nil {
		return nil, domain.ErrStorage("insert dataset", err)
	}

	insertField := r.dialect.Rebind(`INSERT INTO "DataFields" (` + fieldColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, f := range ds.Fields {
		_, err = tx.ExecContext(ctx, insertField,
			f.ID, ds.ID, f.Name, string(f.Type), f.Title, f.System, f.Position, settingsValue(f.Settings), ts, ts)
		if err != nil {
			return nil, domain.ErrStorage(fmt.Sprintf("insert field %q", f.Name), err)
		}
	}

	if _, err := tx.ExecContext(ctx, createTable); err != nil {
		return nil, domain.ErrStorage("create table", err)
	}

	created, err := r.getDataset(ctx, tx, ds.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.ErrStorage("commit create dataset", err)
	}
	return created, nil
}

// Delete removes the dataset row, its field rows and drops the physical
// table in one transaction, returning the dataset as it was. On any failure
// the dataset stays exactly as before.
func (r *DatasetRepo) Delete(ctx context.Context, id string) (*domain.Dataset, error) {
	tx, err := r.write.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapDBError("begin delete dataset", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ds, err := r.getDataset(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	table, err := ddl.NewIdentifier(ds.TableName)
	if err != nil {
		return nil, domain.ErrIdentifier(ds.TableName, errors.Unwrap(err))
	}
	dropTable, err := r.dialect.DropTable(table, false)
	if err != nil {
		return nil, fmt.Errorf("build drop table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM "DataFields" WHERE "dataset_id" = ?`), id); err != nil {
		return nil, mapDBError("delete fields", err)
	}
	res, err := tx.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM "DataSets" WHERE "id" = ?`), id)
	if err != nil {
		return nil, mapDBError("delete dataset", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, domain.ErrNotFound("dataset %q not found", id)
	}
	if _, err := tx.ExecContext(ctx, dropTable); err != nil {
		return nil, mapDBError("drop table", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapDBError("commit delete dataset", err)
	}
	return ds, nil
}

// createTableStmt renders the CREATE TABLE for ds: the bookkeeping columns
// followed by one column per non-system field.
func (r *DatasetRepo) createTableStmt(ds *domain.Dataset) (string, error) {
	table, err := ddl.NewIdentifier(ds.TableName)
	if err != nil {
		return "", domain.ErrIdentifier(ds.TableName, errors.Unwrap(err))
	}

	d := r.dialect
	cols := []ddl.ColumnDef{
		{Name: colRecordID, Type: d.ColumnType(ddl.KindText), PrimaryKey: true, NotNull: true, Default: d.RandomIDDefault()},
		{Name: colTrashed, Type: d.ColumnType(ddl.KindBoolean), NotNull: true, Default: d.BoolDefault(false)},
		{Name: colCreatedAt, Type: d.ColumnType(ddl.KindTimestamp), NotNull: true, Default: d.NowDefault()},
		{Name: colUpdatedAt, Type: d.ColumnType(ddl.KindTimestamp), NotNull: true, Default: d.NowDefault()},
	}
	for _, f := range ds.Fields {
		if f.System || domain.IsReservedColumn(f.Name) {
			continue
		}
		name, err := ddl.NewIdentifier(f.Name)
		if err != nil {
			return "", domain.ErrIdentifier(f.Name, errors.Unwrap(err))
		}
		cols = append(cols, ddl.ColumnDef{Name: name, Type: d.ColumnType(f.Type.ColumnKind())})
	}

	stmt, err := d.CreateTable(table, cols)
	if err != nil {
		return "", domain.ErrValidation("invalid table definition: %v", err)
	}
	return stmt, nil
}

// Compile-time check.
var _ querier = (*sql.Tx)(nil)
