package grid

import (
	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

var (
	colTrashed   = ddl.MustIdentifier(domain.ColumnTrashed)
	colCreatedAt = ddl.MustIdentifier(domain.ColumnCreatedAt)
	colUpdatedAt = ddl.MustIdentifier(domain.ColumnUpdatedAt)
)

// Options configures a Resolver.
type Options struct {
	Strict       bool // reject unknown fields instead of dropping them
	DefaultLimit int
	MaxLimit     int
}

// Resolver plans grid statements for a dataset.
type Resolver struct {
	strict bool
	pager  Paginator
}

// NewResolver creates a Resolver.
func NewResolver(opts Options) *Resolver {
	return &Resolver{
		strict: opts.Strict,
		pager:  Paginator{DefaultLimit: opts.DefaultLimit, MaxLimit: opts.MaxLimit},
	}
}

// Strict reports whether unknown fields are rejected.
func (r *Resolver) Strict() bool { return r.strict }

// Window resolves a limit/page pair.
func (r *Resolver) Window(limit, page int) domain.Window {
	return r.pager.Paginate(limit, page)
}

// SelectGrid plans the SELECT for a grid page over the non-trashed rows of
// ds. visible is the field set allowed by the access policy.
func (r *Resolver) SelectGrid(ds *domain.Dataset, visible []domain.Field, q domain.GridQuery) (ddl.SelectQuery, error) {
	table, err := TableIdentifier(ds)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	fs := NewFieldSet(ds, visible)

	fields, err := ResolveProjection(fs, q.Fields, r.strict)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	cols, err := Identifiers(fields)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	where, err := CompileFilter(fs, q.Filter, r.strict)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	order, err := ResolveSort(fs, q.Sort, r.strict)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	win := r.Window(q.Limit, q.Page)

	return ddl.SelectQuery{
		Table:   table,
		Columns: cols,
		Where:   ddl.And(where, ddl.IsBool(colTrashed, false)),
		OrderBy: order,
		Limit:   win.Limit,
		Offset:  win.Offset,
	}, nil
}

// SelectRecord plans the lookup of one non-trashed record by identifier.
func (r *Resolver) SelectRecord(ds *domain.Dataset, visible []domain.Field, q domain.GridRecordQuery) (ddl.SelectQuery, error) {
	table, err := TableIdentifier(ds)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	fs := NewFieldSet(ds, visible)
	fields, err := ResolveProjection(fs, q.Fields, r.strict)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	cols, err := Identifiers(fields)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	idCol, err := column(fs.ID().Name)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	return ddl.SelectQuery{
		Table:   table,
		Columns: cols,
		Where:   ddl.And(ddl.Eq(idCol, q.RecordID), ddl.IsBool(colTrashed, false)),
		Limit:   1,
	}, nil
}

// SelectLookup plans a direct identifier lookup that ignores the trashed
// flag and returns every field plus the bookkeeping columns.
func (r *Resolver) SelectLookup(ds *domain.Dataset, visible []domain.Field, recordID string) (ddl.SelectQuery, error) {
	table, err := TableIdentifier(ds)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	fs := NewFieldSet(ds, visible)
	cols, err := Identifiers(fs.Fields())
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	idCol, err := column(fs.ID().Name)
	if err != nil {
		return ddl.SelectQuery{}, err
	}
	cols = append(cols, colTrashed, colCreatedAt, colUpdatedAt)
	return ddl.SelectQuery{
		Table:   table,
		Columns: cols,
		Where:   ddl.Eq(idCol, recordID),
		Limit:   1,
	}, nil
}

// Payload sanitizes a write payload with the resolver's strictness.
func (r *Resolver) Payload(ds *domain.Dataset, payload map[string]any) ([]ddl.Assignment, error) {
	return SanitizePayload(ds, payload, r.strict)
}

// TableIdentifier validates the physical table name of ds.
func TableIdentifier(ds *domain.Dataset) (ddl.Identifier, error) {
	id, err := ddl.NewIdentifier(ds.TableName)
	if err != nil {
		return ddl.Identifier{}, domain.ErrIdentifier(ds.TableName, ddl.ValidateIdentifier(ds.TableName))
	}
	return id, nil
}
