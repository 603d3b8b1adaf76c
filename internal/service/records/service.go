// Package records implements the grid query engine and the record mutation
// pipeline over the physical table of a dataset.
package records

import (
	"context"
	"log/slog"
	"time"

	"gridbase/internal/ddl"
	"gridbase/internal/domain"
	"gridbase/internal/grid"
	"gridbase/internal/metrics"
)

// DatasetGetter loads dataset metadata.
type DatasetGetter interface {
	Get(ctx context.Context, id string) (*domain.Dataset, error)
}

var (
	colID        = ddl.MustIdentifier(domain.ColumnID)
	colTrashed   = ddl.MustIdentifier(domain.ColumnTrashed)
	colCreatedAt = ddl.MustIdentifier(domain.ColumnCreatedAt)
	colUpdatedAt = ddl.MustIdentifier(domain.ColumnUpdatedAt)
)

// Service reads and mutates the records of datasets.
type Service struct {
	datasets DatasetGetter
	records  domain.RecordRepository
	resolver *grid.Resolver
	policy   domain.FieldAccessPolicy
	logger   *slog.Logger
	metrics  *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithFieldAccessPolicy replaces the default allow-all policy.
func WithFieldAccessPolicy(p domain.FieldAccessPolicy) Option {
	return func(s *Service) { s.policy = p }
}

// WithMetrics records operation metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a record Service.
func NewService(datasets DatasetGetter, records domain.RecordRepository, resolver *grid.Resolver, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		datasets: datasets,
		records:  records,
		resolver: resolver,
		policy:   domain.AllowAllFields,
		logger:   logger.With("component", "records"),
		now:      time.Now,
		newID:    domain.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// === Grid Query Engine ===

// GetGrid returns one page of non-trashed records. Meta.Count is the number
// of rows in the page.
func (s *Service) GetGrid(ctx context.Context, q domain.GridQuery) (_ *domain.GridResult, err error) {
	defer s.observe(ctx, "grid.query", time.Now(), &err)

	ds, visible, err := s.load(ctx, q.DatasetID)
	if err != nil {
		return nil, err
	}
	sel, err := s.resolver.SelectGrid(ds, visible, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.records.Select(ctx, ds, sel)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveGridRows(len(rows))
	return &domain.GridResult{Data: rows, Meta: domain.GridMeta{Count: len(rows)}}, nil
}

// GetGridRecord returns one non-trashed record.
func (s *Service) GetGridRecord(ctx context.Context, q domain.GridRecordQuery) (_ domain.Record, err error) {
	defer s.observe(ctx, "grid.get", time.Now(), &err)

	ds, visible, err := s.load(ctx, q.DatasetID)
	if err != nil {
		return nil, err
	}
	sel, err := s.resolver.SelectRecord(ds, visible, q)
	if err != nil {
		return nil, err
	}
	return s.first(ctx, ds, sel, q.RecordID)
}

// LookupRecord returns a record by identifier whether or not it is trashed,
// including the bookkeeping columns.
func (s *Service) LookupRecord(ctx context.Context, datasetID, recordID string) (_ domain.Record, err error) {
	defer s.observe(ctx, "grid.lookup", time.Now(), &err)

	ds, visible, err := s.load(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	sel, err := s.resolver.SelectLookup(ds, visible, recordID)
	if err != nil {
		return nil, err
	}
	return s.first(ctx, ds, sel, recordID)
}

// === Record Mutation Pipeline ===

// CreateRecord inserts a record built from the writable fields of payload.
func (s *Service) CreateRecord(ctx context.Context, datasetID string, payload map[string]any) (_ *domain.CreateRecordResult, err error) {
	defer s.observe(ctx, "record.create", time.Now(), &err)

	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	values, err := s.resolver.Payload(ds, payload)
	if err != nil {
		return nil, err
	}

	id := s.newID()
	now := s.now().UTC()
	row := make([]ddl.Assignment, 0, len(values)+4)
	row = append(row,
		ddl.Assignment{Column: colID, Value: id},
		ddl.Assignment{Column: colTrashed, Value: false},
		ddl.Assignment{Column: colCreatedAt, Value: now},
		ddl.Assignment{Column: colUpdatedAt, Value: now},
	)
	row = append(row, values...)

	if err := s.records.Insert(ctx, ds, row); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "record created", "dataset_id", ds.ID, "record_id", id, "fields", len(values))
	return &domain.CreateRecordResult{ID: id}, nil
}

// UpdateRecord applies the writable fields of payload to a non-trashed
// record and refreshes updatedAt. Count is 0 when no such record exists.
func (s *Service) UpdateRecord(ctx context.Context, datasetID, recordID string, payload map[string]any) (_ *domain.MutationResult, err error) {
	defer s.observe(ctx, "record.update", time.Now(), &err)

	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	values, err := s.resolver.Payload(ds, payload)
	if err != nil {
		return nil, err
	}
	set := append(values, ddl.Assignment{Column: colUpdatedAt, Value: s.now().UTC()})
	where := ddl.And(ddl.Eq(colID, recordID), ddl.IsBool(colTrashed, false))

	n, err := s.records.Update(ctx, ds, set, where)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "record updated", "dataset_id", ds.ID, "record_id", recordID, "count", n)
	return &domain.MutationResult{Count: n}, nil
}

// DeleteRecord marks a record as trashed. Hard deletes are not supported;
// force must be false.
func (s *Service) DeleteRecord(ctx context.Context, datasetID, recordID string, force bool) (_ *domain.MutationResult, err error) {
	defer s.observe(ctx, "record.delete", time.Now(), &err)

	if force {
		return nil, domain.ErrValidation("hard delete is not supported; records are soft-deleted")
	}
	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	set := []ddl.Assignment{
		{Column: colTrashed, Value: true},
		{Column: colUpdatedAt, Value: s.now().UTC()},
	}
	n, err := s.records.Update(ctx, ds, set, ddl.Eq(colID, recordID))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "record trashed", "dataset_id", ds.ID, "record_id", recordID, "count", n)
	return &domain.MutationResult{Count: n}, nil
}

// load fetches the dataset and the fields the caller may see.
func (s *Service) load(ctx context.Context, datasetID string) (*domain.Dataset, []domain.Field, error) {
	ds, err := s.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, nil, err
	}
	visible, err := s.policy.VisibleFields(ctx, ds)
	if err != nil {
		return nil, nil, err
	}
	if len(visible) == 0 {
		return nil, nil, domain.ErrAccessDenied("no fields of dataset %q are visible", ds.ID)
	}
	return ds, visible, nil
}

func (s *Service) first(ctx context.Context, ds *domain.Dataset, sel ddl.SelectQuery, recordID string) (domain.Record, error) {
	rows, err := s.records.Select(ctx, ds, sel)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound("record %q not found in dataset %q", recordID, ds.ID)
	}
	return rows[0], nil
}

func (s *Service) observe(ctx context.Context, op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, start, *err)
	if *err != nil {
		s.logger.DebugContext(ctx, "operation failed", "op", op, "error", *err)
	}
}
