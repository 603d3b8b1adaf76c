// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"

	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

// === Dataset Repository Mock ===

// MockDatasetRepo implements domain.DatasetRepository for testing.
type MockDatasetRepo struct {
	CreateFn      func(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error)
	GetFn         func(ctx context.Context, id string) (*domain.Dataset, error)
	ListFn        func(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	ListAllFn     func(ctx context.Context) ([]domain.Dataset, error)
	UpdateFn      func(ctx context.Context, id string, req domain.UpdateDatasetRequest) (*domain.Dataset, error)
	DeleteFn      func(ctx context.Context, id string) (*domain.Dataset, error)
	TableExistsFn func(ctx context.Context, table string) (bool, error)
}

// Create implements the interface method for testing.
func (m *MockDatasetRepo) Create(ctx context.Context, ds *domain.Dataset) (*domain.Dataset, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, ds)
	}
	panic("unexpected call to MockDatasetRepo.Create")
}

// Get implements the interface method for testing.
func (m *MockDatasetRepo) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	panic("unexpected call to MockDatasetRepo.Get")
}

// List implements the interface method for testing.
func (m *MockDatasetRepo) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, page)
	}
	panic("unexpected call to MockDatasetRepo.List")
}

// ListAll implements the interface method for testing.
func (m *MockDatasetRepo) ListAll(ctx context.Context) ([]domain.Dataset, error) {
	if m.ListAllFn != nil {
		return m.ListAllFn(ctx)
	}
	panic("unexpected call to MockDatasetRepo.ListAll")
}

// Update implements the interface method for testing.
func (m *MockDatasetRepo) Update(ctx context.Context, id string, req domain.UpdateDatasetRequest) (*domain.Dataset, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	panic("unexpected call to MockDatasetRepo.Update")
}

// Delete implements the interface method for testing.
func (m *MockDatasetRepo) Delete(ctx context.Context, id string) (*domain.Dataset, error) {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockDatasetRepo.Delete")
}

// TableExists implements the interface method for testing.
func (m *MockDatasetRepo) TableExists(ctx context.Context, table string) (bool, error) {
	if m.TableExistsFn != nil {
		return m.TableExistsFn(ctx, table)
	}
	panic("unexpected call to MockDatasetRepo.TableExists")
}

// === Record Repository Mock ===

// UpdateCall captures the arguments of one MockRecordRepo.Update call.
type UpdateCall struct {
	Set   []ddl.Assignment
	Where ddl.Predicate
}

// MockRecordRepo implements domain.RecordRepository for testing.
type MockRecordRepo struct {
	SelectFn func(ctx context.Context, ds *domain.Dataset, q ddl.SelectQuery) ([]domain.Record, error)
	InsertFn func(ctx context.Context, ds *domain.Dataset, values []ddl.Assignment) error
	UpdateFn func(ctx context.Context, ds *domain.Dataset, set []ddl.Assignment, where ddl.Predicate) (int64, error)

	Selects []ddl.SelectQuery  // collected queries for assertions
	Inserts [][]ddl.Assignment // collected inserts for assertions
	Updates []UpdateCall       // collected updates for assertions
}

// Select implements the interface method for testing.
func (m *MockRecordRepo) Select(ctx context.Context, ds *domain.Dataset, q ddl.SelectQuery) ([]domain.Record, error) {
	m.Selects = append(m.Selects, q)
	if m.SelectFn != nil {
		return m.SelectFn(ctx, ds, q)
	}
	return []domain.Record{}, nil
}

// Insert implements the interface method for testing.
func (m *MockRecordRepo) Insert(ctx context.Context, ds *domain.Dataset, values []ddl.Assignment) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, ds, values); err != nil {
			return err
		}
	}
	m.Inserts = append(m.Inserts, values)
	return nil
}

// Update implements the interface method for testing.
func (m *MockRecordRepo) Update(ctx context.Context, ds *domain.Dataset, set []ddl.Assignment, where ddl.Predicate) (int64, error) {
	m.Updates = append(m.Updates, UpdateCall{Set: set, Where: where})
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, ds, set, where)
	}
	return 1, nil
}

// LastUpdate returns the last collected update, or the zero value if none.
func (m *MockRecordRepo) LastUpdate() UpdateCall {
	if len(m.Updates) == 0 {
		return UpdateCall{}
	}
	return m.Updates[len(m.Updates)-1]
}

// ValueOf returns the value assigned to column in values, if present.
func ValueOf(values []ddl.Assignment, column string) (any, bool) {
	for _, v := range values {
		if v.Column.String() == column {
			return v.Value, true
		}
	}
	return nil, false
}
