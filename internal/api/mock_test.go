package api

import (
	"context"

	"gridbase/internal/domain"
)

type mockDatasetService struct {
	CreateFn func(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error)
	GetFn    func(ctx context.Context, id string) (*domain.Dataset, error)
	ListFn   func(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error)
	UpdateFn func(ctx context.Context, id string, req domain.UpdateDatasetRequest) (*domain.Dataset, error)
	DeleteFn func(ctx context.Context, id string) error
}

func (m *mockDatasetService) Create(ctx context.Context, req domain.CreateDatasetRequest) (*domain.Dataset, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, req)
	}
	panic("unexpected call to mockDatasetService.Create")
}

func (m *mockDatasetService) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	panic("unexpected call to mockDatasetService.Get")
}

func (m *mockDatasetService) List(ctx context.Context, page domain.PageRequest) ([]domain.Dataset, int64, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, page)
	}
	panic("unexpected call to mockDatasetService.List")
}

func (m *mockDatasetService) Update(ctx context.Context, id string, req domain.UpdateDatasetRequest) (*domain.Dataset, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, req)
	}
	panic("unexpected call to mockDatasetService.Update")
}

func (m *mockDatasetService) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to mockDatasetService.Delete")
}

type mockRecordService struct {
	GetGridFn       func(ctx context.Context, q domain.GridQuery) (*domain.GridResult, error)
	GetGridRecordFn func(ctx context.Context, q domain.GridRecordQuery) (domain.Record, error)
	LookupRecordFn  func(ctx context.Context, datasetID, recordID string) (domain.Record, error)
	CreateRecordFn  func(ctx context.Context, datasetID string, payload map[string]any) (*domain.CreateRecordResult, error)
	UpdateRecordFn  func(ctx context.Context, datasetID, recordID string, payload map[string]any) (*domain.MutationResult, error)
	DeleteRecordFn  func(ctx context.Context, datasetID, recordID string, force bool) (*domain.MutationResult, error)
}

func (m *mockRecordService) GetGrid(ctx context.Context, q domain.GridQuery) (*domain.GridResult, error) {
	if m.GetGridFn != nil {
		return m.GetGridFn(ctx, q)
	}
	panic("unexpected call to mockRecordService.GetGrid")
}

func (m *mockRecordService) GetGridRecord(ctx context.Context, q domain.GridRecordQuery) (domain.Record, error) {
	if m.GetGridRecordFn != nil {
		return m.GetGridRecordFn(ctx, q)
	}
	panic("unexpected call to mockRecordService.GetGridRecord")
}

func (m *mockRecordService) LookupRecord(ctx context.Context, datasetID, recordID string) (domain.Record, error) {
	if m.LookupRecordFn != nil {
		return m.LookupRecordFn(ctx, datasetID, recordID)
	}
	panic("unexpected call to mockRecordService.LookupRecord")
}

func (m *mockRecordService) CreateRecord(ctx context.Context, datasetID string, payload map[string]any) (*domain.CreateRecordResult, error) {
	if m.CreateRecordFn != nil {
		return m.CreateRecordFn(ctx, datasetID, payload)
	}
	panic("unexpected call to mockRecordService.CreateRecord")
}

func (m *mockRecordService) UpdateRecord(ctx context.Context, datasetID, recordID string, payload map[string]any) (*domain.MutationResult, error) {
	if m.UpdateRecordFn != nil {
		return m.UpdateRecordFn(ctx, datasetID, recordID, payload)
	}
	panic("unexpected call to mockRecordService.UpdateRecord")
}

func (m *mockRecordService) DeleteRecord(ctx context.Context, datasetID, recordID string, force bool) (*domain.MutationResult, error) {
	if m.DeleteRecordFn != nil {
		return m.DeleteRecordFn(ctx, datasetID, recordID, force)
	}
	panic("unexpected call to mockRecordService.DeleteRecord")
}
