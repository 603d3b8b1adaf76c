// Package datasets implements dataset metadata management: validation,
// identifier and table-name generation, and the transactional lifecycle
// delegated to the repository.
package datasets

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gridbase/internal/domain"
	"gridbase/internal/metrics"
)

// Service provides business logic for dataset management.
type Service struct {
	repo    domain.DatasetRepository
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService creates a new dataset Service. m may be nil.
func NewService(repo domain.DatasetRepository, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		logger:  logger.With("component", "datasets"),
		metrics: m,
	}
}

// Create validates req, assigns identifiers and a generated physical table
// name, and creates the dataset with its default and declared fields.
func (s *Service) Create(ctx context.Context, req domain.CreateDatasetRequest) (_ *domain.Dataset, err error) {
	defer s.observe("dataset.create", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	ds, err := buildDataset(req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, ds)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "dataset created",
		"dataset_id", created.ID,
		"name", created.Name,
		"table", created.TableName,
		"fields", len(created.Fields),
		"actor", actor(ctx))
	return created, nil
}

// Get returns a dataset with its fields.
func (s *Service) Get(ctx context.Context, id string) (_ *domain.Dataset, err error) {
	defer s.observe("dataset.get", time.Now(), &err)
	return s.repo.Get(ctx, id)
}

// List returns one page of datasets and the total count.
func (s *Service) List(ctx context.Context, page domain.PageRequest) (_ []domain.Dataset, _ int64, err error) {
	defer s.observe("dataset.list", time.Now(), &err)
	return s.repo.List(ctx, page)
}

// ListAll returns every dataset.
func (s *Service) ListAll(ctx context.Context) (_ []domain.Dataset, err error) {
	defer s.observe("dataset.list_all", time.Now(), &err)
	return s.repo.ListAll(ctx)
}

// Update changes dataset metadata. The physical table keeps its name.
func (s *Service) Update(ctx context.Context, id string, req domain.UpdateDatasetRequest) (_ *domain.Dataset, err error) {
	defer s.observe("dataset.update", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return s.repo.Get(ctx, id)
	}
	updated, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "dataset updated", "dataset_id", id, "actor", actor(ctx))
	return updated, nil
}

// Delete removes the dataset, its fields and its physical table.
func (s *Service) Delete(ctx context.Context, id string) (err error) {
	defer s.observe("dataset.delete", time.Now(), &err)

	old, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "dataset deleted",
		"dataset_id", old.ID,
		"table", old.TableName,
		"actor", actor(ctx))
	return nil
}

func (s *Service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, start, *err)
	if *err != nil {
		s.logger.Debug("operation failed", "op", op, "error", *err)
	}
}

func buildDataset(req domain.CreateDatasetRequest) (*domain.Dataset, error) {
	ds := &domain.Dataset{
		ID:          domain.NewID(),
		Name:        strings.TrimSpace(req.Name),
		TableName:   domain.NewTableName(),
		Title:       req.Title,
		PluralTitle: req.PluralTitle,
		Settings:    req.Settings,
	}
	if ds.Title == "" {
		ds.Title = ds.Name
	}
	if ds.PluralTitle == "" {
		ds.PluralTitle = ds.Title
	}

	specs := append(domain.DefaultFields(), req.Fields...)
	ds.Fields = make([]domain.Field, 0, len(specs))
	for i, spec := range specs {
		typ, err := domain.ParseFieldType(string(spec.Type))
		if err != nil {
			return nil, err
		}
		title := spec.Title
		if title == "" {
			title = spec.Name
		}
		ds.Fields = append(ds.Fields, domain.Field{
			ID:        domain.NewID(),
			DatasetID: ds.ID,
			Name:      spec.Name,
			Type:      typ,
			Title:     title,
			System:    spec.System,
			Position:  i,
			Settings:  spec.Settings,
		})
	}
	return ds, nil
}

func actor(ctx context.Context) string {
	if p, ok := domain.PrincipalFromContext(ctx); ok {
		return p.Subject
	}
	return ""
}
