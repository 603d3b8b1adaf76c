package domain

import (
	"context"

	"gridbase/internal/ddl"
)

// DatasetRepository is the metadata store and the table lifecycle manager.
// Create and Delete change metadata rows and the physical table in one
// transaction.
type DatasetRepository interface {
	Create(ctx context.Context, ds *Dataset) (*Dataset, error)
	Get(ctx context.Context, id string) (*Dataset, error)
	List(ctx context.Context, page PageRequest) ([]Dataset, int64, error)
	ListAll(ctx context.Context) ([]Dataset, error)
	Update(ctx context.Context, id string, req UpdateDatasetRequest) (*Dataset, error)
	Delete(ctx context.Context, id string) (*Dataset, error)
	TableExists(ctx context.Context, table string) (bool, error)
}

// RecordRepository executes statements against a dataset's physical table.
type RecordRepository interface {
	Select(ctx context.Context, ds *Dataset, q ddl.SelectQuery) ([]Record, error)
	Insert(ctx context.Context, ds *Dataset, values []ddl.Assignment) error
	Update(ctx context.Context, ds *Dataset, set []ddl.Assignment, where ddl.Predicate) (int64, error)
}
