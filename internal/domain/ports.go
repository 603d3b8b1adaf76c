package domain

import "context"

// FieldAccessPolicy decides which fields of a dataset the caller in ctx may
// read, filter and sort on. The grid engine consults it before resolving a
// query; the identifier field is kept regardless of the result. An empty
// result denies access to the dataset's records.
type FieldAccessPolicy interface {
	VisibleFields(ctx context.Context, ds *Dataset) ([]Field, error)
}

// FieldAccessPolicyFunc adapts a function to FieldAccessPolicy.
type FieldAccessPolicyFunc func(ctx context.Context, ds *Dataset) ([]Field, error)

// VisibleFields calls f.
func (f FieldAccessPolicyFunc) VisibleFields(ctx context.Context, ds *Dataset) ([]Field, error) {
	return f(ctx, ds)
}

// AllowAllFields is the default policy: every field is visible.
var AllowAllFields FieldAccessPolicy = FieldAccessPolicyFunc(func(_ context.Context, ds *Dataset) ([]Field, error) {
	return ds.Fields, nil
})
