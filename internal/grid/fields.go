// Package grid resolves client-supplied grid parameters (field lists, filter
// trees, sort keys, page windows and write payloads) against a dataset's
// fields and turns them into ddl statements parts.
package grid

import (
	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

// FieldSet is the set of fields a query may reference, indexed by name.
// The identifier field is always a member.
type FieldSet struct {
	fields []domain.Field
	byName map[string]domain.Field
	id     domain.Field
}

// NewFieldSet builds the field set from visible, adding the dataset's
// identifier field when the access policy left it out.
func NewFieldSet(ds *domain.Dataset, visible []domain.Field) *FieldSet {
	fs := &FieldSet{
		fields: make([]domain.Field, 0, len(visible)+1),
		byName: make(map[string]domain.Field, len(visible)+1),
		id:     ds.IDField(),
	}
	for _, f := range visible {
		if _, dup := fs.byName[f.Name]; dup {
			continue
		}
		fs.fields = append(fs.fields, f)
		fs.byName[f.Name] = f
	}
	if _, ok := fs.byName[fs.id.Name]; !ok {
		fs.fields = append([]domain.Field{fs.id}, fs.fields...)
		fs.byName[fs.id.Name] = fs.id
	}
	return fs
}

// Lookup returns the field called name.
func (fs *FieldSet) Lookup(name string) (domain.Field, bool) {
	f, ok := fs.byName[name]
	return f, ok
}

// Fields returns every field in dataset order.
func (fs *FieldSet) Fields() []domain.Field { return fs.fields }

// ID returns the identifier field.
func (fs *FieldSet) ID() domain.Field { return fs.id }

// ResolveProjection computes the fields to select. An empty request selects
// every field. Unknown names are dropped, or rejected when strict is set.
// The identifier field is appended when missing.
func ResolveProjection(fs *FieldSet, requested []string, strict bool) ([]domain.Field, error) {
	if len(requested) == 0 {
		return append([]domain.Field(nil), fs.fields...), nil
	}

	out := make([]domain.Field, 0, len(requested)+1)
	seen := make(map[string]bool, len(requested)+1)
	for _, name := range requested {
		f, ok := fs.Lookup(name)
		if !ok {
			if strict {
				return nil, domain.ErrValidation("unknown field %q", name)
			}
			continue
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		out = append(out, f)
	}
	if !seen[fs.id.Name] {
		out = append(out, fs.id)
	}
	return out, nil
}

// Identifiers converts fields to validated column identifiers.
func Identifiers(fields []domain.Field) ([]ddl.Identifier, error) {
	out := make([]ddl.Identifier, 0, len(fields))
	for _, f := range fields {
		id, err := column(f.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func column(name string) (ddl.Identifier, error) {
	id, err := ddl.NewIdentifier(name)
	if err != nil {
		return ddl.Identifier{}, domain.ErrIdentifier(name, ddl.ValidateIdentifier(name))
	}
	return id, nil
}
