package grid

import (
	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

// CompileFilter turns a filter tree into a predicate over fs. A nil filter
// matches every row. Operations on unknown fields compile to an always-true
// predicate unless strict is set, in which case they are rejected.
func CompileFilter(fs *FieldSet, f domain.Filter, strict bool) (ddl.Predicate, error) {
	return compileFilter(fs, f, strict, 0)
}

func compileFilter(fs *FieldSet, f domain.Filter, strict bool, depth int) (ddl.Predicate, error) {
	if depth > domain.MaxFilterDepth {
		return nil, domain.ErrValidation("filter nesting exceeds %d levels", domain.MaxFilterDepth)
	}
	switch n := f.(type) {
	case nil:
		return ddl.True(), nil
	case domain.FilterGroup:
		children := make([]ddl.Predicate, 0, len(n.Children))
		for _, c := range n.Children {
			p, err := compileFilter(fs, c, strict, depth+1)
			if err != nil {
				return nil, err
			}
			children = append(children, p)
		}
		if n.Mode == domain.FilterOr {
			return ddl.Or(children...), nil
		}
		return ddl.And(children...), nil
	case domain.FilterOperation:
		return compileOperation(fs, n, strict)
	case *domain.FilterGroup:
		return compileFilter(fs, *n, strict, depth)
	case *domain.FilterOperation:
		return compileOperation(fs, *n, strict)
	default:
		return nil, domain.ErrValidation("unsupported filter node %T", f)
	}
}

func compileOperation(fs *FieldSet, op domain.FilterOperation, strict bool) (ddl.Predicate, error) {
	field, ok := fs.Lookup(op.Field)
	if !ok {
		if strict {
			return nil, domain.ErrValidation("unknown filter field %q", op.Field)
		}
		return ddl.True(), nil
	}
	col, err := column(field.Name)
	if err != nil {
		return nil, err
	}
	v, err := Coerce(field, op.Value)
	if err != nil {
		return nil, err
	}
	return ddl.Eq(col, v), nil
}
