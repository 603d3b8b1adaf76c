package grid

import (
	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

// ResolveSort keeps the sort terms that name known fields. When at least one
// term survives, the identifier field is appended as a final ascending
// tie-breaker unless it is already sorted on. An empty result means no
// ORDER BY.
func ResolveSort(fs *FieldSet, terms []domain.SortTerm, strict bool) ([]ddl.OrderTerm, error) {
	out := make([]ddl.OrderTerm, 0, len(terms)+1)
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		f, ok := fs.Lookup(t.Field)
		if !ok {
			if strict {
				return nil, domain.ErrValidation("unknown sort field %q", t.Field)
			}
			continue
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		col, err := column(f.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, ddl.OrderTerm{Column: col, Desc: t.Desc})
	}
	if len(out) == 0 {
		return nil, nil
	}
	if !seen[fs.ID().Name] {
		col, err := column(fs.ID().Name)
		if err != nil {
			return nil, err
		}
		out = append(out, ddl.OrderTerm{Column: col})
	}
	return out, nil
}
