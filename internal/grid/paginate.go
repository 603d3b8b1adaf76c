package grid

import (
	"math"

	"gridbase/internal/domain"
)

// Pagination defaults.
const (
	DefaultLimit = 100
	DefaultPage  = 1
)

// Paginator converts limit/page pairs into LIMIT/OFFSET windows.
type Paginator struct {
	DefaultLimit int
	MaxLimit     int // 0 means unbounded
}

// Paginate uses the package defaults without an upper bound.
func Paginate(limit, page int) domain.Window {
	return Paginator{DefaultLimit: DefaultLimit}.Paginate(limit, page)
}

// Paginate returns the window for limit and page. A zero limit selects the
// default; negative values and a zero page are floored to 1. Pages whose
// offset would overflow are clamped to the last representable page.
func (p Paginator) Paginate(limit, page int) domain.Window {
	def := p.DefaultLimit
	if def <= 0 {
		def = DefaultLimit
	}
	switch {
	case limit == 0:
		limit = def
	case limit < 0:
		limit = 1
	}
	if p.MaxLimit > 0 && limit > p.MaxLimit {
		limit = p.MaxLimit
	}
	if page < DefaultPage {
		page = DefaultPage
	}
	if page-1 > math.MaxInt/limit {
		page = math.MaxInt/limit + 1
	}
	return domain.Window{Limit: limit, Offset: limit * (page - 1)}
}
