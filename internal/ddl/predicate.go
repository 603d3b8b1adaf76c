package ddl

import "strings"

// Predicate is a boolean SQL expression built from validated identifiers and
// bind parameters only.
type Predicate interface {
	render(pb *ParamBuilder) string
	alwaysTrue() bool
}

type truePredicate struct{}

func (truePredicate) render(*ParamBuilder) string { return "1 = 1" }
func (truePredicate) alwaysTrue() bool            { return true }

// True is the predicate that matches every row.
func True() Predicate { return truePredicate{} }

// IsTrue reports whether p is statically always true.
func IsTrue(p Predicate) bool { return p == nil || p.alwaysTrue() }

type eqPredicate struct {
	col   Identifier
	value any
}

func (p eqPredicate) render(pb *ParamBuilder) string {
	if p.value == nil {
		return p.col.Quoted() + " IS NULL"
	}
	return p.col.Quoted() + " = " + pb.Add(p.value)
}

func (eqPredicate) alwaysTrue() bool { return false }

// Eq compares col with value. A nil value compiles to IS NULL.
func Eq(col Identifier, value any) Predicate {
	return eqPredicate{col: col, value: value}
}

type rawBoolPredicate struct {
	col   Identifier
	value bool
}

func (p rawBoolPredicate) render(pb *ParamBuilder) string {
	return p.col.Quoted() + " = " + pb.dialect.BoolLiteral(p.value)
}

func (rawBoolPredicate) alwaysTrue() bool { return false }

// IsBool compares a boolean column against a constant rendered inline.
func IsBool(col Identifier, value bool) Predicate {
	return rawBoolPredicate{col: col, value: value}
}

type junction struct {
	op       string
	children []Predicate
}

func (j junction) render(pb *ParamBuilder) string {
	parts := make([]string, 0, len(j.children))
	for _, c := range j.children {
		parts = append(parts, "("+c.render(pb)+")")
	}
	return strings.Join(parts, " "+j.op+" ")
}

func (junction) alwaysTrue() bool { return false }

// And combines predicates with AND. Always-true children are dropped; an
// empty result is always true.
func And(ps ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range ps {
		if IsTrue(p) {
			continue
		}
		kept = append(kept, p)
	}
	switch len(kept) {
	case 0:
		return True()
	case 1:
		return kept[0]
	}
	return junction{op: "AND", children: kept}
}

// Or combines predicates with OR. Any always-true child, or no children at
// all, makes the whole expression always true.
func Or(ps ...Predicate) Predicate {
	if len(ps) == 0 {
		return True()
	}
	for _, p := range ps {
		if IsTrue(p) {
			return True()
		}
	}
	if len(ps) == 1 {
		return ps[0]
	}
	return junction{op: "OR", children: ps}
}

// Render returns the SQL text and parameters of p on its own.
func (d Dialect) Render(p Predicate) (string, []any) {
	pb := d.NewParamBuilder()
	if p == nil {
		p = True()
	}
	return p.render(pb), pb.Params()
}
