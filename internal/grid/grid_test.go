package grid

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbase/internal/ddl"
	"gridbase/internal/domain"
)

func booksDataset() *domain.Dataset {
	return &domain.Dataset{
		ID:        "ds-1",
		Name:      "books",
		TableName: "ds_0123456789abcdef0123456789abcdef",
		Fields: []domain.Field{
			{Name: "id", Type: domain.FieldString, System: true, Position: 0},
			{Name: "title", Type: domain.FieldString, Position: 1},
			{Name: "author", Type: domain.FieldString, Position: 2},
			{Name: "pages", Type: domain.FieldInteger, Position: 3},
			{Name: "rating", Type: domain.FieldFloat, Position: 4},
			{Name: "in_print", Type: domain.FieldBoolean, Position: 5},
		},
	}
}

func names(fields []domain.Field) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

func TestResolveProjection(t *testing.T) {
	ds := booksDataset()
	fs := NewFieldSet(ds, ds.Fields)

	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{name: "empty selects all", requested: nil, want: []string{"id", "title", "author", "pages", "rating", "in_print"}},
		{name: "id appended", requested: []string{"title"}, want: []string{"title", "id"}},
		{name: "id kept in place", requested: []string{"id", "author"}, want: []string{"id", "author"}},
		{name: "unknown dropped", requested: []string{"author", "nope", "pages"}, want: []string{"author", "pages", "id"}},
		{name: "duplicates collapsed", requested: []string{"author", "author"}, want: []string{"author", "id"}},
		{name: "all unknown leaves id", requested: []string{"x", "y"}, want: []string{"id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveProjection(fs, tt.requested, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestResolveProjection_Strict(t *testing.T) {
	ds := booksDataset()
	_, err := ResolveProjection(NewFieldSet(ds, ds.Fields), []string{"author", "nope"}, true)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, `"nope"`)
}

func TestNewFieldSet_KeepsIDWhenPolicyHidesIt(t *testing.T) {
	ds := booksDataset()
	visible := []domain.Field{ds.Fields[2]} // author only
	fs := NewFieldSet(ds, visible)

	assert.Equal(t, []string{"id", "author"}, names(fs.Fields()))
	_, ok := fs.Lookup("pages")
	assert.False(t, ok)
}

func TestCompileFilter(t *testing.T) {
	ds := booksDataset()
	fs := NewFieldSet(ds, ds.Fields)

	tests := []struct {
		name       string
		filter     domain.Filter
		wantSQL    string
		wantParams []any
	}{
		{name: "nil", filter: nil, wantSQL: "1 = 1"},
		{
			name:       "operation",
			filter:     domain.FilterOperation{Field: "author", Value: "Orwell"},
			wantSQL:    `"author" = ?`,
			wantParams: []any{"Orwell"},
		},
		{
			name:    "unknown field is a no-op",
			filter:  domain.FilterOperation{Field: "publisher", Value: "Penguin"},
			wantSQL: "1 = 1",
		},
		{
			name:       "coerces integer",
			filter:     domain.FilterOperation{Field: "pages", Value: json.Number("328")},
			wantSQL:    `"pages" = ?`,
			wantParams: []any{int64(328)},
		},
		{
			name:    "null matches IS NULL",
			filter:  domain.FilterOperation{Field: "author", Value: nil},
			wantSQL: `"author" IS NULL`,
		},
		{
			name: "and group drops unknown children",
			filter: domain.FilterGroup{Mode: domain.FilterAnd, Children: []domain.Filter{
				domain.FilterOperation{Field: "author", Value: "Orwell"},
				domain.FilterOperation{Field: "publisher", Value: "x"},
				domain.FilterOperation{Field: "in_print", Value: true},
			}},
			wantSQL:    `("author" = ?) AND ("in_print" = ?)`,
			wantParams: []any{"Orwell", true},
		},
		{
			name: "or group with unknown child is always true",
			filter: domain.FilterGroup{Mode: domain.FilterOr, Children: []domain.Filter{
				domain.FilterOperation{Field: "author", Value: "Orwell"},
				domain.FilterOperation{Field: "publisher", Value: "x"},
			}},
			wantSQL: "1 = 1",
		},
		{
			name:    "empty group",
			filter:  domain.FilterGroup{Mode: domain.FilterOr},
			wantSQL: "1 = 1",
		},
		{
			name: "nested groups",
			filter: domain.FilterGroup{Mode: domain.FilterOr, Children: []domain.Filter{
				domain.FilterOperation{Field: "author", Value: "Orwell"},
				domain.FilterGroup{Mode: domain.FilterAnd, Children: []domain.Filter{
					domain.FilterOperation{Field: "author", Value: "Huxley"},
					domain.FilterOperation{Field: "rating", Value: json.Number("4.5")},
				}},
			}},
			wantSQL:    `("author" = ?) OR (("author" = ?) AND ("rating" = ?))`,
			wantParams: []any{"Orwell", "Huxley", 4.5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CompileFilter(fs, tt.filter, false)
			require.NoError(t, err)
			sql, params := ddl.SQLite.Render(p)
			assert.Equal(t, tt.wantSQL, sql)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestCompileFilter_Errors(t *testing.T) {
	ds := booksDataset()
	fs := NewFieldSet(ds, ds.Fields)

	_, err := CompileFilter(fs, domain.FilterOperation{Field: "pages", Value: "many"}, false)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, `field "pages" expects INTEGER`)

	_, err = CompileFilter(fs, domain.FilterOperation{Field: "publisher", Value: "x"}, true)
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Message, "unknown filter field")
}

func TestResolveSort(t *testing.T) {
	ds := booksDataset()
	fs := NewFieldSet(ds, ds.Fields)

	tests := []struct {
		name  string
		terms []domain.SortTerm
		want  string
	}{
		{name: "none", terms: nil, want: ""},
		{name: "all unknown", terms: []domain.SortTerm{{Field: "x"}, {Field: "y", Desc: true}}, want: ""},
		{name: "desc with id tiebreak", terms: domain.ParseSort("-pages"), want: `"pages" DESC, "id" ASC`},
		{name: "id already present", terms: domain.ParseSort("author,-id"), want: `"author" ASC, "id" DESC`},
		{name: "unknown dropped", terms: domain.ParseSort("nope,-rating"), want: `"rating" DESC, "id" ASC`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSort(fs, tt.terms, false)
			require.NoError(t, err)
			if tt.want == "" {
				assert.Empty(t, got)
				return
			}
			sql, _, err := ddl.SQLite.Select(ddl.SelectQuery{
				Table:   ddl.MustIdentifier("t"),
				Columns: []ddl.Identifier{ddl.MustIdentifier("id")},
				OrderBy: got,
			})
			require.NoError(t, err)
			assert.Equal(t, `SELECT "id" FROM "t" ORDER BY `+tt.want, sql)
		})
	}

	_, err := ResolveSort(fs, domain.ParseSort("nope"), true)
	require.Error(t, err)
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name        string
		limit, page int
		want        domain.Window
	}{
		{name: "defaults", want: domain.Window{Limit: 100, Offset: 0}},
		{name: "page three of ten", limit: 10, page: 3, want: domain.Window{Limit: 10, Offset: 20}},
		{name: "negative page floors to one", limit: 10, page: -4, want: domain.Window{Limit: 10, Offset: 0}},
		{name: "negative limit floors to one", limit: -10, page: 2, want: domain.Window{Limit: 1, Offset: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Paginate(tt.limit, tt.page))
		})
	}
}

func TestPaginate_HugePageNeverOverflows(t *testing.T) {
	for _, page := range []int{math.MaxInt / 10, math.MaxInt / 100, math.MaxInt} {
		w := Paginate(100, page)
		assert.Equal(t, 100, w.Limit)
		assert.GreaterOrEqual(t, w.Offset, 0, "page %d", page)
	}

	w := Paginator{MaxLimit: 1000}.Paginate(1000, math.MaxInt)
	assert.Equal(t, 1000*(math.MaxInt/1000), w.Offset)
}

func TestPaginator_MaxLimit(t *testing.T) {
	p := Paginator{DefaultLimit: 25, MaxLimit: 50}
	assert.Equal(t, domain.Window{Limit: 25, Offset: 25}, p.Paginate(0, 2))
	assert.Equal(t, domain.Window{Limit: 50, Offset: 100}, p.Paginate(500, 3))
}

func TestSanitizePayload(t *testing.T) {
	ds := booksDataset()
	payload := map[string]any{
		"id":        "client-supplied",
		"trashed":   true,
		"createdAt": "1999-01-01",
		"author":    "Orwell",
		"pages":     json.Number("328"),
		"unknown":   "dropped",
	}

	got, err := SanitizePayload(ds, payload, false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "author", got[0].Column.String())
	assert.Equal(t, "Orwell", got[0].Value)
	assert.Equal(t, "pages", got[1].Column.String())
	assert.Equal(t, int64(328), got[1].Value)
}

func TestSanitizePayload_Strict(t *testing.T) {
	ds := booksDataset()

	// system and reserved keys are still dropped silently
	got, err := SanitizePayload(ds, map[string]any{"id": "x", "updatedAt": "y", "author": "Orwell"}, true)
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = SanitizePayload(ds, map[string]any{"author": "Orwell", "publisher": "x"}, true)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestCoerce(t *testing.T) {
	str := domain.Field{Name: "s", Type: domain.FieldString}
	integer := domain.Field{Name: "i", Type: domain.FieldInteger}
	float := domain.Field{Name: "f", Type: domain.FieldFloat}
	boolean := domain.Field{Name: "b", Type: domain.FieldBoolean}

	tests := []struct {
		name    string
		field   domain.Field
		in      any
		want    any
		wantErr bool
	}{
		{name: "nil passes", field: integer, in: nil, want: nil},
		{name: "string from number", field: str, in: json.Number("42"), want: "42"},
		{name: "string from bool", field: str, in: true, want: "true"},
		{name: "string rejects object", field: str, in: map[string]any{"a": 1}, wantErr: true},
		{name: "int from number", field: integer, in: json.Number("7"), want: int64(7)},
		{name: "int from whole float number", field: integer, in: json.Number("7.0"), want: int64(7)},
		{name: "int from string", field: integer, in: " 12 ", want: int64(12)},
		{name: "int rejects fraction", field: integer, in: json.Number("7.5"), wantErr: true},
		{name: "int rejects bool", field: integer, in: true, wantErr: true},
		{name: "int rejects 2^63 float", field: integer, in: float64(1 << 63), wantErr: true},
		{name: "int rejects 2^63 number", field: integer, in: json.Number("9223372036854775808"), wantErr: true},
		{name: "int accepts min int64 float", field: integer, in: float64(math.MinInt64), want: int64(math.MinInt64)},
		{name: "float from number", field: float, in: json.Number("2.5"), want: 2.5},
		{name: "float from string", field: float, in: "3", want: 3.0},
		{name: "float rejects bool", field: float, in: false, wantErr: true},
		{name: "bool from bool", field: boolean, in: true, want: true},
		{name: "bool from string", field: boolean, in: "false", want: false},
		{name: "bool from number", field: boolean, in: json.Number("1"), want: true},
		{name: "bool rejects word", field: boolean, in: "maybe", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.field, tt.in)
			if tt.wantErr {
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
