package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter_Operation(t *testing.T) {
	f, err := ParseFilter([]byte(`{"type":"operation","field":"author","value":"Orwell"}`))
	require.NoError(t, err)
	assert.Equal(t, FilterOperation{Field: "author", Value: "Orwell"}, f)
}

func TestParseFilter_KeepsNumberPrecision(t *testing.T) {
	f, err := ParseFilter([]byte(`{"field":"pages","value":9007199254740993}`))
	require.NoError(t, err)
	op, ok := f.(FilterOperation)
	require.True(t, ok)
	assert.Equal(t, json.Number("9007199254740993"), op.Value)
}

func TestParseFilter_NullValue(t *testing.T) {
	f, err := ParseFilter([]byte(`{"type":"operation","field":"author","value":null}`))
	require.NoError(t, err)
	assert.Equal(t, FilterOperation{Field: "author"}, f)
}

func TestParseFilter_NestedGroups(t *testing.T) {
	input := `{
		"type": "group", "mode": "or",
		"children": [
			{"type": "operation", "field": "author", "value": "Orwell"},
			{"mode": "AND", "children": [
				{"field": "author", "value": "Huxley"},
				{"field": "pages", "value": 288}
			]}
		]
	}`
	f, err := ParseFilter([]byte(input))
	require.NoError(t, err)

	root, ok := f.(FilterGroup)
	require.True(t, ok)
	assert.Equal(t, FilterOr, root.Mode)
	require.Len(t, root.Children, 2)

	inner, ok := root.Children[1].(FilterGroup)
	require.True(t, ok, "node with children and no type is a group")
	assert.Equal(t, FilterAnd, inner.Mode)
	require.Len(t, inner.Children, 2)
	assert.Equal(t, FilterOperation{Field: "pages", Value: json.Number("288")}, inner.Children[1])
}

func TestParseFilter_Edges(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Filter
		wantErr string
	}{
		{name: "empty", input: "", want: nil},
		{name: "null", input: "null", want: nil},
		{name: "unknown mode becomes AND", input: `{"type":"group","mode":"XOR","children":[]}`, want: FilterGroup{Mode: FilterAnd, Children: []Filter{}}},
		{name: "malformed", input: `{"type":`, wantErr: "invalid filter"},
		{name: "unknown node type", input: `{"type":"range"}`, wantErr: "unknown filter node type"},
		{name: "not an object", input: `[1,2]`, wantErr: "invalid filter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilter([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				var ve *ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilter_DepthLimit(t *testing.T) {
	deep := `{"field":"a","value":1}`
	for i := 0; i <= MaxFilterDepth+1; i++ {
		deep = `{"type":"group","children":[` + deep + `]}`
	}
	_, err := ParseFilter([]byte(deep))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nesting exceeds")
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		input string
		want  []SortTerm
	}{
		{input: "", want: nil},
		{input: "author", want: []SortTerm{{Field: "author"}}},
		{input: "-pages, author", want: []SortTerm{{Field: "pages", Desc: true}, {Field: "author"}}},
		{input: " , -, createdAt,", want: []SortTerm{{Field: "createdAt"}}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSort(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"id", "author"}, SplitList("id, author"))
	assert.Nil(t, SplitList(" , "))
}

func TestDecodePayload(t *testing.T) {
	p, err := DecodePayload([]byte(`{"author":"Orwell","pages":328,"in_print":true}`))
	require.NoError(t, err)
	assert.Equal(t, "Orwell", p["author"])
	assert.Equal(t, json.Number("328"), p["pages"])
	assert.Equal(t, true, p["in_print"])

	p, err = DecodePayload([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, p)

	_, err = DecodePayload([]byte(`["x"]`))
	require.Error(t, err)
}

func TestGridResult_JSONShape(t *testing.T) {
	out, err := json.Marshal(GridResult{Data: []Record{{"id": "r1"}}, Meta: GridMeta{Count: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[{"id":"r1"}],"meta":{"count":1}}`, string(out))
}
