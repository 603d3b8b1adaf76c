package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridbase/internal/ddl"
)

func TestValidateCreateDatasetRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateDatasetRequest
		wantErr string
	}{
		{
			name: "valid without fields",
			req:  CreateDatasetRequest{Name: "books", Title: "Book", PluralTitle: "Books"},
		},
		{
			name: "valid with declared fields",
			req: CreateDatasetRequest{
				Name: "books",
				Fields: []FieldSpec{
					{Name: "author", Type: FieldString},
					{Name: "pages", Type: "integer"},
					{Name: "in_print", Type: FieldBoolean},
				},
			},
		},
		{
			name:    "empty name",
			req:     CreateDatasetRequest{Title: "Book"},
			wantErr: "dataset name is required",
		},
		{
			name:    "name too long",
			req:     CreateDatasetRequest{Name: strings.Repeat("a", 129)},
			wantErr: "at most 128 characters",
		},
		{
			name:    "invalid settings",
			req:     CreateDatasetRequest{Name: "books", Settings: json.RawMessage(`{`)},
			wantErr: "settings must be valid JSON",
		},
		{
			name:    "unsafe field name",
			req:     CreateDatasetRequest{Name: "books", Fields: []FieldSpec{{Name: `au"thor`}}},
			wantErr: "unsafe identifier",
		},
		{
			name:    "reserved field name",
			req:     CreateDatasetRequest{Name: "books", Fields: []FieldSpec{{Name: "trashed"}}},
			wantErr: "reserved column",
		},
		{
			name:    "reserved field name case-insensitive",
			req:     CreateDatasetRequest{Name: "books", Fields: []FieldSpec{{Name: "CreatedAt"}}},
			wantErr: "reserved column",
		},
		{
			name:    "collides with default title",
			req:     CreateDatasetRequest{Name: "books", Fields: []FieldSpec{{Name: "Title"}}},
			wantErr: "duplicate field name",
		},
		{
			name:    "duplicate declared field",
			req:     CreateDatasetRequest{Name: "books", Fields: []FieldSpec{{Name: "author"}, {Name: "AUTHOR"}}},
			wantErr: "duplicate field name",
		},
		{
			name:    "unsupported type",
			req:     CreateDatasetRequest{Name: "books", Fields: []FieldSpec{{Name: "author", Type: "DATE"}}},
			wantErr: "unsupported field type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCreateDatasetRequest_UnsafeNameIsIdentifierError(t *testing.T) {
	err := ValidateCreateDatasetRequest(CreateDatasetRequest{
		Name:   "books",
		Fields: []FieldSpec{{Name: "drop-table"}},
	})
	var idErr *IdentifierError
	require.True(t, errors.As(err, &idErr))
	assert.Equal(t, "drop-table", idErr.Name)
}

func TestUpdateDatasetRequest_Validate(t *testing.T) {
	empty := ""
	long := strings.Repeat("x", 200)
	ok := "novels"

	require.NoError(t, (&UpdateDatasetRequest{Name: &ok}).Validate())
	require.Error(t, (&UpdateDatasetRequest{Name: &empty}).Validate())
	require.Error(t, (&UpdateDatasetRequest{Name: &long}).Validate())
	require.Error(t, (&UpdateDatasetRequest{Settings: json.RawMessage(`nope`)}).Validate())

	assert.True(t, (&UpdateDatasetRequest{}).IsEmpty())
	assert.False(t, (&UpdateDatasetRequest{Name: &ok}).IsEmpty())
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		input string
		want  FieldType
		err   bool
	}{
		{input: "", want: FieldString},
		{input: "string", want: FieldString},
		{input: "INTEGER", want: FieldInteger},
		{input: " Float ", want: FieldFloat},
		{input: "boolean", want: FieldBoolean},
		{input: "uuid", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFieldType(tt.input)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFieldType_ColumnKind(t *testing.T) {
	assert.Equal(t, ddl.KindText, FieldString.ColumnKind())
	assert.Equal(t, ddl.KindInteger, FieldInteger.ColumnKind())
	assert.Equal(t, ddl.KindFloat, FieldFloat.ColumnKind())
	assert.Equal(t, ddl.KindBoolean, FieldBoolean.ColumnKind())
}

func TestDatasetHelpers(t *testing.T) {
	ds := &Dataset{ID: "d1", Fields: []Field{
		{Name: ColumnID, Type: FieldString, System: true},
		{Name: FieldTitle, Type: FieldString},
		{Name: "author", Type: FieldString},
	}}

	f, ok := ds.FieldByName("author")
	require.True(t, ok)
	assert.True(t, f.Writable())

	_, ok = ds.FieldByName("missing")
	assert.False(t, ok)

	assert.True(t, ds.IDField().System)
	assert.False(t, ds.IDField().Writable())

	bare := &Dataset{ID: "d2"}
	assert.Equal(t, ColumnID, bare.IDField().Name)

	defaults := DefaultFields()
	require.Len(t, defaults, 2)
	assert.Equal(t, ColumnID, defaults[0].Name)
	assert.True(t, defaults[0].System)
	assert.Equal(t, FieldTitle, defaults[1].Name)
	assert.False(t, defaults[1].System)
}

func TestNewTableName(t *testing.T) {
	a := NewTableName()
	b := NewTableName()
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, TableNamePrefix))
	assert.Len(t, a, len(TableNamePrefix)+32)
	require.NoError(t, ddl.ValidateIdentifier(a))
}
