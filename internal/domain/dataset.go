package domain

import (
	"encoding/json"
	"strings"
	"time"

	"gridbase/internal/ddl"
)

// FieldType is the logical type of a dataset field.
type FieldType string

// Supported field types.
const (
	FieldString  FieldType = "STRING"
	FieldInteger FieldType = "INTEGER"
	FieldFloat   FieldType = "FLOAT"
	FieldBoolean FieldType = "BOOLEAN"
)

// ParseFieldType normalizes s to a FieldType. The empty string means STRING.
func ParseFieldType(s string) (FieldType, error) {
	switch FieldType(strings.ToUpper(strings.TrimSpace(s))) {
	case "", FieldString:
		return FieldString, nil
	case FieldInteger:
		return FieldInteger, nil
	case FieldFloat:
		return FieldFloat, nil
	case FieldBoolean:
		return FieldBoolean, nil
	default:
		return "", ErrValidation("unsupported field type %q; supported: STRING, INTEGER, FLOAT, BOOLEAN", s)
	}
}

// ColumnKind maps the field type to its physical column kind.
func (t FieldType) ColumnKind() ddl.ColumnKind {
	switch t {
	case FieldInteger:
		return ddl.KindInteger
	case FieldFloat:
		return ddl.KindFloat
	case FieldBoolean:
		return ddl.KindBoolean
	default:
		return ddl.KindText
	}
}

// Physical columns present on every dataset table.
const (
	ColumnID        = "id"
	ColumnTrashed   = "trashed"
	ColumnCreatedAt = "createdAt"
	ColumnUpdatedAt = "updatedAt"
)

// FieldTitle is the name of the default display field.
const FieldTitle = "title"

var reservedColumns = map[string]bool{
	strings.ToLower(ColumnID):        true,
	strings.ToLower(ColumnTrashed):   true,
	strings.ToLower(ColumnCreatedAt): true,
	strings.ToLower(ColumnUpdatedAt): true,
}

// IsReservedColumn reports whether name collides with a reserved physical
// column. The comparison is case-insensitive.
func IsReservedColumn(name string) bool {
	return reservedColumns[strings.ToLower(name)]
}

// Dataset is a user-defined virtual table backed by one physical table.
type Dataset struct {
	ID          string
	Name        string
	TableName   string
	Title       string
	PluralTitle string
	Settings    json.RawMessage
	Fields      []Field // ordered by Position
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Field is a virtual column of a Dataset.
type Field struct {
	ID        string
	DatasetID string
	Name      string
	Type      FieldType
	Title     string
	System    bool // never client-writable
	Position  int
	Settings  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Writable reports whether clients may set the field in a payload.
func (f Field) Writable() bool { return !f.System && !IsReservedColumn(f.Name) }

// FieldByName returns the field named name.
func (d *Dataset) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// IDField returns the identifier field of the dataset.
func (d *Dataset) IDField() Field {
	if f, ok := d.FieldByName(ColumnID); ok {
		return f
	}
	return Field{DatasetID: d.ID, Name: ColumnID, Type: FieldString, Title: "ID", System: true}
}

// DefaultFields returns the fields every new dataset starts with.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{Name: ColumnID, Type: FieldString, Title: "ID", System: true},
		{Name: FieldTitle, Type: FieldString, Title: "Title"},
	}
}

// FieldSpec declares a field for dataset creation.
type FieldSpec struct {
	Name     string          `json:"name" yaml:"name"`
	Type     FieldType       `json:"type" yaml:"type"`
	Title    string          `json:"title" yaml:"title"`
	System   bool            `json:"-" yaml:"-"`
	Settings json.RawMessage `json:"settings,omitempty" yaml:"-"`
}

// CreateDatasetRequest holds parameters for creating a dataset.
type CreateDatasetRequest struct {
	Name        string
	Title       string
	PluralTitle string
	Settings    json.RawMessage
	Fields      []FieldSpec // declared fields, added after DefaultFields
}

// UpdateDatasetRequest holds parameters for updating dataset metadata.
// The physical table is never renamed.
type UpdateDatasetRequest struct {
	Name        *string
	Title       *string
	PluralTitle *string
	Settings    json.RawMessage
}

// Validate checks that the request is well-formed.
func (r *CreateDatasetRequest) Validate() error {
	return ValidateCreateDatasetRequest(*r)
}

// ValidateCreateDatasetRequest validates a create-dataset request, including
// every declared field name.
func ValidateCreateDatasetRequest(req CreateDatasetRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return ErrValidation("dataset name is required")
	}
	if len(req.Name) > 128 {
		return ErrValidation("dataset name must be at most 128 characters")
	}
	if len(req.Settings) > 0 && !json.Valid(req.Settings) {
		return ErrValidation("settings must be valid JSON")
	}

	seen := map[string]bool{
		strings.ToLower(ColumnID):   true,
		strings.ToLower(FieldTitle): true,
	}
	for i, f := range req.Fields {
		if err := ddl.ValidateIdentifier(f.Name); err != nil {
			return ErrIdentifier(f.Name, err)
		}
		if IsReservedColumn(f.Name) {
			return ErrValidation("field %q collides with a reserved column", f.Name)
		}
		key := strings.ToLower(f.Name)
		if seen[key] {
			return ErrValidation("duplicate field name %q", f.Name)
		}
		seen[key] = true
		if _, err := ParseFieldType(string(f.Type)); err != nil {
			return ErrValidation("fields[%d]: %s", i, err.Error())
		}
		if len(f.Settings) > 0 && !json.Valid(f.Settings) {
			return ErrValidation("fields[%d]: settings must be valid JSON", i)
		}
	}
	return nil
}

// Validate checks that the patch is well-formed.
func (r *UpdateDatasetRequest) Validate() error {
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return ErrValidation("dataset name must not be empty")
	}
	if r.Name != nil && len(*r.Name) > 128 {
		return ErrValidation("dataset name must be at most 128 characters")
	}
	if len(r.Settings) > 0 && !json.Valid(r.Settings) {
		return ErrValidation("settings must be valid JSON")
	}
	return nil
}

// IsEmpty reports whether the patch changes nothing.
func (r *UpdateDatasetRequest) IsEmpty() bool {
	return r.Name == nil && r.Title == nil && r.PluralTitle == nil && len(r.Settings) == 0
}
