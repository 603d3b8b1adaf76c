package ddl

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRe allows alphanumeric + underscores, starting with a letter or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// columnTypeRe matches simple SQL type names, optionally with precision/scale parameters.
// Accepted forms:
//
//	WORD                         → INTEGER, TEXT, BOOLEAN, etc.
//	WORD WORD                    → DOUBLE PRECISION
//	WORD(digits)                 → VARCHAR(255)
//	WORD(digits, digits)         → NUMERIC(10,2)
//
// Case-insensitive. Rejects semicolons, comments and quotes.
var columnTypeRe = regexp.MustCompile(`(?i)^[A-Z][A-Z0-9_ ]*(?:\(\s*\d+\s*(?:,\s*\d+\s*)?\))?$`)

// MaxIdentifierLen is the maximum length allowed for a SQL identifier.
// Postgres truncates identifiers longer than 63 bytes.
const MaxIdentifierLen = 63

// maxColumnTypeLen is the maximum length allowed for a column type string.
const maxColumnTypeLen = 64

// Identifier is a table or column name that has passed ValidateIdentifier.
// Statement builders only accept Identifier values, so an unchecked string
// can never be spliced into SQL text.
type Identifier struct {
	name string
}

// NewIdentifier validates name and wraps it as an Identifier.
func NewIdentifier(name string) (Identifier, error) {
	if err := ValidateIdentifier(name); err != nil {
		return Identifier{}, fmt.Errorf("identifier %q: %w", name, err)
	}
	return Identifier{name: name}, nil
}

// MustIdentifier is like NewIdentifier but panics on invalid input.
// Only use it for compile-time constant names.
func MustIdentifier(name string) Identifier {
	id, err := NewIdentifier(name)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the raw identifier.
func (i Identifier) String() string { return i.name }

// IsZero reports whether the identifier was never initialised.
func (i Identifier) IsZero() bool { return i.name == "" }

// Quoted returns the identifier wrapped in double quotes.
func (i Identifier) Quoted() string { return QuoteIdentifier(i.name) }

// ValidateIdentifier checks that name is a safe SQL identifier:
//   - Non-empty
//   - At most 63 characters
//   - Matches [a-zA-Z_][a-zA-Z0-9_]*
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > MaxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", MaxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("name must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded double-quote characters by doubling them (standard SQL).
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ValidateColumnType checks that typeName is a safe column type:
//   - Non-empty
//   - At most 64 characters
//   - Matches the allowed type pattern
//   - Does not contain SQL injection patterns (semicolons, comments, etc.)
func ValidateColumnType(typeName string) error {
	if typeName == "" {
		return fmt.Errorf("column type is required")
	}
	if len(typeName) > maxColumnTypeLen {
		return fmt.Errorf("column type must be at most %d characters", maxColumnTypeLen)
	}
	if strings.ContainsAny(typeName, ";-'\"\\") {
		return fmt.Errorf("column type contains invalid characters")
	}
	if !columnTypeRe.MatchString(typeName) {
		return fmt.Errorf("column type %q is not a recognized type pattern", typeName)
	}
	return nil
}
