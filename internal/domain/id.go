package domain

import (
	"strings"

	"github.com/google/uuid"
)

// TableNamePrefix prefixes every generated physical table name.
const TableNamePrefix = "ds_"

// NewID generates a UUIDv7 string for application-owned entities.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NewTableName generates a physical table name. It never contains user
// input: ds_ followed by 32 lowercase hex characters.
func NewTableName() string {
	return TableNamePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
