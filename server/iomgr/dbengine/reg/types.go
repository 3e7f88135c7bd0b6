// Package reg holds the catalog records and the in-memory multi-index
// registries that keep them. Records are value-typed snapshots of catalog
// objects; registries support lookup by id, name, composite key and content
// hash, and serialize as a whole into the system objects snapshot file.
package reg

import (
	"github.com/juju/errors"
)

// Registry lookup errors.
var (
	ErrNotFound      = errors.New("registry: record not found")
	ErrDuplicateID   = errors.New("registry: duplicate id")
	ErrDuplicateName = errors.New("registry: duplicate name")
)

// TableType enumerates supported table storage kinds.
type TableType uint32

const (
	// TableTypeDisk is the on-disk heap table, the only kind supported.
	TableTypeDisk TableType = iota
	TableTypeMemory
	TableTypeMax
)

// ConstraintType enumerates constraint kinds.
type ConstraintType uint32

const (
	ConstraintTypeNotNull ConstraintType = iota
	ConstraintTypeDefaultValue
	ConstraintTypeMax
)

// Name returns the SQL-facing name of the constraint type.
func (t ConstraintType) Name() string {
	switch t {
	case ConstraintTypeNotNull:
		return "NOT NULL"
	case ConstraintTypeDefaultValue:
		return "DEFAULT"
	default:
		return "UNKNOWN"
	}
}

// ColumnDataType enumerates column data types.
type ColumnDataType uint32

const (
	ColumnDataTypeBool ColumnDataType = iota
	ColumnDataTypeInt8
	ColumnDataTypeUInt8
	ColumnDataTypeInt16
	ColumnDataTypeUInt16
	ColumnDataTypeInt32
	ColumnDataTypeUInt32
	ColumnDataTypeInt64
	ColumnDataTypeUInt64
	ColumnDataTypeFloat
	ColumnDataTypeDouble
	ColumnDataTypeText
	ColumnDataTypeBinary
	ColumnDataTypeTimestamp
	ColumnDataTypeMax
)

// IndexType enumerates index kinds.
type IndexType uint32

const (
	IndexTypeLinearIndexU64 IndexType = iota
	IndexTypeBPlusTreeIndex
	IndexTypeMax
)
