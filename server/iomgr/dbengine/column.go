package dbengine

import (
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
)

// MasterColumnName is the implicit primary-identifier column every table
// carries as the first entry of its column set.
const MasterColumnName = "TRID"

// Column is one column of a table. Columns are never deleted; schema
// changes append new column definitions instead.
type Column struct {
	table                   *Table
	id                      uint64
	name                    string
	dataType                reg.ColumnDataType
	currentColumnDefinition *ColumnDefinition
}

// ID returns the column id.
func (c *Column) ID() uint64 {
	return c.id
}

// Name returns the column name, unique within its table.
func (c *Column) Name() string {
	return c.name
}

// DataType returns the column data type.
func (c *Column) DataType() reg.ColumnDataType {
	return c.dataType
}

// Table returns the owning table.
func (c *Column) Table() *Table {
	return c.table
}

// IsMasterColumn reports whether this is the table's master column.
func (c *Column) IsMasterColumn() bool {
	return c.name == MasterColumnName
}

// CurrentColumnDefinition returns the latest column definition.
func (c *Column) CurrentColumnDefinition() *ColumnDefinition {
	return c.currentColumnDefinition
}

// Record returns the registry row of the column.
func (c *Column) Record() reg.ColumnRecord {
	return reg.ColumnRecord{
		ID:       c.id,
		Name:     c.name,
		DataType: c.dataType,
		TableID:  c.table.ID(),
	}
}
