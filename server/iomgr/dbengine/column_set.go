package dbengine

import (
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
)

// ColumnSet is an ordered snapshot of the columns participating in one
// table schema version. A table has exactly one open column set at a time;
// closing it freezes the schema version.
type ColumnSet struct {
	table   *Table
	id      uint64
	columns []reg.ColumnSetColumnRecord
	open    bool
}

// ID returns the column set id.
func (cs *ColumnSet) ID() uint64 {
	return cs.id
}

// Table returns the owning table.
func (cs *ColumnSet) Table() *Table {
	return cs.table
}

// IsOpen reports whether columns can still be added.
func (cs *ColumnSet) IsOpen() bool {
	return cs.open
}

// addColumn appends a column definition to the open set.
func (cs *ColumnSet) addColumn(id uint64, columnDefinition *ColumnDefinition) {
	cs.columns = append(cs.columns, reg.ColumnSetColumnRecord{
		ID:                 id,
		ColumnSetID:        cs.id,
		ColumnDefinitionID: columnDefinition.ID(),
		ColumnID:           columnDefinition.Column().ID(),
	})
}

// close freezes the column set.
func (cs *ColumnSet) close() {
	cs.open = false
}

// Record returns the registry row of the column set.
func (cs *ColumnSet) Record() reg.ColumnSetRecord {
	return reg.ColumnSetRecord{
		ID:      cs.id,
		TableID: cs.table.ID(),
		Columns: append([]reg.ColumnSetColumnRecord(nil), cs.columns...),
	}
}
