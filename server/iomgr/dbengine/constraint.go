package dbengine

import (
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	"github.com/govindnetworks/siodb/server/iomgr/expr"
)

// Constraint binds a constraint definition to a table or column under a
// database-unique name.
type Constraint interface {
	ID() uint64
	Name() string
	Type() reg.ConstraintType
	Definition() *ConstraintDefinition
	Table() *Table
	// Column returns the bound column, nil for table-level constraints.
	Column() *Column
	Record() reg.ConstraintRecord
}

type constraintBase struct {
	id         uint64
	name       string
	table      *Table
	column     *Column
	definition *ConstraintDefinition
}

func newConstraintBase(table *Table, column *Column, name string,
	definition *ConstraintDefinition, system bool) constraintBase {
	return constraintBase{
		id:         table.database.generateNextConstraintID(system),
		name:       name,
		table:      table,
		column:     column,
		definition: definition,
	}
}

func (c *constraintBase) ID() uint64 {
	return c.id
}

func (c *constraintBase) Name() string {
	return c.name
}

func (c *constraintBase) Type() reg.ConstraintType {
	return c.definition.Type()
}

func (c *constraintBase) Definition() *ConstraintDefinition {
	return c.definition
}

func (c *constraintBase) Table() *Table {
	return c.table
}

func (c *constraintBase) Column() *Column {
	return c.column
}

func (c *constraintBase) Record() reg.ConstraintRecord {
	var columnID uint64
	if c.column != nil {
		columnID = c.column.ID()
	}
	return reg.ConstraintRecord{
		ID:                     c.id,
		Name:                   c.name,
		TableID:                c.table.ID(),
		ColumnID:               columnID,
		ConstraintDefinitionID: c.definition.ID(),
	}
}

// NotNullConstraint forbids null values in its column.
type NotNullConstraint struct {
	constraintBase
}

// NotNull reports whether nulls are actually rejected. The definition
// stores a boolean constant so that "NULL" column declarations share the
// same machinery.
func (c *NotNullConstraint) NotNull() bool {
	if ce, ok := c.definition.Expression().(*expr.ConstantExpression); ok {
		return ce.Value().Kind() == expr.KindBool && ce.Value().AsBool()
	}
	return false
}

// DefaultValueConstraint supplies a default value for its column.
type DefaultValueConstraint struct {
	constraintBase
}

// DefaultValue returns the default value constant.
func (c *DefaultValueConstraint) DefaultValue() expr.Variant {
	if ce, ok := c.definition.Expression().(*expr.ConstantExpression); ok {
		return ce.Value()
	}
	return expr.Null()
}
