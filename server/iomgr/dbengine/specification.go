package dbengine

import (
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	"github.com/govindnetworks/siodb/server/iomgr/expr"
)

// ColumnConstraintSpecification describes one constraint requested for a
// column. An empty name requests automatic name generation.
type ColumnConstraintSpecification struct {
	Name       string
	Type       reg.ConstraintType
	Expression expr.Expression
}

// ColumnSpecification describes one column of a CREATE TABLE request.
type ColumnSpecification struct {
	Name        string
	DataType    reg.ColumnDataType
	Constraints []ColumnConstraintSpecification
}

// SimpleColumnSpecification is the condensed column form used by callers
// that only need NOT NULL and DEFAULT.
type SimpleColumnSpecification struct {
	Name         string
	DataType     reg.ColumnDataType
	NotNull      bool
	HasNotNull   bool
	DefaultValue expr.Variant
}

// Expand converts the simple form into a full column specification.
func (s SimpleColumnSpecification) Expand() ColumnSpecification {
	spec := ColumnSpecification{Name: s.Name, DataType: s.DataType}
	if s.HasNotNull {
		spec.Constraints = append(spec.Constraints, ColumnConstraintSpecification{
			Type:       reg.ConstraintTypeNotNull,
			Expression: expr.NewConstant(expr.Bool(s.NotNull)),
		})
	}
	if !s.DefaultValue.IsNull() {
		spec.Constraints = append(spec.Constraints, ColumnConstraintSpecification{
			Type:       reg.ConstraintTypeDefaultValue,
			Expression: expr.NewConstant(s.DefaultValue),
		})
	}
	return spec
}
