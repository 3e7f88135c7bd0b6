// Package expr provides the narrow expression surface the database engine
// consumes: serialization, deserialization and cloning of constraint
// expressions. The engine treats serialized expressions as opaque bytes and
// compares them byte-for-byte, so the encoding here is deterministic:
// serializing the same expression twice always produces identical bytes,
// and deserializing then re-serializing is the identity.
package expr

import (
	"github.com/juju/errors"

	"github.com/govindnetworks/siodb/util"
)

// Expression kind tags used in the serialized form.
const (
	exprKindConstant = uint64(1)
)

// Expression is a serializable constraint expression.
type Expression interface {
	// SerializedSize returns the number of bytes SerializeInto will write.
	SerializedSize() int

	// SerializeInto writes the expression into buf and returns the number
	// of bytes written. The buffer must be at least SerializedSize() long.
	SerializeInto(buf []byte) int

	// Clone returns a deep copy of the expression.
	Clone() Expression
}

// Serialize renders an expression into a fresh buffer.
func Serialize(e Expression) []byte {
	buf := make([]byte, e.SerializedSize())
	e.SerializeInto(buf)
	return buf
}

// Deserialize decodes an expression from its serialized form.
func Deserialize(buf []byte) (Expression, error) {
	kind, n, err := util.GetVarUint64(buf)
	if err != nil {
		return nil, errors.Annotate(err, "expression kind")
	}
	switch kind {
	case exprKindConstant:
		v, _, err := deserializeVariant(buf[n:])
		if err != nil {
			return nil, errors.Annotate(err, "constant expression")
		}
		return &ConstantExpression{value: v}, nil
	default:
		return nil, errors.Errorf("unknown expression kind %d", kind)
	}
}

// ConstantExpression is a literal value, the only expression kind constraint
// definitions need: NOT NULL carries a boolean, DEFAULT carries the default
// value itself.
type ConstantExpression struct {
	value Variant
}

// NewConstant returns a constant expression holding v.
func NewConstant(v Variant) *ConstantExpression {
	return &ConstantExpression{value: v}
}

// Value returns the constant's value.
func (e *ConstantExpression) Value() Variant {
	return e.value
}

func (e *ConstantExpression) SerializedSize() int {
	return util.VarIntSize(exprKindConstant) + e.value.serializedSize()
}

func (e *ConstantExpression) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, exprKindConstant)
	n += e.value.serializeInto(buf[n:])
	return n
}

func (e *ConstantExpression) Clone() Expression {
	return &ConstantExpression{value: e.value}
}
