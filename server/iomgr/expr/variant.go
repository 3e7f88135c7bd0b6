package expr

import (
	"github.com/juju/errors"
	"github.com/shopspring/decimal"

	"github.com/govindnetworks/siodb/util"
)

// VariantKind enumerates the value kinds a constant can carry.
type VariantKind uint8

const (
	KindNull VariantKind = iota
	KindBool
	KindInt64
	KindDecimal
	KindString
)

// Variant is a typed literal value.
type Variant struct {
	kind    VariantKind
	boolVal bool
	intVal  int64
	decVal  decimal.Decimal
	strVal  string
}

// Null returns the null variant.
func Null() Variant {
	return Variant{kind: KindNull}
}

// Bool returns a boolean variant.
func Bool(v bool) Variant {
	return Variant{kind: KindBool, boolVal: v}
}

// Int64 returns an integer variant.
func Int64(v int64) Variant {
	return Variant{kind: KindInt64, intVal: v}
}

// Decimal returns an exact-decimal variant.
func Decimal(v decimal.Decimal) Variant {
	return Variant{kind: KindDecimal, decVal: v}
}

// String returns a string variant.
func String(v string) Variant {
	return Variant{kind: KindString, strVal: v}
}

// Kind returns the value kind.
func (v Variant) Kind() VariantKind {
	return v.kind
}

// IsNull reports whether the variant is null.
func (v Variant) IsNull() bool {
	return v.kind == KindNull
}

// AsBool returns the boolean payload.
func (v Variant) AsBool() bool {
	return v.boolVal
}

// AsInt64 returns the integer payload.
func (v Variant) AsInt64() int64 {
	return v.intVal
}

// AsDecimal returns the decimal payload.
func (v Variant) AsDecimal() decimal.Decimal {
	return v.decVal
}

// AsString returns the string payload.
func (v Variant) AsString() string {
	return v.strVal
}

// Equal reports whether two variants hold the same kind and value.
func (v Variant) Equal(other Variant) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolVal == other.boolVal
	case KindInt64:
		return v.intVal == other.intVal
	case KindDecimal:
		return v.decVal.Equal(other.decVal)
	case KindString:
		return v.strVal == other.strVal
	}
	return false
}

func (v Variant) serializedSize() int {
	size := util.VarIntSize(uint64(v.kind))
	switch v.kind {
	case KindBool:
		size++
	case KindInt64:
		size += util.VarIntSize(zigzagEncode(v.intVal))
	case KindDecimal:
		size += util.LenPrefixedBytesSize([]byte(v.decVal.String()))
	case KindString:
		size += util.LenPrefixedBytesSize([]byte(v.strVal))
	}
	return size
}

func (v Variant) serializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, uint64(v.kind))
	switch v.kind {
	case KindBool:
		if v.boolVal {
			buf[n] = 1
		} else {
			buf[n] = 0
		}
		n++
	case KindInt64:
		n += util.PutVarUint64(buf[n:], zigzagEncode(v.intVal))
	case KindDecimal:
		n += util.PutLenPrefixedBytes(buf[n:], []byte(v.decVal.String()))
	case KindString:
		n += util.PutLenPrefixedBytes(buf[n:], []byte(v.strVal))
	}
	return n
}

func deserializeVariant(buf []byte) (Variant, int, error) {
	kind, n, err := util.GetVarUint64(buf)
	if err != nil {
		return Variant{}, 0, errors.Annotate(err, "variant kind")
	}
	switch VariantKind(kind) {
	case KindNull:
		return Null(), n, nil
	case KindBool:
		if n >= len(buf) {
			return Variant{}, 0, errors.New("variant: truncated boolean")
		}
		return Bool(buf[n] != 0), n + 1, nil
	case KindInt64:
		raw, m, err := util.GetVarUint64(buf[n:])
		if err != nil {
			return Variant{}, 0, errors.Annotate(err, "variant integer")
		}
		return Int64(zigzagDecode(raw)), n + m, nil
	case KindDecimal:
		data, m, err := util.GetLenPrefixedBytes(buf[n:])
		if err != nil {
			return Variant{}, 0, errors.Annotate(err, "variant decimal")
		}
		d, err := decimal.NewFromString(string(data))
		if err != nil {
			return Variant{}, 0, errors.Annotate(err, "variant decimal")
		}
		return Decimal(d), n + m, nil
	case KindString:
		data, m, err := util.GetLenPrefixedBytes(buf[n:])
		if err != nil {
			return Variant{}, 0, errors.Annotate(err, "variant string")
		}
		return String(string(data)), n + m, nil
	default:
		return Variant{}, 0, errors.Errorf("unknown variant kind %d", kind)
	}
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
