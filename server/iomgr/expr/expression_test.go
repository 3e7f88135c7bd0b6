package expr

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantExpressionRoundTrip(t *testing.T) {
	values := []Variant{
		Null(),
		Bool(true),
		Bool(false),
		Int64(0),
		Int64(-1),
		Int64(1 << 40),
		Decimal(decimal.NewFromInt(42)),
		Decimal(decimal.RequireFromString("3.14159")),
		String(""),
		String("hello"),
	}
	for _, v := range values {
		original := NewConstant(v)
		data := Serialize(original)
		assert.Equal(t, original.SerializedSize(), len(data))

		restored, err := Deserialize(data)
		require.NoError(t, err)
		rc, ok := restored.(*ConstantExpression)
		require.True(t, ok)
		assert.True(t, v.Equal(rc.Value()), "value %v did not survive round trip", v)

		// Canonical bytes: re-serializing yields identical bytes.
		assert.Equal(t, data, Serialize(restored))
	}
}

func TestConstantExpressionClone(t *testing.T) {
	original := NewConstant(Int64(7))
	clone := original.Clone()
	assert.Equal(t, Serialize(original), Serialize(clone))
}

func TestDeserializeErrors(t *testing.T) {
	_, err := Deserialize(nil)
	assert.Error(t, err)

	_, err = Deserialize([]byte{0xFF})
	assert.Error(t, err)
}

func TestVariantEqual(t *testing.T) {
	assert.True(t, Int64(5).Equal(Int64(5)))
	assert.False(t, Int64(5).Equal(Int64(6)))
	assert.False(t, Int64(5).Equal(String("5")))
	assert.True(t, Decimal(decimal.RequireFromString("1.50")).
		Equal(Decimal(decimal.RequireFromString("1.5"))))
}
