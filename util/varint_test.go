package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<32 - 1, 1 << 60, ^uint64(0)}
	for _, v := range values {
		buf := make([]byte, VarIntSize(v))
		n := PutVarUint64(buf, v)
		assert.Equal(t, len(buf), n)

		decoded, m, err := GetVarUint64(buf)
		require.NoError(t, err)
		assert.Equal(t, v, decoded)
		assert.Equal(t, n, m)
	}
}

func TestVarIntTruncated(t *testing.T) {
	_, _, err := GetVarUint64([]byte{})
	assert.Error(t, err)

	// High bit set on every byte means the value never terminates.
	_, _, err = GetVarUint64([]byte{0x80, 0x80})
	assert.Error(t, err)
}

func TestLenPrefixedBytes(t *testing.T) {
	data := []byte("constraint expression")
	buf := make([]byte, LenPrefixedBytesSize(data))
	n := PutLenPrefixedBytes(buf, data)
	assert.Equal(t, len(buf), n)

	out, m, err := GetLenPrefixedBytes(buf)
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.Equal(t, n, m)

	_, _, err = GetLenPrefixedBytes(buf[:len(buf)-1])
	assert.Error(t, err)
}

func TestHashCodeSeedChaining(t *testing.T) {
	h1 := HashCodeSeed([]byte("abc"), 1)
	h2 := HashCodeSeed([]byte("abc"), 2)
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, HashCodeSeed([]byte("abc"), 1))
}
