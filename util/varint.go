package util

import (
	"encoding/binary"

	"github.com/juju/errors"
)

var ErrVarIntTruncated = errors.New("varint: truncated value")

// VarIntSize returns the number of bytes PutVarUint64 will write for v.
func VarIntSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// PutVarUint64 writes v into buf and returns the number of bytes written.
// The buffer must be at least VarIntSize(v) bytes long.
func PutVarUint64(buf []byte, v uint64) int {
	return binary.PutUvarint(buf, v)
}

// GetVarUint64 reads a varint-encoded uint64 from buf.
func GetVarUint64(buf []byte) (uint64, int, error) {
	v, n := binary.Uvarint(buf)
	if n <= 0 {
		return 0, 0, ErrVarIntTruncated
	}
	return v, n, nil
}

// PutLenPrefixedBytes writes a varint length followed by the raw bytes.
func PutLenPrefixedBytes(buf []byte, data []byte) int {
	n := binary.PutUvarint(buf, uint64(len(data)))
	n += copy(buf[n:], data)
	return n
}

// LenPrefixedBytesSize returns the serialized size of a length-prefixed blob.
func LenPrefixedBytesSize(data []byte) int {
	return VarIntSize(uint64(len(data))) + len(data)
}

// GetLenPrefixedBytes reads a varint length followed by that many bytes.
// The returned slice is a copy.
func GetLenPrefixedBytes(buf []byte) ([]byte, int, error) {
	size, n, err := GetVarUint64(buf)
	if err != nil {
		return nil, 0, err
	}
	if uint64(len(buf)-n) < size {
		return nil, 0, ErrVarIntTruncated
	}
	out := make([]byte, size)
	copy(out, buf[n:n+int(size)])
	return out, n + int(size), nil
}
