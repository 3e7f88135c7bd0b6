package io

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govindnetworks/siodb/server/iomgr/crypto"
)

func testCipherContexts(t *testing.T) (crypto.CipherContext, crypto.CipherContext) {
	t.Helper()
	crypto.InitializeBuiltInCiphers()
	cipher, err := crypto.GetCipher("aes128")
	require.NoError(t, err)
	key := bytes.Repeat([]byte{0x42}, 16)
	enc, err := cipher.CreateEncryptionContext(key)
	require.NoError(t, err)
	dec, err := cipher.CreateDecryptionContext(key)
	require.NoError(t, err)
	return enc, dec
}

func TestNormalFileReadWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	f, err := CreateNormalFile(path, 0, DataFileCreationMode, 128)
	require.NoError(t, err)
	defer f.Close()

	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(128), size)

	payload := []byte("plain file payload")
	_, err = f.WriteAt(payload, 16)
	require.NoError(t, err)

	out := make([]byte, len(payload))
	_, err = f.ReadAt(out, 16)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestEncryptedFileRoundTrip(t *testing.T) {
	enc, dec := testCipherContexts(t)
	path := filepath.Join(t.TempDir(), "data")

	f, err := CreateEncryptedFile(path, 0, DataFileCreationMode, enc, dec, 2*EncryptionBlockSize)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte("siodb"), 100)
	_, err = f.WriteAt(payload, 100)
	require.NoError(t, err)

	out := make([]byte, len(payload))
	_, err = f.ReadAt(out, 100)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
	require.NoError(t, f.Close())

	// The stored bytes are ciphertext.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "siodb")

	// Reopening yields the same plaintext.
	f2, err := OpenEncryptedFile(path, 0, enc, dec)
	require.NoError(t, err)
	defer f2.Close()
	out = make([]byte, len(payload))
	_, err = f2.ReadAt(out, 100)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestEncryptedFileCrossBlockWrite(t *testing.T) {
	enc, dec := testCipherContexts(t)
	path := filepath.Join(t.TempDir(), "data")

	f, err := CreateEncryptedFile(path, 0, DataFileCreationMode, enc, dec, 3*EncryptionBlockSize)
	require.NoError(t, err)
	defer f.Close()

	// Straddle the block boundary.
	payload := bytes.Repeat([]byte{0xAB}, EncryptionBlockSize)
	off := int64(EncryptionBlockSize / 2)
	_, err = f.WriteAt(payload, off)
	require.NoError(t, err)

	out := make([]byte, len(payload))
	_, err = f.ReadAt(out, off)
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	// Untouched regions still read as zeros.
	zeros := make([]byte, 16)
	out = make([]byte, 16)
	_, err = f.ReadAt(out, 2*EncryptionBlockSize+512)
	require.NoError(t, err)
	assert.Equal(t, zeros, out)
}

func TestEncryptedFileExtend(t *testing.T) {
	enc, dec := testCipherContexts(t)
	path := filepath.Join(t.TempDir(), "data")

	f, err := CreateEncryptedFile(path, 0, DataFileCreationMode, enc, dec, EncryptionBlockSize)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Extend(4*EncryptionBlockSize))
	size, err := f.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(4*EncryptionBlockSize), size)

	out := make([]byte, 32)
	_, err = f.ReadAt(out, 3*EncryptionBlockSize)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 32), out)
}

func TestAesCipherKeyValidation(t *testing.T) {
	crypto.InitializeBuiltInCiphers()
	cipher, err := crypto.GetCipher("aes256")
	require.NoError(t, err)
	_, err = cipher.CreateEncryptionContext(make([]byte, 16))
	assert.Error(t, err)
	_, err = cipher.CreateEncryptionContext(make([]byte, 32))
	assert.NoError(t, err)

	// "none" disables encryption.
	c, err := crypto.GetCipher(crypto.NoCipherID)
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = crypto.GetCipher("rot13")
	assert.Error(t, err)
}
