package io

import (
	"os"

	"github.com/juju/errors"

	"github.com/govindnetworks/siodb/server/iomgr/crypto"
)

// EncryptionBlockSize is the ciphertext translation granularity. Logical
// offsets map 1:1 to physical offsets; each aligned block is transformed
// with a keystream bound to its block index.
const EncryptionBlockSize = 4096

// EncryptedFile is a File whose on-disk content is ciphertext. Reads and
// writes operate on plaintext; translation happens at block granularity.
type EncryptedFile struct {
	inner      *NormalFile
	encryption crypto.CipherContext
	decryption crypto.CipherContext
}

// CreateEncryptedFile creates a new encrypted file. The initial size is
// rounded up to a whole number of encryption blocks and the file is filled
// with encrypted zeros so every block is decryptable.
func CreateEncryptedFile(path string, extraFlags int, createMode os.FileMode,
	encryption, decryption crypto.CipherContext, initialSize int64) (*EncryptedFile, error) {
	inner, err := CreateNormalFile(path, extraFlags, createMode, 0)
	if err != nil {
		return nil, err
	}
	ef := &EncryptedFile{inner: inner, encryption: encryption, decryption: decryption}
	if initialSize > 0 {
		if err := ef.Extend(initialSize); err != nil {
			inner.Close()
			return nil, err
		}
	}
	return ef, nil
}

// OpenEncryptedFile opens an existing encrypted file.
func OpenEncryptedFile(path string, extraFlags int,
	encryption, decryption crypto.CipherContext) (*EncryptedFile, error) {
	inner, err := OpenNormalFile(path, extraFlags)
	if err != nil {
		return nil, err
	}
	return &EncryptedFile{inner: inner, encryption: encryption, decryption: decryption}, nil
}

func roundUpToBlock(size int64) int64 {
	blocks := (size + EncryptionBlockSize - 1) / EncryptionBlockSize
	return blocks * EncryptionBlockSize
}

func (ef *EncryptedFile) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	firstBlock := off / EncryptionBlockSize
	alignedOff := firstBlock * EncryptionBlockSize
	alignedLen := roundUpToBlock(off+int64(len(p))) - alignedOff

	buf := make([]byte, alignedLen)
	n, err := ef.inner.ReadAt(buf, alignedOff)
	if err != nil {
		return 0, err
	}
	if int64(n) < alignedLen {
		return 0, errors.Errorf("short read of encrypted file: %d of %d bytes", n, alignedLen)
	}
	for i := int64(0); i < alignedLen; i += EncryptionBlockSize {
		ef.decryption.Transform(uint64(firstBlock+i/EncryptionBlockSize), buf[i:i+EncryptionBlockSize])
	}
	copy(p, buf[off-alignedOff:])
	return len(p), nil
}

func (ef *EncryptedFile) WriteAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	firstBlock := off / EncryptionBlockSize
	alignedOff := firstBlock * EncryptionBlockSize
	alignedLen := roundUpToBlock(off+int64(len(p))) - alignedOff

	buf := make([]byte, alignedLen)

	// Partially covered edge blocks keep their current plaintext.
	size, err := ef.inner.Size()
	if err != nil {
		return 0, err
	}
	readLen := alignedLen
	if alignedOff+readLen > size {
		readLen = size - alignedOff
	}
	if readLen > 0 {
		n, err := ef.inner.ReadAt(buf[:readLen], alignedOff)
		if err != nil {
			return 0, err
		}
		if int64(n) < readLen {
			return 0, errors.Errorf("short read of encrypted file: %d of %d bytes", n, readLen)
		}
		for i := int64(0); i < readLen; i += EncryptionBlockSize {
			ef.decryption.Transform(uint64(firstBlock+i/EncryptionBlockSize), buf[i:i+EncryptionBlockSize])
		}
	}

	copy(buf[off-alignedOff:], p)
	for i := int64(0); i < alignedLen; i += EncryptionBlockSize {
		ef.encryption.Transform(uint64(firstBlock+i/EncryptionBlockSize), buf[i:i+EncryptionBlockSize])
	}
	if _, err := ef.inner.WriteAt(buf, alignedOff); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (ef *EncryptedFile) Size() (int64, error) {
	return ef.inner.Size()
}

// Extend grows the file with encrypted zero blocks.
func (ef *EncryptedFile) Extend(newSize int64) error {
	oldSize, err := ef.inner.Size()
	if err != nil {
		return err
	}
	newSize = roundUpToBlock(newSize)
	if newSize <= oldSize {
		return nil
	}
	firstBlock := oldSize / EncryptionBlockSize
	block := make([]byte, EncryptionBlockSize)
	for off := oldSize; off < newSize; off += EncryptionBlockSize {
		for i := range block {
			block[i] = 0
		}
		ef.encryption.Transform(uint64(firstBlock+(off-oldSize)/EncryptionBlockSize), block)
		if _, err := ef.inner.WriteAt(block, off); err != nil {
			return err
		}
	}
	return nil
}

func (ef *EncryptedFile) Sync() error {
	return ef.inner.Sync()
}

func (ef *EncryptedFile) Close() error {
	return ef.inner.Close()
}
