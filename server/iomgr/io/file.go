// Package io implements the on-disk file objects the database engine's file
// factory hands out: a direct wrapper over the OS file and a transparently
// encrypted file whose ciphertext blocks are translated on every read and
// write. Callers never branch on cipher presence; they receive a File either
// way.
package io

import (
	"os"

	"github.com/juju/errors"
)

// DataFileCreationMode is the permission mode for newly created data files.
const DataFileCreationMode os.FileMode = 0o644

// File is a random-access database file.
type File interface {
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt writes len(p) bytes starting at offset off.
	WriteAt(p []byte, off int64) (int, error)

	// Size returns the current file size in bytes.
	Size() (int64, error)

	// Extend grows the file to newSize bytes.
	Extend(newSize int64) error

	// Sync flushes buffered data to stable storage.
	Sync() error

	// Close releases the underlying descriptor.
	Close() error
}

// NormalFile is a plain OS file.
type NormalFile struct {
	f *os.File
}

// CreateNormalFile creates a new plain file and extends it to initialSize.
func CreateNormalFile(path string, extraFlags int, createMode os.FileMode, initialSize int64) (*NormalFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|extraFlags, createMode)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot create file %s", path)
	}
	if initialSize > 0 {
		if err := f.Truncate(initialSize); err != nil {
			f.Close()
			return nil, errors.Annotatef(err, "cannot extend file %s", path)
		}
	}
	return &NormalFile{f: f}, nil
}

// OpenNormalFile opens an existing plain file.
func OpenNormalFile(path string, extraFlags int) (*NormalFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|extraFlags, DataFileCreationMode)
	if err != nil {
		return nil, errors.Annotatef(err, "cannot open file %s", path)
	}
	return &NormalFile{f: f}, nil
}

func (nf *NormalFile) ReadAt(p []byte, off int64) (int, error) {
	return nf.f.ReadAt(p, off)
}

func (nf *NormalFile) WriteAt(p []byte, off int64) (int, error) {
	return nf.f.WriteAt(p, off)
}

func (nf *NormalFile) Size() (int64, error) {
	st, err := nf.f.Stat()
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func (nf *NormalFile) Extend(newSize int64) error {
	return nf.f.Truncate(newSize)
}

func (nf *NormalFile) Sync() error {
	return nf.f.Sync()
}

func (nf *NormalFile) Close() error {
	return nf.f.Close()
}
