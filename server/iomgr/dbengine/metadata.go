package dbengine

import (
	"encoding/binary"
	"os"
	"syscall"

	"github.com/juju/errors"
)

// Database metadata file layout. The file is one fixed-size record that
// stays memory-mapped for the database's lifetime.
const (
	databaseMetadataVersion = uint32(1)
	databaseMetadataSize    = 4096

	metadataOffsetVersion           = 0
	metadataOffsetSuperUserID       = 4
	metadataOffsetLastTransactionID = 8
)

// DatabaseMetadata is the mapped view of a database's metadata file.
type DatabaseMetadata struct {
	file *os.File
	data []byte
}

// createDatabaseMetadataFile creates the metadata file with an initial
// record naming the super user and maps it.
func createDatabaseMetadataFile(path string, superUserID uint32) (*DatabaseMetadata, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot create database metadata file %s: %v", path, err)
	}

	initial := make([]byte, databaseMetadataSize)
	binary.LittleEndian.PutUint32(initial[metadataOffsetVersion:], databaseMetadataVersion)
	binary.LittleEndian.PutUint32(initial[metadataOffsetSuperUserID:], superUserID)
	if _, err := f.WriteAt(initial, 0); err != nil {
		f.Close()
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot write database metadata file %s: %v", path, err)
	}

	return mapMetadataFile(f, path)
}

// openDatabaseMetadataFile opens and maps an existing metadata file.
func openDatabaseMetadataFile(path string) (*DatabaseMetadata, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot open database metadata file %s: %v", path, err)
	}
	return mapMetadataFile(f, path)
}

func mapMetadataFile(f *os.File, path string) (*DatabaseMetadata, error) {
	data, err := syscall.Mmap(int(f.Fd()), 0, databaseMetadataSize,
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED|syscall.MAP_POPULATE)
	if err != nil {
		f.Close()
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot map database metadata file %s: %v", path, err)
	}
	md := &DatabaseMetadata{file: f, data: data}
	if md.Version() != databaseMetadataVersion {
		md.Close()
		return nil, newError(ErrorCodeMetadataFileIOError,
			"database metadata file %s has unsupported version %d", path, md.Version())
	}
	return md, nil
}

// Version returns the metadata record version.
func (md *DatabaseMetadata) Version() uint32 {
	return binary.LittleEndian.Uint32(md.data[metadataOffsetVersion:])
}

// SuperUserID returns the super user recorded at bootstrap.
func (md *DatabaseMetadata) SuperUserID() uint32 {
	return binary.LittleEndian.Uint32(md.data[metadataOffsetSuperUserID:])
}

// LastTransactionID returns the last issued transaction id.
func (md *DatabaseMetadata) LastTransactionID() uint64 {
	return binary.LittleEndian.Uint64(md.data[metadataOffsetLastTransactionID:])
}

// GenerateNextTransactionID issues the next transaction id and persists it
// through the mapping. Callers hold the database mutex.
func (md *DatabaseMetadata) GenerateNextTransactionID() uint64 {
	next := md.LastTransactionID() + 1
	binary.LittleEndian.PutUint64(md.data[metadataOffsetLastTransactionID:], next)
	return next
}

// Close unmaps and closes the metadata file.
func (md *DatabaseMetadata) Close() error {
	var firstErr error
	if md.data != nil {
		if err := syscall.Munmap(md.data); err != nil {
			firstErr = errors.Annotate(err, "cannot unmap database metadata file")
		}
		md.data = nil
	}
	if md.file != nil {
		if err := md.file.Close(); err != nil && firstErr == nil {
			firstErr = errors.Annotate(err, "cannot close database metadata file")
		}
		md.file = nil
	}
	return firstErr
}
