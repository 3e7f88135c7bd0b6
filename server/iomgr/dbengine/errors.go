package dbengine

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// ErrorCode identifies a database engine error kind.
type ErrorCode int

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodeInvalidConfigurationOption
	ErrorCodeInvalidDatabaseName
	ErrorCodeInvalidColumnName
	ErrorCodeInvalidConstraintName
	ErrorCodeTableAlreadyExists
	ErrorCodeTableDoesNotExist
	ErrorCodeTableDoesNotBelongToDatabase
	ErrorCodeTableTypeNotSupported
	ErrorCodeColumnDoesNotExist
	ErrorCodeColumnSetDoesNotExist
	ErrorCodeColumnDefinitionDoesNotExist
	ErrorCodeConstraintAlreadyExists
	ErrorCodeConstraintDoesNotExist
	ErrorCodeConstraintNotSupported
	ErrorCodeColumnConstraintTypeMismatch
	ErrorCodeTableConstraintTypeMismatch
	ErrorCodeConstraintDefinitionDoesNotExist
	ErrorCodeMissingColumnDefinitionsForColumn
	ErrorCodeResourceExhausted
	ErrorCodeDatabaseAlreadyExists
	ErrorCodeDatabaseDoesNotExist
	ErrorCodeDatabaseDataFolderMissing
	ErrorCodeDatabaseInitFileMissing
	ErrorCodeMetadataFileIOError
	ErrorCodeCannotReleaseUnusedDatabase
	ErrorCodeCreateTableDuplicateColumnName
	ErrorCodeCreateTableDuplicateConstraintName
	ErrorCodeCreateTableDuplicateColumnConstraintType
	ErrorCodeMissingSystemTable
	ErrorCodeIndexDoesNotExist
)

// Error is a single database engine error.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsError reports whether err is (or wraps) an engine error with the given
// code. CompoundError matches when any of its records matches.
func IsError(err error, code ErrorCode) bool {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Code == code
		case *CompoundError:
			for _, rec := range e.Errors {
				if rec.Code == code {
					return true
				}
			}
			return false
		}
		if cause := errors.Cause(err); cause != err {
			err = cause
			continue
		}
		if u, ok := err.(interface{ Unwrap() error }); ok {
			err = u.Unwrap()
			continue
		}
		return false
	}
	return false
}

// CompoundError aggregates every validation error found by a validator pass.
type CompoundError struct {
	Errors []*Error
}

func (e *CompoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d errors:", len(e.Errors))
	for _, rec := range e.Errors {
		sb.WriteString(" [")
		sb.WriteString(rec.Message)
		sb.WriteString("]")
	}
	return sb.String()
}

// ErrorsWithCode returns the aggregated records carrying the given code.
func (e *CompoundError) ErrorsWithCode(code ErrorCode) []*Error {
	var out []*Error
	for _, rec := range e.Errors {
		if rec.Code == code {
			out = append(out, rec)
		}
	}
	return out
}
