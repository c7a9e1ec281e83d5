package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownEntity = errors.New("unknown entity")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports input that does not have the required shape.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// ConnectivityError means the target store is unreachable or rejected our credentials.
type ConnectivityError struct {
	Err error
}

func NewConnectivityError(err error) error {
	return &ConnectivityError{Err: err}
}

func (err ConnectivityError) Error() string {
	return "store unreachable: " + err.Err.Error()
}

func (err ConnectivityError) Unwrap() error { return err.Err }

// BatchError is a single insert batch rejected by the store. Index is 1-based.
type BatchError struct {
	Entity string
	Index  int
	Size   int
	Err    error
}

func (err BatchError) Error() string {
	return fmt.Sprintf("%s: batch %d (%d records): %v", err.Entity, err.Index, err.Size, err.Err)
}

func (err BatchError) Unwrap() error { return err.Err }

// FileIOError is a local file that could not be read or written.
type FileIOError struct {
	Path string
	Err  error
}

func NewFileIOError(path string, err error) error {
	return &FileIOError{Path: path, Err: err}
}

func (err FileIOError) Error() string {
	return fmt.Sprintf("file %s: %v", err.Path, err.Err)
}

func (err FileIOError) Unwrap() error { return err.Err }

func IsConnectivity(err error) bool {
	var cErr *ConnectivityError
	return errors.As(err, &cErr)
}

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func IsFileIO(err error) bool {
	var fErr *FileIOError
	return errors.As(err, &fErr)
}
