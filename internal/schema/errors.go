package schema

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds reported in Failure.ErrorKind.
const (
	KindValidation = "validation_error"
	KindEnrichment = "enrichment_failure"
	KindExport     = "export_failure"
	KindPush       = "push_failure"
	KindStorage    = "storage_error"
	KindInternal   = "internal_error"
)

// FieldError points at one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string { return f.Field + ": " + f.Message }

// ValidationError is fatal for the operation that raised it.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// OrNil returns e when it holds at least one field error, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Invalid builds a single-field ValidationError.
func Invalid(field, format string, args ...any) error {
	ve := &ValidationError{}
	ve.Add(field, format, args...)
	return ve
}

// EnrichmentFailure is a recoverable failure of an enrichment step
// (regulation search, disambiguation). Callers degrade to empty results.
type EnrichmentFailure struct {
	Step string
	Err  error
}

func (e *EnrichmentFailure) Error() string {
	return fmt.Sprintf("enrichment %s failed: %v", e.Step, e.Err)
}

func (e *EnrichmentFailure) Unwrap() error { return e.Err }

// ExportFailure is a failed document export.
type ExportFailure struct {
	Adapter string
	Err     error
}

func (e *ExportFailure) Error() string {
	return fmt.Sprintf("export via %s failed: %v", e.Adapter, e.Err)
}

func (e *ExportFailure) Unwrap() error { return e.Err }

// PushFailure is a failed notification push.
type PushFailure struct {
	Channel string
	Err     error
}

func (e *PushFailure) Error() string {
	return fmt.Sprintf("push to %s failed: %v", e.Channel, e.Err)
}

func (e *PushFailure) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }

func (e *StorageError) Unwrap() error { return e.Err }

// ErrorKind classifies err into one of the Kind* constants.
func ErrorKind(err error) string {
	var (
		ve *ValidationError
		ef *EnrichmentFailure
		xf *ExportFailure
		pf *PushFailure
		sf *StorageError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &ef):
		return KindEnrichment
	case errors.As(err, &xf):
		return KindExport
	case errors.As(err, &pf):
		return KindPush
	case errors.As(err, &sf):
		return KindStorage
	}
	return KindInternal
}

// Failure is the user-visible shape of a failed audit call.
type Failure struct {
	Success   bool         `json:"success"`
	ErrorKind string       `json:"error_kind"`
	Message   string       `json:"message"`
	Fields    []FieldError `json:"fields,omitempty"`
}

// NewFailure converts err into a Failure.
func NewFailure(err error) Failure {
	f := Failure{Success: false, ErrorKind: ErrorKind(err), Message: err.Error()}
	var ve *ValidationError
	if errors.As(err, &ve) {
		f.Fields = ve.Fields
	}
	return f
}
