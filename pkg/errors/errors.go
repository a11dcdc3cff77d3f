package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryDataLoad       ErrorCategory = "data_load"
	CategorySchema         ErrorCategory = "schema"
	CategoryWrite          ErrorCategory = "write"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryNetwork        ErrorCategory = "network"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Data load errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeInvalidFormat  ErrorCode = "invalid_format"
	CodeMissingColumn  ErrorCode = "missing_column"
	CodeEncodingError  ErrorCode = "encoding_error"
	CodeEmptySource    ErrorCode = "empty_source"
	CodeSourceQuery    ErrorCode = "source_query"

	// Schema errors
	CodeInvalidAmount ErrorCode = "invalid_amount"
	CodeInvalidDate   ErrorCode = "invalid_date"
	CodeInvalidEnum   ErrorCode = "invalid_enum"
	CodeInvalidNumber ErrorCode = "invalid_number"
	CodeMissingField  ErrorCode = "missing_field"
	CodeDuplicateKey  ErrorCode = "duplicate_key"

	// Write errors
	CodeOutputNotWritable ErrorCode = "output_not_writable"
	CodeRenderFailed      ErrorCode = "render_failed"
	CodeDirectoryError    ErrorCode = "directory_error"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Reconciliation errors
	CodeInvalidState     ErrorCode = "invalid_state"
	CodeDataInconsistent ErrorCode = "data_inconsistent"
	CodeProcessingError  ErrorCode = "processing_error"

	// Network errors
	CodeConnectionFailed   ErrorCode = "connection_failed"
	CodeServiceUnavailable ErrorCode = "service_unavailable"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
	CodeCancelled       ErrorCode = "cancelled"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryDataLoad:
		return 2
	case CategorySchema:
		return 3
	case CategoryWrite:
		return 4
	case CategoryConfiguration:
		return 5
	case CategoryReconciliation, CategoryInternal:
		return 6
	case CategoryNetwork:
		return 7
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func build(category ErrorCategory, code ErrorCode, message string, cause error) *ReconcilerError {
	if cause != nil {
		return Wrap(cause, category, code, message)
	}
	return New(category, code, message)
}

// DataLoadError reports a source that is missing, unreadable, malformed or
// lacks required columns.
func DataLoadError(code ErrorCode, source string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("source not found: %s", source)
		suggestion = "check that the path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied reading source: %s", source)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("source appears to be corrupted: %s", source)
		suggestion = "regenerate or re-export the file"
	case CodeInvalidFormat:
		message = fmt.Sprintf("malformed CSV in source: %s", source)
		suggestion = "check quoting and that every row has the same number of fields as the header"
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column in source: %s", source)
		suggestion = "verify the header row contains every required column"
	case CodeEncodingError:
		message = fmt.Sprintf("source is not valid UTF-8: %s", source)
		suggestion = "save the file in UTF-8 encoding"
	case CodeEmptySource:
		message = fmt.Sprintf("source has no header row: %s", source)
		suggestion = "ensure the file contains a header row"
	case CodeSourceQuery:
		message = fmt.Sprintf("failed to query source: %s", source)
		suggestion = "check the database connection and that the dataset was imported"
	default:
		message = fmt.Sprintf("failed to load source: %s", source)
		suggestion = "check the source and try again"
	}

	return build(CategoryDataLoad, code, message, err).
		WithSuggestion(suggestion).
		WithContext("source", source)
}

// SchemaError reports a value that does not fit the column type it was read from.
func SchemaError(code ErrorCode, file string, line int, column string, value string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount in %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "amounts must be decimal numbers such as '1234.56'"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date in %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "dates must use the YYYY-MM-DD format"
	case CodeInvalidEnum:
		message = fmt.Sprintf("unexpected value in %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "use one of the documented status values"
	case CodeInvalidNumber:
		message = fmt.Sprintf("invalid number in %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "use a plain integer"
	case CodeMissingField:
		message = fmt.Sprintf("required field '%s' is empty in %s at line %d", column, file, line)
		suggestion = "provide a value for this field"
	case CodeDuplicateKey:
		message = fmt.Sprintf("duplicate key in %s at line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "key columns must be unique"
	default:
		message = fmt.Sprintf("schema error in %s at line %d, column '%s'", file, line, column)
		suggestion = "check the column types"
	}

	return build(CategorySchema, code, message, err).
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column).
		WithContext("value", value)
}

// WriteError reports an output path that could not be written.
func WriteError(code ErrorCode, path string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeOutputNotWritable:
		message = fmt.Sprintf("output path is not writable: %s", path)
		suggestion = "check that the directory exists and you have write access"
	case CodeRenderFailed:
		message = fmt.Sprintf("failed to render report for %s", path)
		suggestion = "this is likely a bug - please report it with the error details"
	case CodeDirectoryError:
		message = fmt.Sprintf("output directory error: %s", path)
		suggestion = "ensure the output directory exists"
	default:
		message = fmt.Sprintf("failed to write output: %s", path)
		suggestion = "check disk space and permissions"
	}

	return build(CategoryWrite, code, message, err).
		WithSuggestion(suggestion).
		WithContext("path", path)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting as a flag, environment variable or config file entry"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return build(CategoryConfiguration, code, message, err).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error
func ReconciliationError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeInvalidState:
		message = fmt.Sprintf("engine is not ready for %s", operation)
		suggestion = "run the pipeline steps in order: load, reconcile, statistics, report"
	case CodeDataInconsistent:
		message = fmt.Sprintf("data inconsistency detected during %s", operation)
		suggestion = "verify data integrity and resolve inconsistencies"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", operation)
		suggestion = "check the input data and try again"
	default:
		message = fmt.Sprintf("reconciliation error during %s", operation)
		suggestion = "review the data and configuration"
	}

	return build(CategoryReconciliation, code, message, err).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// NetworkError creates a network-related error
func NetworkError(code ErrorCode, endpoint string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("connection failed to %s", endpoint)
		suggestion = "check network connectivity and endpoint availability"
	case CodeServiceUnavailable:
		message = fmt.Sprintf("service unavailable: %s", endpoint)
		suggestion = "try again later"
	default:
		message = fmt.Sprintf("network error: %s", endpoint)
		suggestion = "check network connection and try again"
	}

	return build(CategoryNetwork, code, message, err).
		WithSuggestion(suggestion).
		WithContext("endpoint", endpoint)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message, suggestion string

	switch code {
	case CodeUnexpectedError:
		message = fmt.Sprintf("unexpected error during %s", operation)
		suggestion = "this is likely a bug - please report it with the error details"
	case CodeCancelled:
		message = fmt.Sprintf("%s was cancelled", operation)
		suggestion = "rerun the command"
	default:
		message = fmt.Sprintf("internal error during %s", operation)
		suggestion = "try again or contact support if the problem persists"
	}

	return build(CategoryInternal, code, message, err).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// Utility functions

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// IsCategory reports whether any ReconcilerError in the chain has the category
func IsCategory(err error, category ErrorCategory) bool {
	reconcilerErr, ok := AsReconcilerError(err)
	return ok && reconcilerErr.Category == category
}

// IsCode reports whether any ReconcilerError in the chain has the code
func IsCode(err error, code ErrorCode) bool {
	reconcilerErr, ok := AsReconcilerError(err)
	return ok && reconcilerErr.Code == code
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
