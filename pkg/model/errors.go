package model

import (
	"errors"
	"fmt"
)

// ErrQuotaExceeded is returned when the run observed more failures than the
// configured maximum
var ErrQuotaExceeded = errors.New("max failures reached")

// ErrorCategory defines run-level error categories
type ErrorCategory int

const (
	ErrorCategoryNone ErrorCategory = iota
	ErrorCategoryValidation
	ErrorCategoryQuota
	ErrorCategoryConfig
	ErrorCategorySchema
	ErrorCategoryIO
)

// String returns a string representation of the error category
func (ec ErrorCategory) String() string {
	switch ec {
	case ErrorCategoryNone:
		return "None"
	case ErrorCategoryValidation:
		return "Validation"
	case ErrorCategoryQuota:
		return "QuotaExceeded"
	case ErrorCategoryConfig:
		return "ConfigError"
	case ErrorCategorySchema:
		return "SchemaError"
	case ErrorCategoryIO:
		return "IOError"
	default:
		return fmt.Sprintf("Unknown(%d)", ec)
	}
}

// ConfigError reports bad command line arguments or settings
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %v", e.Err)
	}
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// SchemaError reports a malformed schema document
type SchemaError struct {
	Path   string
	Column string
	Err    error
}

func (e *SchemaError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("schema %s: property %q: %v", e.Path, e.Column, e.Err)
	case e.Path != "":
		return fmt.Sprintf("schema %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("schema: %v", e.Err)
	}
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IOError reports an unreadable or malformed input file. Row is the data row
// at which reading failed, or 0 when the failure is not row specific.
type IOError struct {
	Op   string
	Path string
	Row  int
	Err  error
}

func (e *IOError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s %s: row %d: %v", e.Op, e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CategorizeError determines the category of a run-level error
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ErrorCategoryNone
	}

	var (
		configErr *ConfigError
		schemaErr *SchemaError
		ioErr     *IOError
	)

	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return ErrorCategoryQuota
	case errors.As(err, &configErr):
		return ErrorCategoryConfig
	case errors.As(err, &schemaErr):
		return ErrorCategorySchema
	case errors.As(err, &ioErr):
		return ErrorCategoryIO
	default:
		return ErrorCategoryValidation
	}
}

// ExitCode maps a run error to the process exit status
func ExitCode(err error) int {
	switch CategorizeError(err) {
	case ErrorCategoryNone:
		return 0
	case ErrorCategoryConfig:
		return 2
	case ErrorCategorySchema:
		return 3
	case ErrorCategoryIO:
		return 4
	default:
		return 1
	}
}
