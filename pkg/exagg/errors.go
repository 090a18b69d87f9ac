package exagg

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled indicates the caller aborted a long-running operation.
// It is neither success nor failure and must not be reported as an error to users.
var ErrCancelled = errors.New("operation cancelled")

// ErrColumnNotFound indicates a column reference did not resolve against the headers.
var ErrColumnNotFound = errors.New("column not found")

// ErrHeaderRowOutOfBounds indicates the header row lies outside the sheet.
var ErrHeaderRowOutOfBounds = errors.New("header row out of bounds")

// ErrInvalidRange indicates malformed column list or cell range syntax.
var ErrInvalidRange = errors.New("invalid range")

// ErrSheetNotFound indicates a sheet is absent from the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrInvalidConfig indicates an option combination that cannot be executed.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrInvalidState indicates a workflow step was called out of order.
var ErrInvalidState = errors.New("invalid workflow state")

// ConfigError represents a configuration problem tied to a sheet and identifier.
type ConfigError struct {
	SheetName  string
	Identifier string
	Err        error
}

func (e *ConfigError) Error() string {
	if e.SheetName == "" {
		return fmt.Sprintf("configuration error for %q: %v", e.Identifier, e.Err)
	}
	return fmt.Sprintf("configuration error in sheet %q for %q: %v", e.SheetName, e.Identifier, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(sheetName, identifier string, err error) *ConfigError {
	return &ConfigError{
		SheetName:  sheetName,
		Identifier: identifier,
		Err:        err,
	}
}

// CheckCancelled returns a wrapped ErrCancelled once ctx is done.
func CheckCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	return nil
}

// IsCancelled reports whether err carries the cancellation signal.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
