package model

import "fmt"

// ValidationError represents a malformed-input failure (bad shape, not a
// business-rule mismatch; those are reported via ValidationResult).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ExtractionError represents a provider call that failed or returned
// unusable data.
type ExtractionError struct {
	Provider string
	Message  string
	Cause    error
}

func (e *ExtractionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed [%s]: %s (%v)", e.Provider, e.Message, e.Cause)
	}
	return fmt.Sprintf("extraction failed [%s]: %s", e.Provider, e.Message)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}

// NewExtractionError creates a new extraction error
func NewExtractionError(provider, message string, cause error) *ExtractionError {
	return &ExtractionError{Provider: provider, Message: message, Cause: cause}
}

// UnknownFormatError is raised for an unrecognized output format identifier.
// This is a programmer or configuration error, not user-correctable input.
type UnknownFormatError struct {
	Format OutputFormat
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown output format: %q", string(e.Format))
}

// NewUnknownFormatError creates a new unknown-format error
func NewUnknownFormatError(format OutputFormat) *UnknownFormatError {
	return &UnknownFormatError{Format: format}
}

// GeneratorSchemaError is raised when the canonical invoice lacks a field the
// target format's schema mandates. Generators fail fast rather than emit a
// non-compliant document.
type GeneratorSchemaError struct {
	Format  OutputFormat
	Field   string
	Message string
}

func (e *GeneratorSchemaError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("[%s] missing mandated field %s: %s", e.Format, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] missing mandated field %s", e.Format, e.Field)
}

// NewGeneratorSchemaError creates a new generator schema error
func NewGeneratorSchemaError(format OutputFormat, field, message string) *GeneratorSchemaError {
	return &GeneratorSchemaError{Format: format, Field: field, Message: message}
}

// OptimisticLockError is raised when a conditional update finds the stored
// row version different from the one the caller last observed. Callers
// reload and retry; they never overwrite blindly.
type OptimisticLockError struct {
	Table           string
	ID              string
	ExpectedVersion int64
}

func (e *OptimisticLockError) Error() string {
	return fmt.Sprintf("optimistic lock conflict on %s/%s: expected version %d", e.Table, e.ID, e.ExpectedVersion)
}

// NewOptimisticLockError creates a new optimistic lock error
func NewOptimisticLockError(table, id string, expectedVersion int64) *OptimisticLockError {
	return &OptimisticLockError{Table: table, ID: id, ExpectedVersion: expectedVersion}
}
