package engine

import (
	"errors"
	"fmt"

	"stocktracker/internal/layout"
	"stocktracker/internal/registry"
	"stocktracker/internal/workbook"
)

// ConfigReason classifies a configuration error.
type ConfigReason string

const (
	ReasonUnknownSymbol   ConfigReason = "UnknownSymbol"
	ReasonDateOutOfRange  ConfigReason = "DateOutOfRange"
	ReasonInvalidRegistry ConfigReason = "InvalidRegistry"
	ReasonInvalidSheet    ConfigReason = "InvalidSheet"
)

// ConfigurationError aborts a run before any fetch starts.
type ConfigurationError struct {
	Reason ConfigReason
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Reason, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// PersistenceError means the populated workbook could not be saved. Nothing
// from the run reached disk.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save workbook %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// configError maps a precondition failure to its configuration reason.
func configError(err error) *ConfigurationError {
	reason := ReasonInvalidSheet
	switch {
	case errors.Is(err, registry.ErrInvalidRegistry):
		reason = ReasonInvalidRegistry
	case errors.Is(err, registry.ErrNotInRegistry), errors.Is(err, layout.ErrUnknownSymbol):
		reason = ReasonUnknownSymbol
	case errors.Is(err, layout.ErrDateOutOfRange):
		reason = ReasonDateOutOfRange
	case errors.Is(err, layout.ErrMalformedLayout), errors.Is(err, workbook.ErrSheetNotFound):
		reason = ReasonInvalidSheet
	}
	return &ConfigurationError{Reason: reason, Err: err}
}
