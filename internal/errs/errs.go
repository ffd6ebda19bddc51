package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind enumerates the failure classes a pipeline caller must distinguish.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoDataLoaded
	KindInvalidTarget
	KindUnknownMethod
	KindFitFailure
	KindValidation
	KindColumn
)

func (k Kind) String() string {
	switch k {
	case KindNoDataLoaded:
		return "no_data_loaded"
	case KindInvalidTarget:
		return "invalid_target_column"
	case KindUnknownMethod:
		return "unknown_method"
	case KindFitFailure:
		return "fit_failure"
	case KindValidation:
		return "validation"
	case KindColumn:
		return "invalid_column"
	default:
		return "unknown"
	}
}

// Retryable reports whether a corrected request against the same table can succeed.
// Caller errors are retryable; fit failures and unclassified errors are not.
func (k Kind) Retryable() bool {
	switch k {
	case KindNoDataLoaded, KindInvalidTarget, KindUnknownMethod, KindValidation, KindColumn:
		return true
	default:
		return false
	}
}

// ErrNoDataLoaded is returned by the session layer when no dataset is active.
var ErrNoDataLoaded = errors.New("no data loaded")

// InvalidTargetError indicates the requested target column is not in the table.
type InvalidTargetError struct {
	Column string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target column %q", e.Column)
}

// UnknownMethodError indicates an unrecognized method, task or chart kind.
type UnknownMethodError struct {
	Param   string // e.g. missing_method, task_type
	Value   string
	Allowed []string
}

func (e *UnknownMethodError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("unknown %s %q", e.Param, e.Value)
	}
	return fmt.Sprintf("unknown %s %q (allowed: %s)", e.Param, e.Value, strings.Join(e.Allowed, ", "))
}

// FitError wraps a numerical or algorithmic failure during model training.
type FitError struct {
	Model string
	Err   error
}

func (e *FitError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("fit failed: %v", e.Err)
	}
	return fmt.Sprintf("fit %s: %v", e.Model, e.Err)
}

func (e *FitError) Unwrap() error { return e.Err }

// ValidationError reports a request that violates a precondition (e.g. chart column counts).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ColumnError reports a column that is missing, duplicated or of the wrong kind.
type ColumnError struct {
	Column string
	Reason string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("column %q: %s", e.Column, e.Reason)
}

// KindOf classifies err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		target *InvalidTargetError
		method *UnknownMethodError
		fit    *FitError
		valid  *ValidationError
		col    *ColumnError
	)
	switch {
	case errors.Is(err, ErrNoDataLoaded):
		return KindNoDataLoaded
	case errors.As(err, &target):
		return KindInvalidTarget
	case errors.As(err, &method):
		return KindUnknownMethod
	case errors.As(err, &fit):
		return KindFitFailure
	case errors.As(err, &valid):
		return KindValidation
	case errors.As(err, &col):
		return KindColumn
	}
	return KindUnknown
}
