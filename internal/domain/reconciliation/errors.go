package reconciliation

import (
	"errors"
	"fmt"
)

var (
	ErrMissingEmployee  = errors.New("missing employee key")
	ErrUnknownEmployee  = errors.New("unknown employee")
	ErrUnknownPeriod    = errors.New("unknown pay period")
	ErrUnknownShiftType = errors.New("unknown shift type")
	ErrInvalidClockTime = errors.New("invalid clock time")
	ErrInvalidDirection = errors.New("invalid direction flag")
	ErrInvalidPolicy    = errors.New("invalid reconciliation policy")
	ErrInvalidCutoff    = errors.New("cutoff must not be in the future")
)

// ConnectivityError means an upstream store could not be read. It aborts the whole run.
type ConnectivityError struct {
	Source string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s unreachable: %v", e.Source, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

// Row error kinds, also logged as the "kind" attribute.
const (
	KindValidation = "validation_error"
	KindStore      = "store_error"
	KindDuplicate  = "duplicate_row"
)

// KindOf classifies a row failure. Bad source data is a validation error; anything else
// came from the canonical store.
func KindOf(err error) string {
	for _, target := range []error{
		ErrMissingEmployee,
		ErrUnknownEmployee,
		ErrUnknownPeriod,
		ErrUnknownShiftType,
		ErrInvalidClockTime,
		ErrInvalidDirection,
	} {
		if errors.Is(err, target) {
			return KindValidation
		}
	}
	return KindStore
}
