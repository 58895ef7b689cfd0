package punch

import "errors"

var (
	ErrConcurrentCheckIn = errors.New("another check-in for this employee is in progress")
	ErrDuplicatePunch    = errors.New("punch already recorded")
	ErrOutsideGeofence   = errors.New("you are outside the allowed radius")
	ErrNoSiteAssigned    = errors.New("no attendance site assigned to employee")
	ErrPunchNotFound     = errors.New("punch event not found")
)

// DirectionMismatchError is returned when the declared direction disagrees with the server's expected action.
type DirectionMismatchError struct {
	Declared Direction
	Expected Action
}

func (e *DirectionMismatchError) Error() string {
	return "declared direction " + string(e.Declared) + " does not match expected action " + string(e.Expected)
}

// ErrDirectionMismatch matches any *DirectionMismatchError via errors.Is.
var ErrDirectionMismatch = errors.New("direction does not match expected action")

func (e *DirectionMismatchError) Is(target error) bool {
	return target == ErrDirectionMismatch
}
