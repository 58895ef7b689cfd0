package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var mismatch *punch.DirectionMismatchError
	if errors.As(err, &mismatch) {
		ConflictWithDetails(w, "DIRECTION_MISMATCH", err.Error(), map[string]string{
			"declared_direction": string(mismatch.Declared),
			"expected_action":    string(mismatch.Expected),
		})
		return
	}

	switch {
	// Auth
	case errors.Is(err, jwt.ErrMissingClaims):
		Unauthorized(w, "Invalid token")

	// Check-in gateway errors
	case errors.Is(err, punch.ErrConcurrentCheckIn):
		Conflict(w, err.Error())
	case errors.Is(err, punch.ErrOutsideGeofence):
		Forbidden(w, err.Error())
	case errors.Is(err, punch.ErrNoSiteAssigned):
		Forbidden(w, err.Error())

	// Lookups
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance not found")

	// Reconciliation
	case errors.Is(err, reconciliation.ErrInvalidCutoff):
		ValidationError(w, map[string]string{"cutoff": err.Error()})
	case reconciliation.IsConnectivity(err):
		slog.Error("Upstream store unreachable", "kind", "connectivity_error", "error", err)
		BadGateway(w, "Upstream attendance source is unreachable")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
