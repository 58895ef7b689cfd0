package attendance

import (
	"context"
)

// AttendanceService exposes canonical records to payroll/leave consumers and to authorized editors.
type AttendanceService interface {
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	GetAttendance(ctx context.Context, id string) (AttendanceResponse, error)

	// UpdateAttendance applies a hand-edit and recomputes late/early minutes.
	UpdateAttendance(ctx context.Context, req UpdateAttendanceRequest) (AttendanceResponse, error)
}
