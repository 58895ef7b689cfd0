package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	reconsvc "github.com/cmlabs-hris/hris-attendance-go/internal/service/reconciliation"
)

type AttendanceServiceImpl struct {
	attendance.Repository
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := a.Repository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendances: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, r := range records {
		responses = append(responses, attendance.ToResponse(r))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  totalPages,
		Showing:     showing,
		Attendances: responses,
	}, nil
}

// GetAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	record, err := a.Repository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.ToResponse(record), nil
}

// UpdateAttendance implements attendance.AttendanceService.
// The edit survives until the next full reconciliation pass rewrites the day.
func (a *AttendanceServiceImpl) UpdateAttendance(ctx context.Context, req attendance.UpdateAttendanceRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	record, err := a.Repository.GetByID(ctx, req.ID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	actualIn, actualOut := req.ParsedTimes()
	if actualIn != nil {
		record.ActualIn = actualIn
	}
	if req.ClearActualIn {
		record.ActualIn = nil
	}
	if actualOut != nil {
		record.ActualOut = actualOut
	}
	if req.ClearActualOut {
		record.ActualOut = nil
	}
	if req.Status != nil {
		record.Status = attendance.NormalizeStatus(strings.TrimSpace(*req.Status))
	}

	record.LateMinutes, record.EarlyMinutes = reconsvc.LateEarly(record.StandardIn, record.StandardOut, record.ActualIn, record.ActualOut)
	record.Provenance = attendance.ProvenanceManual
	record.OverrideRule = nil

	if err := a.Repository.Update(ctx, record); err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to update attendance: %w", err)
	}

	slog.Info("Attendance: record hand-edited",
		"id", record.ID,
		"employee_key", record.EmployeeKey,
		"date", record.Date.Format("2006-01-02"),
		"late_minutes", record.LateMinutes,
		"early_minutes", record.EarlyMinutes,
	)

	updated, err := a.Repository.GetByID(ctx, record.ID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.ToResponse(updated), nil
}

func NewAttendanceService(attendanceRepo attendance.Repository) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		Repository: attendanceRepo,
	}
}
