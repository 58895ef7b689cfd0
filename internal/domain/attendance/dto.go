package attendance

import (
	"strings"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// ========================================
// CANONICAL RECORD DTOs
// ========================================

type AttendanceResponse struct {
	ID           string  `json:"id"`
	EmployeeID   string  `json:"employee_id"`
	EmployeeKey  string  `json:"employee_key"`
	EmployeeName string  `json:"employee_name,omitempty"`
	Date         string  `json:"date"`
	ShiftCode    string  `json:"shift_code"`
	PeriodID     *string `json:"period_id,omitempty"`
	StandardIn   *string `json:"standard_in"`
	StandardOut  *string `json:"standard_out"`
	ActualIn     *string `json:"actual_in"`
	ActualOut    *string `json:"actual_out"`
	LateMinutes  int     `json:"late_minutes"`
	EarlyMinutes int     `json:"early_minutes"`
	Status       string  `json:"status"`
	Provenance   string  `json:"provenance"`
	OverrideRule *string `json:"override_rule,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

type AttendanceFilter struct {
	// Search & Filter
	EmployeeID *string `json:"employee_id,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`
	Provenance *string `json:"provenance,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`

	// Sorting
	SortBy    string `json:"sort_by"`    // date, employee_key, late_minutes, status
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.StartDate != nil && *f.StartDate != "" {
		if _, valid := validator.IsValidDate(*f.StartDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "start_date",
				Message: "start_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.EndDate != nil && *f.EndDate != "" {
		if _, valid := validator.IsValidDate(*f.EndDate); !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must be in YYYY-MM-DD format",
			})
		}
	}

	if f.Provenance != nil {
		valid := []string{string(ProvenanceRawLog), string(ProvenanceLegacy), string(ProvenanceManual)}
		if !validator.IsInSlice(*f.Provenance, valid) {
			errs = append(errs, validator.ValidationError{
				Field:   "provenance",
				Message: "provenance must be one of: raw_log, legacy_aggregate, manual",
			})
		}
	}

	if f.SortBy != "" {
		validSortFields := []string{"date", "employee_key", "late_minutes", "status"}
		if !validator.IsInSlice(f.SortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: date, employee_key, late_minutes, status",
			})
		}
	} else {
		f.SortBy = "date"
	}

	if f.SortOrder != "" {
		if !validator.IsInSlice(strings.ToLower(f.SortOrder), []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		f.SortOrder = "desc"
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Showing     string               `json:"showing"`
	Attendances []AttendanceResponse `json:"attendances"`
}

// UpdateAttendanceRequest is the authorized hand-edit of a canonical record.
// Late and early minutes are never accepted; they are recomputed from the edited times.
type UpdateAttendanceRequest struct {
	ID             string  `json:"-"`
	ActualIn       *string `json:"actual_in,omitempty"`  // HH:mm or HH.mm
	ActualOut      *string `json:"actual_out,omitempty"` // HH:mm or HH.mm
	ClearActualIn  bool    `json:"clear_actual_in,omitempty"`
	ClearActualOut bool    `json:"clear_actual_out,omitempty"`
	Status         *string `json:"status,omitempty"`

	// set by Validate
	actualIn  *punch.ClockTime
	actualOut *punch.ClockTime
}

// ParsedTimes returns the actual times parsed by Validate. Nil means the field was not sent.
func (r *UpdateAttendanceRequest) ParsedTimes() (in, out *punch.ClockTime) {
	return r.actualIn, r.actualOut
}

func (r *UpdateAttendanceRequest) Validate() error {
	var errs validator.ValidationErrors

	r.actualIn, r.actualOut = nil, nil

	if r.ActualIn != nil {
		t, err := punch.ParseClockTime(*r.ActualIn)
		if err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "actual_in",
				Message: "actual_in must be in HH:mm format",
			})
		} else {
			r.actualIn = &t
		}
	}

	if r.ActualOut != nil {
		t, err := punch.ParseClockTime(*r.ActualOut)
		if err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "actual_out",
				Message: "actual_out must be in HH:mm format",
			})
		} else {
			r.actualOut = &t
		}
	}

	if r.ClearActualIn && r.ActualIn != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "clear_actual_in",
			Message: "clear_actual_in cannot be combined with actual_in",
		})
	}

	if r.ClearActualOut && r.ActualOut != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "clear_actual_out",
			Message: "clear_actual_out cannot be combined with actual_out",
		})
	}

	if r.Status != nil && !validator.IsInSlice(strings.ToLower(*r.Status), StatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(StatusValues, ", "),
		})
	}

	if r.ActualIn == nil && r.ActualOut == nil && r.Status == nil && !r.ClearActualIn && !r.ClearActualOut {
		errs = append(errs, validator.ValidationError{
			Field:   "body",
			Message: "at least one field must be provided",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func clockPtrToString(c *punch.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.Clock()
	return &s
}

// ToResponse maps a canonical record for the read API.
func ToResponse(r Record) AttendanceResponse {
	var name string
	if r.EmployeeName != nil {
		name = *r.EmployeeName
	}
	return AttendanceResponse{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		EmployeeKey:  r.EmployeeKey,
		EmployeeName: name,
		Date:         r.Date.Format("2006-01-02"),
		ShiftCode:    r.ShiftCode,
		PeriodID:     r.PeriodID,
		StandardIn:   clockPtrToString(r.StandardIn),
		StandardOut:  clockPtrToString(r.StandardOut),
		ActualIn:     clockPtrToString(r.ActualIn),
		ActualOut:    clockPtrToString(r.ActualOut),
		LateMinutes:  r.LateMinutes,
		EarlyMinutes: r.EarlyMinutes,
		Status:       string(r.Status),
		Provenance:   string(r.Provenance),
		OverrideRule: r.OverrideRule,
		CreatedAt:    r.CreatedAt.Format("2006-01-02 15:04:05"),
		UpdatedAt:    r.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}
