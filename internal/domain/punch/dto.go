package punch

import (
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

// ========================================
// CHECK-IN DTOs
// ========================================

type CheckInRequest struct {
	EmployeeID string   `json:"-"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Direction  string   `json:"direction"`
	// Distance is what the client computed; stored as advisory only.
	Distance   *float64              `json:"distance,omitempty"`
	File       multipart.File        `json:"-"`
	FileHeader *multipart.FileHeader `json:"-"`
}

func (r *CheckInRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}

	if r.Latitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude is required",
		})
	} else if !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude is required",
		})
	} else if !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if validator.IsEmpty(r.Direction) {
		errs = append(errs, validator.ValidationError{
			Field:   "direction",
			Message: "direction is required",
		})
	} else if _, ok := ParseDirection(r.Direction); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "direction",
			Message: "direction must be one of: IN, OUT",
		})
	}

	if r.Distance != nil && *r.Distance < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "distance",
			Message: "distance must not be negative",
		})
	}

	if r.FileHeader == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: "attendance proof photo is required",
		})
	} else {
		ext := strings.ToLower(filepath.Ext(r.FileHeader.Filename))
		if !validator.IsInSlice(ext, []string{".jpg", ".jpeg", ".png"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "photo",
				Message: "invalid file type: only jpg, jpeg, png allowed",
			})
		} else if r.FileHeader.Size > 10<<20 { // 10MB
			errs = append(errs, validator.ValidationError{
				Field:   "photo",
				Message: "attendance proof photo size must not exceed 10MB",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type PunchResponse struct {
	ID               string   `json:"id"`
	EmployeeID       string   `json:"employee_id"`
	EmployeeKey      string   `json:"employee_key"`
	Date             string   `json:"date"`
	Time             string   `json:"time"`
	Direction        string   `json:"direction"`
	Source           string   `json:"source"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	DistanceMeters   *float64 `json:"distance_meters,omitempty"`
	ReportedDistance *float64 `json:"reported_distance,omitempty"`
	PhotoURL         *string  `json:"photo_url,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

type CheckInResponse struct {
	Punch       PunchResponse `json:"punch"`
	State       State         `json:"state"`
	NextAction  Action        `json:"next_action"`
	InsideFence *bool         `json:"inside_fence,omitempty"`
}

type StatusResponse struct {
	EmployeeID string         `json:"employee_id"`
	Date       string         `json:"date"`
	State      State          `json:"state"`
	NextAction Action         `json:"next_action"`
	LastPunch  *PunchResponse `json:"last_punch,omitempty"`
}

func ToResponse(e Event) PunchResponse {
	return PunchResponse{
		ID:               e.ID,
		EmployeeID:       e.EmployeeID,
		EmployeeKey:      e.EmployeeKey,
		Date:             e.Date.Format("2006-01-02"),
		Time:             e.Time.String(),
		Direction:        string(e.Direction),
		Source:           string(e.Source),
		Latitude:         e.Latitude,
		Longitude:        e.Longitude,
		DistanceMeters:   e.DistanceMeters,
		ReportedDistance: e.ReportedDistance,
		PhotoURL:         e.PhotoURL,
		CreatedAt:        e.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
