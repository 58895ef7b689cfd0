package reconciliation

import (
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

type SyncRequest struct {
	Days int `json:"days"`
}

func (r *SyncRequest) Validate(defaultDays int) error {
	var errs validator.ValidationErrors

	if r.Days < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "days",
			Message: "days must be a positive number",
		})
	}
	if r.Days == 0 {
		r.Days = defaultDays
	}
	if r.Days > 31 {
		errs = append(errs, validator.ValidationError{
			Field:   "days",
			Message: "days must not exceed 31, use full reconciliation for longer ranges",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type FullRequest struct {
	Cutoff string `json:"cutoff"` // YYYY-MM-DD
}

// ParseCutoff validates the cutoff against now. An empty cutoff means now minus lookbackDays.
func (r *FullRequest) ParseCutoff(now time.Time, lookbackDays int) (time.Time, error) {
	if r.Cutoff == "" {
		y, m, d := now.AddDate(0, 0, -lookbackDays).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}

	cutoff, ok := validator.IsValidDate(r.Cutoff)
	if !ok {
		return time.Time{}, validator.ValidationErrors{{
			Field:   "cutoff",
			Message: "cutoff must be in YYYY-MM-DD format",
		}}
	}

	y, m, d := now.Date()
	if cutoff.After(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)) {
		return time.Time{}, validator.ValidationErrors{{
			Field:   "cutoff",
			Message: ErrInvalidCutoff.Error(),
		}}
	}
	return cutoff, nil
}
