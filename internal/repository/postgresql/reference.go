package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

type referenceRepository struct {
	db *database.DB
}

// GetShiftType implements schedule.ReferenceRepository.
func (r *referenceRepository) GetShiftType(ctx context.Context, code string) (schedule.ShiftType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT code, name, clock_in, clock_out, is_working_day FROM shift_types WHERE code = $1`

	var st schedule.ShiftType
	var in, out pgtype.Time
	err := q.QueryRow(ctx, query, code).Scan(&st.Code, &st.Name, &in, &out, &st.IsWorkingDay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.ShiftType{}, schedule.ErrShiftTypeNotFound
		}
		return schedule.ShiftType{}, fmt.Errorf("failed to get shift type: %w", err)
	}
	st.ClockIn = clockFromPg(in)
	st.ClockOut = clockFromPg(out)
	return st, nil
}

// GetPayPeriod implements schedule.ReferenceRepository.
func (r *referenceRepository) GetPayPeriod(ctx context.Context, id string) (schedule.PayPeriod, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT id, start_date, end_date FROM pay_periods WHERE id = $1`

	var p schedule.PayPeriod
	err := q.QueryRow(ctx, query, id).Scan(&p.ID, &p.StartDate, &p.EndDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.PayPeriod{}, schedule.ErrPayPeriodNotFound
		}
		return schedule.PayPeriod{}, fmt.Errorf("failed to get pay period: %w", err)
	}
	return p, nil
}

// StandardFor implements schedule.ReferenceRepository. A dated standard wins over the shift default.
func (r *referenceRepository) StandardFor(ctx context.Context, shiftCode string, date time.Time) (*schedule.Standard, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(ss.clock_in, st.clock_in), COALESCE(ss.clock_out, st.clock_out)
		FROM shift_types st
		LEFT JOIN LATERAL (
			SELECT clock_in, clock_out
			FROM schedule_standards
			WHERE shift_code = st.code AND effective_date <= $2
			ORDER BY effective_date DESC
			LIMIT 1
		) ss ON TRUE
		WHERE st.code = $1
	`

	var in, out pgtype.Time
	err := q.QueryRow(ctx, query, shiftCode, date).Scan(&in, &out)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get schedule standard: %w", err)
	}
	if !in.Valid && !out.Valid {
		return nil, nil
	}

	return &schedule.Standard{
		ShiftCode: shiftCode,
		Date:      date,
		ClockIn:   clockFromPg(in),
		ClockOut:  clockFromPg(out),
	}, nil
}

func NewReferenceRepository(db *database.DB) schedule.ReferenceRepository {
	return &referenceRepository{db: db}
}

type siteRepository struct {
	db *database.DB
}

// GetByID implements schedule.SiteRepository.
func (r *siteRepository) GetByID(ctx context.Context, id string) (schedule.Site, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT id, name, latitude, longitude, radius_meters FROM sites WHERE id = $1`

	var s schedule.Site
	err := q.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.Latitude, &s.Longitude, &s.RadiusMeters)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Site{}, schedule.ErrSiteNotFound
		}
		return schedule.Site{}, fmt.Errorf("failed to get site: %w", err)
	}
	return s, nil
}

func NewSiteRepository(db *database.DB) schedule.SiteRepository {
	return &siteRepository{db: db}
}
