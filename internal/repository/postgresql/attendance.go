package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

type attendanceRepository struct {
	db *database.DB
}

const attendanceColumns = `
	a.id, a.employee_id, a.employee_key, a.date, a.shift_code, a.period_id,
	a.standard_in, a.standard_out, a.actual_in, a.actual_out,
	a.late_minutes, a.early_minutes, a.status, a.provenance, a.override_rule,
	a.created_at, a.updated_at`

type attendanceTimes struct {
	standardIn, standardOut, actualIn, actualOut pgtype.Time
}

func (t attendanceTimes) apply(r *attendance.Record) {
	r.StandardIn = clockFromPg(t.standardIn)
	r.StandardOut = clockFromPg(t.standardOut)
	r.ActualIn = clockFromPg(t.actualIn)
	r.ActualOut = clockFromPg(t.actualOut)
}

func scanAttendance(row pgx.Row, extra ...any) (attendance.Record, error) {
	var r attendance.Record
	var t attendanceTimes
	dest := []any{
		&r.ID, &r.EmployeeID, &r.EmployeeKey, &r.Date, &r.ShiftCode, &r.PeriodID,
		&t.standardIn, &t.standardOut, &t.actualIn, &t.actualOut,
		&r.LateMinutes, &r.EarlyMinutes, &r.Status, &r.Provenance, &r.OverrideRule,
		&r.CreatedAt, &r.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return attendance.Record{}, err
	}
	t.apply(&r)
	return r, nil
}

// GetByEmployeeAndDate implements attendance.Repository.
func (a *attendanceRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	return a.getByEmployeeAndDate(ctx, employeeID, date, false)
}

func (a *attendanceRepository) getByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time, forUpdate bool) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `
		FROM daily_attendances a
		WHERE a.employee_id = $1 AND a.date = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	r, err := scanAttendance(q.QueryRow(ctx, query, employeeID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &r, nil
}

// Upsert implements attendance.Repository.
func (a *attendanceRepository) Upsert(ctx context.Context, record attendance.Record) (attendance.Record, attendance.UpsertOutcome, error) {
	var saved attendance.Record
	var outcome attendance.UpsertOutcome

	upsert := func(ctx context.Context) error {
		existing, err := a.getByEmployeeAndDate(ctx, record.EmployeeID, record.Date, true)
		if err != nil {
			return err
		}

		if existing == nil {
			saved, err = a.insert(ctx, record)
			outcome = attendance.UpsertInserted
			return err
		}

		record.ID = existing.ID
		record.CreatedAt = existing.CreatedAt
		if existing.SameDerived(record) {
			saved = *existing
			outcome = attendance.UpsertUnchanged
			return nil
		}

		record.UpdatedAt, err = a.overwrite(ctx, record)
		saved = record
		outcome = attendance.UpsertUpdated
		return err
	}

	err := WithTransaction(ctx, a.db, upsert)
	if err != nil && isUniqueViolation(err) {
		// lost an insert race; the row exists now
		err = WithTransaction(ctx, a.db, upsert)
	}
	if err != nil {
		return attendance.Record{}, "", err
	}

	return saved, outcome, nil
}

func (a *attendanceRepository) insert(ctx context.Context, r attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	id, err := uuid.NewV7()
	if err != nil {
		return attendance.Record{}, fmt.Errorf("generate attendance id: %w", err)
	}
	r.ID = id.String()

	query := `
		INSERT INTO daily_attendances (
			id, employee_id, employee_key, date, shift_code, period_id,
			standard_in, standard_out, actual_in, actual_out,
			late_minutes, early_minutes, status, provenance, override_rule
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	err = q.QueryRow(ctx, query,
		r.ID, r.EmployeeID, r.EmployeeKey, r.Date, r.ShiftCode, r.PeriodID,
		clockToPg(r.StandardIn), clockToPg(r.StandardOut), clockToPg(r.ActualIn), clockToPg(r.ActualOut),
		r.LateMinutes, r.EarlyMinutes, r.Status, r.Provenance, r.OverrideRule,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return r, nil
}

// overwrite replaces every derived field. It is a full overwrite, not a merge.
func (a *attendanceRepository) overwrite(ctx context.Context, r attendance.Record) (time.Time, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE daily_attendances SET
			employee_key = $1, shift_code = $2, period_id = $3,
			standard_in = $4, standard_out = $5, actual_in = $6, actual_out = $7,
			late_minutes = $8, early_minutes = $9, status = $10, provenance = $11, override_rule = $12,
			updated_at = NOW()
		WHERE id = $13
		RETURNING updated_at
	`

	var updatedAt time.Time
	err := q.QueryRow(ctx, query,
		r.EmployeeKey, r.ShiftCode, r.PeriodID,
		clockToPg(r.StandardIn), clockToPg(r.StandardOut), clockToPg(r.ActualIn), clockToPg(r.ActualOut),
		r.LateMinutes, r.EarlyMinutes, r.Status, r.Provenance, r.OverrideRule,
		r.ID,
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, attendance.ErrAttendanceNotFound
		}
		return time.Time{}, fmt.Errorf("failed to update attendance: %w", err)
	}
	return updatedAt, nil
}

// GetByID implements attendance.Repository.
func (a *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + `, e.full_name
		FROM daily_attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE a.id = $1`

	var name *string
	r, err := scanAttendance(q.QueryRow(ctx, query, id), &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Record{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	r.EmployeeName = name
	return r, nil
}

// Update implements attendance.Repository.
func (a *attendanceRepository) Update(ctx context.Context, record attendance.Record) error {
	_, err := a.overwrite(ctx, record)
	return err
}

// List implements attendance.Repository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Record, int64, error) {
	q := GetQuerier(ctx, a.db)

	// Build WHERE clause
	baseWhere := "1 = 1"
	args := []interface{}{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND a.employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}

	// Date range filters
	if filter.StartDate != nil && *filter.StartDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date >= $%d", argIdx)
		args = append(args, *filter.StartDate)
		argIdx++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		baseWhere += fmt.Sprintf(" AND a.date <= $%d", argIdx)
		args = append(args, *filter.EndDate)
		argIdx++
	}

	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND a.status = $%d", argIdx)
		args = append(args, strings.ToLower(*filter.Status))
		argIdx++
	}
	if filter.Provenance != nil && *filter.Provenance != "" {
		baseWhere += fmt.Sprintf(" AND a.provenance = $%d", argIdx)
		args = append(args, *filter.Provenance)
		argIdx++
	}

	countQuery := `SELECT COUNT(*) FROM daily_attendances a WHERE ` + baseWhere
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	// Build ORDER BY
	orderByField := "a.date"
	switch filter.SortBy {
	case "employee_key":
		orderByField = "a.employee_key"
	case "late_minutes":
		orderByField = "a.late_minutes"
	case "status":
		orderByField = "a.status"
	}
	sortOrder := "DESC"
	if strings.ToLower(filter.SortOrder) == "asc" {
		sortOrder = "ASC"
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s, e.full_name
		FROM daily_attendances a
		LEFT JOIN employees e ON e.id = a.employee_id
		WHERE %s
		ORDER BY %s %s, a.employee_key ASC
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, orderByField, sortOrder, argIdx, argIdx+1)

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	page := filter.Page
	if page == 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		var name *string
		r, err := scanAttendance(rows, &name)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan attendance: %w", err)
		}
		r.EmployeeName = name
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate attendances: %w", err)
	}

	return records, total, nil
}

func NewAttendanceRepository(db *database.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}
