package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

type employeeRepository struct {
	db *database.DB
}

const employeeColumns = `id, employee_code, full_name, employment_status, site_id, default_shift, created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(&e.ID, &e.EmployeeCode, &e.FullName, &e.EmploymentStatus, &e.SiteID, &e.DefaultShift, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// ResolveByCode implements employee.EmployeeRepository.
func (r *employeeRepository) ResolveByCode(ctx context.Context, code string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE employee_code = $1`

	e, err := scanEmployee(q.QueryRow(ctx, query, strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to resolve employee %q: %w", code, err)
	}
	return e, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	e, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

// ActivateBulk implements employee.EmployeeRepository.
func (r *employeeRepository) ActivateBulk(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET employment_status = $1, updated_at = NOW()
		WHERE id = ANY($2::uuid[]) AND employment_status <> $1
	`

	tag, err := q.Exec(ctx, query, employee.EmploymentStatusActive, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to activate employees: %w", err)
	}
	return tag.RowsAffected(), nil
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepository{db: db}
}
