package employee

import "context"

type EmployeeRepository interface {
	// ResolveByCode maps a trimmed natural key to an employee. Returns ErrEmployeeNotFound when unknown.
	ResolveByCode(ctx context.Context, code string) (Employee, error)

	GetByID(ctx context.Context, id string) (Employee, error)

	// ActivateBulk sets every listed employee that is not already active to active in one
	// statement and returns the number of rows changed.
	ActivateBulk(ctx context.Context, ids []string) (int64, error)
}
