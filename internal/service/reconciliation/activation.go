package reconciliation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
)

// Activator flips dormant employees to active once real activity is observed.
type Activator struct {
	employees employee.EmployeeRepository
}

func NewActivator(employees employee.EmployeeRepository) *Activator {
	return &Activator{employees: employees}
}

// Activate is idempotent: employees already active are not touched.
func (a *Activator) Activate(ctx context.Context, observed []string) (int64, error) {
	if len(observed) == 0 {
		return 0, nil
	}

	n, err := a.employees.ActivateBulk(ctx, observed)
	if err != nil {
		return 0, fmt.Errorf("activate employees: %w", err)
	}
	if n > 0 {
		slog.Info("Reconciliation: employees activated", "count", n, "observed", len(observed))
	}
	return n, nil
}
