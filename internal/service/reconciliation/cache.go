package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

// RunCache memoizes reference lookups for one run. It is built per run and is not safe for
// concurrent use; runs never share one.
type RunCache struct {
	employeeRepo employee.EmployeeRepository
	refs         schedule.ReferenceRepository

	employees map[string]*employee.Employee
	shifts    map[string]error
	periods   map[string]periodEntry
	standards map[string]*schedule.Standard

	seen     map[string]struct{}
	observed map[string]struct{}

	Errors *reconciliation.ErrorLog
}

type periodEntry struct {
	period schedule.PayPeriod
	err    error
}

func NewRunCache(employees employee.EmployeeRepository, refs schedule.ReferenceRepository, errorSampleSize int) *RunCache {
	return &RunCache{
		employeeRepo: employees,
		refs:         refs,
		employees:    make(map[string]*employee.Employee),
		shifts:       make(map[string]error),
		periods:      make(map[string]periodEntry),
		standards:    make(map[string]*schedule.Standard),
		seen:         make(map[string]struct{}),
		observed:     make(map[string]struct{}),
		Errors:       reconciliation.NewErrorLog(errorSampleSize),
	}
}

// ResolveEmployee returns nil without error when the key is unknown.
func (c *RunCache) ResolveEmployee(ctx context.Context, key string) (*employee.Employee, error) {
	key = strings.TrimSpace(key)
	if e, ok := c.employees[key]; ok {
		return e, nil
	}

	e, err := c.employeeRepo.ResolveByCode(ctx, key)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			c.employees[key] = nil
			return nil, nil
		}
		return nil, err
	}

	c.employees[key] = &e
	return &e, nil
}

func (c *RunCache) CheckShift(ctx context.Context, code string) error {
	if err, ok := c.shifts[code]; ok {
		return err
	}

	_, err := c.refs.GetShiftType(ctx, code)
	if errors.Is(err, schedule.ErrShiftTypeNotFound) {
		err = fmt.Errorf("%w %q", reconciliation.ErrUnknownShiftType, code)
	} else if err != nil {
		return err
	}
	c.shifts[code] = err
	return err
}

func (c *RunCache) PayPeriod(ctx context.Context, id string) (schedule.PayPeriod, error) {
	if p, ok := c.periods[id]; ok {
		return p.period, p.err
	}

	p, err := c.refs.GetPayPeriod(ctx, id)
	if errors.Is(err, schedule.ErrPayPeriodNotFound) {
		err = fmt.Errorf("%w %q", reconciliation.ErrUnknownPeriod, id)
	} else if err != nil {
		return schedule.PayPeriod{}, err
	}
	c.periods[id] = periodEntry{period: p, err: err}
	return p, err
}

func (c *RunCache) Standard(ctx context.Context, shiftCode string, date time.Time) (*schedule.Standard, error) {
	k := shiftCode + "|" + date.Format("2006-01-02")
	if s, ok := c.standards[k]; ok {
		return s, nil
	}

	s, err := c.refs.StandardFor(ctx, shiftCode, date)
	if err != nil {
		return nil, err
	}
	c.standards[k] = s
	return s, nil
}

func (c *RunCache) MarkSeen(employeeID string) {
	c.seen[employeeID] = struct{}{}
}

func (c *RunCache) MarkObserved(employeeID string) {
	c.observed[employeeID] = struct{}{}
}

// Seen returns employees with at least one ingested punch, sorted.
func (c *RunCache) Seen() []string {
	return sortedKeys(c.seen)
}

// Observed returns employees with a non-null actual time after reconciliation, sorted.
func (c *RunCache) Observed() []string {
	return sortedKeys(c.observed)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
