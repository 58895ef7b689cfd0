package reconciliation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func clock(s string) *punch.ClockTime {
	c, err := punch.ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return &c
}

func strPtr(s string) *string { return &s }

type fakeSource struct {
	punches []reconciliation.RawPunchRow
	legacy  []reconciliation.LegacySummaryRow
	err     error
}

func (f *fakeSource) RawPunchesSince(_ context.Context, cutoff time.Time) ([]reconciliation.RawPunchRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []reconciliation.RawPunchRow
	for _, r := range f.punches {
		if !r.Date.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSource) LegacySummariesSince(_ context.Context, cutoff time.Time) ([]reconciliation.LegacySummaryRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []reconciliation.LegacySummaryRow
	for _, r := range f.legacy {
		if !r.Date.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

type memPunchRepo struct {
	mu     sync.Mutex
	events map[punch.Key]punch.Event
	seq    int
}

func newMemPunchRepo() *memPunchRepo {
	return &memPunchRepo{events: make(map[punch.Key]punch.Event)}
}

func (m *memPunchRepo) Save(_ context.Context, e punch.Event) (punch.Event, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := e.Key()
	if existing, ok := m.events[k]; ok {
		return existing, false, nil
	}
	m.seq++
	e.ID = fmt.Sprintf("p-%03d", m.seq)
	e.EmployeeKey = k.EmployeeKey
	e.Date = punch.DayOf(e.Date)
	m.events[k] = e
	return e, true, nil
}

func (m *memPunchRepo) Create(ctx context.Context, e punch.Event) (punch.Event, error) {
	saved, created, err := m.Save(ctx, e)
	if err != nil {
		return punch.Event{}, err
	}
	if !created {
		return punch.Event{}, punch.ErrDuplicatePunch
	}
	return saved, nil
}

func (m *memPunchRepo) LatestForDay(ctx context.Context, key string, date time.Time) (*punch.Event, error) {
	events, _ := m.ListForDay(ctx, key, date)
	if len(events) == 0 {
		return nil, nil
	}
	return &events[len(events)-1], nil
}

func (m *memPunchRepo) ListForDay(_ context.Context, key string, date time.Time) ([]punch.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []punch.Event
	for _, e := range m.events {
		if e.EmployeeKey == key && e.Date.Equal(punch.DayOf(date)) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListSince returns events in insertion order reversed, to prove the engine does not rely on storage order.
func (m *memPunchRepo) ListSince(_ context.Context, cutoff time.Time) ([]punch.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []punch.Event
	for _, e := range m.events {
		if !e.Date.Before(cutoff) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type memAttendanceRepo struct {
	mu      sync.Mutex
	records map[string]attendance.Record
	seq     int
	tick    int
	failFor map[string]error
}

func newMemAttendanceRepo() *memAttendanceRepo {
	return &memAttendanceRepo{records: make(map[string]attendance.Record), failFor: make(map[string]error)}
}

func attKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

func (m *memAttendanceRepo) now() time.Time {
	m.tick++
	return time.Date(2025, 1, 1, 0, 0, m.tick, 0, time.UTC)
}

func (m *memAttendanceRepo) Upsert(_ context.Context, r attendance.Record) (attendance.Record, attendance.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attKey(r.EmployeeID, r.Date)
	if err := m.failFor[k]; err != nil {
		return attendance.Record{}, "", err
	}
	existing, ok := m.records[k]
	if !ok {
		m.seq++
		r.ID = fmt.Sprintf("a-%03d", m.seq)
		r.CreatedAt = m.now()
		r.UpdatedAt = r.CreatedAt
		m.records[k] = r
		return r, attendance.UpsertInserted, nil
	}
	r.ID = existing.ID
	r.CreatedAt = existing.CreatedAt
	if existing.SameDerived(r) {
		return existing, attendance.UpsertUnchanged, nil
	}
	r.UpdatedAt = m.now()
	m.records[k] = r
	return r, attendance.UpsertUpdated, nil
}

func (m *memAttendanceRepo) GetByEmployeeAndDate(_ context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[attKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memAttendanceRepo) GetByID(_ context.Context, id string) (attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return attendance.Record{}, attendance.ErrAttendanceNotFound
}

func (m *memAttendanceRepo) Update(_ context.Context, r attendance.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := attKey(r.EmployeeID, r.Date)
	if _, ok := m.records[k]; !ok {
		return attendance.ErrAttendanceNotFound
	}
	r.UpdatedAt = m.now()
	m.records[k] = r
	return nil
}

func (m *memAttendanceRepo) List(_ context.Context, _ attendance.AttendanceFilter) ([]attendance.Record, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []attendance.Record
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (m *memAttendanceRepo) snapshot() map[string]attendance.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]attendance.Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

type memEmployeeRepo struct {
	mu           sync.Mutex
	byCode       map[string]*employee.Employee
	resolveCalls int
	activations  int
}

func newMemEmployeeRepo(emps ...employee.Employee) *memEmployeeRepo {
	m := &memEmployeeRepo{byCode: make(map[string]*employee.Employee)}
	for i := range emps {
		e := emps[i]
		m.byCode[e.EmployeeCode] = &e
	}
	return m
}

func (m *memEmployeeRepo) ResolveByCode(_ context.Context, code string) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resolveCalls++
	e, ok := m.byCode[code]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return *e, nil
}

func (m *memEmployeeRepo) GetByID(_ context.Context, id string) (employee.Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byCode {
		if e.ID == id {
			return *e, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (m *memEmployeeRepo) ActivateBulk(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		for _, e := range m.byCode {
			if e.ID == id && e.EmploymentStatus != employee.EmploymentStatusActive {
				e.EmploymentStatus = employee.EmploymentStatusActive
				n++
			}
		}
	}
	m.activations += int(n)
	return n, nil
}

func (m *memEmployeeRepo) status(code string) employee.EmploymentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byCode[code].EmploymentStatus
}

type memRefs struct {
	shifts  map[string]schedule.ShiftType
	periods map[string]schedule.PayPeriod
}

func newMemRefs() *memRefs {
	return &memRefs{
		shifts: map[string]schedule.ShiftType{
			"N":   {Code: "N", Name: "Normal", ClockIn: clock("08.00"), ClockOut: clock("17.00"), IsWorkingDay: true},
			"OFF": {Code: "OFF", Name: "Day off"},
		},
		periods: map[string]schedule.PayPeriod{
			"2025-01": {ID: "2025-01", StartDate: day("2025-01-01"), EndDate: day("2025-01-31")},
		},
	}
}

func (m *memRefs) GetShiftType(_ context.Context, code string) (schedule.ShiftType, error) {
	s, ok := m.shifts[code]
	if !ok {
		return schedule.ShiftType{}, schedule.ErrShiftTypeNotFound
	}
	return s, nil
}

func (m *memRefs) GetPayPeriod(_ context.Context, id string) (schedule.PayPeriod, error) {
	p, ok := m.periods[id]
	if !ok {
		return schedule.PayPeriod{}, schedule.ErrPayPeriodNotFound
	}
	return p, nil
}

func (m *memRefs) StandardFor(_ context.Context, code string, date time.Time) (*schedule.Standard, error) {
	s, ok := m.shifts[code]
	if !ok || (s.ClockIn == nil && s.ClockOut == nil) {
		return nil, nil
	}
	return &schedule.Standard{ShiftCode: code, Date: date, ClockIn: s.ClockIn, ClockOut: s.ClockOut}, nil
}
