package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Upsert(ctx context.Context, r attendance.Record) (attendance.Record, attendance.UpsertOutcome, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(attendance.Record), args.Get(1).(attendance.UpsertOutcome), args.Error(2)
}

func (m *mockRepository) GetByEmployeeAndDate(ctx context.Context, employeeID string, date time.Time) (*attendance.Record, error) {
	args := m.Called(ctx, employeeID, date)
	r, _ := args.Get(0).(*attendance.Record)
	return r, args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (attendance.Record, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(attendance.Record), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, r attendance.Record) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Record, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]attendance.Record), args.Get(1).(int64), args.Error(2)
}

func clock(s string) *punch.ClockTime {
	c, _ := punch.ParseClockTime(s)
	return &c
}

func strPtr(s string) *string { return &s }

func storedRecord() attendance.Record {
	return attendance.Record{
		ID:           "att-1",
		EmployeeID:   "emp-1",
		EmployeeKey:  "0012",
		Date:         time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
		ShiftCode:    "N",
		StandardIn:   clock("08.00"),
		StandardOut:  clock("17.00"),
		Status:       attendance.StatusOff,
		Provenance:   attendance.ProvenanceLegacy,
		OverrideRule: strPtr("sunday-generic-workday"),
	}
}

func TestUpdateAttendance_RecomputesLateEarly(t *testing.T) {
	repo := new(mockRepository)
	svc := NewAttendanceService(repo)

	repo.On("GetByID", mock.Anything, "att-1").Return(storedRecord(), nil).Once()
	repo.On("Update", mock.Anything, mock.MatchedBy(func(r attendance.Record) bool {
		return r.ActualIn != nil && r.ActualIn.String() == "08.15" &&
			r.ActualOut != nil && r.ActualOut.String() == "16.30" &&
			r.LateMinutes == 15 &&
			r.EarlyMinutes == 30 &&
			r.Status == attendance.StatusPresent &&
			r.Provenance == attendance.ProvenanceManual &&
			r.OverrideRule == nil
	})).Return(nil).Once()

	edited := storedRecord()
	edited.ActualIn, edited.ActualOut = clock("08.15"), clock("16.30")
	edited.LateMinutes, edited.EarlyMinutes = 15, 30
	edited.Status, edited.Provenance, edited.OverrideRule = attendance.StatusPresent, attendance.ProvenanceManual, nil
	repo.On("GetByID", mock.Anything, "att-1").Return(edited, nil).Once()

	resp, err := svc.UpdateAttendance(context.Background(), attendance.UpdateAttendanceRequest{
		ID:        "att-1",
		ActualIn:  strPtr("08:15"),
		ActualOut: strPtr("16.30"),
		Status:    strPtr("PRESENT"),
	})

	require.NoError(t, err)
	assert.Equal(t, 15, resp.LateMinutes)
	assert.Equal(t, "08:15", *resp.ActualIn)
	assert.Equal(t, "manual", resp.Provenance)
	repo.AssertExpectations(t)
}

func TestUpdateAttendance_ClearActualOut(t *testing.T) {
	repo := new(mockRepository)
	svc := NewAttendanceService(repo)

	stored := storedRecord()
	stored.ActualIn, stored.ActualOut = clock("08.00"), clock("15.00")
	stored.EarlyMinutes = 120
	repo.On("GetByID", mock.Anything, "att-1").Return(stored, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(r attendance.Record) bool {
		return r.ActualOut == nil && r.EarlyMinutes == 0 && r.ActualIn != nil
	})).Return(nil).Once()

	_, err := svc.UpdateAttendance(context.Background(), attendance.UpdateAttendanceRequest{ID: "att-1", ClearActualOut: true})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestUpdateAttendance_Invalid(t *testing.T) {
	repo := new(mockRepository)
	svc := NewAttendanceService(repo)

	_, err := svc.UpdateAttendance(context.Background(), attendance.UpdateAttendanceRequest{
		ID:       "att-1",
		ActualIn: strPtr("25:00"),
		Status:   strPtr("vacation"),
	})

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateAttendance_NotFound(t *testing.T) {
	repo := new(mockRepository)
	svc := NewAttendanceService(repo)
	repo.On("GetByID", mock.Anything, "missing").Return(attendance.Record{}, attendance.ErrAttendanceNotFound)

	_, err := svc.UpdateAttendance(context.Background(), attendance.UpdateAttendanceRequest{ID: "missing", Status: strPtr("sick")})

	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestListAttendance_Pagination(t *testing.T) {
	repo := new(mockRepository)
	svc := NewAttendanceService(repo)

	records := []attendance.Record{storedRecord(), storedRecord()}
	repo.On("List", mock.Anything, mock.MatchedBy(func(f attendance.AttendanceFilter) bool {
		return f.Page == 2 && f.Limit == 2 && f.SortBy == "date" && f.SortOrder == "desc"
	})).Return(records, int64(5), nil)

	resp, err := svc.ListAttendance(context.Background(), attendance.AttendanceFilter{Page: 2, Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, 3, resp.TotalPages)
	assert.Equal(t, "3-4 of 5", resp.Showing)
	assert.Len(t, resp.Attendances, 2)
}

func TestListAttendance_Empty(t *testing.T) {
	repo := new(mockRepository)
	svc := NewAttendanceService(repo)
	repo.On("List", mock.Anything, mock.Anything).Return([]attendance.Record{}, int64(0), nil)

	resp, err := svc.ListAttendance(context.Background(), attendance.AttendanceFilter{})

	require.NoError(t, err)
	assert.Equal(t, "0 of 0", resp.Showing)
	assert.NotNil(t, resp.Attendances)
}
