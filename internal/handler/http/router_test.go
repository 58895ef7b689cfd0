package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-go/internal/config"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/sse"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Status(ctx context.Context, employeeID string) (punch.StatusResponse, error) {
	args := m.Called(ctx, employeeID)
	return args.Get(0).(punch.StatusResponse), args.Error(1)
}

func (m *mockGateway) Submit(ctx context.Context, req punch.CheckInRequest) (punch.CheckInResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(punch.CheckInResponse), args.Error(1)
}

type mockAttendanceService struct {
	mock.Mock
}

func (m *mockAttendanceService) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(attendance.ListAttendanceResponse), args.Error(1)
}

func (m *mockAttendanceService) GetAttendance(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(attendance.AttendanceResponse), args.Error(1)
}

func (m *mockAttendanceService) UpdateAttendance(ctx context.Context, req attendance.UpdateAttendanceRequest) (attendance.AttendanceResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(attendance.AttendanceResponse), args.Error(1)
}

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) SyncRecent(ctx context.Context, days int) (reconciliation.RunSummary, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(reconciliation.RunSummary), args.Error(1)
}

func (m *mockRunner) FullReconcile(ctx context.Context, cutoff time.Time) (reconciliation.RunSummary, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(reconciliation.RunSummary), args.Error(1)
}

type routerFixture struct {
	router     http.Handler
	jwt        jwt.Service
	gateway    *mockGateway
	attendance *mockAttendanceService
	runner     *mockRunner
	hub        *sse.Hub
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		jwt:        jwt.NewJWTService("router-test-secret", time.Hour),
		gateway:    new(mockGateway),
		attendance: new(mockAttendanceService),
		runner:     new(mockRunner),
		hub:        sse.NewHub(4),
	}
	f.router = NewRouter(
		config.AppConfig{Env: "test"},
		config.StorageConfig{BasePath: t.TempDir(), BaseURL: "/uploads"},
		f.jwt,
		metrics.New(),
		NewCheckInHandler(f.gateway),
		NewAttendanceHandler(f.attendance),
		NewReconciliationHandler(f.runner, 3, 45, time.UTC),
		NewLiveHandler(f.hub),
	)
	t.Cleanup(func() {
		f.gateway.AssertExpectations(t)
		f.attendance.AssertExpectations(t)
		f.runner.AssertExpectations(t)
	})
	return f
}

func (f *routerFixture) employeeToken(t *testing.T) string {
	t.Helper()
	empID := "emp-1"
	token, _, err := f.jwt.GenerateAccessToken("user-1", &empID, jwt.RoleEmployee)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) managerToken(t *testing.T) string {
	t.Helper()
	token, _, err := f.jwt.GenerateAccessToken("user-2", nil, jwt.RoleManager)
	require.NoError(t, err)
	return token
}

func (f *routerFixture) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func checkInForm(t *testing.T, data string, withPhoto bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if data != "" {
		require.NoError(t, w.WriteField("data", data))
	}
	if withPhoto {
		part, err := w.CreateFormFile("photo", "selfie.jpg")
		require.NoError(t, err)
		_, err = part.Write([]byte("not really a jpeg"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func TestRouter_RequiresToken(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/checkin/status", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/checkin/status", nil), "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ForeignSignatureRejected(t *testing.T) {
	f := newRouterFixture(t)
	other := jwt.NewJWTService("some-other-secret", time.Hour)
	empID := "emp-1"
	token, _, err := other.GenerateAccessToken("user-1", &empID, jwt.RoleEmployee)
	require.NoError(t, err)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/checkin/status", nil), token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Heartbeat(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Metrics(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestCheckIn_Status(t *testing.T) {
	f := newRouterFixture(t)
	f.gateway.On("Status", mock.Anything, "emp-1").Return(punch.StatusResponse{
		EmployeeID: "emp-1",
		Date:       "2025-01-06",
		State:      punch.StateLoggedIn,
		NextAction: punch.ActionCheckOut,
	}, nil)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/checkin/status", nil), f.employeeToken(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var status punch.StatusResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
	assert.Equal(t, punch.ActionCheckOut, status.NextAction)
}

func TestCheckIn_ManagerWithoutEmployeeForbidden(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/checkin/status", nil), f.managerToken(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCheckIn_Submit(t *testing.T) {
	f := newRouterFixture(t)
	f.gateway.On("Submit", mock.Anything, mock.MatchedBy(func(req punch.CheckInRequest) bool {
		return req.EmployeeID == "emp-1" &&
			req.Direction == "IN" &&
			req.Latitude != nil && *req.Latitude == -6.2 &&
			req.FileHeader != nil && req.FileHeader.Filename == "selfie.jpg"
	})).Return(punch.CheckInResponse{
		Punch:      punch.PunchResponse{ID: "p-1", Direction: "IN"},
		State:      punch.StateLoggedIn,
		NextAction: punch.ActionCheckOut,
	}, nil)

	body, contentType := checkInForm(t, `{"latitude":-6.2,"longitude":106.8,"direction":"IN"}`, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkin/", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(req, f.employeeToken(t))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Check in successful", decode(t, rec).Message)
}

func TestCheckIn_SubmitMissingData(t *testing.T) {
	f := newRouterFixture(t)

	body, contentType := checkInForm(t, "", true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkin/", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(req, f.employeeToken(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckIn_SubmitDirectionMismatch(t *testing.T) {
	f := newRouterFixture(t)
	f.gateway.On("Submit", mock.Anything, mock.Anything).Return(punch.CheckInResponse{}, &punch.DirectionMismatchError{
		Declared: punch.DirectionIn,
		Expected: punch.ActionCheckOut,
	})

	body, contentType := checkInForm(t, `{"latitude":-6.2,"longitude":106.8,"direction":"IN"}`, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkin/", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(req, f.employeeToken(t))
	require.Equal(t, http.StatusConflict, rec.Code)

	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DIRECTION_MISMATCH", env.Error.Code)
	assert.Equal(t, "CHECK_OUT", env.Error.Details["expected_action"])
}

func TestCheckIn_SubmitOutsideGeofence(t *testing.T) {
	f := newRouterFixture(t)
	f.gateway.On("Submit", mock.Anything, mock.Anything).Return(punch.CheckInResponse{}, punch.ErrOutsideGeofence)

	body, contentType := checkInForm(t, `{"latitude":-6.2,"longitude":106.8,"direction":"IN"}`, true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkin/", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(req, f.employeeToken(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendance_EmployeeForbidden(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/attendances/", nil), f.employeeToken(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendance_ListParsesQuery(t *testing.T) {
	f := newRouterFixture(t)
	f.attendance.On("ListAttendance", mock.Anything, mock.MatchedBy(func(filter attendance.AttendanceFilter) bool {
		return filter.EmployeeID != nil && *filter.EmployeeID == "emp-1" &&
			filter.StartDate != nil && *filter.StartDate == "2025-01-01" &&
			filter.Provenance != nil && *filter.Provenance == "raw_log" &&
			filter.Page == 2 && filter.Limit == 5 &&
			filter.SortBy == "late_minutes" && filter.SortOrder == "desc"
	})).Return(attendance.ListAttendanceResponse{TotalCount: 6, Page: 2, Limit: 5, Showing: "6-6 of 6"}, nil)

	url := "/api/v1/attendances/?employee_id=emp-1&start_date=2025-01-01&provenance=raw_log&page=2&limit=5&sort_by=late_minutes&sort_order=desc"
	rec := f.do(httptest.NewRequest(http.MethodGet, url, nil), f.managerToken(t))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAttendance_GetNotFound(t *testing.T) {
	f := newRouterFixture(t)
	f.attendance.On("GetAttendance", mock.Anything, "missing").Return(attendance.AttendanceResponse{}, attendance.ErrAttendanceNotFound)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/attendances/missing", nil), f.managerToken(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAttendance_Update(t *testing.T) {
	f := newRouterFixture(t)
	f.attendance.On("UpdateAttendance", mock.Anything, mock.MatchedBy(func(req attendance.UpdateAttendanceRequest) bool {
		return req.ID == "att-1" && req.ActualIn != nil && *req.ActualIn == "08:10"
	})).Return(attendance.AttendanceResponse{ID: "att-1", LateMinutes: 10}, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/attendances/att-1", strings.NewReader(`{"actual_in":"08:10"}`))
	req.Header.Set("Content-Type", "application/json")

	rec := f.do(req, f.managerToken(t))
	require.Equal(t, http.StatusOK, rec.Code)

	var got attendance.AttendanceResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, 10, got.LateMinutes)
}

func TestReconciliation_SyncDefaultsWindow(t *testing.T) {
	f := newRouterFixture(t)
	f.runner.On("SyncRecent", mock.Anything, 3).Return(reconciliation.RunSummary{Job: "sync_raw_logs"}, nil)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/reconciliation/sync", nil), f.managerToken(t))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReconciliation_SyncWindowTooWide(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconciliation/sync", strings.NewReader(`{"days":40}`))
	rec := f.do(req, f.managerToken(t))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReconciliation_SyncEmployeeForbidden(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/reconciliation/sync", nil), f.employeeToken(t))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReconciliation_FullWithCutoff(t *testing.T) {
	f := newRouterFixture(t)
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.runner.On("FullReconcile", mock.Anything, cutoff).Return(reconciliation.RunSummary{Job: "full_reconciliation"}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconciliation/full", strings.NewReader(`{"cutoff":"2025-01-01"}`))
	rec := f.do(req, f.managerToken(t))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReconciliation_FullFutureCutoff(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reconciliation/full", strings.NewReader(`{"cutoff":"2999-01-01"}`))
	rec := f.do(req, f.managerToken(t))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec).Error.Details, "cutoff")
}

func TestReconciliation_FullSourceUnreachable(t *testing.T) {
	f := newRouterFixture(t)
	f.runner.On("FullReconcile", mock.Anything, mock.AnythingOfType("time.Time")).Return(
		reconciliation.RunSummary{},
		&reconciliation.ConnectivityError{Source: "legacy_summary", Err: errors.New("dial tcp: connection refused")},
	)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/reconciliation/full", nil), f.managerToken(t))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLive_CheckInsStream(t *testing.T) {
	f := newRouterFixture(t)
	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/live/checkins?jwt="+f.managerToken(t), nil)
	require.NoError(t, err)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "event: connected\n", line)

	// the subscription exists once the connected event is written
	f.hub.Publish(sse.Event{Event: "attendance.check_in", Data: map[string]string{"punch_id": "p-1"}}, sse.TopicAll)

	var lines []string
	for len(lines) == 0 || !strings.HasPrefix(lines[len(lines)-1], "data: {\"punch_id\"") {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	assert.Contains(t, lines, "event: attendance.check_in")
	assert.Contains(t, lines, `data: {"punch_id":"p-1"}`)
}

func TestLive_EmployeeForbidden(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/live/checkins?jwt="+f.employeeToken(t), nil), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, f.hub.TotalSubscribers())
}
