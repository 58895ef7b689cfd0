package checkin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-attendance-go/internal/service/file"
)

var tracer = otel.Tracer("github.com/cmlabs-hris/hris-attendance-go/internal/service/checkin")

type GeofenceConfig struct {
	DefaultRadiusMeters float64
	Enforce             bool
}

type CheckInServiceImpl struct {
	punches     punch.Repository
	employees   employee.EmployeeRepository
	sites       schedule.SiteRepository
	locker      lock.Locker
	fileService file.FileService
	publisher   notification.Publisher
	metrics     *metrics.Metrics
	geofence    GeofenceConfig
	location    *time.Location
	now         func() time.Time
}

type Option func(*CheckInServiceImpl)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *CheckInServiceImpl) {
		s.now = now
	}
}

func WithLocation(loc *time.Location) Option {
	return func(s *CheckInServiceImpl) {
		s.location = loc
	}
}

func NewCheckInService(
	punches punch.Repository,
	employees employee.EmployeeRepository,
	sites schedule.SiteRepository,
	locker lock.Locker,
	fileService file.FileService,
	publisher notification.Publisher,
	m *metrics.Metrics,
	geofence GeofenceConfig,
	opts ...Option,
) punch.Gateway {
	s := &CheckInServiceImpl{
		punches:     punches,
		employees:   employees,
		sites:       sites,
		locker:      locker,
		fileService: fileService,
		publisher:   publisher,
		metrics:     m,
		geofence:    geofence,
		location:    time.UTC,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status implements punch.Gateway.
func (s *CheckInServiceImpl) Status(ctx context.Context, employeeID string) (punch.StatusResponse, error) {
	emp, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return punch.StatusResponse{}, err
	}

	today := punch.DayOf(s.now().In(s.location))
	latest, err := s.punches.LatestForDay(ctx, emp.EmployeeCode, today)
	if err != nil {
		return punch.StatusResponse{}, fmt.Errorf("failed to get latest punch: %w", err)
	}

	state, next := punch.NextAction(latest)
	resp := punch.StatusResponse{
		EmployeeID: emp.ID,
		Date:       today.Format("2006-01-02"),
		State:      state,
		NextAction: next,
	}
	if latest != nil {
		last := punch.ToResponse(*latest)
		resp.LastPunch = &last
	}
	return resp, nil
}

// Submit implements punch.Gateway.
func (s *CheckInServiceImpl) Submit(ctx context.Context, req punch.CheckInRequest) (resp punch.CheckInResponse, err error) {
	ctx, span := tracer.Start(ctx, "checkin.Submit")
	defer span.End()

	direction, _ := punch.ParseDirection(req.Direction)
	defer func() {
		outcome := outcomeOf(err)
		s.metrics.IncCheckIn(string(direction), outcome)
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.SetStatus(codes.Error, outcome)
		}
	}()

	if err := req.Validate(); err != nil {
		return punch.CheckInResponse{}, err
	}

	emp, err := s.employees.GetByID(ctx, req.EmployeeID)
	if err != nil {
		return punch.CheckInResponse{}, err
	}

	nowLocal := s.now().In(s.location)
	today := punch.DayOf(nowLocal)
	span.SetAttributes(
		attribute.String("employee_key", emp.EmployeeCode),
		attribute.String("direction", string(direction)),
	)

	release, err := s.locker.Acquire(ctx, emp.ID+"|"+today.Format("2006-01-02"))
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return punch.CheckInResponse{}, punch.ErrConcurrentCheckIn
		}
		return punch.CheckInResponse{}, fmt.Errorf("failed to acquire check-in lock: %w", err)
	}
	defer release()

	latest, err := s.punches.LatestForDay(ctx, emp.EmployeeCode, today)
	if err != nil {
		return punch.CheckInResponse{}, fmt.Errorf("failed to get latest punch: %w", err)
	}

	_, expected := punch.NextAction(latest)
	if expected.Direction() != direction {
		return punch.CheckInResponse{}, &punch.DirectionMismatchError{Declared: direction, Expected: expected}
	}

	distance, inside, err := s.checkFence(ctx, emp, *req.Latitude, *req.Longitude)
	if err != nil {
		return punch.CheckInResponse{}, err
	}

	photoKey, err := s.fileService.UploadPunchPhoto(ctx, emp.EmployeeCode, today, string(direction), req.File, req.FileHeader.Filename)
	if err != nil {
		return punch.CheckInResponse{}, fmt.Errorf("failed to upload punch photo: %w", err)
	}
	photoURL := s.fileService.GetFileURL(photoKey)

	created, err := s.punches.Create(ctx, punch.Event{
		EmployeeID:       emp.ID,
		EmployeeKey:      emp.EmployeeCode,
		Date:             today,
		Time:             punch.ClockTimeOf(nowLocal),
		Direction:        direction,
		Source:           punch.SourceMobile,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		DistanceMeters:   distance,
		ReportedDistance: req.Distance,
		PhotoURL:         &photoURL,
	})
	if err != nil {
		if delErr := s.fileService.DeleteFile(ctx, photoKey); delErr != nil {
			slog.Warn("CheckIn: failed to remove orphaned photo", "path", photoKey, "error", delErr)
		}
		if errors.Is(err, punch.ErrDuplicatePunch) {
			return punch.CheckInResponse{}, punch.ErrConcurrentCheckIn
		}
		return punch.CheckInResponse{}, fmt.Errorf("failed to record punch: %w", err)
	}

	s.notify(ctx, created, distance, inside)

	state, next := punch.NextAction(&created)
	return punch.CheckInResponse{
		Punch:       punch.ToResponse(created),
		State:       state,
		NextAction:  next,
		InsideFence: inside,
	}, nil
}

// checkFence measures the distance to the employee's site. Without a site, distance is unknown.
func (s *CheckInServiceImpl) checkFence(ctx context.Context, emp employee.Employee, lat, lon float64) (*float64, *bool, error) {
	if emp.SiteID == nil {
		if s.geofence.Enforce {
			return nil, nil, punch.ErrNoSiteAssigned
		}
		return nil, nil, nil
	}

	site, err := s.sites.GetByID(ctx, *emp.SiteID)
	if err != nil {
		if errors.Is(err, schedule.ErrSiteNotFound) && !s.geofence.Enforce {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get site: %w", err)
	}

	radius := float64(site.RadiusMeters)
	if radius <= 0 {
		radius = s.geofence.DefaultRadiusMeters
	}
	fence := geo.Fence{Latitude: site.Latitude, Longitude: site.Longitude, RadiusMeters: radius}
	distance, inside := fence.Check(lat, lon)
	s.metrics.ObserveDistance(distance)

	if !inside {
		if s.geofence.Enforce {
			return nil, nil, punch.ErrOutsideGeofence
		}
		slog.Info("CheckIn: punch outside geofence accepted",
			"employee_key", emp.EmployeeCode,
			"site_id", site.ID,
			"distance_meters", distance,
			"radius_meters", fence.Radius(),
		)
	}
	return &distance, &inside, nil
}

// notify is fire-and-forget: the punch is already persisted.
func (s *CheckInServiceImpl) notify(ctx context.Context, e punch.Event, distance *float64, inside *bool) {
	eventType := notification.EventTypeCheckIn
	if e.Direction == punch.DirectionOut {
		eventType = notification.EventTypeCheckOut
	}

	err := s.publisher.Publish(context.WithoutCancel(ctx), notification.CheckInEvent{
		Type:           eventType,
		PunchID:        e.ID,
		EmployeeID:     e.EmployeeID,
		EmployeeKey:    e.EmployeeKey,
		Date:           e.Date.Format("2006-01-02"),
		Time:           e.Time.Clock(),
		Direction:      string(e.Direction),
		DistanceMeters: distance,
		InsideFence:    inside,
		OccurredAt:     s.now().UTC(),
	})
	if err != nil {
		slog.Warn("CheckIn: failed to publish notification", "punch_id", e.ID, "error", err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, punch.ErrConcurrentCheckIn):
		return "conflict"
	case errors.Is(err, punch.ErrDirectionMismatch):
		return "direction_mismatch"
	case errors.Is(err, punch.ErrOutsideGeofence), errors.Is(err, punch.ErrNoSiteAssigned):
		return "outside_geofence"
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return "invalid"
	}
	return "error"
}
