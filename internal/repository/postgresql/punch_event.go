package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

type punchRepository struct {
	db *database.DB
}

const punchColumns = `
	id, employee_id, employee_key, date, punch_time, direction, source,
	latitude, longitude, distance_meters, reported_distance, photo_url, created_at`

func scanPunch(row pgx.Row) (punch.Event, error) {
	var e punch.Event
	var t pgtype.Time
	err := row.Scan(
		&e.ID, &e.EmployeeID, &e.EmployeeKey, &e.Date, &t, &e.Direction, &e.Source,
		&e.Latitude, &e.Longitude, &e.DistanceMeters, &e.ReportedDistance, &e.PhotoURL, &e.CreatedAt,
	)
	if err != nil {
		return punch.Event{}, err
	}
	if c := clockFromPg(t); c != nil {
		e.Time = *c
	}
	return e, nil
}

func (r *punchRepository) findByKey(ctx context.Context, key punch.Key, date time.Time, t punch.ClockTime) (*punch.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + punchColumns + `
		FROM punch_events
		WHERE employee_key = $1 AND date = $2 AND punch_time = $3 AND direction = $4`

	e, err := scanPunch(q.QueryRow(ctx, query, key.EmployeeKey, date, clockToPg(&t), key.Direction))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get punch event: %w", err)
	}
	return &e, nil
}

// Save implements punch.Repository.
func (r *punchRepository) Save(ctx context.Context, event punch.Event) (punch.Event, bool, error) {
	event = normalizeEvent(event)
	key := event.Key()

	var saved punch.Event
	var created bool
	err := WithTransaction(ctx, r.db, func(ctx context.Context) error {
		existing, err := r.findByKey(ctx, key, event.Date, event.Time)
		if err != nil {
			return err
		}

		if existing == nil {
			saved, err = r.insert(ctx, event)
			if err != nil {
				return err
			}
			created = true
			return nil
		}

		// stored events are immutable
		saved = *existing
		return nil
	})
	if err != nil {
		// a concurrent writer inserted the same key first
		if isUniqueViolation(err) {
			existing, findErr := r.findByKey(ctx, key, event.Date, event.Time)
			if findErr == nil && existing != nil {
				return *existing, false, nil
			}
		}
		return punch.Event{}, false, err
	}

	return saved, created, nil
}

// Create implements punch.Repository.
func (r *punchRepository) Create(ctx context.Context, event punch.Event) (punch.Event, error) {
	saved, err := r.insert(ctx, normalizeEvent(event))
	if err != nil {
		if isUniqueViolation(err) {
			return punch.Event{}, punch.ErrDuplicatePunch
		}
		return punch.Event{}, err
	}
	return saved, nil
}

func (r *punchRepository) insert(ctx context.Context, event punch.Event) (punch.Event, error) {
	q := GetQuerier(ctx, r.db)

	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return punch.Event{}, fmt.Errorf("generate punch id: %w", err)
		}
		event.ID = id.String()
	}

	query := `
		INSERT INTO punch_events (
			id, employee_id, employee_key, date, punch_time, direction, source,
			latitude, longitude, distance_meters, reported_distance, photo_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		event.ID,
		event.EmployeeID,
		event.EmployeeKey,
		event.Date,
		clockToPg(&event.Time),
		event.Direction,
		event.Source,
		event.Latitude,
		event.Longitude,
		event.DistanceMeters,
		event.ReportedDistance,
		event.PhotoURL,
	).Scan(&event.CreatedAt)
	if err != nil {
		return punch.Event{}, fmt.Errorf("failed to create punch event: %w", err)
	}

	return event, nil
}

// LatestForDay implements punch.Repository.
func (r *punchRepository) LatestForDay(ctx context.Context, employeeKey string, date time.Time) (*punch.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + punchColumns + `
		FROM punch_events
		WHERE employee_key = $1 AND date = $2
		ORDER BY punch_time DESC, created_at DESC
		LIMIT 1`

	e, err := scanPunch(q.QueryRow(ctx, query, employeeKey, punch.DayOf(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest punch event: %w", err)
	}
	return &e, nil
}

// ListForDay implements punch.Repository.
func (r *punchRepository) ListForDay(ctx context.Context, employeeKey string, date time.Time) ([]punch.Event, error) {
	query := `SELECT ` + punchColumns + `
		FROM punch_events
		WHERE employee_key = $1 AND date = $2
		ORDER BY punch_time, direction`

	return r.list(ctx, query, employeeKey, punch.DayOf(date))
}

// ListSince implements punch.Repository.
func (r *punchRepository) ListSince(ctx context.Context, cutoff time.Time) ([]punch.Event, error) {
	query := `SELECT ` + punchColumns + `
		FROM punch_events
		WHERE date >= $1
		ORDER BY employee_key, date, punch_time, direction`

	return r.list(ctx, query, punch.DayOf(cutoff))
}

func (r *punchRepository) list(ctx context.Context, query string, args ...interface{}) ([]punch.Event, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query punch events: %w", err)
	}
	defer rows.Close()

	var events []punch.Event
	for rows.Next() {
		e, err := scanPunch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan punch event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate punch events: %w", err)
	}

	return events, nil
}

func normalizeEvent(e punch.Event) punch.Event {
	key := e.Key()
	e.EmployeeKey = key.EmployeeKey
	e.Direction = key.Direction
	e.Date = punch.DayOf(e.Date)
	return e
}

func NewPunchRepository(db *database.DB) punch.Repository {
	return &punchRepository{db: db}
}
