package postgresql

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
)

const microsPerMinute = int64(60 * 1000 * 1000)

func clockToPg(c *punch.ClockTime) pgtype.Time {
	if c == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: int64(*c) * microsPerMinute, Valid: true}
}

func clockFromPg(t pgtype.Time) *punch.ClockTime {
	if !t.Valid {
		return nil
	}
	c := punch.ClockTime(t.Microseconds / microsPerMinute)
	return &c
}
