package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/database"
)

// timeClockRepository reads the external time-clock database. Columns are kept as the
// terminal writes them (untrimmed codes, "HH.mm" strings); normalization happens in the ingestor.
// Text columns are nullable there. NULL reads as "" so the row is rejected on its own later.
type timeClockRepository struct {
	db *database.DB
}

// RawPunchesSince implements reconciliation.SourceRepository.
func (r *timeClockRepository) RawPunchesSince(ctx context.Context, cutoff time.Time) ([]reconciliation.RawPunchRow, error) {
	query := `
		SELECT employee_code, log_date, log_time, flag
		FROM raw_punch_logs
		WHERE log_date >= $1
		ORDER BY employee_code, log_date, log_time
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query raw punch logs: %w", err)
	}
	defer rows.Close()

	var result []reconciliation.RawPunchRow
	for rows.Next() {
		var (
			row                 reconciliation.RawPunchRow
			code, logTime, flag pgtype.Text
		)
		if err := rows.Scan(&code, &row.Date, &logTime, &flag); err != nil {
			return nil, fmt.Errorf("scan raw punch log: %w", err)
		}
		row.EmployeeKey = code.String
		row.Time = logTime.String
		row.Flag = flag.String
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw punch logs: %w", err)
	}

	return result, nil
}

// LegacySummariesSince implements reconciliation.SourceRepository.
func (r *timeClockRepository) LegacySummariesSince(ctx context.Context, cutoff time.Time) ([]reconciliation.LegacySummaryRow, error) {
	query := `
		SELECT employee_code, att_date, shift_code, period_id, status_code,
		       std_in, std_out, act_in, act_out
		FROM attendance_summaries
		WHERE att_date >= $1
		ORDER BY att_date, employee_code
	`

	rows, err := r.db.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query attendance summaries: %w", err)
	}
	defer rows.Close()

	var result []reconciliation.LegacySummaryRow
	for rows.Next() {
		var (
			row                     reconciliation.LegacySummaryRow
			code, shiftCode, status pgtype.Text
		)
		err := rows.Scan(
			&code, &row.Date, &shiftCode, &row.PeriodID, &status,
			&row.StandardIn, &row.StandardOut, &row.ActualIn, &row.ActualOut,
		)
		if err != nil {
			return nil, fmt.Errorf("scan attendance summary: %w", err)
		}
		row.EmployeeKey = code.String
		row.ShiftCode = shiftCode.String
		row.Status = status.String
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance summaries: %w", err)
	}

	return result, nil
}

func NewTimeClockRepository(db *database.DB) reconciliation.SourceRepository {
	return &timeClockRepository{db: db}
}
