package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-go/internal/domain/reconciliation"
)

func testEmployees() *memEmployeeRepo {
	return newMemEmployeeRepo(
		employee.Employee{ID: "emp-1", EmployeeCode: "0012", FullName: "Sari", EmploymentStatus: employee.EmploymentStatusInactive, DefaultShift: strPtr("N")},
		employee.Employee{ID: "emp-2", EmployeeCode: "0013", FullName: "Budi", EmploymentStatus: employee.EmploymentStatusInactive},
		employee.Employee{ID: "emp-9", EmployeeCode: "0099", FullName: "Dewi", EmploymentStatus: employee.EmploymentStatusActive},
	)
}

func TestIngest_RowOutcomes(t *testing.T) {
	source := &fakeSource{punches: []reconciliation.RawPunchRow{
		{EmployeeKey: "0012", Date: day("2025-01-06"), Time: "08.00", Flag: "I"},
		{EmployeeKey: " 0012 ", Date: day("2025-01-06"), Time: "08.00", Flag: "I"},
		{EmployeeKey: "0012", Date: day("2025-01-06"), Time: "17.00", Flag: "O"},
		{EmployeeKey: "7777", Date: day("2025-01-06"), Time: "08.00", Flag: "I"},
		{EmployeeKey: "0013", Date: day("2025-01-06"), Time: "25.00", Flag: "I"},
		{EmployeeKey: "0013", Date: day("2025-01-06"), Time: "08.00", Flag: "X"},
		{EmployeeKey: "", Date: day("2025-01-06"), Time: "08.00", Flag: "I"},
	}}
	punches := newMemPunchRepo()
	employees := testEmployees()
	cache := NewRunCache(employees, newMemRefs(), 10)

	result, err := NewIngestor(source, punches, nil).Ingest(context.Background(), day("2025-01-01"), cache)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Total)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Duplicates)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 3, result.Errored)
	assert.Equal(t, []string{"emp-1"}, result.Seen)
	assert.Equal(t, 3, cache.Errors.Count)

	stored, err := punches.ListForDay(context.Background(), "0012", day("2025-01-06"))
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, punch.SourceTerminal, stored[0].Source)
	assert.Equal(t, "emp-1", stored[0].EmployeeID)
}

func TestIngest_MissingFieldsDoNotAbortRun(t *testing.T) {
	source := &fakeSource{punches: []reconciliation.RawPunchRow{
		{EmployeeKey: "0012", Date: day("2025-01-06"), Time: "", Flag: "I"},
		{EmployeeKey: "0012", Date: day("2025-01-06"), Time: "08.00", Flag: ""},
		{EmployeeKey: "", Date: day("2025-01-06"), Time: "", Flag: ""},
		{EmployeeKey: "0012", Date: day("2025-01-06"), Time: "08.00", Flag: "I"},
	}}
	punches := newMemPunchRepo()
	cache := NewRunCache(testEmployees(), newMemRefs(), 10)

	result, err := NewIngestor(source, punches, nil).Ingest(context.Background(), day("2025-01-01"), cache)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 3, result.Errored)
	require.Len(t, cache.Errors.Sample, 3)
	for _, e := range cache.Errors.Sample {
		assert.Equal(t, reconciliation.KindValidation, e.Kind)
		assert.Equal(t, "ingest", e.Stage)
	}
	assert.Contains(t, cache.Errors.Sample[0].Message, "invalid clock time")
	assert.Contains(t, cache.Errors.Sample[1].Message, "invalid direction flag")
	assert.Contains(t, cache.Errors.Sample[2].Message, "missing employee key")
	assert.Len(t, punches.events, 1)
}

func TestIngest_ReimportIsDuplicate(t *testing.T) {
	source := &fakeSource{punches: []reconciliation.RawPunchRow{
		{EmployeeKey: "0012", Date: day("2025-01-06"), Time: "08.00", Flag: "I"},
	}}
	punches := newMemPunchRepo()
	ing := NewIngestor(source, punches, nil)

	first, err := ing.Ingest(context.Background(), day("2025-01-01"), NewRunCache(testEmployees(), newMemRefs(), 10))
	require.NoError(t, err)
	second, err := ing.Ingest(context.Background(), day("2025-01-01"), NewRunCache(testEmployees(), newMemRefs(), 10))
	require.NoError(t, err)

	assert.Equal(t, 1, first.Imported)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.Duplicates)
	assert.Len(t, punches.events, 1)
}

func TestIngest_RespectsCutoff(t *testing.T) {
	source := &fakeSource{punches: []reconciliation.RawPunchRow{
		{EmployeeKey: "0012", Date: day("2024-12-30"), Time: "08.00", Flag: "I"},
		{EmployeeKey: "0012", Date: day("2025-01-06"), Time: "08.00", Flag: "I"},
	}}

	result, err := NewIngestor(source, newMemPunchRepo(), nil).
		Ingest(context.Background(), day("2025-01-01"), NewRunCache(testEmployees(), newMemRefs(), 10))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
}

func TestIngest_SourceUnreachable(t *testing.T) {
	source := &fakeSource{err: errors.New("dial tcp: connection refused")}

	_, err := NewIngestor(source, newMemPunchRepo(), nil).
		Ingest(context.Background(), day("2025-01-01"), NewRunCache(testEmployees(), newMemRefs(), 10))

	require.Error(t, err)
	assert.True(t, reconciliation.IsConnectivity(err))
	assert.ErrorContains(t, err, "connection refused")
}

func TestRunCache_ResolvesEachKeyOnce(t *testing.T) {
	employees := testEmployees()
	cache := NewRunCache(employees, newMemRefs(), 10)

	for range 3 {
		e, err := cache.ResolveEmployee(context.Background(), "0012")
		require.NoError(t, err)
		require.NotNil(t, e)
		unknown, err := cache.ResolveEmployee(context.Background(), "7777")
		require.NoError(t, err)
		assert.Nil(t, unknown)
	}

	assert.Equal(t, 2, employees.resolveCalls)
}
