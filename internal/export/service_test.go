package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"timegrid/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeLister struct {
	locations    []model.Location
	locationsErr error
	appointments map[int64][]model.Appointment
	apptErr      error
}

func (f *fakeLister) ListLocations(_ context.Context) ([]model.Location, error) {
	return f.locations, f.locationsErr
}

func (f *fakeLister) AppointmentsForLocation(_ context.Context, locationID int64, _, _ time.Time) ([]model.Appointment, error) {
	if f.apptErr != nil {
		return nil, f.apptErr
	}
	return f.appointments[locationID], nil
}

func sampleLister() *fakeLister {
	employeeID := int64(11)
	return &fakeLister{
		locations: []model.Location{
			{ID: 1, Name: "Downtown"},
			{ID: 2, Name: "Riverside"},
		},
		appointments: map[int64][]model.Appointment{
			1: {
				{
					ID:                1,
					EmployeeID:        &employeeID,
					EmployeeName:      "Anna Kovacs",
					ServiceName:       "Consultation",
					CustomerFirstName: "Jane",
					CustomerLastName:  "Doe",
					CustomerEmail:     "jane@example.com",
					Start:             time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
					End:               time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
					Status:            model.AppointmentApproved,
				},
			},
		},
	}
}

func TestExportAppointments(t *testing.T) {
	lister := sampleLister()
	logger := zerolog.Nop()
	svc := NewService(lister, lister, &logger)

	var buf bytes.Buffer
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, svc.ExportAppointments(context.Background(), &buf, from, to))

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer file.Close()

	assert.ElementsMatch(t, []string{"Downtown", "Riverside"}, file.GetSheetList())

	rows, err := file.GetRows("Downtown")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, appointmentHeader, rows[0])
	assert.Equal(t, "Anna Kovacs", rows[1][1])
	assert.Equal(t, "Consultation", rows[1][2])
	assert.Equal(t, "Jane Doe", rows[1][3])
	assert.Equal(t, "2025-05-01 09:00", rows[1][6])
	assert.Equal(t, model.AppointmentApproved, rows[1][8])

	// Riverside has no appointments: header only.
	rows, err = file.GetRows("Riverside")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestExportAppointments_Errors(t *testing.T) {
	logger := zerolog.Nop()
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	lister := &fakeLister{locationsErr: errors.New("db gone")}
	svc := NewService(lister, lister, &logger)
	assert.Error(t, svc.ExportAppointments(context.Background(), io.Discard, from, to))

	lister = &fakeLister{}
	svc = NewService(lister, lister, &logger)
	err := svc.ExportAppointments(context.Background(), io.Discard, from, to)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no locations")

	lister = sampleLister()
	lister.apptErr = errors.New("query failed")
	svc = NewService(lister, lister, &logger)
	assert.Error(t, svc.ExportAppointments(context.Background(), io.Discard, from, to))
}

func TestExcelizeWriter_LongSheetName(t *testing.T) {
	w := NewExcelizeWriter()
	defer w.Close()

	long := strings.Repeat("x", 40)
	require.NoError(t, w.AddSheet(long))
	require.NoError(t, w.WriteHeader([]string{"A"}))

	var buf bytes.Buffer
	require.NoError(t, w.SaveTo(&buf))

	file, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, []string{strings.Repeat("x", 31)}, file.GetSheetList())
}

func TestExcelizeWriter_RequiresSheet(t *testing.T) {
	w := NewExcelizeWriter()
	defer w.Close()

	assert.Error(t, w.WriteHeader([]string{"A"}))
	assert.Error(t, w.WriteRow([]interface{}{"B"}))
}

func TestFileName(t *testing.T) {
	from := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)

	name := FileName(from, to)
	assert.True(t, strings.HasPrefix(name, "appointments_20250501_20250531_"))
	assert.True(t, strings.HasSuffix(name, ".xlsx"))

	// The random suffix makes names unique.
	assert.NotEqual(t, name, FileName(from, to))
}
