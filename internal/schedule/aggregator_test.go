package schedule

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"timegrid/internal/model"
	"timegrid/internal/slots"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLocations struct{ mock.Mock }

func (m *mockLocations) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Location), args.Error(1)
}

type mockHours struct{ mock.Mock }

func (m *mockHours) LocationHours(ctx context.Context, locationID int64) (map[int]model.DayHours, error) {
	args := m.Called(ctx, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]model.DayHours), args.Error(1)
}

type mockEmployees struct{ mock.Mock }

func (m *mockEmployees) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Employee), args.Error(1)
}

type mockAppointments struct{ mock.Mock }

func (m *mockAppointments) AppointmentsForEmployees(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]model.Appointment, error) {
	args := m.Called(ctx, employeeIDs, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Appointment), args.Error(1)
}

type aggregatorFixture struct {
	locations    *mockLocations
	hours        *mockHours
	employees    *mockEmployees
	appointments *mockAppointments
	agg          *Aggregator
	logBuf       *bytes.Buffer
}

func newFixture(t *testing.T, siteTZ *time.Location) *aggregatorFixture {
	t.Helper()
	f := &aggregatorFixture{
		locations:    &mockLocations{},
		hours:        &mockHours{},
		employees:    &mockEmployees{},
		appointments: &mockAppointments{},
		logBuf:       &bytes.Buffer{},
	}
	logger := zerolog.New(f.logBuf)
	f.agg = NewAggregator(f.locations, f.hours, f.employees, f.appointments, slots.Settings{SlotMinutes: 30}, siteTZ, &logger)
	return f
}

func budapest(t *testing.T) *time.Location {
	t.Helper()
	tz, err := time.LoadLocation("Europe/Budapest")
	require.NoError(t, err)
	return tz
}

func TestDailySchedule_FullScenario(t *testing.T) {
	tz := budapest(t)
	f := newFixture(t, tz)

	// 2025-05-01 is a Thursday (ISO weekday 4)
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, tz)
	employeeID := int64(11)

	f.locations.On("GetLocation", mock.Anything, int64(5)).
		Return(&model.Location{ID: 5, Name: "HQ", Timezone: "Europe/Budapest"}, nil)
	f.employees.On("ListEmployees", mock.Anything).
		Return([]model.Employee{
			{ID: 11, Name: "Anna", LocationIDs: []int64{5}},
			{ID: 12, Name: "Peter", LocationIDs: []int64{9}},
		}, nil)
	f.hours.On("LocationHours", mock.Anything, int64(5)).
		Return(map[int]model.DayHours{
			4: {Open: "09:00", Close: "11:00"},
		}, nil)

	appt := model.Appointment{
		ID:         1,
		EmployeeID: &employeeID,
		Start:      time.Date(2025, 5, 1, 9, 0, 0, 0, tz),
		End:        time.Date(2025, 5, 1, 9, 30, 0, 0, tz),
		Status:     model.AppointmentApproved,
	}
	f.appointments.On("AppointmentsForEmployees", mock.Anything, []int64{11}, mock.Anything, mock.Anything).
		Return([]model.Appointment{appt}, nil)

	sched, err := f.agg.DailySchedule(context.Background(), 5, date)
	require.NoError(t, err)

	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, sched.Slots)
	require.Len(t, sched.Employees, 1)
	assert.Equal(t, int64(11), sched.Employees[0].ID)
	require.Len(t, sched.Appointments, 1)
	assert.Equal(t, int64(1), sched.Appointments[0].ID)
	assert.False(t, sched.IsClosed)
	assert.Equal(t, "09:00", sched.Open.Format("15:04"))
	assert.Equal(t, "11:00", sched.Close.Format("15:04"))
	assert.Equal(t, 30, sched.SlotLength)
	assert.Equal(t, "2025-05-01", sched.Date.Format("2006-01-02"))
}

func TestDailySchedule_LocationNotFound(t *testing.T) {
	f := newFixture(t, time.UTC)

	sentinel := errors.New("location not found")
	f.locations.On("GetLocation", mock.Anything, int64(99)).Return(nil, sentinel)

	sched, err := f.agg.DailySchedule(context.Background(), 99, time.Now())
	assert.Nil(t, sched)
	// The error must come back verbatim, not wrapped.
	assert.Same(t, sentinel, err)

	f.employees.AssertNotCalled(t, "ListEmployees", mock.Anything)
	f.hours.AssertNotCalled(t, "LocationHours", mock.Anything, mock.Anything)
	f.appointments.AssertNotCalled(t, "AppointmentsForEmployees", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDailySchedule_HoursErrorPropagated(t *testing.T) {
	f := newFixture(t, time.UTC)

	hoursErr := errors.New("hours backend down")
	f.locations.On("GetLocation", mock.Anything, int64(1)).
		Return(&model.Location{ID: 1, Name: "Main"}, nil)
	f.employees.On("ListEmployees", mock.Anything).Return([]model.Employee{}, nil)
	f.hours.On("LocationHours", mock.Anything, int64(1)).Return(nil, hoursErr)

	_, err := f.agg.DailySchedule(context.Background(), 1, time.Now())
	assert.Same(t, hoursErr, err)
}

func TestDailySchedule_InvalidTimezoneFallsBack(t *testing.T) {
	f := newFixture(t, time.UTC)

	f.locations.On("GetLocation", mock.Anything, int64(1)).
		Return(&model.Location{ID: 1, Name: "Main", Timezone: "Mars/Olympus"}, nil)
	f.employees.On("ListEmployees", mock.Anything).Return([]model.Employee{}, nil)
	f.hours.On("LocationHours", mock.Anything, int64(1)).
		Return(map[int]model.DayHours{}, nil)

	date := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	sched, err := f.agg.DailySchedule(context.Background(), 1, date)
	require.NoError(t, err)

	assert.Equal(t, time.UTC, sched.Date.Location())
	assert.Contains(t, f.logBuf.String(), "invalid location timezone")
}

func TestDailySchedule_EmptyTimezoneUsesSiteDefault(t *testing.T) {
	tz := budapest(t)
	f := newFixture(t, tz)

	f.locations.On("GetLocation", mock.Anything, int64(1)).
		Return(&model.Location{ID: 1, Name: "Main"}, nil)
	f.employees.On("ListEmployees", mock.Anything).Return([]model.Employee{}, nil)
	f.hours.On("LocationHours", mock.Anything, int64(1)).
		Return(map[int]model.DayHours{}, nil)

	sched, err := f.agg.DailySchedule(context.Background(), 1, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, tz.String(), sched.Date.Location().String())
}

func TestDailySchedule_DegenerateLocationID(t *testing.T) {
	for _, id := range []int64{0, -3} {
		f := newFixture(t, time.UTC)

		f.locations.On("GetLocation", mock.Anything, id).
			Return(&model.Location{ID: id, Name: "Ghost"}, nil)
		f.hours.On("LocationHours", mock.Anything, id).
			Return(map[int]model.DayHours{}, nil)

		sched, err := f.agg.DailySchedule(context.Background(), id, time.Now())
		require.NoError(t, err)

		assert.Empty(t, sched.Employees)
		assert.Empty(t, sched.Appointments)
		assert.Empty(t, sched.WindowAppointments)
		f.employees.AssertNotCalled(t, "ListEmployees", mock.Anything)
		f.appointments.AssertNotCalled(t, "AppointmentsForEmployees", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestDailySchedule_CloseBeforeOpenForcedForward(t *testing.T) {
	f := newFixture(t, time.UTC)

	f.locations.On("GetLocation", mock.Anything, int64(1)).
		Return(&model.Location{ID: 1, Name: "Main"}, nil)
	f.employees.On("ListEmployees", mock.Anything).Return([]model.Employee{}, nil)
	// 2025-05-01 is a Thursday
	f.hours.On("LocationHours", mock.Anything, int64(1)).
		Return(map[int]model.DayHours{
			4: {Open: "14:00", Close: "10:00"},
		}, nil)

	sched, err := f.agg.DailySchedule(context.Background(), 1, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "14:00", sched.Open.Format("15:04"))
	assert.Equal(t, "22:00", sched.Close.Format("15:04"))
	assert.True(t, sched.Close.After(sched.Open))
}

func TestDailySchedule_BlankHoursDefaulted(t *testing.T) {
	f := newFixture(t, time.UTC)

	f.locations.On("GetLocation", mock.Anything, int64(1)).
		Return(&model.Location{ID: 1, Name: "Main"}, nil)
	f.employees.On("ListEmployees", mock.Anything).Return([]model.Employee{}, nil)
	// Missing weekday entry: closed day with default hours applied.
	f.hours.On("LocationHours", mock.Anything, int64(1)).
		Return(map[int]model.DayHours{}, nil)

	sched, err := f.agg.DailySchedule(context.Background(), 1, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, sched.IsClosed)
	assert.Equal(t, "08:00", sched.Open.Format("15:04"))
	assert.Equal(t, "18:00", sched.Close.Format("15:04"))
}

func TestDailySchedule_WindowBoundsAndDayFilter(t *testing.T) {
	f := newFixture(t, time.UTC)

	employeeID := int64(7)
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	dayStart := date
	dayEnd := time.Date(2025, 5, 1, 23, 59, 59, 0, time.UTC)

	atStart := model.Appointment{ID: 1, EmployeeID: &employeeID, Start: dayStart}
	atEnd := model.Appointment{ID: 2, EmployeeID: &employeeID, Start: dayEnd}
	dayBefore := model.Appointment{ID: 3, EmployeeID: &employeeID, Start: dayStart.Add(-time.Second)}
	nextDay := model.Appointment{ID: 4, EmployeeID: &employeeID, Start: dayEnd.Add(time.Second)}
	malformed := model.Appointment{ID: 5, EmployeeID: &employeeID} // zero start

	f.locations.On("GetLocation", mock.Anything, int64(1)).
		Return(&model.Location{ID: 1, Name: "Main"}, nil)
	f.employees.On("ListEmployees", mock.Anything).
		Return([]model.Employee{{ID: 7, Name: "Solo", LocationIDs: []int64{1}}}, nil)
	f.hours.On("LocationHours", mock.Anything, int64(1)).
		Return(map[int]model.DayHours{4: {Open: "09:00", Close: "17:00"}}, nil)
	f.appointments.On("AppointmentsForEmployees", mock.Anything, []int64{7},
		dayStart.AddDate(0, 0, -7), dayEnd.AddDate(0, 0, 7)).
		Return([]model.Appointment{atStart, atEnd, dayBefore, nextDay, malformed}, nil)

	sched, err := f.agg.DailySchedule(context.Background(), 1, date)
	require.NoError(t, err)

	assert.Equal(t, dayStart.AddDate(0, 0, -7), sched.WindowStart)
	assert.Equal(t, dayEnd.AddDate(0, 0, 7), sched.WindowEnd)

	// Inclusive on both day boundaries, everything else dropped.
	require.Len(t, sched.Appointments, 2)
	assert.Equal(t, int64(1), sched.Appointments[0].ID)
	assert.Equal(t, int64(2), sched.Appointments[1].ID)

	// The prefetched window keeps all candidates.
	assert.Len(t, sched.WindowAppointments, 5)
	for _, appt := range sched.Appointments {
		assert.Contains(t, sched.WindowAppointments, appt)
	}
}

func TestDailySchedule_WindowQueriedInSiteTimezone(t *testing.T) {
	siteTZ := time.UTC
	f := newFixture(t, siteTZ)

	tz := budapest(t)
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, tz)

	var gotFrom, gotTo time.Time
	f.locations.On("GetLocation", mock.Anything, int64(1)).
		Return(&model.Location{ID: 1, Name: "HQ", Timezone: "Europe/Budapest"}, nil)
	f.employees.On("ListEmployees", mock.Anything).
		Return([]model.Employee{{ID: 7, LocationIDs: []int64{1}}}, nil)
	f.hours.On("LocationHours", mock.Anything, int64(1)).
		Return(map[int]model.DayHours{4: {Open: "09:00", Close: "17:00"}}, nil)
	f.appointments.On("AppointmentsForEmployees", mock.Anything, []int64{7}, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotFrom = args.Get(2).(time.Time)
			gotTo = args.Get(3).(time.Time)
		}).
		Return([]model.Appointment{}, nil)

	sched, err := f.agg.DailySchedule(context.Background(), 1, date)
	require.NoError(t, err)

	// The query window is expressed in the storage timezone but denotes the
	// same instants as the display-timezone window.
	assert.Equal(t, siteTZ, gotFrom.Location())
	assert.Equal(t, siteTZ, gotTo.Location())
	assert.True(t, gotFrom.Equal(sched.WindowStart))
	assert.True(t, gotTo.Equal(sched.WindowEnd))
}

func TestIsoWeekday(t *testing.T) {
	// 2025-05-04 is a Sunday, 2025-05-05 a Monday.
	assert.Equal(t, 7, isoWeekday(time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1, isoWeekday(time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 4, isoWeekday(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)))
}
