package schedule

import (
	"context"
	"time"

	"timegrid/internal/model"
	"timegrid/internal/slots"

	"github.com/rs/zerolog"
)

// Lookup window margin around the requested day. Appointments adjacent to
// the target day (recurring chains, multi-day spans) are prefetched so
// callers do not need a second query.
const windowMargin = 7 * 24 * time.Hour

// Defaults applied when a day's hours are blank or unparseable.
const (
	defaultOpenTime  = "08:00"
	defaultCloseTime = "18:00"
	forcedDaySpan    = 8 * time.Hour
)

// LocationProvider resolves a location by id.
type LocationProvider interface {
	GetLocation(ctx context.Context, id int64) (*model.Location, error)
}

// HoursProvider returns per-weekday business hours for a location.
// Keys are ISO weekdays (1=Monday .. 7=Sunday).
type HoursProvider interface {
	LocationHours(ctx context.Context, locationID int64) (map[int]model.DayHours, error)
}

// EmployeeProvider returns the full employee roster.
type EmployeeProvider interface {
	ListEmployees(ctx context.Context) ([]model.Employee, error)
}

// AppointmentProvider returns appointments for a set of employees within a
// window expressed in the storage timezone. The result is treated as
// candidates; the aggregator re-filters by day.
type AppointmentProvider interface {
	AppointmentsForEmployees(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]model.Appointment, error)
}

// SettingsProvider exposes slot granularity and slot generation.
type SettingsProvider interface {
	TimeSlotLength() int
	SlotsForRange(open, close time.Time) []string
}

// Aggregator combines business hours, location timezones, employee
// assignment and a sliding appointment window into one per-day schedule.
// It is stateless; concurrent calls are safe.
type Aggregator struct {
	locations    LocationProvider
	hours        HoursProvider
	employees    EmployeeProvider
	appointments AppointmentProvider
	settings     SettingsProvider

	// siteTZ is the canonical storage timezone. Appointments are always
	// fetched in this zone regardless of the location's display timezone.
	siteTZ *time.Location
	logger *zerolog.Logger
}

// NewAggregator constructs an aggregator over the given providers.
func NewAggregator(
	locations LocationProvider,
	hours HoursProvider,
	employees EmployeeProvider,
	appointments AppointmentProvider,
	settings SettingsProvider,
	siteTZ *time.Location,
	logger *zerolog.Logger,
) *Aggregator {
	if siteTZ == nil {
		siteTZ = time.UTC
	}
	if settings == nil {
		settings = slots.Settings{}
	}
	return &Aggregator{
		locations:    locations,
		hours:        hours,
		employees:    employees,
		appointments: appointments,
		settings:     settings,
		siteTZ:       siteTZ,
		logger:       logger,
	}
}

// DailySchedule builds the schedule view for a location and calendar date.
// Provider not-found and lookup errors are returned verbatim so callers can
// inspect them; invalid timezones, blank hours and inverted open/close
// windows degrade to documented defaults instead of erroring.
func (a *Aggregator) DailySchedule(ctx context.Context, locationID int64, date time.Time) (*model.DailySchedule, error) {
	location, err := a.locations.GetLocation(ctx, locationID)
	if err != nil {
		a.logger.Error().Err(err).Int64("location_id", locationID).Msg("location lookup failed")
		return nil, err
	}

	tz := a.resolveTimezone(location)
	day := date.In(tz)

	employees, err := a.employeesForLocation(ctx, locationID)
	if err != nil {
		a.logger.Error().Err(err).Int64("location_id", locationID).Msg("employee roster fetch failed")
		return nil, err
	}

	hours, err := a.hours.LocationHours(ctx, locationID)
	if err != nil {
		a.logger.Error().Err(err).Int64("location_id", locationID).Msg("business hours lookup failed")
		return nil, err
	}

	dayHours, ok := hours[isoWeekday(day)]
	if !ok {
		dayHours = model.DayHours{IsClosed: true}
	}

	open, close := a.resolveOpenClose(day, dayHours)

	daySlots := a.settings.SlotsForRange(open, close)

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, tz)
	dayEnd := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, tz)
	windowStart := dayStart.Add(-windowMargin)
	windowEnd := dayEnd.Add(windowMargin)

	var windowAppointments []model.Appointment
	if len(employees) > 0 {
		ids := make([]int64, 0, len(employees))
		for _, e := range employees {
			ids = append(ids, e.ID)
		}
		windowAppointments, err = a.appointments.AppointmentsForEmployees(ctx, ids, windowStart.In(a.siteTZ), windowEnd.In(a.siteTZ))
		if err != nil {
			a.logger.Error().Err(err).Int64("location_id", locationID).Msg("appointment window fetch failed")
			return nil, err
		}
		a.logger.Info().
			Int64("location_id", locationID).
			Int("employees", len(employees)).
			Int("window_appointments", len(windowAppointments)).
			Msg("appointment window fetched")
	}

	return &model.DailySchedule{
		Location:           location,
		Employees:          employees,
		Slots:              daySlots,
		SlotLength:         a.settings.TimeSlotLength(),
		Appointments:       filterToDay(windowAppointments, dayStart, dayEnd),
		WindowAppointments: windowAppointments,
		WindowStart:        windowStart,
		WindowEnd:          windowEnd,
		IsClosed:           dayHours.IsClosed,
		Open:               open,
		Close:              close,
		Date:               day,
	}, nil
}

// resolveTimezone returns the location's configured timezone, falling back
// to the site default when it is empty or does not parse.
func (a *Aggregator) resolveTimezone(location *model.Location) *time.Location {
	if location == nil || location.Timezone == "" {
		return a.siteTZ
	}
	tz, err := time.LoadLocation(location.Timezone)
	if err != nil {
		a.logger.Warn().
			Str("timezone", location.Timezone).
			Int64("location_id", location.ID).
			Msg("invalid location timezone, using site default")
		return a.siteTZ
	}
	return tz
}

// employeesForLocation filters the roster to employees assigned to the
// location. Non-positive ids short-circuit to an empty list without a
// roster fetch.
func (a *Aggregator) employeesForLocation(ctx context.Context, locationID int64) ([]model.Employee, error) {
	if locationID <= 0 {
		return []model.Employee{}, nil
	}

	roster, err := a.employees.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	assigned := make([]model.Employee, 0, len(roster))
	for _, e := range roster {
		if e.ServesLocation(locationID) {
			assigned = append(assigned, e)
		}
	}
	return assigned, nil
}

// resolveOpenClose parses the day's open/close strings against the
// normalized date. Blank or unparseable values fall back to 08:00/18:00,
// and an inverted window is corrected to open + 8h.
func (a *Aggregator) resolveOpenClose(day time.Time, hours model.DayHours) (time.Time, time.Time) {
	openStr := hours.Open
	if openStr == "" {
		openStr = defaultOpenTime
	}
	closeStr := hours.Close
	if closeStr == "" {
		closeStr = defaultCloseTime
	}

	open, err := slots.ParseTimeOnDate(day, openStr)
	if err != nil {
		a.logger.Warn().Str("open", hours.Open).Msg("unparseable open time, using default")
		open, _ = slots.ParseTimeOnDate(day, defaultOpenTime)
	}
	close, err := slots.ParseTimeOnDate(day, closeStr)
	if err != nil {
		a.logger.Warn().Str("close", hours.Close).Msg("unparseable close time, using default")
		close, _ = slots.ParseTimeOnDate(day, defaultCloseTime)
	}

	if !close.After(open) {
		close = open.Add(forcedDaySpan)
	}
	return open, close
}

// filterToDay keeps appointments whose start instant falls within
// [dayStart, dayEnd], inclusive on both ends. Comparison is by epoch
// seconds after timezone conversion, never by formatted strings.
func filterToDay(appointments []model.Appointment, dayStart, dayEnd time.Time) []model.Appointment {
	result := make([]model.Appointment, 0, len(appointments))
	startTS := dayStart.Unix()
	endTS := dayEnd.Unix()
	for _, appt := range appointments {
		if appt.Start.IsZero() {
			continue
		}
		ts := appt.Start.In(dayStart.Location()).Unix()
		if ts >= startTS && ts <= endTS {
			result = append(result, appt)
		}
	}
	return result
}

// isoWeekday maps Go's Sunday-first weekday to ISO (1=Monday .. 7=Sunday).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
