package model

import "time"

// Location is a bookable site with its own display timezone.
// Timezone is an IANA name; empty means "use the site default".
type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Timezone string `json:"timezone,omitempty"`
	Deleted  bool   `json:"deleted"`
}

// Employee is a bookable resource assigned to zero or more locations.
type Employee struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	LocationIDs []int64 `json:"location_ids"`
	Deleted     bool    `json:"deleted"`
	Hidden      bool    `json:"hidden"`
}

// ServesLocation reports whether the employee is assigned to the location.
func (e Employee) ServesLocation(locationID int64) bool {
	for _, id := range e.LocationIDs {
		if id == locationID {
			return true
		}
	}
	return false
}

// Service is a bookable service with optional calendar display colors.
type Service struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	TextColor string `json:"text_color,omitempty"`
	Duration  int    `json:"duration"` // minutes
}

// Appointment statuses.
const (
	AppointmentPending   = "pending"
	AppointmentApproved  = "approved"
	AppointmentCanceled  = "canceled"
	AppointmentCompleted = "completed"
	AppointmentNoShow    = "no_show"
)

// Appointment is a scheduled booking. EmployeeID is nil for appointments
// without an assigned employee; such entries never appear on calendars.
type Appointment struct {
	ID         int64  `json:"id"`
	EmployeeID *int64 `json:"employee_id,omitempty"`

	EmployeeName     string `json:"employee_name,omitempty"`
	ServiceID        int64  `json:"service_id"`
	ServiceName      string `json:"service_name,omitempty"`
	ServiceColor     string `json:"service_color,omitempty"`
	ServiceTextColor string `json:"service_text_color,omitempty"`

	CustomerFirstName   string `json:"customer_first_name,omitempty"`
	CustomerLastName    string `json:"customer_last_name,omitempty"`
	CustomerAccountName string `json:"customer_account_name,omitempty"`
	CustomerEmail       string `json:"customer_email,omitempty"`
	CustomerPhone       string `json:"customer_phone,omitempty"`

	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Status string    `json:"status"`
}

// CustomerDisplayName joins whichever of first/last name is present and
// falls back to the account name when both are empty.
func (a Appointment) CustomerDisplayName() string {
	switch {
	case a.CustomerFirstName != "" && a.CustomerLastName != "":
		return a.CustomerFirstName + " " + a.CustomerLastName
	case a.CustomerFirstName != "":
		return a.CustomerFirstName
	case a.CustomerLastName != "":
		return a.CustomerLastName
	}
	return a.CustomerAccountName
}

// DayHours is the configured open/close window for one weekday.
// Open and Close are HH:MM strings; both empty with IsClosed set means
// the location does not work that day.
type DayHours struct {
	Open     string `json:"open"`
	Close    string `json:"close"`
	IsClosed bool   `json:"is_closed"`
}

// DailySchedule is the aggregated per-day view for one location.
// Appointments is always a subset of WindowAppointments.
type DailySchedule struct {
	Location           *Location     `json:"location"`
	Employees          []Employee    `json:"employees"`
	Slots              []string      `json:"slots"`
	SlotLength         int           `json:"slot_length"`
	Appointments       []Appointment `json:"appointments"`
	WindowAppointments []Appointment `json:"window_appointments"`
	WindowStart        time.Time     `json:"window_start"`
	WindowEnd          time.Time     `json:"window_end"`
	IsClosed           bool          `json:"is_closed"`
	Open               time.Time     `json:"open"`
	Close              time.Time     `json:"close"`
	Date               time.Time     `json:"date"`
}

// CalendarEventExtended carries the extra display fields a calendar
// frontend renders in event popovers.
type CalendarEventExtended struct {
	CustomerName  string `json:"customer_name"`
	TimeLabel     string `json:"time_label"`
	ServiceID     int64  `json:"service_id"`
	ServiceName   string `json:"service_name"`
	EmployeeName  string `json:"employee_name"`
	Status        string `json:"status"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	AppointmentID int64  `json:"appointment_id"`
}

// CalendarEvent is a display-ready calendar entry for one appointment.
type CalendarEvent struct {
	ID         int64                 `json:"id"`
	ResourceID int64                 `json:"resource_id"`
	Title      string                `json:"title"`
	Start      string                `json:"start"`
	End        string                `json:"end"`
	Color      string                `json:"color"`
	TextColor  string                `json:"text_color"`
	Extended   CalendarEventExtended `json:"extended_props"`
}
