package schedule

import (
	"strings"
	"time"

	"timegrid/internal/model"
)

// Default calendar colors used when a service has none configured or the
// configured value is not a valid hex color.
const (
	DefaultEventColor     = "#1d4ed8"
	DefaultEventTextColor = "#ffffff"
)

const (
	eventTimeLayout  = "2006-01-02 15:04:05"
	defaultEventName = "Appointment"
)

// BuildEvents converts appointments into display-ready calendar events in
// the given timezone. Appointments without an assigned employee are
// skipped; a calendar cannot render an event without a resource. The
// function performs no I/O and cannot fail.
func BuildEvents(appointments []model.Appointment, tz *time.Location) []model.CalendarEvent {
	if tz == nil {
		tz = time.UTC
	}

	events := make([]model.CalendarEvent, 0, len(appointments))
	for _, appt := range appointments {
		if appt.EmployeeID == nil {
			continue
		}

		start := appt.Start.In(tz)
		end := appt.End.In(tz)

		title := appt.ServiceName
		if title == "" {
			title = defaultEventName
		}

		events = append(events, model.CalendarEvent{
			ID:         appt.ID,
			ResourceID: *appt.EmployeeID,
			Title:      title,
			Start:      start.Format(eventTimeLayout),
			End:        end.Format(eventTimeLayout),
			Color:      NormalizeHexColor(appt.ServiceColor, DefaultEventColor),
			TextColor:  NormalizeHexColor(appt.ServiceTextColor, DefaultEventTextColor),
			Extended: model.CalendarEventExtended{
				CustomerName:  appt.CustomerDisplayName(),
				TimeLabel:     start.Format("15:04") + "–" + end.Format("15:04"),
				ServiceID:     appt.ServiceID,
				ServiceName:   appt.ServiceName,
				EmployeeName:  appt.EmployeeName,
				Status:        appt.Status,
				CustomerEmail: appt.CustomerEmail,
				CustomerPhone: appt.CustomerPhone,
				AppointmentID: appt.ID,
			},
		})
	}
	return events
}

// NormalizeHexColor validates a 3- or 6-digit hex color, with or without a
// leading '#', and returns it lowercased in #-prefixed form. Anything else
// yields fallback.
func NormalizeHexColor(raw, fallback string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "#")
	if len(s) != 3 && len(s) != 6 {
		return fallback
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return fallback
		}
	}
	return "#" + strings.ToLower(s)
}
