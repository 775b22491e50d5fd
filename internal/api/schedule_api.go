package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"timegrid/internal/cache"
	"timegrid/internal/metrics"
	"timegrid/internal/model"
	"timegrid/internal/repository"
	"timegrid/internal/schedule"
)

// DailyScheduleResponse is the payload for GET /api/v1/schedule/daily.
type DailyScheduleResponse struct {
	Location           *model.Location       `json:"location"`
	Employees          []model.Employee      `json:"employees"`
	Slots              []string              `json:"slots"`
	SlotLength         int                   `json:"slot_length"`
	Appointments       []model.Appointment   `json:"appointments"`
	WindowAppointments []model.Appointment   `json:"window_appointments"`
	WindowStart        string                `json:"window_start"`
	WindowEnd          string                `json:"window_end"`
	IsClosed           bool                  `json:"is_closed"`
	Open               string                `json:"open"`
	Close              string                `json:"close"`
	Date               string                `json:"date"`
	Events             []model.CalendarEvent `json:"events,omitempty"`
}

const apiTimeLayout = "2006-01-02 15:04:05"

// handleDailySchedule returns the aggregated schedule for a location/date.
// GET /api/v1/schedule/daily?location_id=5&date=2025-05-01
func (s *HTTPServer) handleDailySchedule(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("schedule_daily")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	locationID, date, ok := s.parseScheduleQuery(w, r)
	if !ok {
		return
	}

	sched, ok := s.loadSchedule(w, r, locationID, date)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(sched, nil))
}

// handleCalendarEvents returns display-ready events for a location/date.
// GET /api/v1/calendar/events?location_id=5&date=2025-05-01
func (s *HTTPServer) handleCalendarEvents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("calendar_events")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	locationID, date, ok := s.parseScheduleQuery(w, r)
	if !ok {
		return
	}

	sched, ok := s.loadSchedule(w, r, locationID, date)
	if !ok {
		return
	}

	events := schedule.BuildEvents(sched.Appointments, sched.Date.Location())
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"date":   sched.Date.Format("2006-01-02"),
	})
}

func (s *HTTPServer) parseScheduleQuery(w http.ResponseWriter, r *http.Request) (int64, time.Time, bool) {
	locationID, err := strconv.ParseInt(r.URL.Query().Get("location_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "location_id is required and must be an integer")
		return 0, time.Time{}, false
	}

	dateStr := r.URL.Query().Get("date")
	var date time.Time
	if dateStr == "" {
		date = time.Now().In(s.siteTZ)
	} else {
		date, err = time.ParseInLocation("2006-01-02", dateStr, s.siteTZ)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return 0, time.Time{}, false
		}
	}
	return locationID, date, true
}

func (s *HTTPServer) loadSchedule(w http.ResponseWriter, r *http.Request, locationID int64, date time.Time) (*model.DailySchedule, bool) {
	key := cache.Key(locationID, date, s.siteTZ.String())
	if sched, ok := s.cache.Get(r.Context(), key); ok {
		return sched, true
	}

	sched, err := s.aggregator.DailySchedule(r.Context(), locationID, date)
	if err != nil {
		if errors.Is(err, repository.ErrLocationNotFound) {
			metrics.IncScheduleBuilt("not_found")
			writeError(w, http.StatusNotFound, "location not found")
			return nil, false
		}
		metrics.IncScheduleBuilt("error")
		s.logger.Error().Err(err).Int64("location_id", locationID).Msg("daily schedule failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil, false
	}

	metrics.IncScheduleBuilt("ok")
	s.cache.Set(r.Context(), key, sched)
	return sched, true
}

func toScheduleResponse(sched *model.DailySchedule, eventsList []model.CalendarEvent) DailyScheduleResponse {
	return DailyScheduleResponse{
		Location:           sched.Location,
		Employees:          sched.Employees,
		Slots:              sched.Slots,
		SlotLength:         sched.SlotLength,
		Appointments:       sched.Appointments,
		WindowAppointments: sched.WindowAppointments,
		WindowStart:        sched.WindowStart.Format(apiTimeLayout),
		WindowEnd:          sched.WindowEnd.Format(apiTimeLayout),
		IsClosed:           sched.IsClosed,
		Open:               sched.Open.Format(apiTimeLayout),
		Close:              sched.Close.Format(apiTimeLayout),
		Date:               sched.Date.Format("2006-01-02"),
		Events:             eventsList,
	}
}
