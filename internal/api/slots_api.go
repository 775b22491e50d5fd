package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"timegrid/internal/export"
	"timegrid/internal/metrics"
	"timegrid/internal/slots"
)

// AvailableSlotsResponse is the payload for GET /api/v1/slots/available.
type AvailableSlotsResponse struct {
	EmployeeID int64            `json:"employee_id"`
	Date       string           `json:"date"`
	IsClosed   bool             `json:"is_closed"`
	Slots      []slots.SlotInfo `json:"slots"`
}

// handleAvailableSlots returns bookable slots for one employee on a date,
// with already-booked and past slots marked unavailable.
// GET /api/v1/slots/available?location_id=1&employee_id=11&date=2025-05-01
func (s *HTTPServer) handleAvailableSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots_available")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	employeeID, err := strconv.ParseInt(r.URL.Query().Get("employee_id"), 10, 64)
	if err != nil || employeeID <= 0 {
		writeError(w, http.StatusBadRequest, "employee_id is required and must be a positive integer")
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

	resp := AvailableSlotsResponse{
		EmployeeID: employeeID,
		Date:       sched.Date.Format("2006-01-02"),
		IsClosed:   sched.IsClosed,
	}

	if !sched.IsClosed {
		generator := slots.NewGenerator(s.repo)
		daySlots, err := generator.Generate(r.Context(), employeeID, sched.Date, slots.DayWindow{
			Open:        sched.Open.Format("15:04"),
			Close:       sched.Close.Format("15:04"),
			SlotMinutes: sched.SlotLength,
		})
		if err != nil {
			s.logger.Error().Err(err).Int64("employee_id", employeeID).Msg("slot generation failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		resp.Slots = slots.ToSlotInfo(daySlots)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleExportAppointments streams an xlsx workbook of appointments in
// [from, to], one sheet per location.
// GET /api/v1/export/appointments?from=2025-05-01&to=2025-05-31
func (s *HTTPServer) handleExportAppointments(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export_appointments")
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("from"), s.siteTZ)
	if err != nil {
		writeError(w, http.StatusBadRequest, "from is required; expected YYYY-MM-DD")
		return
	}
	to, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("to"), s.siteTZ)
	if err != nil {
		writeError(w, http.StatusBadRequest, "to is required; expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}
	// Include the whole end day.
	to = to.Add(24*time.Hour - time.Second)

	// Build the workbook in memory so errors still get a JSON response.
	var buf bytes.Buffer
	if err := s.exporter.ExportAppointments(r.Context(), &buf, from, to); err != nil {
		s.logger.Error().Err(err).Msg("appointment export failed")
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+export.FileName(from, to))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
