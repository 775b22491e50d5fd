package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"timegrid/internal/events"
	"timegrid/internal/metrics"
	"timegrid/internal/model"
	"timegrid/internal/repository"
)

// CreateAppointmentRequest is the body for POST /api/v1/appointments.
// Start and end are in the site (storage) timezone.
type CreateAppointmentRequest struct {
	EmployeeID          *int64 `json:"employee_id,omitempty"`
	ServiceID           int64  `json:"service_id"`
	CustomerFirstName   string `json:"customer_first_name,omitempty"`
	CustomerLastName    string `json:"customer_last_name,omitempty"`
	CustomerAccountName string `json:"customer_account_name,omitempty"`
	CustomerEmail       string `json:"customer_email,omitempty"`
	CustomerPhone       string `json:"customer_phone,omitempty"`
	Start               string `json:"start"` // "2006-01-02 15:04"
	End                 string `json:"end"`
}

// CreateAppointmentResponse is the response for POST /api/v1/appointments.
type CreateAppointmentResponse struct {
	Success       bool   `json:"success"`
	AppointmentID int64  `json:"appointment_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

const appointmentTimeLayout = "2006-01-02 15:04"

// handleCreateAppointment books an appointment.
// POST /api/v1/appointments
func (s *HTTPServer) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_appointment")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	var req CreateAppointmentRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, CreateAppointmentResponse{Error: "invalid JSON body"})
		return
	}

	appt, err := s.validateCreateRequest(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, CreateAppointmentResponse{Error: err.Error()})
		return
	}

	if appt.EmployeeID != nil {
		booked, err := s.repo.IsSlotBooked(r.Context(), *appt.EmployeeID, appt.Start, appt.End)
		if err != nil {
			s.logger.Error().Err(err).Msg("slot check failed")
			writeJSON(w, http.StatusInternalServerError, CreateAppointmentResponse{Error: "internal error"})
			return
		}
		if booked {
			writeJSON(w, http.StatusConflict, CreateAppointmentResponse{Error: "slot is already booked"})
			return
		}
	}

	id, err := s.repo.CreateAppointment(r.Context(), appt)
	if err != nil {
		s.logger.Error().Err(err).Msg("create appointment failed")
		writeJSON(w, http.StatusInternalServerError, CreateAppointmentResponse{Error: "internal error"})
		return
	}

	metrics.IncAppointmentCreated()
	s.publishAppointmentEvent(events.AppointmentCreated, id)

	writeJSON(w, http.StatusOK, CreateAppointmentResponse{Success: true, AppointmentID: id})
}

// handleCancelAppointment cancels an appointment by id.
// POST /api/v1/appointments/cancel?id=42
func (s *HTTPServer) handleCancelAppointment(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_appointment")
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed; use POST")
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id is required and must be a positive integer")
		return
	}

	err = s.repo.UpdateAppointmentStatus(r.Context(), id, model.AppointmentCanceled)
	if errors.Is(err, repository.ErrAppointmentNotFound) {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("appointment_id", id).Msg("cancel appointment failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	metrics.IncAppointmentCanceled()
	s.publishAppointmentEvent(events.AppointmentCanceled, id)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *HTTPServer) validateCreateRequest(req *CreateAppointmentRequest) (*model.Appointment, error) {
	if req.ServiceID <= 0 {
		return nil, errInvalid("service_id is required")
	}
	if req.Start == "" || req.End == "" {
		return nil, errInvalid("start and end are required")
	}

	start, err := time.ParseInLocation(appointmentTimeLayout, req.Start, s.siteTZ)
	if err != nil {
		return nil, errInvalid("invalid start; expected YYYY-MM-DD HH:MM")
	}
	end, err := time.ParseInLocation(appointmentTimeLayout, req.End, s.siteTZ)
	if err != nil {
		return nil, errInvalid("invalid end; expected YYYY-MM-DD HH:MM")
	}
	if !end.After(start) {
		return nil, errInvalid("end must be after start")
	}

	return &model.Appointment{
		EmployeeID:          req.EmployeeID,
		ServiceID:           req.ServiceID,
		CustomerFirstName:   req.CustomerFirstName,
		CustomerLastName:    req.CustomerLastName,
		CustomerAccountName: req.CustomerAccountName,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhone:       req.CustomerPhone,
		Start:               start,
		End:                 end,
		Status:              model.AppointmentPending,
	}, nil
}

func (s *HTTPServer) publishAppointmentEvent(eventType string, id int64) {
	if s.bus == nil {
		return
	}
	payload, _ := json.Marshal(map[string]int64{"appointment_id": id})
	s.bus.Publish(events.Event{Type: eventType, Payload: payload})
}

type errInvalid string

func (e errInvalid) Error() string { return string(e) }
