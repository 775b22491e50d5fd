package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"timegrid/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AppointmentLister provides appointments for export.
type AppointmentLister interface {
	AppointmentsForLocation(ctx context.Context, locationID int64, from, to time.Time) ([]model.Appointment, error)
}

// LocationLister provides the locations to export.
type LocationLister interface {
	ListLocations(ctx context.Context) ([]model.Location, error)
}

// Service writes appointment history workbooks, one sheet per location.
type Service struct {
	appointments AppointmentLister
	locations    LocationLister
	logger       *zerolog.Logger
}

// NewService creates an export service.
func NewService(appointments AppointmentLister, locations LocationLister, logger *zerolog.Logger) *Service {
	return &Service{
		appointments: appointments,
		locations:    locations,
		logger:       logger,
	}
}

var appointmentHeader = []string{
	"ID", "Employee", "Service", "Customer", "Email", "Phone",
	"Start", "End", "Status",
}

// ExportAppointments writes all appointments within [from, to] to out as an
// xlsx workbook with one sheet per location.
func (s *Service) ExportAppointments(ctx context.Context, out io.Writer, from, to time.Time) error {
	return s.export(ctx, NewExcelizeWriter(), out, from, to)
}

func (s *Service) export(ctx context.Context, w ExcelWriter, out io.Writer, from, to time.Time) error {
	defer w.Close()

	locations, err := s.locations.ListLocations(ctx)
	if err != nil {
		return fmt.Errorf("list locations: %w", err)
	}
	if len(locations) == 0 {
		return fmt.Errorf("no locations to export")
	}

	for _, loc := range locations {
		if err := w.AddSheet(loc.Name); err != nil {
			return err
		}
		if err := w.WriteHeader(appointmentHeader); err != nil {
			return err
		}

		appointments, err := s.appointments.AppointmentsForLocation(ctx, loc.ID, from, to)
		if err != nil {
			return fmt.Errorf("appointments for location %d: %w", loc.ID, err)
		}

		for _, appt := range appointments {
			row := []interface{}{
				appt.ID,
				appt.EmployeeName,
				appt.ServiceName,
				appt.CustomerDisplayName(),
				appt.CustomerEmail,
				appt.CustomerPhone,
				appt.Start.Format("2006-01-02 15:04"),
				appt.End.Format("2006-01-02 15:04"),
				appt.Status,
			}
			if err := w.WriteRow(row); err != nil {
				return err
			}
		}

		s.logger.Info().
			Str("location", loc.Name).
			Int("appointments", len(appointments)).
			Msg("exported location sheet")
	}

	return w.SaveTo(out)
}

// FileName builds a unique export file name for a period.
func FileName(from, to time.Time) string {
	return fmt.Sprintf("appointments_%s_%s_%s.xlsx",
		from.Format("20060102"), to.Format("20060102"), uuid.NewString()[:8])
}
