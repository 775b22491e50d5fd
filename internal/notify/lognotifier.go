package notify

import (
	"context"

	"timegrid/internal/model"

	"github.com/rs/zerolog"
)

// LogNotifier is the default Notifier: it records the reminder instead of
// delivering it. Real delivery channels implement Notifier at the edge.
type LogNotifier struct {
	logger *zerolog.Logger
}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// SendReminder logs the reminder and succeeds.
func (n *LogNotifier) SendReminder(_ context.Context, appt model.Appointment) error {
	n.logger.Info().
		Int64("appointment_id", appt.ID).
		Str("customer", appt.CustomerDisplayName()).
		Str("email", appt.CustomerEmail).
		Time("starts_at", appt.Start).
		Msg("appointment reminder")
	return nil
}
