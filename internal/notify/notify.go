package notify

import (
	"context"
	"time"

	"timegrid/internal/model"
)

// AppointmentSource provides the appointments that may need a reminder.
type AppointmentSource interface {
	// UpcomingAppointments returns active appointments starting within the
	// given duration whose reminder has not been sent yet.
	UpcomingAppointments(ctx context.Context, within time.Duration) ([]model.Appointment, error)

	// MarkReminderSent flags an appointment so it is not reminded twice.
	MarkReminderSent(ctx context.Context, appointmentID int64) error
}

// Notifier delivers a reminder to the appointment's customer.
type Notifier interface {
	SendReminder(ctx context.Context, appointment model.Appointment) error
}

// Config holds configuration for the reminder service.
type Config struct {
	// CheckInterval is how often to scan for upcoming appointments.
	// Default: 15 minutes.
	CheckInterval time.Duration

	// Lead is how far before an appointment's start the reminder goes out.
	// Default: 24 hours.
	Lead time.Duration

	// MaxConcurrent limits parallel notification sends. Default: 10.
	MaxConcurrent int

	// RatePerSecond and Burst configure the send rate limiter.
	RatePerSecond float64
	Burst         int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval: 15 * time.Minute,
		Lead:          24 * time.Hour,
		MaxConcurrent: 10,
		RatePerSecond: 20,
		Burst:         30,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	if c.Lead <= 0 {
		c.Lead = d.Lead
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = d.RatePerSecond
	}
	if c.Burst <= 0 {
		c.Burst = d.Burst
	}
	return c
}
