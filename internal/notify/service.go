package notify

import (
	"context"
	"sync"
	"time"

	"timegrid/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Service scans for upcoming appointments and sends one reminder each.
// There is no retry machinery: a failed send is logged and counted, and the
// appointment stays unmarked so the next scan picks it up again.
type Service struct {
	config   Config
	source   AppointmentSource
	notifier Notifier
	limiter  *rate.Limiter
	metrics  *Metrics
	logger   *zerolog.Logger
}

// NewService creates a reminder service. metrics may be nil.
func NewService(cfg Config, source AppointmentSource, notifier Notifier, metrics *Metrics, logger *zerolog.Logger) *Service {
	cfg = cfg.withDefaults()
	return &Service{
		config:   cfg,
		source:   source,
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		metrics:  metrics,
		logger:   logger,
	}
}

// Start runs the scan loop until the context is cancelled. The first scan
// runs immediately.
func (s *Service) Start(ctx context.Context) {
	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Dur("lead", s.config.Lead).
		Msg("reminder service started")

	s.runScan(ctx)

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runScan(ctx)
		}
	}
}

func (s *Service) runScan(ctx context.Context) {
	due, err := s.source.UpcomingAppointments(ctx, s.config.Lead)
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder scan failed")
		return
	}
	s.metrics.SetDue(len(due))
	if len(due) == 0 {
		return
	}

	s.logger.Info().Int("due", len(due)).Msg("sending appointment reminders")

	sem := make(chan struct{}, s.config.MaxConcurrent)
	var wg sync.WaitGroup

	for _, appt := range due {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(appt model.Appointment) {
			defer wg.Done()
			defer func() { <-sem }()
			s.sendOne(ctx, appt)
		}(appt)
	}
	wg.Wait()
}

func (s *Service) sendOne(ctx context.Context, appt model.Appointment) {
	if !s.limiter.Allow() {
		s.metrics.IncRateLimitWaits()
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
	}

	started := time.Now()
	err := s.notifier.SendReminder(ctx, appt)
	s.metrics.ObserveSendDuration(time.Since(started).Seconds())

	if err != nil {
		s.metrics.IncSent("failed")
		s.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("reminder send failed")
		return
	}

	if err := s.source.MarkReminderSent(ctx, appt.ID); err != nil {
		s.logger.Error().Err(err).Int64("appointment_id", appt.ID).Msg("failed to mark reminder sent")
	}
	s.metrics.IncSent("sent")
	s.logger.Info().
		Int64("appointment_id", appt.ID).
		Time("starts_at", appt.Start).
		Msg("reminder sent")
}
