package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupConfig controls the periodic SQLite backup loop.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// BackupService periodically snapshots the database file and prunes old
// snapshots.
type BackupService struct {
	db     *DB
	config BackupConfig
	logger *zerolog.Logger
}

// NewBackupService creates a backup service over an open database.
func NewBackupService(db *DB, cfg BackupConfig, logger *zerolog.Logger) *BackupService {
	if cfg.IntervalHours <= 0 {
		cfg.IntervalHours = 24
	}
	if cfg.Path == "" {
		cfg.Path = "backups"
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 14
	}
	return &BackupService{db: db, config: cfg, logger: logger}
}

// Start runs the backup loop until the context is cancelled. The first
// backup runs shortly after startup.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("backup service is disabled")
		return
	}

	if err := os.MkdirAll(s.config.Path, 0o755); err != nil {
		s.logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	s.logger.Info().
		Int("interval_hours", s.config.IntervalHours).
		Str("path", s.config.Path).
		Msg("backup service started")

	select {
	case <-time.After(time.Minute):
		s.runOnce(ctx)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(time.Duration(s.config.IntervalHours) * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *BackupService) runOnce(ctx context.Context) {
	timestamp := time.Now().Format("20060102_150405")
	dest := filepath.Join(s.config.Path, fmt.Sprintf("timegrid_%s.db", timestamp))

	s.logger.Info().Str("path", dest).Msg("starting database backup")
	if err := s.Backup(ctx, dest); err != nil {
		s.logger.Error().Err(err).Msg("backup failed")
		return
	}
	s.logger.Info().Msg("backup completed")

	deleted, err := s.cleanup()
	if err != nil {
		s.logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		s.logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

// Backup writes a consistent snapshot of the live database to dest using
// VACUUM INTO, which is safe while the database is in use.
func (s *BackupService) Backup(ctx context.Context, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("backup target already exists: %s", dest)
	}
	_, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest)
	if err != nil {
		return fmt.Errorf("vacuum into: %w", err)
	}
	return nil
}

func (s *BackupService) cleanup() (int, error) {
	entries, err := os.ReadDir(s.config.Path)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)
	deleted := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.config.Path, entry.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
