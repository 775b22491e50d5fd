package repository

import (
	"context"
	"fmt"
	"time"

	"timegrid/internal/config"
	"timegrid/internal/model"
)

// SyncDirectory applies directory.yaml to the database. It upserts
// locations, employees and services, aligns weekly hours, and soft-deletes
// locations and employees that disappeared from the file.
func (r *Repo) SyncDirectory(ctx context.Context, cfg *config.DirectoryConfig) error {
	if cfg == nil {
		return fmt.Errorf("directory config is nil")
	}

	seenLocations := make(map[int64]struct{}, len(cfg.Locations))
	for _, loc := range cfg.Locations {
		if err := r.UpsertLocation(ctx, model.Location{
			ID:       loc.ID,
			Name:     loc.Name,
			Timezone: loc.Timezone,
		}); err != nil {
			return fmt.Errorf("sync location %d: %w", loc.ID, err)
		}
		seenLocations[loc.ID] = struct{}{}

		for _, h := range loc.Hours {
			err := r.SetLocationHours(ctx, loc.ID, h.Day, model.DayHours{
				Open:     h.Open,
				Close:    h.Close,
				IsClosed: h.Closed,
			})
			if err != nil {
				return fmt.Errorf("sync location %d hours: %w", loc.ID, err)
			}
		}
	}

	seenEmployees := make(map[int64]struct{}, len(cfg.Employees))
	for _, e := range cfg.Employees {
		if err := r.UpsertEmployee(ctx, model.Employee{
			ID:          e.ID,
			Name:        e.Name,
			LocationIDs: e.Locations,
			Hidden:      e.Hidden,
		}); err != nil {
			return fmt.Errorf("sync employee %d: %w", e.ID, err)
		}
		seenEmployees[e.ID] = struct{}{}
	}

	for _, s := range cfg.Services {
		if err := r.UpsertService(ctx, model.Service{
			ID:        s.ID,
			Name:      s.Name,
			Color:     s.Color,
			TextColor: s.TextColor,
			Duration:  s.Duration,
		}); err != nil {
			return fmt.Errorf("sync service %d: %w", s.ID, err)
		}
	}

	if err := r.softDeleteMissing(ctx, "locations", seenLocations); err != nil {
		return err
	}
	return r.softDeleteMissing(ctx, "employees", seenEmployees)
}

func (r *Repo) softDeleteMissing(ctx context.Context, table string, seen map[int64]struct{}) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM `+table+` WHERE deleted = 0`)
	if err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	now := time.Now()
	for _, id := range stale {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE `+table+` SET deleted = 1, updated_at = ? WHERE id = ?`, now, id); err != nil {
			return fmt.Errorf("soft delete %s %d: %w", table, id, err)
		}
	}
	return nil
}
