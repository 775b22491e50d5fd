package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"timegrid/internal/database"
	"timegrid/internal/model"
)

// ErrLocationNotFound is returned for lookups of unknown or deleted
// locations. The schedule aggregator propagates it verbatim, so transport
// layers can match it with errors.Is.
var ErrLocationNotFound = errors.New("location not found")

// Repo provides typed access to the scheduling schema.
type Repo struct {
	db *database.DB
}

// New creates a repository over an open database.
func New(db *database.DB) *Repo {
	return &Repo{db: db}
}

// GetLocation returns a location by id. Deleted locations are treated as
// not found.
func (r *Repo) GetLocation(ctx context.Context, id int64) (*model.Location, error) {
	var loc model.Location
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, timezone, deleted FROM locations WHERE id = ? AND deleted = 0`,
		id,
	).Scan(&loc.ID, &loc.Name, &loc.Timezone, &loc.Deleted)
	if err == sql.ErrNoRows {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get location %d: %w", id, err)
	}
	return &loc, nil
}

// ListLocations returns all non-deleted locations.
func (r *Repo) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, timezone, deleted FROM locations WHERE deleted = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var loc model.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Timezone, &loc.Deleted); err != nil {
			return nil, err
		}
		locations = append(locations, loc)
	}
	return locations, rows.Err()
}

// ListEmployees returns the full roster with location assignments. Deleted
// employees are excluded; hidden ones are included and carry the flag.
func (r *Repo) ListEmployees(ctx context.Context) ([]model.Employee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, deleted, hidden FROM employees WHERE deleted = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	index := make(map[int64]int)
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Deleted, &e.Hidden); err != nil {
			return nil, err
		}
		index[e.ID] = len(employees)
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	assignments, err := r.db.QueryContext(ctx,
		`SELECT employee_id, location_id FROM employee_locations ORDER BY employee_id, location_id`)
	if err != nil {
		return nil, fmt.Errorf("list employee locations: %w", err)
	}
	defer assignments.Close()

	for assignments.Next() {
		var employeeID, locationID int64
		if err := assignments.Scan(&employeeID, &locationID); err != nil {
			return nil, err
		}
		if i, ok := index[employeeID]; ok {
			employees[i].LocationIDs = append(employees[i].LocationIDs, locationID)
		}
	}
	return employees, assignments.Err()
}

// LocationHours returns the weekly hours map for a location, keyed by ISO
// weekday (1=Monday .. 7=Sunday). Missing weekdays are simply absent.
func (r *Repo) LocationHours(ctx context.Context, locationID int64) (map[int]model.DayHours, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT weekday, open_time, close_time, is_closed
		 FROM business_hours WHERE location_id = ? ORDER BY weekday`,
		locationID,
	)
	if err != nil {
		return nil, fmt.Errorf("location hours %d: %w", locationID, err)
	}
	defer rows.Close()

	hours := make(map[int]model.DayHours)
	for rows.Next() {
		var weekday int
		var h model.DayHours
		if err := rows.Scan(&weekday, &h.Open, &h.Close, &h.IsClosed); err != nil {
			return nil, err
		}
		if weekday < 1 || weekday > 7 {
			continue
		}
		hours[weekday] = h
	}
	return hours, rows.Err()
}

// SetLocationHours upserts one weekday's hours for a location.
func (r *Repo) SetLocationHours(ctx context.Context, locationID int64, weekday int, hours model.DayHours) error {
	if weekday < 1 || weekday > 7 {
		return fmt.Errorf("weekday out of range: %d", weekday)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO business_hours (location_id, weekday, open_time, close_time, is_closed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(location_id, weekday) DO UPDATE SET
			open_time = excluded.open_time,
			close_time = excluded.close_time,
			is_closed = excluded.is_closed`,
		locationID, weekday, hours.Open, hours.Close, hours.IsClosed,
	)
	if err != nil {
		return fmt.Errorf("set hours for location %d weekday %d: %w", locationID, weekday, err)
	}
	return nil
}

// UpsertLocation inserts or updates a location, preserving created_at.
func (r *Repo) UpsertLocation(ctx context.Context, loc model.Location) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO locations (id, name, timezone, deleted, created_at, updated_at)
		VALUES (?, ?, ?, ?, COALESCE((SELECT created_at FROM locations WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			timezone = excluded.timezone,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at`,
		loc.ID, loc.Name, loc.Timezone, loc.Deleted, loc.ID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert location %d: %w", loc.ID, err)
	}
	return nil
}

// UpsertEmployee inserts or updates an employee and replaces its location
// assignments.
func (r *Repo) UpsertEmployee(ctx context.Context, e model.Employee) error {
	now := time.Now()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO employees (id, name, deleted, hidden, created_at, updated_at)
		VALUES (?, ?, ?, ?, COALESCE((SELECT created_at FROM employees WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			deleted = excluded.deleted,
			hidden = excluded.hidden,
			updated_at = excluded.updated_at`,
		e.ID, e.Name, e.Deleted, e.Hidden, e.ID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert employee %d: %w", e.ID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM employee_locations WHERE employee_id = ?`, e.ID); err != nil {
		return fmt.Errorf("clear assignments for employee %d: %w", e.ID, err)
	}
	for _, locationID := range e.LocationIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO employee_locations (employee_id, location_id) VALUES (?, ?)`,
			e.ID, locationID); err != nil {
			return fmt.Errorf("assign employee %d to location %d: %w", e.ID, locationID, err)
		}
	}

	return tx.Commit()
}

// UpsertService inserts or updates a service.
func (r *Repo) UpsertService(ctx context.Context, svc model.Service) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (id, name, color, text_color, duration, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, COALESCE((SELECT created_at FROM services WHERE id = ?), ?), ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			text_color = excluded.text_color,
			duration = excluded.duration,
			updated_at = excluded.updated_at`,
		svc.ID, svc.Name, svc.Color, svc.TextColor, svc.Duration, svc.ID, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert service %d: %w", svc.ID, err)
	}
	return nil
}
