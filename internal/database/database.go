package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps sql.DB for the scheduling service.
type DB struct {
	*sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Locations
		`CREATE TABLE IF NOT EXISTS locations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			timezone TEXT NOT NULL DEFAULT '',
			deleted BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Employees
		`CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT,
			deleted BOOLEAN NOT NULL DEFAULT 0,
			hidden BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Employee to location assignment
		`CREATE TABLE IF NOT EXISTS employee_locations (
			employee_id INTEGER NOT NULL,
			location_id INTEGER NOT NULL,
			PRIMARY KEY (employee_id, location_id),
			FOREIGN KEY (employee_id) REFERENCES employees(id),
			FOREIGN KEY (location_id) REFERENCES locations(id)
		)`,

		// Services
		`CREATE TABLE IF NOT EXISTS services (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			text_color TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL DEFAULT 30,
			deleted BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Weekly business hours per location, ISO weekday 1-7
		`CREATE TABLE IF NOT EXISTS business_hours (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			location_id INTEGER NOT NULL,
			weekday INTEGER NOT NULL,
			open_time TEXT NOT NULL DEFAULT '',
			close_time TEXT NOT NULL DEFAULT '',
			is_closed BOOLEAN NOT NULL DEFAULT 0,
			UNIQUE (location_id, weekday),
			FOREIGN KEY (location_id) REFERENCES locations(id)
		)`,

		// Appointments; start/end stored in the site (storage) timezone.
		// employee_id is nullable: unassigned appointments exist but never
		// reach calendar views.
		`CREATE TABLE IF NOT EXISTS appointments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id INTEGER,
			service_id INTEGER NOT NULL,
			customer_first_name TEXT NOT NULL DEFAULT '',
			customer_last_name TEXT NOT NULL DEFAULT '',
			customer_account_name TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (employee_id) REFERENCES employees(id),
			FOREIGN KEY (service_id) REFERENCES services(id)
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_locations_deleted ON locations(deleted)`,
		`CREATE INDEX IF NOT EXISTS idx_employee_locations_location ON employee_locations(location_id)`,
		`CREATE INDEX IF NOT EXISTS idx_business_hours_location ON business_hours(location_id, weekday)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_employee_time ON appointments(employee_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_status ON appointments(status)`,
		`CREATE INDEX IF NOT EXISTS idx_appointments_reminder ON appointments(reminder_sent, start_time)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

// requiredTables lists the tables the schema health check verifies.
var requiredTables = []string{
	"locations",
	"employees",
	"employee_locations",
	"services",
	"business_hours",
	"appointments",
}

// CheckSchema verifies that every required table exists. Missing tables are
// returned by name so the caller can report exactly what is broken.
func (db *DB) CheckSchema(ctx context.Context) ([]string, error) {
	var missing []string
	for _, table := range requiredTables {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		switch {
		case err == sql.ErrNoRows:
			missing = append(missing, table)
		case err != nil:
			return nil, fmt.Errorf("check table %s: %w", table, err)
		}
	}
	return missing, nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
