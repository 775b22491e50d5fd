package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"timegrid/internal/model"
)

// ErrAppointmentNotFound is returned for lookups of unknown appointments.
var ErrAppointmentNotFound = errors.New("appointment not found")

const appointmentColumns = `
	a.id, a.employee_id, COALESCE(e.name, ''),
	a.service_id, COALESCE(s.name, ''), COALESCE(s.color, ''), COALESCE(s.text_color, ''),
	a.customer_first_name, a.customer_last_name, a.customer_account_name,
	a.customer_email, a.customer_phone,
	a.start_time, a.end_time, a.status`

const appointmentJoins = `
	FROM appointments a
	LEFT JOIN employees e ON e.id = a.employee_id
	LEFT JOIN services s ON s.id = a.service_id`

// AppointmentsForEmployees returns non-canceled appointments for the given
// employees whose start falls within [from, to]. The window is expressed in
// the storage timezone; callers re-filter by day as needed.
func (r *Repo) AppointmentsForEmployees(ctx context.Context, employeeIDs []int64, from, to time.Time) ([]model.Appointment, error) {
	if len(employeeIDs) == 0 {
		return []model.Appointment{}, nil
	}

	placeholders := make([]string, len(employeeIDs))
	args := make([]any, 0, len(employeeIDs)+2)
	for i, id := range employeeIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, from, to)

	query := `SELECT` + appointmentColumns + appointmentJoins + `
		WHERE a.employee_id IN (` + strings.Join(placeholders, ", ") + `)
		AND a.start_time >= ? AND a.start_time <= ?
		AND a.status NOT IN ('canceled')
		ORDER BY a.start_time`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments for employees: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// GetAppointment returns one appointment by id.
func (r *Repo) GetAppointment(ctx context.Context, id int64) (*model.Appointment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT`+appointmentColumns+appointmentJoins+` WHERE a.id = ?`, id)

	appt, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment %d: %w", id, err)
	}
	return appt, nil
}

// CreateAppointment inserts an appointment and returns its id.
func (r *Repo) CreateAppointment(ctx context.Context, appt *model.Appointment) (int64, error) {
	if appt == nil {
		return 0, fmt.Errorf("appointment is nil")
	}
	if appt.Status == "" {
		appt.Status = model.AppointmentPending
	}

	now := time.Now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO appointments (
			employee_id, service_id,
			customer_first_name, customer_last_name, customer_account_name,
			customer_email, customer_phone,
			start_time, end_time, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		appt.EmployeeID, appt.ServiceID,
		appt.CustomerFirstName, appt.CustomerLastName, appt.CustomerAccountName,
		appt.CustomerEmail, appt.CustomerPhone,
		appt.Start, appt.End, appt.Status, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("create appointment: %w", err)
	}
	return res.LastInsertId()
}

// UpdateAppointmentStatus sets an appointment's status.
func (r *Repo) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update appointment %d status: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// IsSlotBooked reports whether the employee has an active appointment
// overlapping [start, end).
func (r *Repo) IsSlotBooked(ctx context.Context, employeeID int64, start, end time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM appointments
		WHERE employee_id = ?
		AND start_time < ? AND end_time > ?
		AND status NOT IN ('canceled')`,
		employeeID, end, start,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return count > 0, nil
}

// UpcomingAppointments returns active appointments starting within the
// given lead window whose reminder has not been sent yet.
func (r *Repo) UpcomingAppointments(ctx context.Context, within time.Duration) ([]model.Appointment, error) {
	now := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+appointmentColumns+appointmentJoins+`
		WHERE a.start_time >= ? AND a.start_time <= ?
		AND a.reminder_sent = 0
		AND a.status IN ('pending', 'approved')
		ORDER BY a.start_time`,
		now, now.Add(within),
	)
	if err != nil {
		return nil, fmt.Errorf("upcoming appointments: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// MarkReminderSent flags an appointment so no second reminder goes out.
func (r *Repo) MarkReminderSent(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET reminder_sent = 1, updated_at = ? WHERE id = ?`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("mark reminder sent %d: %w", id, err)
	}
	return nil
}

// AppointmentsForLocation returns appointments for all employees assigned
// to a location within [from, to], for exports.
func (r *Repo) AppointmentsForLocation(ctx context.Context, locationID int64, from, to time.Time) ([]model.Appointment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+appointmentColumns+appointmentJoins+`
		WHERE a.employee_id IN (
			SELECT employee_id FROM employee_locations WHERE location_id = ?
		)
		AND a.start_time >= ? AND a.start_time <= ?
		ORDER BY a.start_time`,
		locationID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("appointments for location %d: %w", locationID, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var appt model.Appointment
	var employeeID sql.NullInt64
	err := row.Scan(
		&appt.ID, &employeeID, &appt.EmployeeName,
		&appt.ServiceID, &appt.ServiceName, &appt.ServiceColor, &appt.ServiceTextColor,
		&appt.CustomerFirstName, &appt.CustomerLastName, &appt.CustomerAccountName,
		&appt.CustomerEmail, &appt.CustomerPhone,
		&appt.Start, &appt.End, &appt.Status,
	)
	if err != nil {
		return nil, err
	}
	if employeeID.Valid {
		appt.EmployeeID = &employeeID.Int64
	}
	return &appt, nil
}

func scanAppointments(rows *sql.Rows) ([]model.Appointment, error) {
	var appointments []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, *appt)
	}
	return appointments, rows.Err()
}
