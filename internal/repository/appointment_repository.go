package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siports-api/internal/models"
)

// ActiveSlotVisitorConstraint is the partial unique index guarding one live appointment per slot and visitor.
const ActiveSlotVisitorConstraint = "appointments_active_slot_visitor_key"

const appointmentColumns = `id, time_slot_id, exhibitor_id, visitor_id, status, message, type, cancel_reason, confirmed_at, cancelled_at, created_at, updated_at`

const appointmentDetailSelect = `SELECT a.id, a.time_slot_id, a.exhibitor_id, a.visitor_id, a.status, a.message, a.type, a.cancel_reason,
        a.confirmed_at, a.cancelled_at, a.created_at, a.updated_at,
        to_char(s.date, 'YYYY-MM-DD') AS slot_date, to_char(s.start_time, 'HH24:MI') AS slot_start,
        to_char(s.end_time, 'HH24:MI') AS slot_end, s.type AS slot_type, s.location AS slot_location,
        e.company_name, COALESCE(vp.full_name, pp.organization_name, '') AS visitor_name
    FROM appointments a
    JOIN time_slots s ON s.id = a.time_slot_id
    JOIN exhibitors e ON e.id = a.exhibitor_id
    LEFT JOIN visitor_profiles vp ON vp.user_id = a.visitor_id
    LEFT JOIN partner_profiles pp ON pp.user_id = a.visitor_id`

// AppointmentRepository persists appointments and their idempotency keys.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository constructs an AppointmentRepository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new appointment. The driver error stays in the chain for unique-violation checks.
func (r *AppointmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	const query = `INSERT INTO appointments (` + appointmentColumns + `)
        VALUES (:id, :time_slot_id, :exhibitor_id, :visitor_id, :status, :message, :type, :cancel_reason, :confirmed_at, :cancelled_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByID fetches an appointment by ID.
func (r *AppointmentRepository) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindByIDForUpdate locks the appointment row for the rest of the transaction.
func (r *AppointmentRepository) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := sqlx.GetContext(ctx, r.exec(exec), &appt, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id); err != nil {
		return nil, err
	}
	return &appt, nil
}

// LockVisitor serialises booking requests of one visitor until exec's transaction ends,
// so the active count read afterwards cannot be raced by a concurrent request.
func (r *AppointmentRepository) LockVisitor(ctx context.Context, exec sqlx.ExtContext, visitorID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "appointments:"+visitorID); err != nil {
		return fmt.Errorf("lock visitor %s: %w", visitorID, err)
	}
	return nil
}

// ExistsActive reports whether the visitor already holds a pending or confirmed appointment on the slot.
func (r *AppointmentRepository) ExistsActive(ctx context.Context, exec sqlx.ExtContext, slotID, visitorID string) (bool, error) {
	const query = `SELECT 1 FROM appointments WHERE time_slot_id = $1 AND visitor_id = $2 AND status <> 'cancelled' LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.exec(exec), &exists, query, slotID, visitorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check active appointment: %w", err)
	}
	return true, nil
}

// CountActiveByVisitor counts pending and confirmed appointments held by a visitor.
func (r *AppointmentRepository) CountActiveByVisitor(ctx context.Context, exec sqlx.ExtContext, visitorID string) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.exec(exec), &count, `SELECT COUNT(*) FROM appointments WHERE visitor_id = $1 AND status <> 'cancelled'`, visitorID); err != nil {
		return 0, fmt.Errorf("count active appointments: %w", err)
	}
	return count, nil
}

// UpdateStatus writes the appointment's new status only if the stored status still equals from.
// It reports false when another writer moved the row first.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, appt *models.Appointment, from models.AppointmentStatus) (bool, error) {
	appt.UpdatedAt = time.Now().UTC()
	const query = `UPDATE appointments
        SET status = $1, cancel_reason = $2, confirmed_at = $3, cancelled_at = $4, updated_at = $5
        WHERE id = $6 AND status = $7`
	res, err := r.exec(exec).ExecContext(ctx, query, appt.Status, appt.CancelReason, appt.ConfirmedAt, appt.CancelledAt, appt.UpdatedAt, appt.ID, from)
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}
	return rows == 1, nil
}

// ListForVisitor returns a visitor's appointments ordered by slot date and time.
func (r *AppointmentRepository) ListForVisitor(ctx context.Context, visitorID string) ([]models.AppointmentDetail, error) {
	query := appointmentDetailSelect + ` WHERE a.visitor_id = $1 ORDER BY s.date ASC, s.start_time ASC, a.created_at ASC`
	var items []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &items, query, visitorID); err != nil {
		return nil, fmt.Errorf("list visitor appointments: %w", err)
	}
	return items, nil
}

// ListForExhibitor returns an exhibitor's appointments ordered by slot date and time.
func (r *AppointmentRepository) ListForExhibitor(ctx context.Context, exhibitorID string, includeCancelled bool) ([]models.AppointmentDetail, error) {
	query := appointmentDetailSelect + ` WHERE a.exhibitor_id = $1`
	if !includeCancelled {
		query += ` AND a.status <> 'cancelled'`
	}
	query += ` ORDER BY s.date ASC, s.start_time ASC, a.created_at ASC`
	var items []models.AppointmentDetail
	if err := r.db.SelectContext(ctx, &items, query, exhibitorID); err != nil {
		return nil, fmt.Errorf("list exhibitor appointments: %w", err)
	}
	return items, nil
}

// ClaimIdempotencyKey records key for userID. When the key already exists it returns the appointment bound to it.
// A concurrent claimer blocks on the primary key until the first transaction finishes.
func (r *AppointmentRepository) ClaimIdempotencyKey(ctx context.Context, exec sqlx.ExtContext, userID, key string) (existingID string, claimed bool, err error) {
	target := r.exec(exec)
	res, err := target.ExecContext(ctx, `INSERT INTO appointment_idempotency_keys (user_id, idem_key, created_at)
        VALUES ($1, $2, $3) ON CONFLICT (user_id, idem_key) DO NOTHING`, userID, key, time.Now().UTC())
	if err != nil {
		return "", false, fmt.Errorf("claim idempotency key: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 1 {
		return "", true, nil
	}
	var appointmentID sql.NullString
	if err := sqlx.GetContext(ctx, target, &appointmentID, `SELECT appointment_id FROM appointment_idempotency_keys WHERE user_id = $1 AND idem_key = $2`, userID, key); err != nil {
		return "", false, fmt.Errorf("load idempotency key: %w", err)
	}
	return appointmentID.String, false, nil
}

// BindIdempotencyKey attaches the created appointment to a claimed key.
func (r *AppointmentRepository) BindIdempotencyKey(ctx context.Context, exec sqlx.ExtContext, userID, key, appointmentID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `UPDATE appointment_idempotency_keys SET appointment_id = $1 WHERE user_id = $2 AND idem_key = $3`,
		appointmentID, userID, key); err != nil {
		return fmt.Errorf("bind idempotency key: %w", err)
	}
	return nil
}

// DeleteIdempotencyKeysBefore prunes keys older than cutoff.
func (r *AppointmentRepository) DeleteIdempotencyKeysBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointment_idempotency_keys WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune idempotency keys: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
