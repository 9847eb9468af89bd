package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siports-api/internal/models"
)

var (
	// ErrCapacityExhausted reports a conditional reserve that matched an existing but full slot.
	ErrCapacityExhausted = errors.New("time slot capacity exhausted")
	// ErrSlotInUse reports a delete blocked by bookings or active appointments.
	ErrSlotInUse = errors.New("time slot in use")
)

const timeSlotColumns = `id, exhibitor_id, to_char(date, 'YYYY-MM-DD') AS date, to_char(start_time, 'HH24:MI') AS start_time,
    to_char(end_time, 'HH24:MI') AS end_time, duration, type, max_bookings, current_bookings, available, location, created_at, updated_at`

// TimeSlotRepository manages exhibitor time slots and their capacity counters.
type TimeSlotRepository struct {
	db *sqlx.DB
}

// NewTimeSlotRepository constructs a TimeSlotRepository.
func NewTimeSlotRepository(db *sqlx.DB) *TimeSlotRepository {
	return &TimeSlotRepository{db: db}
}

func (r *TimeSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a slot with zero bookings.
func (r *TimeSlotRepository) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now
	slot.CurrentBookings = 0
	slot.Available = slot.MaxBookings > 0

	const query = `INSERT INTO time_slots (id, exhibitor_id, date, start_time, end_time, duration, type, max_bookings, current_bookings, available, location, created_at, updated_at)
        VALUES (:id, :exhibitor_id, :date, :start_time, :end_time, :duration, :type, :max_bookings, :current_bookings, :available, :location, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, slot); err != nil {
		return fmt.Errorf("create time slot: %w", err)
	}
	return nil
}

// FindByID fetches a slot by ID.
func (r *TimeSlotRepository) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	if err := r.db.GetContext(ctx, &slot, `SELECT `+timeSlotColumns+` FROM time_slots WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// List returns an exhibitor's slots ordered by date then start time.
func (r *TimeSlotRepository) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	conditions := []string{"exhibitor_id = $1"}
	args := []interface{}{filter.ExhibitorID}

	if filter.From != "" {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.From)
	}
	if filter.To != "" {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.To)
	}
	if filter.AvailableOnly {
		conditions = append(conditions, "available = TRUE")
	}

	query := fmt.Sprintf(`SELECT %s FROM time_slots WHERE %s ORDER BY date ASC, start_time ASC`, timeSlotColumns, strings.Join(conditions, " AND "))
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// ReserveCapacity increments the booking counter only while it is below capacity.
// It returns sql.ErrNoRows for an unknown slot and ErrCapacityExhausted for a full one.
func (r *TimeSlotRepository) ReserveCapacity(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimeSlot, error) {
	const query = `UPDATE time_slots
        SET current_bookings = current_bookings + 1,
            available = (current_bookings + 1 < max_bookings),
            updated_at = now()
        WHERE id = $1 AND current_bookings < max_bookings
        RETURNING ` + timeSlotColumns
	target := r.exec(exec)
	var slot models.TimeSlot
	if err := sqlx.GetContext(ctx, target, &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missingOrFull(ctx, target, id)
		}
		return nil, fmt.Errorf("reserve time slot capacity: %w", err)
	}
	return &slot, nil
}

// ReleaseCapacity decrements the booking counter, never below zero, and restores availability.
func (r *TimeSlotRepository) ReleaseCapacity(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimeSlot, error) {
	const query = `UPDATE time_slots
        SET current_bookings = GREATEST(current_bookings - 1, 0),
            available = (GREATEST(current_bookings - 1, 0) < max_bookings),
            updated_at = now()
        WHERE id = $1
        RETURNING ` + timeSlotColumns
	var slot models.TimeSlot
	if err := sqlx.GetContext(ctx, r.exec(exec), &slot, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("release time slot capacity: %w", err)
	}
	return &slot, nil
}

// Delete removes a slot that has no bookings and no active appointments.
func (r *TimeSlotRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM time_slots
        WHERE id = $1 AND current_bookings = 0
          AND NOT EXISTS (SELECT 1 FROM appointments a WHERE a.time_slot_id = time_slots.id AND a.status <> 'cancelled')`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete time slot: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows > 0 {
		return nil
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, `SELECT 1 FROM time_slots WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("check time slot: %w", err)
	}
	return ErrSlotInUse
}

func (r *TimeSlotRepository) missingOrFull(ctx context.Context, exec sqlx.ExtContext, id string) error {
	var exists int
	if err := sqlx.GetContext(ctx, exec, &exists, `SELECT 1 FROM time_slots WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return fmt.Errorf("check time slot: %w", err)
	}
	return ErrCapacityExhausted
}
