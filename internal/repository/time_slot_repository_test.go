package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siports-api/internal/models"
)

var timeSlotRowColumns = []string{"id", "exhibitor_id", "date", "start_time", "end_time", "duration", "type", "max_bookings", "current_bookings", "available", "location", "created_at", "updated_at"}

func TestTimeSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO time_slots")).
		WithArgs(sqlmock.AnyArg(), "exh-1", "2026-04-01", "09:00", "09:30", 30, "in-person", 1, 0, true, "Hall A", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.TimeSlot{ExhibitorID: "exh-1", Date: "2026-04-01", StartTime: "09:00", EndTime: "09:30", Duration: 30, Type: models.ModalityInPerson, MaxBookings: 1, Location: "Hall A"}
	require.NoError(t, repo.Create(context.Background(), nil, slot))
	assert.NotEmpty(t, slot.ID)
	assert.True(t, slot.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryListAvailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(timeSlotRowColumns).
		AddRow("slot-1", "exh-1", "2026-04-01", "09:00", "09:30", 30, "virtual", 2, 0, true, "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM time_slots WHERE exhibitor_id = $1 AND date >= $2 AND date <= $3 AND available = TRUE ORDER BY date ASC, start_time ASC")).
		WithArgs("exh-1", "2026-04-01", "2026-04-03").
		WillReturnRows(rows)

	slots, err := repo.List(context.Background(), models.TimeSlotFilter{ExhibitorID: "exh-1", From: "2026-04-01", To: "2026-04-03", AvailableOnly: true})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.ModalityVirtual, slots[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryReserveCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND current_bookings < max_bookings")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows(timeSlotRowColumns).
			AddRow("slot-1", "exh-1", "2026-04-01", "09:00", "09:30", 30, "in-person", 1, 1, false, "", now, now))

	slot, err := repo.ReserveCapacity(context.Background(), nil, "slot-1")
	require.NoError(t, err)
	assert.Equal(t, 1, slot.CurrentBookings)
	assert.False(t, slot.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryReserveCapacityFull(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE time_slots")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows(timeSlotRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM time_slots WHERE id = $1")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	_, err := repo.ReserveCapacity(context.Background(), nil, "slot-1")
	assert.True(t, errors.Is(err, ErrCapacityExhausted))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryReserveCapacityMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE time_slots")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(timeSlotRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM time_slots WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.ReserveCapacity(context.Background(), nil, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestTimeSlotRepositoryReleaseCapacity(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SET current_bookings = GREATEST(current_bookings - 1, 0)")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows(timeSlotRowColumns).
			AddRow("slot-1", "exh-1", "2026-04-01", "09:00", "09:30", 30, "in-person", 1, 0, true, "", now, now))

	slot, err := repo.ReleaseCapacity(context.Background(), nil, "slot-1")
	require.NoError(t, err)
	assert.Equal(t, 0, slot.CurrentBookings)
	assert.True(t, slot.Available)
}

func TestTimeSlotRepositoryDeleteInUse(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM time_slots WHERE id = $1")).
		WithArgs("slot-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := repo.Delete(context.Background(), "slot-1")
	assert.True(t, errors.Is(err, ErrSlotInUse))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimeSlotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimeSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM time_slots")).
		WithArgs("slot-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), "slot-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
