package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/internal/outbox"
	"github.com/noah-isme/siports-api/internal/repository"
)

type txStub struct {
	calls int
	err   error
}

func (s *txStub) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	s.calls++
	if s.err != nil {
		return s.err
	}
	return fn(nil)
}

type eventRecorder struct {
	events []outbox.Event
	err    error
}

func (r *eventRecorder) Insert(ctx context.Context, exec sqlx.ExtContext, evt outbox.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, evt)
	return nil
}

func (r *eventRecorder) types() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type exhibitorStub struct {
	items map[string]*models.Exhibitor
	err   error
}

func (s *exhibitorStub) FindByID(ctx context.Context, id string) (*models.Exhibitor, error) {
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.items[id]; ok {
		clone := *e
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

type memSlotStore struct {
	mu    sync.Mutex
	seq   int
	slots map[string]*models.TimeSlot
}

func newMemSlotStore() *memSlotStore {
	return &memSlotStore{slots: map[string]*models.TimeSlot{}}
}

func (m *memSlotStore) Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	slot.ID = fmt.Sprintf("slot-%d", m.seq)
	slot.CurrentBookings = 0
	slot.Available = true
	slot.CreatedAt = time.Now()
	clone := *slot
	m.slots[slot.ID] = &clone
	return nil
}

func (m *memSlotStore) FindByID(ctx context.Context, id string) (*models.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (m *memSlotStore) List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TimeSlot
	for _, s := range m.slots {
		if s.ExhibitorID != filter.ExhibitorID {
			continue
		}
		if filter.From != "" && s.Date < filter.From {
			continue
		}
		if filter.To != "" && s.Date > filter.To {
			continue
		}
		if filter.AvailableOnly && !s.Available {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (m *memSlotStore) ReserveCapacity(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if s.CurrentBookings >= s.MaxBookings {
		return nil, repository.ErrCapacityExhausted
	}
	s.CurrentBookings++
	s.Available = s.CurrentBookings < s.MaxBookings
	clone := *s
	return &clone, nil
}

func (m *memSlotStore) ReleaseCapacity(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if s.CurrentBookings > 0 {
		s.CurrentBookings--
	}
	s.Available = true
	clone := *s
	return &clone, nil
}

func (m *memSlotStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return sql.ErrNoRows
	}
	if s.CurrentBookings > 0 {
		return repository.ErrSlotInUse
	}
	delete(m.slots, id)
	return nil
}

type memAppointmentStore struct {
	mu        sync.Mutex
	seq       int
	items     map[string]*models.Appointment
	slots     *memSlotStore
	idem      map[string]string
	staleLeft int
	locks     []string
}

func newMemAppointmentStore(slots *memSlotStore) *memAppointmentStore {
	return &memAppointmentStore{items: map[string]*models.Appointment{}, slots: slots, idem: map[string]string{}}
}

func (m *memAppointmentStore) Create(ctx context.Context, exec sqlx.ExtContext, appt *models.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	appt.ID = fmt.Sprintf("appt-%d", m.seq)
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	clone := *appt
	m.items[appt.ID] = &clone
	return nil
}

func (m *memAppointmentStore) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *a
	return &clone, nil
}

func (m *memAppointmentStore) FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Appointment, error) {
	return m.FindByID(ctx, id)
}

func (m *memAppointmentStore) LockVisitor(ctx context.Context, exec sqlx.ExtContext, visitorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks = append(m.locks, visitorID)
	return nil
}

func (m *memAppointmentStore) ExistsActive(ctx context.Context, exec sqlx.ExtContext, slotID, visitorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.items {
		if a.TimeSlotID == slotID && a.VisitorID == visitorID && a.Status.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAppointmentStore) CountActiveByVisitor(ctx context.Context, exec sqlx.ExtContext, visitorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.items {
		if a.VisitorID == visitorID && a.Status.Active() {
			n++
		}
	}
	return n, nil
}

func (m *memAppointmentStore) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, appt *models.Appointment, from models.AppointmentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.staleLeft > 0 {
		m.staleLeft--
		return false, nil
	}
	cur, ok := m.items[appt.ID]
	if !ok || cur.Status != from {
		return false, nil
	}
	appt.UpdatedAt = time.Now()
	clone := *appt
	m.items[appt.ID] = &clone
	return true, nil
}

func (m *memAppointmentStore) details(keep func(*models.Appointment) bool) []models.AppointmentDetail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AppointmentDetail
	for _, a := range m.items {
		if !keep(a) {
			continue
		}
		d := models.AppointmentDetail{Appointment: *a}
		if s, ok := m.slots.slots[a.TimeSlotID]; ok {
			d.SlotDate, d.SlotStart, d.SlotEnd = s.Date, s.StartTime, s.EndTime
			d.SlotType, d.SlotLocation = s.Type, s.Location
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SlotDate != out[j].SlotDate {
			return out[i].SlotDate < out[j].SlotDate
		}
		return out[i].SlotStart < out[j].SlotStart
	})
	return out
}

func (m *memAppointmentStore) ListForVisitor(ctx context.Context, visitorID string) ([]models.AppointmentDetail, error) {
	return m.details(func(a *models.Appointment) bool { return a.VisitorID == visitorID }), nil
}

func (m *memAppointmentStore) ListForExhibitor(ctx context.Context, exhibitorID string, includeCancelled bool) ([]models.AppointmentDetail, error) {
	return m.details(func(a *models.Appointment) bool {
		return a.ExhibitorID == exhibitorID && (includeCancelled || a.Status != models.AppointmentCancelled)
	}), nil
}

func (m *memAppointmentStore) ClaimIdempotencyKey(ctx context.Context, exec sqlx.ExtContext, userID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userID + "|" + key
	if id, ok := m.idem[k]; ok {
		return id, false, nil
	}
	m.idem[k] = ""
	return "", true, nil
}

func (m *memAppointmentStore) BindIdempotencyKey(ctx context.Context, exec sqlx.ExtContext, userID, key, appointmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idem[userID+"|"+key] = appointmentID
	return nil
}

type tierStub map[string]models.RequesterTier

func (s tierStub) FindTier(ctx context.Context, userID string) (*models.RequesterTier, error) {
	t, ok := s[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func claims(userID string, role models.UserRole) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: role}
}
