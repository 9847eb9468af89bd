package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/internal/repository"
	"github.com/noah-isme/siports-api/pkg/config"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type timeSlotStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, slot *models.TimeSlot) error
	FindByID(ctx context.Context, id string) (*models.TimeSlot, error)
	List(ctx context.Context, filter models.TimeSlotFilter) ([]models.TimeSlot, error)
	ReserveCapacity(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimeSlot, error)
	ReleaseCapacity(ctx context.Context, exec sqlx.ExtContext, id string) (*models.TimeSlot, error)
	Delete(ctx context.Context, id string) error
}

type exhibitorReader interface {
	FindByID(ctx context.Context, id string) (*models.Exhibitor, error)
}

// TimeSlotConfig carries the event calendar and cache tuning.
type TimeSlotConfig struct {
	Event    config.EventConfig
	CacheTTL time.Duration
}

// TimeSlotService defines exhibitor calendars and owns slot capacity accounting.
type TimeSlotService struct {
	repo       timeSlotStore
	exhibitors exhibitorReader
	tx         txRunner
	cache      *CacheService
	cfg        TimeSlotConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTimeSlotService builds a TimeSlotService.
func NewTimeSlotService(repo timeSlotStore, exhibitors exhibitorReader, tx txRunner, cache *CacheService, cfg TimeSlotConfig, validate *validator.Validate, logger *zap.Logger) *TimeSlotService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeSlotService{repo: repo, exhibitors: exhibitors, tx: tx, cache: cache, cfg: cfg, validator: validate, logger: logger}
}

// CreateSlot adds a bookable window to a verified exhibitor's calendar.
func (s *TimeSlotService) CreateSlot(ctx context.Context, exhibitorID string, req dto.CreateSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error) {
	if _, err := s.ownedExhibitor(ctx, exhibitorID, actor, true); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	slot, err := s.buildSlot(exhibitorID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, nil, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slot")
	}
	s.Invalidate(ctx, exhibitorID)
	s.logger.Info("time slot created", zap.String("slot_id", slot.ID), zap.String("exhibitor_id", exhibitorID), zap.String("date", slot.Date))
	return slot, nil
}

// BulkCreateSlots validates every item and then inserts all of them in one transaction.
func (s *TimeSlotService) BulkCreateSlots(ctx context.Context, exhibitorID string, req dto.BulkCreateSlotsRequest, actor *models.JWTClaims) ([]models.TimeSlot, error) {
	if _, err := s.ownedExhibitor(ctx, exhibitorID, actor, true); err != nil {
		return nil, err
	}
	if len(req.Slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slots must not be empty")
	}

	slots := make([]models.TimeSlot, 0, len(req.Slots))
	for i, item := range req.Slots {
		if err := s.validator.Struct(item); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid slot at index %d", i))
		}
		slot, err := s.buildSlot(exhibitorID, item)
		if err != nil {
			return nil, appErrors.Clone(appErrors.FromError(err), fmt.Sprintf("slot %d: %s", i, appErrors.FromError(err).Message))
		}
		slots = append(slots, *slot)
	}

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		for i := range slots {
			if err := s.repo.Create(ctx, tx, &slots[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time slots")
	}
	s.Invalidate(ctx, exhibitorID)
	s.logger.Info("time slots created", zap.String("exhibitor_id", exhibitorID), zap.Int("count", len(slots)))
	return slots, nil
}

// GetSlot returns a slot by id.
func (s *TimeSlotService) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	slot, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slot")
	}
	return slot, nil
}

// ListAvailableSlots returns bookable slots ordered by date then start time. Results are cached per range.
func (s *TimeSlotService) ListAvailableSlots(ctx context.Context, exhibitorID, from, to string) ([]models.TimeSlot, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	key := SlotsCacheKey(exhibitorID, from, to)
	var cached []models.TimeSlot
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}

	slots, err := s.repo.List(ctx, models.TimeSlotFilter{ExhibitorID: exhibitorID, From: from, To: to, AvailableOnly: true})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	if slots == nil {
		slots = []models.TimeSlot{}
	}
	_ = s.cache.Set(ctx, key, slots, s.cfg.CacheTTL)
	return slots, nil
}

// ListSlots returns every slot of an exhibitor, full ones included. Only the owner or an admin may call it.
func (s *TimeSlotService) ListSlots(ctx context.Context, exhibitorID, from, to string, actor *models.JWTClaims) ([]models.TimeSlot, error) {
	if _, err := s.ownedExhibitor(ctx, exhibitorID, actor, false); err != nil {
		return nil, err
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	slots, err := s.repo.List(ctx, models.TimeSlotFilter{ExhibitorID: exhibitorID, From: from, To: to})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time slots")
	}
	return slots, nil
}

// DeleteSlot removes a slot that holds no bookings.
func (s *TimeSlotService) DeleteSlot(ctx context.Context, id string, actor *models.JWTClaims) error {
	slot, err := s.GetSlot(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedExhibitor(ctx, slot.ExhibitorID, actor, false); err != nil {
		return err
	}
	if slot.CurrentBookings > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "time slot has bookings")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotInUse):
			return appErrors.Clone(appErrors.ErrConflict, "time slot has bookings")
		case errors.Is(err, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete time slot")
	}
	s.Invalidate(ctx, slot.ExhibitorID)
	return nil
}

// ReserveCapacity takes one seat on the slot inside exec. A full slot yields ErrSlotFull.
func (s *TimeSlotService) ReserveCapacity(ctx context.Context, exec sqlx.ExtContext, slotID string) (*models.TimeSlot, error) {
	slot, err := s.repo.ReserveCapacity(ctx, exec, slotID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCapacityExhausted):
			return nil, appErrors.ErrSlotFull
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve capacity")
	}
	return slot, nil
}

// ReleaseCapacity gives one seat back to the slot inside exec.
func (s *TimeSlotService) ReleaseCapacity(ctx context.Context, exec sqlx.ExtContext, slotID string) (*models.TimeSlot, error) {
	slot, err := s.repo.ReleaseCapacity(ctx, exec, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "time slot not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release capacity")
	}
	return slot, nil
}

// Invalidate drops cached listings of an exhibitor.
func (s *TimeSlotService) Invalidate(ctx context.Context, exhibitorID string) {
	_ = s.cache.Invalidate(ctx, SlotsCachePattern(exhibitorID))
}

func (s *TimeSlotService) ownedExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims, requireVerified bool) (*models.Exhibitor, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	exhibitor, err := s.exhibitors.FindByID(ctx, exhibitorID)
	if err != nil {
		return nil, mapExhibitorLookup(err)
	}
	if requireVerified && !exhibitor.Verified {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "exhibitor not verified")
	}
	if !actor.IsAdmin() && exhibitor.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return exhibitor, nil
}

func (s *TimeSlotService) buildSlot(exhibitorID string, req dto.CreateSlotRequest) (*models.TimeSlot, error) {
	day, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if !s.cfg.Event.Contains(day) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("date %s is outside the event (%s to %s)",
			req.Date, s.cfg.Event.StartDate.Format(dateLayout), s.cfg.Event.EndDate.Format(dateLayout)))
	}
	start, err := time.Parse(timeLayout, req.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be HH:MM")
	}
	end, err := time.Parse(timeLayout, req.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "endTime must be HH:MM")
	}
	if !start.Before(end) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "startTime must be before endTime")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "type must be in-person, virtual or hybrid")
	}
	maxBookings := 1
	if req.MaxBookings != nil {
		maxBookings = *req.MaxBookings
	}
	if maxBookings < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "maxBookings must be at least 1")
	}
	return &models.TimeSlot{
		ExhibitorID: exhibitorID,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Duration:    int(end.Sub(start) / time.Minute),
		Type:        req.Type,
		MaxBookings: maxBookings,
		Location:    req.Location,
		Available:   true,
	}, nil
}

func validateRange(from, to string) error {
	var fromDay, toDay time.Time
	var err error
	if from != "" {
		if fromDay, err = time.Parse(dateLayout, from); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
	}
	if to != "" {
		if toDay, err = time.Parse(dateLayout, to); err != nil {
			return appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
	}
	if from != "" && to != "" && toDay.Before(fromDay) {
		return appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return nil
}
