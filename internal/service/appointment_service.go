package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/internal/outbox"
	"github.com/noah-isme/siports-api/internal/repository"
	"github.com/noah-isme/siports-api/pkg/database"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

const appointmentAggregate = "appointment"

type appointmentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, appt *models.Appointment) error
	FindByID(ctx context.Context, id string) (*models.Appointment, error)
	FindByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Appointment, error)
	LockVisitor(ctx context.Context, exec sqlx.ExtContext, visitorID string) error
	ExistsActive(ctx context.Context, exec sqlx.ExtContext, slotID, visitorID string) (bool, error)
	CountActiveByVisitor(ctx context.Context, exec sqlx.ExtContext, visitorID string) (int, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, appt *models.Appointment, from models.AppointmentStatus) (bool, error)
	ListForVisitor(ctx context.Context, visitorID string) ([]models.AppointmentDetail, error)
	ListForExhibitor(ctx context.Context, exhibitorID string, includeCancelled bool) ([]models.AppointmentDetail, error)
	ClaimIdempotencyKey(ctx context.Context, exec sqlx.ExtContext, userID, key string) (string, bool, error)
	BindIdempotencyKey(ctx context.Context, exec sqlx.ExtContext, userID, key, appointmentID string) error
}

type tierReader interface {
	FindTier(ctx context.Context, userID string) (*models.RequesterTier, error)
}

type slotCapacity interface {
	GetSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	ReserveCapacity(ctx context.Context, exec sqlx.ExtContext, slotID string) (*models.TimeSlot, error)
	ReleaseCapacity(ctx context.Context, exec sqlx.ExtContext, slotID string) (*models.TimeSlot, error)
	Invalidate(ctx context.Context, exhibitorID string)
}

type appointmentEvent struct {
	AppointmentID string                   `json:"appointmentId"`
	TimeSlotID    string                   `json:"timeSlotId"`
	ExhibitorID   string                   `json:"exhibitorId"`
	VisitorID     string                   `json:"visitorId"`
	Status        models.AppointmentStatus `json:"status"`
	Type          models.Modality          `json:"type"`
	Reason        string                   `json:"reason,omitempty"`
	ActorID       string                   `json:"actorId"`
	OccurredAt    time.Time                `json:"occurredAt"`
}

// AppointmentService mediates the request, confirm and cancel lifecycle between visitors and exhibitor slots.
type AppointmentService struct {
	repo       appointmentStore
	slots      slotCapacity
	exhibitors exhibitorReader
	tiers      tierReader
	tx         txRunner
	events     eventWriter
	metrics    *MetricsService
	retry      RetryPolicy
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAppointmentService wires the workflow.
func NewAppointmentService(
	repo appointmentStore,
	slots slotCapacity,
	exhibitors exhibitorReader,
	tiers tierReader,
	tx txRunner,
	events eventWriter,
	metrics *MetricsService,
	retry RetryPolicy,
	validate *validator.Validate,
	logger *zap.Logger,
) *AppointmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AppointmentService{
		repo:       repo,
		slots:      slots,
		exhibitors: exhibitors,
		tiers:      tiers,
		tx:         tx,
		events:     events,
		metrics:    metrics,
		retry:      retry.normalized(),
		validator:  validate,
		logger:     logger,
	}
}

// RequestAppointment creates a pending appointment. Capacity is not checked here; only confirmation reserves it.
// When idemKey repeats an earlier request of the same user, the earlier appointment is returned and created is false.
func (s *AppointmentService) RequestAppointment(ctx context.Context, req dto.RequestAppointmentRequest, idemKey string, actor *models.JWTClaims) (appt *models.Appointment, created bool, err error) {
	ctx, span := tracer.Start(ctx, "appointment.request")
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, false, appErrors.ErrUnauthorized
	}
	switch actor.Role {
	case models.RoleVisitor, models.RolePartner, models.RoleAdmin:
	default:
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "only visitors and partners can request appointments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid appointment payload")
	}

	visitorID := actor.UserID
	if actor.IsAdmin() && req.VisitorID != "" {
		visitorID = req.VisitorID
	}
	span.SetAttributes(attribute.String("slot.id", req.TimeSlotID), attribute.String("visitor.id", visitorID))

	slot, err := s.slots.GetSlot(ctx, req.TimeSlotID)
	if err != nil {
		return nil, false, err
	}
	modality := req.Type
	if modality == "" {
		modality = slot.Type
		if modality == models.ModalityHybrid {
			modality = models.ModalityInPerson
		}
	}
	if !slot.Type.Accepts(modality) {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "requested modality is not offered by this slot")
	}

	var replayID string
	appt = &models.Appointment{
		TimeSlotID:  slot.ID,
		ExhibitorID: slot.ExhibitorID,
		VisitorID:   visitorID,
		Status:      models.AppointmentPending,
		Message:     req.Message,
		Type:        modality,
	}

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if idemKey != "" {
			existingID, claimed, err := s.repo.ClaimIdempotencyKey(ctx, tx, visitorID, idemKey)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record idempotency key")
			}
			if !claimed {
				if existingID == "" {
					return appErrors.Clone(appErrors.ErrConflict, "a request with this idempotency key is still in progress")
				}
				replayID = existingID
				return nil
			}
		}

		if err := s.repo.LockVisitor(ctx, tx, visitorID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock visitor bookings")
		}
		exists, err := s.repo.ExistsActive(ctx, tx, slot.ID, visitorID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing appointments")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrDuplicateRequest, "duplicate request")
		}

		if !actor.IsAdmin() || req.VisitorID != "" {
			if err := s.enforceTier(ctx, tx, visitorID, slot.Type); err != nil {
				return err
			}
		}

		if err := s.repo.Create(ctx, tx, appt); err != nil {
			if database.IsUniqueViolation(err, repository.ActiveSlotVisitorConstraint) {
				return appErrors.Clone(appErrors.ErrDuplicateRequest, "duplicate request")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
		}
		if idemKey != "" {
			if err := s.repo.BindIdempotencyKey(ctx, tx, visitorID, idemKey, appt.ID); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record idempotency key")
			}
		}
		return s.emit(ctx, tx, outbox.AppointmentRequested, appt, actor, "")
	})
	if err != nil {
		return nil, false, err
	}

	if replayID != "" {
		existing, err := s.load(ctx, replayID)
		if err != nil {
			return nil, false, err
		}
		s.logger.Info("appointment request replayed", zap.String("appointment_id", existing.ID), zap.String("visitor_id", visitorID))
		return existing, false, nil
	}

	s.metrics.RecordTransition(string(models.AppointmentPending))
	s.logger.Info("appointment requested",
		zap.String("appointment_id", appt.ID),
		zap.String("slot_id", slot.ID),
		zap.String("visitor_id", visitorID),
	)
	return appt, true, nil
}

// ConfirmAppointment moves a pending appointment to confirmed and takes one seat on its slot.
// A full slot yields ErrSlotFull and neither record changes.
func (s *AppointmentService) ConfirmAppointment(ctx context.Context, id string, actor *models.JWTClaims) (result *models.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.confirm")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("appointment.id", id))

	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeExhibitor(ctx, current.ExhibitorID, actor); err != nil {
		return nil, err
	}

	err = retryStale(ctx, s.retry, func() { s.metrics.RecordRetry("confirm") }, func() error {
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			appt, err := s.lock(ctx, tx, id)
			if err != nil {
				return err
			}
			if !appt.Status.CanTransition(models.AppointmentConfirmed) {
				return appErrors.Clone(appErrors.ErrInvalidState, "only pending appointments can be confirmed")
			}
			if _, err := s.slots.ReserveCapacity(ctx, tx, appt.TimeSlotID); err != nil {
				return err
			}

			now := time.Now().UTC()
			appt.Status = models.AppointmentConfirmed
			appt.ConfirmedAt = &now
			ok, err := s.repo.UpdateStatus(ctx, tx, appt, models.AppointmentPending)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm appointment")
			}
			if !ok {
				return errStaleWrite
			}
			result = appt
			return s.emit(ctx, tx, outbox.AppointmentConfirmed, appt, actor, "")
		})
	})
	if err != nil {
		if appErrors.Is(err, appErrors.ErrSlotFull) {
			s.metrics.RecordCapacityConflict()
			s.logger.Info("appointment confirmation rejected, slot full", zap.String("appointment_id", id), zap.String("slot_id", current.TimeSlotID))
		}
		return nil, s.staleAsConflict(err)
	}

	s.slots.Invalidate(ctx, result.ExhibitorID)
	s.metrics.RecordTransition(string(models.AppointmentConfirmed))
	s.logger.Info("appointment confirmed", zap.String("appointment_id", id), zap.String("slot_id", result.TimeSlotID))
	return result, nil
}

// CancelAppointment cancels a pending or confirmed appointment. Cancelling a confirmed one frees its seat.
func (s *AppointmentService) CancelAppointment(ctx context.Context, id string, req dto.CancelAppointmentRequest, actor *models.JWTClaims) (result *models.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "appointment.cancel")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("appointment.id", id))

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(ctx, current, actor); err != nil {
		return nil, err
	}

	released := false
	err = retryStale(ctx, s.retry, func() { s.metrics.RecordRetry("cancel") }, func() error {
		released = false
		return s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			appt, err := s.lock(ctx, tx, id)
			if err != nil {
				return err
			}
			if !appt.Status.CanTransition(models.AppointmentCancelled) {
				return appErrors.Clone(appErrors.ErrInvalidState, "appointment is already cancelled")
			}
			previous := appt.Status
			if previous == models.AppointmentConfirmed {
				if _, err := s.slots.ReleaseCapacity(ctx, tx, appt.TimeSlotID); err != nil {
					return err
				}
				released = true
			}

			now := time.Now().UTC()
			appt.Status = models.AppointmentCancelled
			appt.CancelledAt = &now
			if req.Reason != "" {
				reason := req.Reason
				appt.CancelReason = &reason
			}
			ok, err := s.repo.UpdateStatus(ctx, tx, appt, previous)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel appointment")
			}
			if !ok {
				return errStaleWrite
			}
			result = appt
			return s.emit(ctx, tx, outbox.AppointmentCancelled, appt, actor, req.Reason)
		})
	})
	if err != nil {
		return nil, s.staleAsConflict(err)
	}

	if released {
		s.slots.Invalidate(ctx, result.ExhibitorID)
	}
	s.metrics.RecordTransition(string(models.AppointmentCancelled))
	s.logger.Info("appointment cancelled", zap.String("appointment_id", id), zap.Bool("capacity_released", released))
	return result, nil
}

// GetAppointment returns an appointment to either party or an admin.
func (s *AppointmentService) GetAppointment(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appointment, error) {
	appt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParty(ctx, appt, actor); err != nil {
		return nil, err
	}
	return appt, nil
}

// ListForVisitor returns a visitor's appointments ordered by slot date and time.
func (s *AppointmentService) ListForVisitor(ctx context.Context, visitorID string, actor *models.JWTClaims) ([]models.AppointmentDetail, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !actor.IsAdmin() && actor.UserID != visitorID {
		return nil, appErrors.ErrForbidden
	}
	items, err := s.repo.ListForVisitor(ctx, visitorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return items, nil
}

// ListForExhibitor returns an exhibitor's appointments ordered by slot date and time.
func (s *AppointmentService) ListForExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) ([]models.AppointmentDetail, error) {
	if err := s.authorizeExhibitor(ctx, exhibitorID, actor); err != nil {
		return nil, err
	}
	items, err := s.repo.ListForExhibitor(ctx, exhibitorID, true)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	return items, nil
}

func (s *AppointmentService) enforceTier(ctx context.Context, tx *sqlx.Tx, visitorID string, slotType models.Modality) error {
	tier, err := s.tiers.FindTier(ctx, visitorID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load visitor tier")
		}
		tier = &models.RequesterTier{UserID: visitorID, Kind: models.ProfileVisitor, Level: models.LevelFree}
	}
	active, err := s.repo.CountActiveByVisitor(ctx, tx, visitorID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count appointments")
	}
	return checkTier(*tier, slotType, active)
}

func (s *AppointmentService) load(ctx context.Context, id string) (*models.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	return appt, nil
}

func (s *AppointmentService) lock(ctx context.Context, tx *sqlx.Tx, id string) (*models.Appointment, error) {
	appt, err := s.repo.FindByIDForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock appointment")
	}
	return appt, nil
}

func (s *AppointmentService) authorizeExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.IsAdmin() {
		return nil
	}
	exhibitor, err := s.exhibitors.FindByID(ctx, exhibitorID)
	if err != nil {
		return mapExhibitorLookup(err)
	}
	if exhibitor.UserID != actor.UserID {
		return appErrors.ErrForbidden
	}
	return nil
}

func (s *AppointmentService) authorizeParty(ctx context.Context, appt *models.Appointment, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if actor.IsAdmin() || appt.VisitorID == actor.UserID {
		return nil
	}
	return s.authorizeExhibitor(ctx, appt.ExhibitorID, actor)
}

func (s *AppointmentService) emit(ctx context.Context, tx *sqlx.Tx, eventType string, appt *models.Appointment, actor *models.JWTClaims, reason string) error {
	evt, err := outbox.NewEvent(appointmentAggregate, appt.ID, eventType, appointmentEvent{
		AppointmentID: appt.ID,
		TimeSlotID:    appt.TimeSlotID,
		ExhibitorID:   appt.ExhibitorID,
		VisitorID:     appt.VisitorID,
		Status:        appt.Status,
		Type:          appt.Type,
		Reason:        reason,
		ActorID:       actor.UserID,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode event")
	}
	if err := s.events.Insert(ctx, tx, evt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record event")
	}
	return nil
}

func (s *AppointmentService) staleAsConflict(err error) error {
	if errors.Is(err, errStaleWrite) {
		return appErrors.Clone(appErrors.ErrConflict, "appointment was modified concurrently, please retry")
	}
	return err
}
