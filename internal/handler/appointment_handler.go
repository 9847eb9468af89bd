package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
	"github.com/noah-isme/siports-api/pkg/response"
)

// IdempotencyKeyHeader lets clients retry appointment requests safely.
const IdempotencyKeyHeader = "Idempotency-Key"

type appointmentService interface {
	RequestAppointment(ctx context.Context, req dto.RequestAppointmentRequest, idemKey string, actor *models.JWTClaims) (*models.Appointment, bool, error)
	ConfirmAppointment(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, id string, req dto.CancelAppointmentRequest, actor *models.JWTClaims) (*models.Appointment, error)
	GetAppointment(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appointment, error)
	ListForVisitor(ctx context.Context, visitorID string, actor *models.JWTClaims) ([]models.AppointmentDetail, error)
	ListForExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) ([]models.AppointmentDetail, error)
}

type agendaExporter interface {
	ExhibitorAgenda(ctx context.Context, exhibitorID string, format dto.AgendaFormat, actor *models.JWTClaims) (*dto.AgendaExport, error)
}

// AppointmentHandler drives the appointment workflow.
type AppointmentHandler struct {
	service  appointmentService
	exporter agendaExporter
}

// NewAppointmentHandler builds a new handler.
func NewAppointmentHandler(service appointmentService, exporter agendaExporter) *AppointmentHandler {
	return &AppointmentHandler{service: service, exporter: exporter}
}

// Request godoc
// @Summary Request an appointment on a slot
// @Description Creates a pending appointment. Replaying the same Idempotency-Key returns the original appointment with 200.
// @Tags Appointments
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated key"
// @Param payload body dto.RequestAppointmentRequest true "Appointment payload"
// @Success 201 {object} response.Envelope
// @Success 200 {object} response.Envelope
// @Router /appointments [post]
func (h *AppointmentHandler) Request(c *gin.Context) {
	var req dto.RequestAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid appointment payload"))
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > 255 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "idempotency key too long"))
		return
	}
	appt, created, err := h.service.RequestAppointment(c.Request.Context(), req, key, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !created {
		response.JSON(c, http.StatusOK, appt, nil, map[string]interface{}{"idempotent_replay": true})
		return
	}
	response.Created(c, appt)
}

// Get godoc
// @Summary Get an appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id} [get]
func (h *AppointmentHandler) Get(c *gin.Context) {
	appt, err := h.service.GetAppointment(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Confirm godoc
// @Summary Confirm a pending appointment
// @Tags Appointments
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /appointments/{id}/confirm [post]
func (h *AppointmentHandler) Confirm(c *gin.Context) {
	appt, err := h.service.ConfirmAppointment(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// Cancel godoc
// @Summary Cancel an appointment
// @Tags Appointments
// @Accept json
// @Produce json
// @Param id path string true "Appointment ID"
// @Param payload body dto.CancelAppointmentRequest false "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/cancel [post]
func (h *AppointmentHandler) Cancel(c *gin.Context) {
	var req dto.CancelAppointmentRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
		return
	}
	appt, err := h.service.CancelAppointment(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, appt, nil)
}

// ListForVisitor godoc
// @Summary List a visitor's appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Visitor user ID"
// @Success 200 {object} response.Envelope
// @Router /visitors/{id}/appointments [get]
func (h *AppointmentHandler) ListForVisitor(c *gin.Context) {
	items, err := h.service.ListForVisitor(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// ListForExhibitor godoc
// @Summary List an exhibitor's appointments
// @Tags Appointments
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Success 200 {object} response.Envelope
// @Router /exhibitors/{id}/appointments [get]
func (h *AppointmentHandler) ListForExhibitor(c *gin.Context) {
	items, err := h.service.ListForExhibitor(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Export godoc
// @Summary Download an exhibitor's agenda
// @Tags Appointments
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Exhibitor ID"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /exhibitors/{id}/appointments/export [get]
func (h *AppointmentHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "agenda export not configured"))
		return
	}
	format := dto.AgendaFormat(strings.ToLower(c.DefaultQuery("format", string(dto.AgendaCSV))))
	file, err := h.exporter.ExhibitorAgenda(c.Request.Context(), c.Param("id"), format, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}
