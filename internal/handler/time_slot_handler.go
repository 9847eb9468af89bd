package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
	"github.com/noah-isme/siports-api/pkg/response"
)

type timeSlotService interface {
	CreateSlot(ctx context.Context, exhibitorID string, req dto.CreateSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error)
	BulkCreateSlots(ctx context.Context, exhibitorID string, req dto.BulkCreateSlotsRequest, actor *models.JWTClaims) ([]models.TimeSlot, error)
	GetSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	ListAvailableSlots(ctx context.Context, exhibitorID, from, to string) ([]models.TimeSlot, error)
	ListSlots(ctx context.Context, exhibitorID, from, to string, actor *models.JWTClaims) ([]models.TimeSlot, error)
	DeleteSlot(ctx context.Context, id string, actor *models.JWTClaims) error
}

// TimeSlotHandler manages exhibitor availability.
type TimeSlotHandler struct {
	service timeSlotService
}

// NewTimeSlotHandler builds a new handler.
func NewTimeSlotHandler(service timeSlotService) *TimeSlotHandler {
	return &TimeSlotHandler{service: service}
}

// Create godoc
// @Summary Create a time slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Param payload body dto.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /exhibitors/{id}/slots [post]
func (h *TimeSlotHandler) Create(c *gin.Context) {
	var req dto.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	slot, err := h.service.CreateSlot(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// BulkCreate godoc
// @Summary Create many time slots atomically
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Param payload body dto.BulkCreateSlotsRequest true "Slots payload"
// @Success 201 {object} response.Envelope
// @Router /exhibitors/{id}/slots/bulk [post]
func (h *TimeSlotHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkCreateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk slot payload"))
		return
	}
	slots, err := h.service.BulkCreateSlots(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.BulkCreateSlotsResponse{Created: len(slots), Slots: slots})
}

// List godoc
// @Summary List an exhibitor's slots
// @Description Returns bookable slots ordered by date and start time. Owners and admins may pass all=true to include full slots.
// @Tags Slots
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Param from query string false "First day (YYYY-MM-DD)"
// @Param to query string false "Last day (YYYY-MM-DD)"
// @Param all query bool false "Include unavailable slots"
// @Success 200 {object} response.Envelope
// @Router /exhibitors/{id}/slots [get]
func (h *TimeSlotHandler) List(c *gin.Context) {
	var query dto.SlotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	var (
		slots []models.TimeSlot
		err   error
	)
	if query.All {
		slots, err = h.service.ListSlots(c.Request.Context(), c.Param("id"), query.From, query.To, claimsFromContext(c))
	} else {
		slots, err = h.service.ListAvailableSlots(c.Request.Context(), c.Param("id"), query.From, query.To)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Get godoc
// @Summary Get a time slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [get]
func (h *TimeSlotHandler) Get(c *gin.Context) {
	slot, err := h.service.GetSlot(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete a time slot without bookings
// @Tags Slots
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *TimeSlotHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
