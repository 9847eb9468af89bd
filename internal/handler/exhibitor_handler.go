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

type exhibitorService interface {
	Create(ctx context.Context, req dto.CreateExhibitorRequest) (*models.Exhibitor, error)
	Get(ctx context.Context, id string) (*models.Exhibitor, error)
	List(ctx context.Context, query dto.ExhibitorQuery) ([]models.Exhibitor, *models.Pagination, error)
	Verify(ctx context.Context, id string, actor *models.JWTClaims) (*models.Exhibitor, error)
}

// ExhibitorHandler exposes the exhibitor registry.
type ExhibitorHandler struct {
	service exhibitorService
}

// NewExhibitorHandler builds a new handler.
func NewExhibitorHandler(service exhibitorService) *ExhibitorHandler {
	return &ExhibitorHandler{service: service}
}

// Create godoc
// @Summary Register an exhibitor
// @Tags Exhibitors
// @Accept json
// @Produce json
// @Param payload body dto.CreateExhibitorRequest true "Exhibitor payload"
// @Success 201 {object} response.Envelope
// @Router /exhibitors [post]
func (h *ExhibitorHandler) Create(c *gin.Context) {
	var req dto.CreateExhibitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid exhibitor payload"))
		return
	}
	exhibitor, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exhibitor)
}

// List godoc
// @Summary List exhibitors
// @Tags Exhibitors
// @Produce json
// @Param category query string false "Category filter"
// @Param verified query bool false "Verified filter"
// @Param featured query bool false "Featured filter"
// @Param search query string false "Company name search"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exhibitors [get]
func (h *ExhibitorHandler) List(c *gin.Context) {
	var query dto.ExhibitorQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get exhibitor detail
// @Tags Exhibitors
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Success 200 {object} response.Envelope
// @Router /exhibitors/{id} [get]
func (h *ExhibitorHandler) Get(c *gin.Context) {
	exhibitor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exhibitor, nil)
}

// Verify godoc
// @Summary Verify an exhibitor and seed its mini-site
// @Tags Exhibitors
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Success 200 {object} response.Envelope
// @Router /exhibitors/{id}/verify [post]
func (h *ExhibitorHandler) Verify(c *gin.Context) {
	exhibitor, err := h.service.Verify(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exhibitor, nil)
}
