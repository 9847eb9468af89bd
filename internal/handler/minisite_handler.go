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

type miniSiteService interface {
	CreateFromExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error)
	CreateFromExternalSite(ctx context.Context, exhibitorID, sourceURL string, actor *models.JWTClaims) (*dto.EnrichmentResult, error)
	EnrichFromExternalSite(ctx context.Context, id string, req dto.EnrichMiniSiteRequest, actor *models.JWTClaims) (*dto.EnrichmentResult, error)
	EnqueueEnrichment(ctx context.Context, id string, req dto.EnrichMiniSiteRequest, actor *models.JWTClaims) error
	SetPublished(ctx context.Context, id string, published bool, actor *models.JWTClaims) (*models.MiniSite, error)
	UpdateTheme(ctx context.Context, id string, req dto.UpdateThemeRequest, actor *models.JWTClaims) (*models.MiniSite, error)
	RecordView(ctx context.Context, id string) (int64, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.MiniSite, error)
	GetByExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error)
	GetPublic(ctx context.Context, exhibitorID string) (*models.MiniSite, error)
}

// MiniSiteHandler exposes exhibitor mini-site management and the public read.
type MiniSiteHandler struct {
	service miniSiteService
}

// NewMiniSiteHandler builds a new handler.
func NewMiniSiteHandler(service miniSiteService) *MiniSiteHandler {
	return &MiniSiteHandler{service: service}
}

// Create godoc
// @Summary Create the exhibitor's mini-site
// @Description Seeds hero and about sections from the exhibitor profile. When sourceUrl is given the new site is enriched from it.
// @Tags MiniSites
// @Accept json
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Param payload body dto.CreateMiniSiteRequest false "Optional source website"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /exhibitors/{id}/minisite [post]
func (h *MiniSiteHandler) Create(c *gin.Context) {
	var req dto.CreateMiniSiteRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mini-site payload"))
		return
	}
	claims := claimsFromContext(c)
	if source := strings.TrimSpace(req.SourceURL); source != "" {
		result, err := h.service.CreateFromExternalSite(c.Request.Context(), c.Param("id"), source, claims)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Created(c, result)
		return
	}
	site, err := h.service.CreateFromExhibitor(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, site)
}

// GetByExhibitor godoc
// @Summary Get an exhibitor's mini-site
// @Tags MiniSites
// @Produce json
// @Param id path string true "Exhibitor ID"
// @Success 200 {object} response.Envelope
// @Router /exhibitors/{id}/minisite [get]
func (h *MiniSiteHandler) GetByExhibitor(c *gin.Context) {
	site, err := h.service.GetByExhibitor(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}

// Get godoc
// @Summary Get a mini-site
// @Tags MiniSites
// @Produce json
// @Param id path string true "Mini-site ID"
// @Success 200 {object} response.Envelope
// @Router /minisites/{id} [get]
func (h *MiniSiteHandler) Get(c *gin.Context) {
	site, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}

// Enrich godoc
// @Summary Enrich a mini-site from an external website
// @Description Appends certifications, gallery and testimonials found on the source when absent. With async=true the work is queued.
// @Tags MiniSites
// @Accept json
// @Produce json
// @Param id path string true "Mini-site ID"
// @Param async query bool false "Queue the enrichment"
// @Param payload body dto.EnrichMiniSiteRequest true "Source website"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /minisites/{id}/enrich [post]
func (h *MiniSiteHandler) Enrich(c *gin.Context) {
	var req dto.EnrichMiniSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrichment payload"))
		return
	}
	claims := claimsFromContext(c)
	id := c.Param("id")
	if c.Query("async") == "true" {
		if err := h.service.EnqueueEnrichment(c.Request.Context(), id, req, claims); err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, gin.H{"miniSiteId": id, "status": "queued"})
		return
	}
	result, err := h.service.EnrichFromExternalSite(c.Request.Context(), id, req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Publish godoc
// @Summary Publish or unpublish a mini-site
// @Tags MiniSites
// @Accept json
// @Produce json
// @Param id path string true "Mini-site ID"
// @Param payload body dto.PublishMiniSiteRequest true "Publication flag"
// @Success 200 {object} response.Envelope
// @Router /minisites/{id}/publish [patch]
func (h *MiniSiteHandler) Publish(c *gin.Context) {
	var req dto.PublishMiniSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid publish payload"))
		return
	}
	if req.Published == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "published is required"))
		return
	}
	site, err := h.service.SetPublished(c.Request.Context(), c.Param("id"), *req.Published, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}

// Theme godoc
// @Summary Change a mini-site theme
// @Tags MiniSites
// @Accept json
// @Produce json
// @Param id path string true "Mini-site ID"
// @Param payload body dto.UpdateThemeRequest true "Theme payload"
// @Success 200 {object} response.Envelope
// @Router /minisites/{id}/theme [patch]
func (h *MiniSiteHandler) Theme(c *gin.Context) {
	var req dto.UpdateThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid theme payload"))
		return
	}
	site, err := h.service.UpdateTheme(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}

// RecordView godoc
// @Summary Count a mini-site view
// @Tags MiniSites
// @Produce json
// @Param id path string true "Mini-site ID"
// @Success 200 {object} response.Envelope
// @Router /minisites/{id}/views [post]
func (h *MiniSiteHandler) RecordView(c *gin.Context) {
	views, err := h.service.RecordView(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.RecordViewResponse{Views: views}, nil)
}

// Public godoc
// @Summary Read a published mini-site
// @Tags Public
// @Produce json
// @Param exhibitorId path string true "Exhibitor ID"
// @Success 200 {object} response.Envelope
// @Router /public/minisites/{exhibitorId} [get]
func (h *MiniSiteHandler) Public(c *gin.Context) {
	site, err := h.service.GetPublic(c.Request.Context(), c.Param("exhibitorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, site, nil)
}
