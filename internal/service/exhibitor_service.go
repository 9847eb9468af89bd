package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/internal/repository"
	"github.com/noah-isme/siports-api/pkg/database"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

type exhibitorStore interface {
	Create(ctx context.Context, exhibitor *models.Exhibitor) error
	FindByID(ctx context.Context, id string) (*models.Exhibitor, error)
	List(ctx context.Context, filter models.ExhibitorFilter) ([]models.Exhibitor, int, error)
	SetVerified(ctx context.Context, id string, verified bool) error
}

type miniSiteSeeder interface {
	CreateFromExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error)
}

// ExhibitorService manages the exhibitor registry.
type ExhibitorService struct {
	repo      exhibitorStore
	minisites miniSiteSeeder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExhibitorService constructs an ExhibitorService.
func NewExhibitorService(repo exhibitorStore, minisites miniSiteSeeder, validate *validator.Validate, logger *zap.Logger) *ExhibitorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExhibitorService{repo: repo, minisites: minisites, validator: validate, logger: logger}
}

// Create registers an unverified exhibitor profile.
func (s *ExhibitorService) Create(ctx context.Context, req dto.CreateExhibitorRequest) (*models.Exhibitor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exhibitor payload")
	}
	exhibitor := &models.Exhibitor{
		UserID:      req.UserID,
		CompanyName: strings.TrimSpace(req.CompanyName),
		Category:    req.Category,
		Sector:      req.Sector,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		Website:     req.Website,
		ContactInfo: req.ContactInfo,
		Featured:    req.Featured,
	}
	if err := s.repo.Create(ctx, exhibitor); err != nil {
		if database.IsUniqueViolation(err, repository.ExhibitorUserConstraint) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "user already has an exhibitor profile")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exhibitor")
	}
	s.logger.Info("exhibitor created", zap.String("exhibitor_id", exhibitor.ID), zap.String("company", exhibitor.CompanyName))
	return exhibitor, nil
}

// Get returns an exhibitor by id.
func (s *ExhibitorService) Get(ctx context.Context, id string) (*models.Exhibitor, error) {
	exhibitor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapExhibitorLookup(err)
	}
	return exhibitor, nil
}

// List returns exhibitors with pagination metadata.
func (s *ExhibitorService) List(ctx context.Context, query dto.ExhibitorQuery) ([]models.Exhibitor, *models.Pagination, error) {
	filter := models.ExhibitorFilter{
		Category: query.Category,
		Verified: query.Verified,
		Featured: query.Featured,
		Search:   strings.TrimSpace(query.Search),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exhibitors")
	}
	if items == nil {
		items = []models.Exhibitor{}
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Verify marks the exhibitor verified and seeds its mini-site. An existing mini-site is kept as is.
func (s *ExhibitorService) Verify(ctx context.Context, id string, actor *models.JWTClaims) (*models.Exhibitor, error) {
	if !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.repo.SetVerified(ctx, id, true); err != nil {
		return nil, mapExhibitorLookup(err)
	}
	if _, err := s.minisites.CreateFromExhibitor(ctx, id, actor); err != nil && !appErrors.Is(err, appErrors.ErrMiniSiteExists) {
		return nil, err
	}
	exhibitor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("exhibitor verified", zap.String("exhibitor_id", id))
	return exhibitor, nil
}

func mapExhibitorLookup(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "exhibitor not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exhibitor")
}
