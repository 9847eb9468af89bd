package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/internal/outbox"
	"github.com/noah-isme/siports-api/internal/repository"
	"github.com/noah-isme/siports-api/pkg/database"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
	"github.com/noah-isme/siports-api/pkg/jobs"
	"github.com/noah-isme/siports-api/pkg/scraper"
)

const (
	miniSiteAggregate = "minisite"

	// EnrichJobType tags queued enrichment work.
	EnrichJobType = "minisite.enrich"

	certificationsTitle = "Certifications & Accréditations"
	galleryTitle        = "Galerie & Réalisations"
	testimonialsTitle   = "Témoignages Clients"
	contactTitle        = "Contact"
	aboutTitle          = "À propos"
	heroCTA             = "Prendre rendez-vous"
)

// Enrichment outcomes reported to metrics.
const (
	enrichEnriched     = "enriched"
	enrichUnchanged    = "unchanged"
	enrichSourceFailed = "source_failed"
)

type miniSiteStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, site *models.MiniSite) error
	FindByID(ctx context.Context, id string) (*models.MiniSite, error)
	FindByExhibitor(ctx context.Context, exhibitorID string) (*models.MiniSite, error)
	UpdateSections(ctx context.Context, site *models.MiniSite, expected time.Time) (bool, error)
	UpdateTheme(ctx context.Context, id, theme string, colors models.ColorPalette) error
	SetPublished(ctx context.Context, exec sqlx.ExtContext, id string, published bool) error
	IncrementViews(ctx context.Context, id string) (int64, error)
}

type siteFetcher interface {
	Fetch(ctx context.Context, rawURL string) (scraper.Result, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// EnrichPayload is the queued form of an enrichment request.
type EnrichPayload struct {
	MiniSiteID string `json:"miniSiteId"`
	SourceURL  string `json:"sourceUrl"`
}

// MiniSiteConfig holds publisher defaults.
type MiniSiteConfig struct {
	DefaultTheme string
	CacheTTL     time.Duration
}

type miniSiteEvent struct {
	MiniSiteID  string    `json:"miniSiteId"`
	ExhibitorID string    `json:"exhibitorId"`
	Published   bool      `json:"published"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// MiniSiteService builds, enriches and publishes exhibitor mini-sites.
type MiniSiteService struct {
	repo       miniSiteStore
	exhibitors exhibitorReader
	tx         txRunner
	events     eventWriter
	fetcher    siteFetcher
	queue      jobEnqueuer
	cache      *CacheService
	metrics    *MetricsService
	retry      RetryPolicy
	cfg        MiniSiteConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewMiniSiteService wires the publisher. The enrichment queue is attached later with SetQueue.
func NewMiniSiteService(
	repo miniSiteStore,
	exhibitors exhibitorReader,
	tx txRunner,
	events eventWriter,
	fetcher siteFetcher,
	cache *CacheService,
	metrics *MetricsService,
	retry RetryPolicy,
	cfg MiniSiteConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *MiniSiteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultTheme == "" {
		cfg.DefaultTheme = "modern"
	}
	return &MiniSiteService{
		repo:       repo,
		exhibitors: exhibitors,
		tx:         tx,
		events:     events,
		fetcher:    fetcher,
		cache:      cache,
		metrics:    metrics,
		retry:      retry.normalized(),
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// SetQueue attaches the background queue used by EnqueueEnrichment.
func (s *MiniSiteService) SetQueue(queue jobEnqueuer) {
	s.queue = queue
}

// CreateFromExhibitor seeds a mini-site with hero and about sections built from the exhibitor profile.
// A second call for the same exhibitor fails with ErrMiniSiteExists.
func (s *MiniSiteService) CreateFromExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error) {
	exhibitor, err := s.ownedExhibitor(ctx, exhibitorID, actor)
	if err != nil {
		return nil, err
	}

	site := &models.MiniSite{
		ExhibitorID:  exhibitor.ID,
		Theme:        s.cfg.DefaultTheme,
		CustomColors: models.DefaultPalette(),
		Sections:     seedSections(exhibitor),
	}
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.Create(ctx, tx, site); err != nil {
			if database.IsUniqueViolation(err, repository.MiniSiteExhibitorConstraint) {
				return appErrors.Clone(appErrors.ErrMiniSiteExists, "mini-site already exists for this exhibitor")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mini-site")
		}
		return s.emit(ctx, tx, outbox.MiniSiteCreated, site)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("mini-site created", zap.String("minisite_id", site.ID), zap.String("exhibitor_id", exhibitor.ID))
	return site, nil
}

// CreateFromExternalSite creates the mini-site and immediately enriches it from sourceURL.
func (s *MiniSiteService) CreateFromExternalSite(ctx context.Context, exhibitorID, sourceURL string, actor *models.JWTClaims) (*dto.EnrichmentResult, error) {
	if err := s.validator.Struct(dto.EnrichMiniSiteRequest{SourceURL: sourceURL}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid source url")
	}
	site, err := s.CreateFromExhibitor(ctx, exhibitorID, actor)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, site, sourceURL)
}

// EnrichFromExternalSite appends missing certifications, gallery, testimonials and contact sections
// scraped from sourceURL and fills blank hero fields. An unreachable source is logged and yields an unchanged site.
func (s *MiniSiteService) EnrichFromExternalSite(ctx context.Context, id string, req dto.EnrichMiniSiteRequest, actor *models.JWTClaims) (*dto.EnrichmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrichment payload")
	}
	site, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedExhibitor(ctx, site.ExhibitorID, actor); err != nil {
		return nil, err
	}
	return s.enrich(ctx, site, req.SourceURL)
}

// EnqueueEnrichment schedules EnrichFromExternalSite on the background queue.
func (s *MiniSiteService) EnqueueEnrichment(ctx context.Context, id string, req dto.EnrichMiniSiteRequest, actor *models.JWTClaims) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrichment payload")
	}
	site, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedExhibitor(ctx, site.ExhibitorID, actor); err != nil {
		return err
	}
	if s.queue == nil {
		return appErrors.Clone(appErrors.ErrInternal, "enrichment queue unavailable")
	}
	err = s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    EnrichJobType,
		Key:     site.ID,
		Payload: EnrichPayload{MiniSiteID: site.ID, SourceURL: req.SourceURL},
	})
	if err != nil {
		if errors.Is(err, jobs.ErrDuplicateJob) {
			return appErrors.Clone(appErrors.ErrConflict, "enrichment already in progress")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue enrichment")
	}
	s.logger.Info("mini-site enrichment queued", zap.String("minisite_id", site.ID), zap.String("source_url", req.SourceURL))
	return nil
}

// HandleEnrichJob is the queue handler for EnrichJobType.
func (s *MiniSiteService) HandleEnrichJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(EnrichPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", job.Payload, job.Type)
	}
	site, err := s.load(ctx, payload.MiniSiteID)
	if err != nil {
		if appErrors.Is(err, appErrors.ErrNotFound) {
			s.logger.Warn("enrichment target vanished", zap.String("minisite_id", payload.MiniSiteID))
			return nil
		}
		return err
	}
	_, err = s.enrich(ctx, site, payload.SourceURL)
	return err
}

// SetPublished toggles visibility. Publishing requires a hero section.
func (s *MiniSiteService) SetPublished(ctx context.Context, id string, published bool, actor *models.JWTClaims) (*models.MiniSite, error) {
	site, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedExhibitor(ctx, site.ExhibitorID, actor); err != nil {
		return nil, err
	}
	if published && !site.Sections.Has(models.SectionHero) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "publishing requires a hero section")
	}

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.SetPublished(ctx, tx, site.ID, published); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "mini-site not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update mini-site")
		}
		site.Published = published
		if !published {
			return nil
		}
		return s.emit(ctx, tx, outbox.MiniSitePublished, site)
	})
	if err != nil {
		return nil, err
	}
	s.evictPublic(ctx, site.ExhibitorID)
	s.logger.Info("mini-site visibility changed", zap.String("minisite_id", site.ID), zap.Bool("published", published))
	return site, nil
}

// UpdateTheme changes theme and palette. Blank colours fall back to the defaults.
func (s *MiniSiteService) UpdateTheme(ctx context.Context, id string, req dto.UpdateThemeRequest, actor *models.JWTClaims) (*models.MiniSite, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid theme payload")
	}
	site, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedExhibitor(ctx, site.ExhibitorID, actor); err != nil {
		return nil, err
	}

	colors := req.Colors
	defaults := models.DefaultPalette()
	if colors.Primary == "" {
		colors.Primary = defaults.Primary
	}
	if colors.Secondary == "" {
		colors.Secondary = defaults.Secondary
	}
	if colors.Accent == "" {
		colors.Accent = defaults.Accent
	}
	if err := s.repo.UpdateTheme(ctx, site.ID, req.Theme, colors); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mini-site not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update theme")
	}
	site.Theme = req.Theme
	site.CustomColors = colors
	s.evictPublic(ctx, site.ExhibitorID)
	return site, nil
}

// RecordView bumps the view counter with a single atomic increment and returns the new total.
func (s *MiniSiteService) RecordView(ctx context.Context, id string) (int64, error) {
	views, err := s.repo.IncrementViews(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "mini-site not found")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record view")
	}
	return views, nil
}

// Get returns a mini-site. Unpublished sites are only visible to their owner and admins.
func (s *MiniSiteService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.MiniSite, error) {
	site, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, site, actor)
}

// GetByExhibitor returns the mini-site of an exhibitor under the same visibility rule as Get.
func (s *MiniSiteService) GetByExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error) {
	site, err := s.repo.FindByExhibitor(ctx, exhibitorID)
	if err != nil {
		return nil, mapMiniSiteLookup(err)
	}
	return s.visible(ctx, site, actor)
}

// GetPublic serves a published mini-site to anonymous readers and records the view.
func (s *MiniSiteService) GetPublic(ctx context.Context, exhibitorID string) (*models.MiniSite, error) {
	key := PublicMiniSiteCacheKey(exhibitorID)
	var site *models.MiniSite
	var cached models.MiniSite
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		site = &cached
	} else {
		found, err := s.repo.FindByExhibitor(ctx, exhibitorID)
		if err != nil {
			return nil, mapMiniSiteLookup(err)
		}
		if !found.Published {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mini-site not found")
		}
		_ = s.cache.Set(ctx, key, found, s.cfg.CacheTTL)
		site = found
	}

	views, err := s.repo.IncrementViews(ctx, site.ID)
	if err != nil {
		s.logger.Warn("mini-site view not recorded", zap.String("minisite_id", site.ID), zap.Error(err))
	} else {
		site.Views = views
	}
	return site, nil
}

func (s *MiniSiteService) enrich(ctx context.Context, site *models.MiniSite, sourceURL string) (*dto.EnrichmentResult, error) {
	ctx, span := tracer.Start(ctx, "minisite.enrich")
	defer span.End()
	span.SetAttributes(attribute.String("minisite.id", site.ID), attribute.String("source.url", sourceURL))

	result, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		s.metrics.RecordEnrichment(enrichSourceFailed)
		s.logger.Warn("mini-site enrichment source unavailable",
			zap.String("minisite_id", site.ID),
			zap.String("source_url", sourceURL),
			zap.Error(err),
		)
		return &dto.EnrichmentResult{MiniSite: site, AddedSections: []models.SectionType{}, FieldsFilled: []string{}, SourceFailed: true}, nil
	}
	result.Logo = scraper.NormalizeURL(result.Logo, sourceURL)
	result.Phone = scraper.NormalizePhone(result.Phone)

	var added []models.SectionType
	var filled []string
	current := site
	first := true
	err = retryStale(ctx, s.retry, func() { s.metrics.RecordRetry("enrich") }, func() error {
		if !first {
			fresh, err := s.load(ctx, site.ID)
			if err != nil {
				return err
			}
			current = fresh
		}
		first = false

		added, filled = applyEnrichment(&current.Sections, result, sourceURL)
		if len(added) == 0 && len(filled) == 0 {
			return nil
		}
		ok, err := s.repo.UpdateSections(ctx, current, current.LastUpdated)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save mini-site")
		}
		if !ok {
			return errStaleWrite
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errStaleWrite) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "mini-site was modified concurrently, please retry")
		}
		return nil, err
	}

	outcome := enrichUnchanged
	if len(added) > 0 || len(filled) > 0 {
		outcome = enrichEnriched
		s.evictPublic(ctx, current.ExhibitorID)
	}
	s.metrics.RecordEnrichment(outcome)
	s.logger.Info("mini-site enriched",
		zap.String("minisite_id", current.ID),
		zap.Int("sections_added", len(added)),
		zap.Strings("fields_filled", filled),
	)
	if added == nil {
		added = []models.SectionType{}
	}
	if filled == nil {
		filled = []string{}
	}
	return &dto.EnrichmentResult{MiniSite: current, AddedSections: added, FieldsFilled: filled}, nil
}

func (s *MiniSiteService) load(ctx context.Context, id string) (*models.MiniSite, error) {
	site, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapMiniSiteLookup(err)
	}
	return site, nil
}

func (s *MiniSiteService) ownedExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.Exhibitor, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	exhibitor, err := s.exhibitors.FindByID(ctx, exhibitorID)
	if err != nil {
		return nil, mapExhibitorLookup(err)
	}
	if !actor.IsAdmin() && exhibitor.UserID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return exhibitor, nil
}

func (s *MiniSiteService) visible(ctx context.Context, site *models.MiniSite, actor *models.JWTClaims) (*models.MiniSite, error) {
	if site.Published {
		return site, nil
	}
	if actor != nil {
		if _, err := s.ownedExhibitor(ctx, site.ExhibitorID, actor); err == nil {
			return site, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "mini-site not found")
}

func (s *MiniSiteService) emit(ctx context.Context, tx *sqlx.Tx, eventType string, site *models.MiniSite) error {
	evt, err := outbox.NewEvent(miniSiteAggregate, site.ID, eventType, miniSiteEvent{
		MiniSiteID:  site.ID,
		ExhibitorID: site.ExhibitorID,
		Published:   site.Published,
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode event")
	}
	if err := s.events.Insert(ctx, tx, evt); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record event")
	}
	return nil
}

func (s *MiniSiteService) evictPublic(ctx context.Context, exhibitorID string) {
	_ = s.cache.Evict(ctx, PublicMiniSiteCacheKey(exhibitorID))
}

func seedSections(exhibitor *models.Exhibitor) models.Sections {
	return models.Sections{
		models.NewSection(models.HeroContent{
			Title:       exhibitor.CompanyName,
			Subtitle:    exhibitor.Sector,
			Description: exhibitor.Description,
			Logo:        exhibitor.LogoURL,
			CTAText:     heroCTA,
			CTALink:     "#contact",
		}),
		models.NewSection(models.AboutContent{
			Title:       aboutTitle,
			Description: exhibitor.Description,
		}),
	}
}

// applyEnrichment merges scraped data into sections. Missing certifications, gallery and testimonials
// sections are always added, from the page when it has them and from stock content otherwise.
// Sections of an existing type are never replaced and non-empty fields are never overwritten.
func applyEnrichment(sections *models.Sections, res scraper.Result, sourceURL string) ([]models.SectionType, []string) {
	var filled []string

	if i := sections.Index(models.SectionHero); i >= 0 {
		if hero, ok := (*sections)[i].Content.(models.HeroContent); ok {
			if hero.Logo == "" && res.Logo != "" {
				hero.Logo = res.Logo
				filled = append(filled, "hero.logo")
			}
			if hero.Description == "" && res.Description != "" {
				hero.Description = res.Description
				filled = append(filled, "hero.description")
			}
			(*sections)[i] = models.NewSection(hero)
		}
	}

	if i := sections.Index(models.SectionContact); i >= 0 {
		if contact, ok := (*sections)[i].Content.(models.ContactContent); ok {
			if contact.Email == "" && res.Email != "" {
				contact.Email = res.Email
				filled = append(filled, "contact.email")
			}
			if contact.Phone == "" && res.Phone != "" {
				contact.Phone = res.Phone
				filled = append(filled, "contact.phone")
			}
			if contact.Address == "" && res.Address != "" {
				contact.Address = res.Address
				filled = append(filled, "contact.address")
			}
			(*sections)[i] = models.NewSection(contact)
		}
	}

	var candidates []models.Section
	certifications := defaultCertifications()
	if len(res.Certifications) > 0 {
		certifications = models.CertificationsContent{Title: certificationsTitle, Items: make([]models.Certification, 0, len(res.Certifications))}
		for _, name := range res.Certifications {
			certifications.Items = append(certifications.Items, models.Certification{Name: name})
		}
	}
	candidates = append(candidates, models.NewSection(certifications))

	gallery := defaultGallery()
	if len(res.Images) > 0 {
		gallery = models.GalleryContent{Title: galleryTitle, Images: make([]models.GalleryImage, 0, len(res.Images))}
		for _, img := range res.Images {
			gallery.Images = append(gallery.Images, models.GalleryImage{URL: img.URL, Caption: img.Alt})
		}
	}
	candidates = append(candidates, models.NewSection(gallery))

	testimonials := defaultTestimonials()
	if len(res.Testimonials) > 0 {
		testimonials = models.TestimonialsContent{Title: testimonialsTitle, Items: make([]models.Testimonial, 0, len(res.Testimonials))}
		for _, t := range res.Testimonials {
			testimonials.Items = append(testimonials.Items, models.Testimonial{Name: t.Author, Text: t.Text})
		}
	}
	candidates = append(candidates, models.NewSection(testimonials))

	if res.Email != "" || res.Phone != "" || res.Address != "" {
		candidates = append(candidates, models.NewSection(models.ContactContent{
			Title:   contactTitle,
			Email:   res.Email,
			Phone:   res.Phone,
			Address: res.Address,
			Website: sourceURL,
		}))
	}

	added := sections.AppendMissing(candidates...)
	return added, filled
}

func mapMiniSiteLookup(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "mini-site not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mini-site")
}
