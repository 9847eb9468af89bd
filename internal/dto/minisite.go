package dto

import "github.com/noah-isme/siports-api/internal/models"

// CreateMiniSiteRequest optionally names a website to enrich the new mini-site from.
type CreateMiniSiteRequest struct {
	SourceURL string `json:"sourceUrl" validate:"omitempty,url"`
}

// EnrichMiniSiteRequest names the website to scrape.
type EnrichMiniSiteRequest struct {
	SourceURL string `json:"sourceUrl" validate:"required,url"`
}

// PublishMiniSiteRequest toggles visibility.
type PublishMiniSiteRequest struct {
	Published *bool `json:"published" validate:"required"`
}

// UpdateThemeRequest changes the presentation of a mini-site.
type UpdateThemeRequest struct {
	Theme  string              `json:"theme" validate:"required,oneof=modern classic elegant corporate industrial"`
	Colors models.ColorPalette `json:"customColors"`
}

// EnrichmentResult reports what an enrichment pass changed.
type EnrichmentResult struct {
	MiniSite      *models.MiniSite     `json:"miniSite"`
	AddedSections []models.SectionType `json:"addedSections"`
	FieldsFilled  []string             `json:"fieldsFilled"`
	SourceFailed  bool                 `json:"sourceFailed"`
}

// RecordViewResponse returns the updated view counter.
type RecordViewResponse struct {
	Views int64 `json:"views"`
}
