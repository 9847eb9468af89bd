package dto

import "github.com/noah-isme/siports-api/internal/models"

// CreateExhibitorRequest registers an exhibitor profile.
type CreateExhibitorRequest struct {
	UserID      string                   `json:"userId" validate:"required"`
	CompanyName string                   `json:"companyName" validate:"required,max=200"`
	Category    models.ExhibitorCategory `json:"category" validate:"required,oneof=institutional port-industry port-operations academic"`
	Sector      string                   `json:"sector" validate:"max=120"`
	Description string                   `json:"description" validate:"max=5000"`
	LogoURL     string                   `json:"logoUrl" validate:"omitempty,url"`
	Website     string                   `json:"website" validate:"omitempty,url"`
	ContactInfo models.ContactInfo       `json:"contactInfo"`
	Featured    bool                     `json:"featured"`
}

// ExhibitorQuery filters exhibitor listings.
type ExhibitorQuery struct {
	Category string `form:"category"`
	Verified *bool  `form:"verified"`
	Featured *bool  `form:"featured"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}
