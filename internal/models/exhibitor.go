package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExhibitorCategory classifies an exhibitor on the show floor.
type ExhibitorCategory string

const (
	CategoryInstitutional  ExhibitorCategory = "institutional"
	CategoryPortIndustry   ExhibitorCategory = "port-industry"
	CategoryPortOperations ExhibitorCategory = "port-operations"
	CategoryAcademic       ExhibitorCategory = "academic"
)

// ContactInfo is stored as JSONB on the exhibitor row.
type ContactInfo struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Country string `json:"country,omitempty"`
}

// Value marshals contact info to JSON for persistence.
func (c ContactInfo) Value() (driver.Value, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal contact info: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into contact info.
func (c *ContactInfo) Scan(value interface{}) error {
	data, err := jsonBytes(value, "ContactInfo")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*c = ContactInfo{}
		return nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("unmarshal contact info: %w", err)
	}
	return nil
}

// Exhibitor is a company profile that owns time slots and at most one mini-site.
type Exhibitor struct {
	ID          string            `db:"id" json:"id"`
	UserID      string            `db:"user_id" json:"userId"`
	CompanyName string            `db:"company_name" json:"companyName"`
	Category    ExhibitorCategory `db:"category" json:"category"`
	Sector      string            `db:"sector" json:"sector"`
	Description string            `db:"description" json:"description"`
	LogoURL     string            `db:"logo_url" json:"logoUrl,omitempty"`
	Website     string            `db:"website" json:"website,omitempty"`
	ContactInfo ContactInfo       `db:"contact_info" json:"contactInfo"`
	Verified    bool              `db:"verified" json:"verified"`
	Featured    bool              `db:"featured" json:"featured"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}

// ExhibitorFilter narrows exhibitor listings.
type ExhibitorFilter struct {
	Category string
	Verified *bool
	Featured *bool
	Search   string
	Page     int
	PageSize int
}

func jsonBytes(value interface{}, typeName string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", value, typeName)
	}
}
