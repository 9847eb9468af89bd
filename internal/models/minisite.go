package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Default mini-site palette.
const (
	DefaultPrimaryColor   = "#1e40af"
	DefaultSecondaryColor = "#3b82f6"
	DefaultAccentColor    = "#60a5fa"
)

// ColorPalette is the custom colour set of a mini-site.
type ColorPalette struct {
	Primary   string `json:"primary" validate:"omitempty,hexcolor"`
	Secondary string `json:"secondary" validate:"omitempty,hexcolor"`
	Accent    string `json:"accent" validate:"omitempty,hexcolor"`
}

// DefaultPalette returns the stock SIPORTS colours.
func DefaultPalette() ColorPalette {
	return ColorPalette{Primary: DefaultPrimaryColor, Secondary: DefaultSecondaryColor, Accent: DefaultAccentColor}
}

// Value marshals the palette to JSON for persistence.
func (p ColorPalette) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal color palette: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the palette.
func (p *ColorPalette) Scan(value interface{}) error {
	data, err := jsonBytes(value, "ColorPalette")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*p = DefaultPalette()
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal color palette: %w", err)
	}
	return nil
}

// MiniSite is the per-exhibitor content document.
type MiniSite struct {
	ID           string       `db:"id" json:"id"`
	ExhibitorID  string       `db:"exhibitor_id" json:"exhibitorId"`
	Theme        string       `db:"theme" json:"theme"`
	CustomColors ColorPalette `db:"custom_colors" json:"customColors"`
	Sections     Sections     `db:"sections" json:"sections"`
	Published    bool         `db:"published" json:"published"`
	Views        int64        `db:"views" json:"views"`
	LastUpdated  time.Time    `db:"last_updated" json:"lastUpdated"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
}
