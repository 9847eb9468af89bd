package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SectionType keys the Section variant.
type SectionType string

const (
	SectionHero           SectionType = "hero"
	SectionAbout          SectionType = "about"
	SectionProducts       SectionType = "products"
	SectionServices       SectionType = "services"
	SectionGallery        SectionType = "gallery"
	SectionTestimonials   SectionType = "testimonials"
	SectionCertifications SectionType = "certifications"
	SectionContact        SectionType = "contact"
)

// SectionContent is implemented by every type-specific section payload.
type SectionContent interface {
	SectionType() SectionType
}

type HeroContent struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle,omitempty"`
	Description     string `json:"description,omitempty"`
	Logo            string `json:"logo,omitempty"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	CTAText         string `json:"ctaText,omitempty"`
	CTALink         string `json:"ctaLink,omitempty"`
}

type AboutContent struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Features    []string `json:"features,omitempty"`
}

// CatalogItem is one product or service entry.
type CatalogItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

type ProductsContent struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Items       []CatalogItem `json:"items,omitempty"`
}

type ServicesContent struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Items       []CatalogItem `json:"items,omitempty"`
}

type GalleryImage struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type GalleryContent struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Images      []GalleryImage `json:"images,omitempty"`
}

type Testimonial struct {
	Name     string `json:"name,omitempty"`
	Position string `json:"position,omitempty"`
	Text     string `json:"text"`
	Avatar   string `json:"avatar,omitempty"`
}

type TestimonialsContent struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Items       []Testimonial `json:"items,omitempty"`
}

type Certification struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Year        string `json:"year,omitempty"`
}

type CertificationsContent struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Items       []Certification `json:"items,omitempty"`
}

type ContactContent struct {
	Title   string `json:"title"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Website string `json:"website,omitempty"`
}

func (HeroContent) SectionType() SectionType           { return SectionHero }
func (AboutContent) SectionType() SectionType          { return SectionAbout }
func (ProductsContent) SectionType() SectionType       { return SectionProducts }
func (ServicesContent) SectionType() SectionType       { return SectionServices }
func (GalleryContent) SectionType() SectionType        { return SectionGallery }
func (TestimonialsContent) SectionType() SectionType   { return SectionTestimonials }
func (CertificationsContent) SectionType() SectionType { return SectionCertifications }
func (ContactContent) SectionType() SectionType        { return SectionContact }

// Section is a tagged variant: Type always matches Content.SectionType().
type Section struct {
	Type    SectionType
	Content SectionContent
}

// NewSection wraps content, deriving the type tag from it.
func NewSection(content SectionContent) Section {
	return Section{Type: content.SectionType(), Content: content}
}

type sectionWire struct {
	Type    SectionType     `json:"type"`
	Content json.RawMessage `json:"content"`
}

// MarshalJSON encodes the section as {"type": ..., "content": {...}}.
func (s Section) MarshalJSON() ([]byte, error) {
	if s.Content == nil {
		return nil, fmt.Errorf("section %q has no content", s.Type)
	}
	if s.Content.SectionType() != s.Type {
		return nil, fmt.Errorf("section type %q does not match content %q", s.Type, s.Content.SectionType())
	}
	content, err := json.Marshal(s.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sectionWire{Type: s.Type, Content: content})
}

// UnmarshalJSON decodes content into the concrete shape selected by type.
func (s *Section) UnmarshalJSON(data []byte) error {
	var wire sectionWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	content, err := decodeSectionContent(wire.Type, wire.Content)
	if err != nil {
		return err
	}
	s.Type = wire.Type
	s.Content = content
	return nil
}

func decodeSectionContent(t SectionType, raw json.RawMessage) (SectionContent, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	switch t {
	case SectionHero:
		var c HeroContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case SectionAbout:
		var c AboutContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case SectionProducts:
		var c ProductsContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case SectionServices:
		var c ServicesContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case SectionGallery:
		var c GalleryContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case SectionTestimonials:
		var c TestimonialsContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case SectionCertifications:
		var c CertificationsContent
		err := json.Unmarshal(raw, &c)
		return c, err
	case SectionContact:
		var c ContactContent
		err := json.Unmarshal(raw, &c)
		return c, err
	}
	return nil, fmt.Errorf("unknown section type %q", t)
}

// Sections is the ordered section list stored as JSONB.
type Sections []Section

// Has reports whether a section of type t exists.
func (ss Sections) Has(t SectionType) bool {
	return ss.Index(t) >= 0
}

// Index returns the position of the first section of type t, or -1.
func (ss Sections) Index(t SectionType) int {
	for i, s := range ss {
		if s.Type == t {
			return i
		}
	}
	return -1
}

// AppendMissing appends each candidate whose type is not yet present and returns the types added.
// Existing sections are never replaced.
func (ss *Sections) AppendMissing(candidates ...Section) []SectionType {
	var added []SectionType
	for _, c := range candidates {
		if ss.Has(c.Type) {
			continue
		}
		*ss = append(*ss, c)
		added = append(added, c.Type)
	}
	return added
}

// Value marshals sections to JSON for persistence.
func (ss Sections) Value() (driver.Value, error) {
	if ss == nil {
		ss = Sections{}
	}
	data, err := json.Marshal([]Section(ss))
	if err != nil {
		return nil, fmt.Errorf("marshal sections: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSONB payloads into sections.
func (ss *Sections) Scan(value interface{}) error {
	data, err := jsonBytes(value, "Sections")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*ss = Sections{}
		return nil
	}
	var out []Section
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("unmarshal sections: %w", err)
	}
	*ss = out
	return nil
}
