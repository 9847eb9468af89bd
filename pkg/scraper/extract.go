package scraper

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Image is a gallery candidate found on the page.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Testimonial is a quoted customer statement.
type Testimonial struct {
	Text   string `json:"text"`
	Author string `json:"author,omitempty"`
}

// Result holds the fields recovered from an exhibitor website. Every field may be empty.
type Result struct {
	Title          string        `json:"title,omitempty"`
	Description    string        `json:"description,omitempty"`
	Logo           string        `json:"logo,omitempty"`
	Email          string        `json:"email,omitempty"`
	Phone          string        `json:"phone,omitempty"`
	Address        string        `json:"address,omitempty"`
	Images         []Image       `json:"images,omitempty"`
	Certifications []string      `json:"certifications,omitempty"`
	Testimonials   []Testimonial `json:"testimonials,omitempty"`
}

// Empty reports whether nothing was recovered.
func (r Result) Empty() bool {
	return r.Title == "" && r.Description == "" && r.Logo == "" && r.Email == "" && r.Phone == "" &&
		r.Address == "" && len(r.Images) == 0 && len(r.Certifications) == 0 && len(r.Testimonials) == 0
}

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`)
	certPattern  = regexp.MustCompile(`(?i)\b(iso\s?\d{3,5}(?::\d{4})?|certifi|accr[ée]dit|label)`)
	spacePattern = regexp.MustCompile(`\s+`)
)

const (
	maxCertLength        = 120
	maxTestimonialLength = 600
	maxTestimonials      = 6
	maxCertifications    = 10
)

// Extract pulls best-effort company details out of an HTML document. Malformed or empty input
// produces a partial or empty Result, never an error.
func Extract(html []byte, baseURL string, maxImages int) Result {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return Result{}
	}

	var res Result
	res.Title = firstNonEmpty(
		metaContent(doc, `meta[property="og:site_name"]`),
		clean(doc.Find("title").First().Text()),
		clean(doc.Find("h1").First().Text()),
	)
	res.Description = firstNonEmpty(
		metaContent(doc, `meta[name="description"]`),
		metaContent(doc, `meta[property="og:description"]`),
	)

	logo := findLogo(doc)
	res.Logo = NormalizeURL(logo, baseURL)

	res.Email = findEmail(doc)
	res.Phone = findPhone(doc)
	res.Address = firstNonEmpty(
		clean(doc.Find("address").First().Text()),
		clean(doc.Find(`[itemprop="address"]`).First().Text()),
	)

	res.Images = collectImages(doc, baseURL, res.Logo, maxImages)
	res.Certifications = collectCertifications(doc)
	res.Testimonials = collectTestimonials(doc)
	return res
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return clean(v)
}

func findLogo(doc *goquery.Document) string {
	var logo string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if !ok || strings.TrimSpace(src) == "" {
			return true
		}
		hint := strings.ToLower(src + " " + s.AttrOr("alt", "") + " " + s.AttrOr("class", "") + " " + s.AttrOr("id", ""))
		if strings.Contains(hint, "logo") {
			logo = src
			return false
		}
		return true
	})
	if logo != "" {
		return logo
	}
	if v, ok := doc.Find(`link[rel="apple-touch-icon"]`).First().Attr("href"); ok {
		return v
	}
	if v := metaContent(doc, `meta[property="og:image"]`); v != "" {
		return v
	}
	v, _ := doc.Find(`link[rel="icon"], link[rel="shortcut icon"]`).First().Attr("href")
	return v
}

func findEmail(doc *goquery.Document) string {
	var email string
	doc.Find(`a[href^="mailto:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimPrefix(s.AttrOr("href", ""), "mailto:")
		if i := strings.IndexByte(href, '?'); i >= 0 {
			href = href[:i]
		}
		if emailPattern.MatchString(href) {
			email = strings.TrimSpace(href)
			return false
		}
		return true
	})
	if email != "" {
		return email
	}
	return emailPattern.FindString(doc.Find("body").Text())
}

func findPhone(doc *goquery.Document) string {
	var phone string
	doc.Find(`a[href^="tel:"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		phone = NormalizePhone(strings.TrimPrefix(s.AttrOr("href", ""), "tel:"))
		return phone == ""
	})
	if phone != "" {
		return phone
	}
	for _, candidate := range phonePattern.FindAllString(doc.Find("footer, address, .contact, #contact").Text(), -1) {
		if p := NormalizePhone(candidate); p != "" {
			return p
		}
	}
	return ""
}

func collectImages(doc *goquery.Document, baseURL, logo string, limit int) []Image {
	if limit <= 0 {
		return nil
	}
	seen := map[string]struct{}{}
	if logo != "" {
		seen[logo] = struct{}{}
	}
	var images []Image
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		if src == "" {
			src = s.AttrOr("data-src", "")
		}
		hint := strings.ToLower(src + " " + s.AttrOr("class", "") + " " + s.AttrOr("alt", ""))
		if strings.Contains(hint, "logo") || strings.Contains(hint, "icon") || strings.HasSuffix(strings.ToLower(src), ".svg") {
			return true
		}
		u := NormalizeURL(src, baseURL)
		if u == "" {
			return true
		}
		if _, dup := seen[u]; dup {
			return true
		}
		seen[u] = struct{}{}
		images = append(images, Image{URL: u, Alt: clean(s.AttrOr("alt", ""))})
		return len(images) < limit
	})
	return images
}

func collectCertifications(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var certs []string
	doc.Find("li, h2, h3, h4, p, span, img[alt]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := clean(s.Text())
		if goquery.NodeName(s) == "img" {
			text = clean(s.AttrOr("alt", ""))
		}
		if text == "" || len([]rune(text)) > maxCertLength || !certPattern.MatchString(text) {
			return true
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return true
		}
		seen[key] = struct{}{}
		certs = append(certs, text)
		return len(certs) < maxCertifications
	})
	return certs
}

func collectTestimonials(doc *goquery.Document) []Testimonial {
	var items []Testimonial
	doc.Find("blockquote, .testimonial, [class*=testimonial] q").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		author := clean(s.Find("cite, footer, .author").First().Text())
		quote := s.Clone()
		quote.Find("cite, footer, .author").Remove()
		text := clean(quote.Text())
		if text == "" || len([]rune(text)) > maxTestimonialLength {
			return true
		}
		for _, existing := range items {
			if existing.Text == text {
				return true
			}
		}
		items = append(items, Testimonial{Text: text, Author: strings.TrimLeft(author, "-\u2014 ")})
		return len(items) < maxTestimonials
	})
	return items
}

func clean(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
