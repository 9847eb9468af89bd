package scraper

import (
	"net/url"
	"strings"
	"unicode"
)

const minPhoneDigits = 6

// NormalizeURL resolves raw against base. Protocol-relative URLs take the base scheme, or https
// when base has none. Unusable values yield "".
func NormalizeURL(raw, base string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") || strings.HasPrefix(raw, "javascript:") {
		return ""
	}

	baseURL, _ := url.Parse(strings.TrimSpace(base))
	if strings.HasPrefix(raw, "//") {
		scheme := "https"
		if baseURL != nil && (baseURL.Scheme == "http" || baseURL.Scheme == "https") {
			scheme = baseURL.Scheme
		}
		raw = scheme + ":" + raw
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		if ref.Scheme != "http" && ref.Scheme != "https" {
			return ""
		}
		return ref.String()
	}
	if baseURL == nil || !baseURL.IsAbs() {
		return ""
	}
	return baseURL.ResolveReference(ref).String()
}

// NormalizePhone keeps digits only and prefixes "+". A leading international "00" is dropped.
// Numbers shorter than six digits are rejected with "".
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	digits := strings.TrimPrefix(b.String(), "00")
	if len(digits) < minPhoneDigits {
		return ""
	}
	return "+" + digits
}
