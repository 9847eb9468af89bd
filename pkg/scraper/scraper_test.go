package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureHTML = `<!doctype html>
<html>
<head>
  <title>Marsa Logistics | Port services</title>
  <meta name="description" content="Terminal operator   serving the Atlantic coast.">
</head>
<body>
  <header><img class="site-logo" src="//cdn.marsa.example/logo.png" alt="Marsa"></header>
  <h1>Marsa Logistics</h1>
  <section id="gallery">
    <img src="/img/quay.jpg" alt="Quay 4">
    <img src="/img/crane.jpg" alt="Crane">
    <img src="/img/quay.jpg" alt="duplicate">
    <img src="data:image/png;base64,AAAA">
  </section>
  <ul>
    <li>ISO 9001:2015 Quality management</li>
    <li>ISO 14001 Environmental management</li>
    <li>Our history</li>
  </ul>
  <blockquote>Reliable partner for ten years.<cite>- Port of Casablanca</cite></blockquote>
  <footer>
    <a href="mailto:contact@marsa.example?subject=hello">Write to us</a>
    <a href="tel:00212 522-123 456">Call</a>
    <address>Bd des Almohades, Casablanca</address>
  </footer>
</body>
</html>`

func TestExtractFixture(t *testing.T) {
	res := Extract([]byte(fixtureHTML), "https://www.marsa.example/about", 5)

	assert.Equal(t, "Marsa Logistics | Port services", res.Title)
	assert.Equal(t, "Terminal operator serving the Atlantic coast.", res.Description)
	assert.Equal(t, "https://cdn.marsa.example/logo.png", res.Logo)
	assert.Equal(t, "contact@marsa.example", res.Email)
	assert.Equal(t, "+212522123456", res.Phone)
	assert.Equal(t, "Bd des Almohades, Casablanca", res.Address)

	require.Len(t, res.Images, 2)
	assert.Equal(t, "https://www.marsa.example/img/quay.jpg", res.Images[0].URL)
	assert.Equal(t, "Quay 4", res.Images[0].Alt)

	assert.Equal(t, []string{"ISO 9001:2015 Quality management", "ISO 14001 Environmental management"}, res.Certifications)

	require.Len(t, res.Testimonials, 1)
	assert.Equal(t, "Reliable partner for ten years.", res.Testimonials[0].Text)
	assert.Equal(t, "Port of Casablanca", res.Testimonials[0].Author)
}

func TestExtractMalformedInput(t *testing.T) {
	assert.True(t, Extract(nil, "", 5).Empty())
	assert.True(t, Extract([]byte("<<<>>>not html"), "https://x.example", 5).Empty())

	res := Extract([]byte(`<html><title>Only title`), "", 5)
	assert.Equal(t, "Only title", res.Title)
}

func TestExtractImageLimit(t *testing.T) {
	res := Extract([]byte(fixtureHTML), "https://www.marsa.example", 1)
	assert.Len(t, res.Images, 1)

	res = Extract([]byte(fixtureHTML), "https://www.marsa.example", 0)
	assert.Empty(t, res.Images)
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		raw, base, want string
	}{
		{"//cdn.example/logo.png", "http://site.example", "http://cdn.example/logo.png"},
		{"//cdn.example/logo.png", "", "https://cdn.example/logo.png"},
		{"/logo.png", "https://site.example/a/b", "https://site.example/logo.png"},
		{"img/logo.png", "https://site.example/a/", "https://site.example/a/img/logo.png"},
		{"https://other.example/x.png", "https://site.example", "https://other.example/x.png"},
		{"/logo.png", "", ""},
		{"data:image/png;base64,AA", "https://site.example", ""},
		{"ftp://site.example/logo.png", "", ""},
		{"   ", "https://site.example", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeURL(tc.raw, tc.base), tc.raw)
	}
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+212522123456", NormalizePhone("+212 522-12.34.56"))
	assert.Equal(t, "+33612345678", NormalizePhone("0033 6 12 34 56 78"))
	assert.Equal(t, "+0522123456", NormalizePhone("05 22 12 34 56"))
	assert.Equal(t, "", NormalizePhone("12-34"))
	assert.Equal(t, "", NormalizePhone("call us"))
}

func TestFetcherFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(fixtureHTML))
	}))
	defer srv.Close()

	f := NewFetcher(Config{UserAgent: "test-agent", MaxImages: 3})
	res, err := f.Fetch(context.Background(), srv.URL+"/about")
	require.NoError(t, err)
	assert.Equal(t, "contact@marsa.example", res.Email)
	assert.Equal(t, srv.URL+"/img/quay.jpg", res.Images[0].URL)
}

func TestFetcherNon200IsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewFetcher(Config{}).Fetch(context.Background(), srv.URL)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
}

func TestFetcherRejectsUnsupportedURL(t *testing.T) {
	_, err := NewFetcher(Config{}).Fetch(context.Background(), "file:///etc/passwd")
	var fe *FetchError
	assert.True(t, errors.As(err, &fe))
}
