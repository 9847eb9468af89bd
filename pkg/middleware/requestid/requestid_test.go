package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen = Value(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(headerKey, header)
	}
	r.ServeHTTP(w, req)
	return w, seen
}

func TestReusesInboundID(t *testing.T) {
	w, seen := serve(t, "edge-42")
	assert.Equal(t, "edge-42", seen)
	assert.Equal(t, "edge-42", w.Header().Get(headerKey))
}

func TestGeneratesIDWhenMissingOrMalformed(t *testing.T) {
	for _, inbound := range []string{"", "has space", strings.Repeat("a", maxLength+1)} {
		w, seen := serve(t, inbound)
		_, err := uuid.Parse(seen)
		require.NoError(t, err, "inbound %q", inbound)
		assert.Equal(t, seen, w.Header().Get(headerKey))
	}
}
