package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/middleware"
	"github.com/noah-isme/siports-api/internal/models"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
	"github.com/noah-isme/siports-api/pkg/response"
)

func testAuth(c *gin.Context) {
	role := c.GetHeader("X-Test-Role")
	if role == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: c.GetHeader("X-Test-User"), Role: models.UserRole(role)})
	c.Next()
}

func buildRouter(limited *bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	mw := RouteMiddleware{Auth: testAuth}
	if limited != nil {
		mw.AppointmentLimiter = func(c *gin.Context) {
			*limited = true
			c.Next()
		}
	}
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Exhibitors:   NewExhibitorHandler(&exhibitorServiceMock{}),
		Slots:        NewTimeSlotHandler(&timeSlotServiceMock{}),
		Appointments: NewAppointmentHandler(&appointmentServiceMock{requestCreated: true}, &agendaExporterMock{resp: &dto.AgendaExport{Filename: "agenda.csv", ContentType: "text/csv"}}),
		MiniSites:    NewMiniSiteHandler(&miniSiteServiceMock{}),
	}, mw)
	return router
}

func serve(router *gin.Engine, method, path, role, user string, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req, _ := http.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
		req.Header.Set("X-Test-User", user)
	}
	return performRequest(router, req)
}

func performRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesEnforceRoles(t *testing.T) {
	limited := false
	router := buildRouter(&limited)
	visitor := string(models.RoleVisitor)
	exhibitor := string(models.RoleExhibitor)
	admin := string(models.RoleAdmin)

	cases := []struct {
		name   string
		method string
		path   string
		role   string
		user   string
		body   string
		want   int
	}{
		{"anonymous list", http.MethodGet, "/api/v1/exhibitors", "", "", "", http.StatusUnauthorized},
		{"visitor list", http.MethodGet, "/api/v1/exhibitors", visitor, "v-1", "", http.StatusOK},
		{"visitor cannot register exhibitor", http.MethodPost, "/api/v1/exhibitors", visitor, "v-1", `{}`, http.StatusForbidden},
		{"visitor cannot verify", http.MethodPost, "/api/v1/exhibitors/ex-1/verify", visitor, "v-1", "", http.StatusForbidden},
		{"admin verifies", http.MethodPost, "/api/v1/exhibitors/ex-1/verify", admin, "a-1", "", http.StatusOK},
		{"visitor cannot create slot", http.MethodPost, "/api/v1/exhibitors/ex-1/slots", visitor, "v-1", `{}`, http.StatusForbidden},
		{"exhibitor creates slot", http.MethodPost, "/api/v1/exhibitors/ex-1/slots", exhibitor, "e-1", `{}`, http.StatusCreated},
		{"exhibitor cannot request", http.MethodPost, "/api/v1/appointments", exhibitor, "e-1", `{"timeSlotId":"slot-1"}`, http.StatusForbidden},
		{"visitor requests", http.MethodPost, "/api/v1/appointments", visitor, "v-1", `{"timeSlotId":"slot-1"}`, http.StatusCreated},
		{"visitor cannot confirm", http.MethodPost, "/api/v1/appointments/appt-1/confirm", visitor, "v-1", "", http.StatusForbidden},
		{"visitor cancels", http.MethodPost, "/api/v1/appointments/appt-1/cancel", visitor, "v-1", "", http.StatusOK},
		{"own appointments", http.MethodGet, "/api/v1/visitors/v-1/appointments", visitor, "v-1", "", http.StatusOK},
		{"someone else's appointments", http.MethodGet, "/api/v1/visitors/v-2/appointments", visitor, "v-1", "", http.StatusForbidden},
		{"agenda export", http.MethodGet, "/api/v1/exhibitors/ex-1/appointments/export", exhibitor, "e-1", "", http.StatusOK},
		{"visitor cannot publish", http.MethodPatch, "/api/v1/minisites/site-1/publish", visitor, "v-1", `{"published":true}`, http.StatusForbidden},
		{"anonymous view", http.MethodPost, "/api/v1/minisites/site-1/views", "", "", "", http.StatusOK},
		{"anonymous public read", http.MethodGet, "/api/v1/public/minisites/ex-1", "", "", "", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := serve(router, tc.method, tc.path, tc.role, tc.user, tc.body)
			assert.Equal(t, tc.want, resp.Code, resp.Body.String())
		})
	}
	assert.True(t, limited)
}

func TestRoutesWithoutLimiter(t *testing.T) {
	router := buildRouter(nil)
	resp := serve(router, http.MethodPost, "/api/v1/appointments", string(models.RolePartner), "p-1", `{"timeSlotId":"slot-1"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
}

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := NewMetricsHandler(nil, ReadinessCheck{Name: "postgres", Check: func(ctx context.Context) error { return nil }})
	router := gin.New()
	router.GET("/ready", healthy.Ready)
	router.GET("/metrics", healthy.Prometheus)
	router.GET("/health", healthy.Health)

	assert.Equal(t, http.StatusOK, performRequest(router, httptest.NewRequest(http.MethodGet, "/ready", nil)).Code)
	assert.Equal(t, http.StatusOK, performRequest(router, httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	assert.Equal(t, http.StatusServiceUnavailable, performRequest(router, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)

	failing := NewMetricsHandler(http.NotFoundHandler(), ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error { return errors.New("connection refused") }})
	router = gin.New()
	router.GET("/ready", failing.Ready)
	resp := performRequest(router, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Contains(t, resp.Body.String(), "connection refused")
}
