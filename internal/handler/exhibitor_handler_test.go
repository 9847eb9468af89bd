package handler

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

func TestExhibitorHandlerCreate(t *testing.T) {
	mockSvc := &exhibitorServiceMock{createResp: &models.Exhibitor{ID: "ex-1", CompanyName: "Port Tanger Med"}}
	handler := NewExhibitorHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/exhibitors", jsonBody(t, dto.CreateExhibitorRequest{
		UserID:      "user-1",
		CompanyName: "Port Tanger Med",
		Category:    models.ExhibitorCategory("port-operations"),
	}), &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", mockSvc.createReq.UserID)

	var got models.Exhibitor
	decodeEnvelope(t, w, &got)
	assert.Equal(t, "ex-1", got.ID)
}

func TestExhibitorHandlerCreateInvalidBody(t *testing.T) {
	handler := NewExhibitorHandler(&exhibitorServiceMock{})
	c, w := newContext(http.MethodPost, "/exhibitors", bytes.NewBufferString(`{"userId":`), &models.JWTClaims{Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestExhibitorHandlerListPassesFilters(t *testing.T) {
	mockSvc := &exhibitorServiceMock{
		listResp:   []models.Exhibitor{{ID: "ex-1"}},
		pagination: &models.Pagination{Page: 2, PageSize: 5, TotalCount: 6},
	}
	handler := NewExhibitorHandler(mockSvc)
	c, w := newContext(http.MethodGet, "/exhibitors?category=academic&verified=true&page=2&page_size=5", nil, &models.JWTClaims{UserID: "v-1", Role: models.RoleVisitor})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "academic", mockSvc.listQuery.Category)
	require.NotNil(t, mockSvc.listQuery.Verified)
	assert.True(t, *mockSvc.listQuery.Verified)
	assert.Nil(t, mockSvc.listQuery.Featured)
	assert.Equal(t, 2, mockSvc.listQuery.Page)

	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 6, env.Pagination.TotalCount)
}

func TestExhibitorHandlerGetNotFound(t *testing.T) {
	handler := NewExhibitorHandler(&exhibitorServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "exhibitor not found")})
	c, w := newContext(http.MethodGet, "/exhibitors/missing", nil, nil)
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExhibitorHandlerVerifyForwardsActor(t *testing.T) {
	mockSvc := &exhibitorServiceMock{verifyResp: &models.Exhibitor{ID: "ex-1", Verified: true}}
	handler := NewExhibitorHandler(mockSvc)
	actor := &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
	c, w := newContext(http.MethodPost, "/exhibitors/ex-1/verify", nil, actor)

	handler.Verify(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Same(t, actor, mockSvc.verifyBy)
}
