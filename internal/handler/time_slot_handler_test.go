package handler

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/models"
	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

var exhibitorClaims = &models.JWTClaims{UserID: "owner-1", Role: models.RoleExhibitor}

func TestTimeSlotHandlerCreate(t *testing.T) {
	mockSvc := &timeSlotServiceMock{createResp: &models.TimeSlot{ID: "slot-1", Duration: 30}}
	handler := NewTimeSlotHandler(mockSvc)

	c, w := newContext(http.MethodPost, "/exhibitors/ex-1/slots", jsonBody(t, dto.CreateSlotRequest{
		Date: "2026-04-01", StartTime: "10:00", EndTime: "10:30", Type: models.Modality("in-person"),
	}), exhibitorClaims)
	c.Params = gin.Params{{Key: "id", Value: "ex-1"}}

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "ex-1", mockSvc.createExhibitor)
	assert.Equal(t, "10:30", mockSvc.createReq.EndTime)
	assert.Nil(t, mockSvc.createReq.MaxBookings)
}

func TestTimeSlotHandlerCreateServiceValidation(t *testing.T) {
	handler := NewTimeSlotHandler(&timeSlotServiceMock{createErr: appErrors.Clone(appErrors.ErrValidation, "endTime must be after startTime")})
	c, w := newContext(http.MethodPost, "/exhibitors/ex-1/slots", bytes.NewBufferString(`{"date":"2026-04-01","startTime":"11:00","endTime":"10:00","type":"virtual"}`), exhibitorClaims)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w, nil)
	assert.Equal(t, "endTime must be after startTime", env.Error.Message)
}

func TestTimeSlotHandlerBulkCreate(t *testing.T) {
	mockSvc := &timeSlotServiceMock{bulkResp: []models.TimeSlot{{ID: "slot-1"}, {ID: "slot-2"}}}
	handler := NewTimeSlotHandler(mockSvc)
	c, w := newContext(http.MethodPost, "/exhibitors/ex-1/slots/bulk", jsonBody(t, dto.BulkCreateSlotsRequest{Slots: []dto.CreateSlotRequest{{}, {}}}), exhibitorClaims)

	handler.BulkCreate(c)
	require.Equal(t, http.StatusCreated, w.Code)
	var got dto.BulkCreateSlotsResponse
	decodeEnvelope(t, w, &got)
	assert.Equal(t, 2, got.Created)
}

func TestTimeSlotHandlerListAvailableByDefault(t *testing.T) {
	mockSvc := &timeSlotServiceMock{listResp: []models.TimeSlot{{ID: "slot-1"}}}
	handler := NewTimeSlotHandler(mockSvc)
	c, w := newContext(http.MethodGet, "/exhibitors/ex-1/slots?from=2026-04-01&to=2026-04-02", nil, nil)
	c.Params = gin.Params{{Key: "id", Value: "ex-1"}}

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listAvailable)
	assert.False(t, mockSvc.listAll)
	assert.Equal(t, "2026-04-01", mockSvc.from)
	assert.Equal(t, "2026-04-02", mockSvc.to)
}

func TestTimeSlotHandlerListAllForOwner(t *testing.T) {
	mockSvc := &timeSlotServiceMock{}
	handler := NewTimeSlotHandler(mockSvc)
	c, w := newContext(http.MethodGet, "/exhibitors/ex-1/slots?all=true", nil, exhibitorClaims)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listAll)
	assert.False(t, mockSvc.listAvailable)
}

func TestTimeSlotHandlerDelete(t *testing.T) {
	mockSvc := &timeSlotServiceMock{}
	handler := NewTimeSlotHandler(mockSvc)
	c, w := newContext(http.MethodDelete, "/slots/slot-1", nil, exhibitorClaims)
	c.Params = gin.Params{{Key: "id", Value: "slot-1"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "slot-1", mockSvc.deleted)
}

func TestTimeSlotHandlerDeleteWithBookings(t *testing.T) {
	handler := NewTimeSlotHandler(&timeSlotServiceMock{deleteErr: appErrors.Clone(appErrors.ErrConflict, "time slot has bookings")})
	c, w := newContext(http.MethodDelete, "/slots/slot-1", nil, exhibitorClaims)

	handler.Delete(c)
	require.Equal(t, http.StatusConflict, w.Code)
}
