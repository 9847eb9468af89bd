package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siports-api/internal/dto"
	"github.com/noah-isme/siports-api/internal/middleware"
	"github.com/noah-isme/siports-api/internal/models"
	"github.com/noah-isme/siports-api/pkg/response"
)

func newContext(method, target string, body io.Reader, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, w
}

func jsonBody(t *testing.T, v interface{}) io.Reader {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(payload)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data interface{}) response.Envelope {
	t.Helper()
	var raw struct {
		Data json.RawMessage `json:"data"`
		response.Envelope
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.Envelope
}

type exhibitorServiceMock struct {
	createReq  dto.CreateExhibitorRequest
	createResp *models.Exhibitor
	createErr  error
	getResp    *models.Exhibitor
	getErr     error
	listQuery  dto.ExhibitorQuery
	listResp   []models.Exhibitor
	pagination *models.Pagination
	verifyResp *models.Exhibitor
	verifyErr  error
	verifyBy   *models.JWTClaims
}

func (m *exhibitorServiceMock) Create(ctx context.Context, req dto.CreateExhibitorRequest) (*models.Exhibitor, error) {
	m.createReq = req
	return m.createResp, m.createErr
}

func (m *exhibitorServiceMock) Get(ctx context.Context, id string) (*models.Exhibitor, error) {
	return m.getResp, m.getErr
}

func (m *exhibitorServiceMock) List(ctx context.Context, query dto.ExhibitorQuery) ([]models.Exhibitor, *models.Pagination, error) {
	m.listQuery = query
	return m.listResp, m.pagination, nil
}

func (m *exhibitorServiceMock) Verify(ctx context.Context, id string, actor *models.JWTClaims) (*models.Exhibitor, error) {
	m.verifyBy = actor
	return m.verifyResp, m.verifyErr
}

type timeSlotServiceMock struct {
	createExhibitor string
	createReq       dto.CreateSlotRequest
	createResp      *models.TimeSlot
	createErr       error
	bulkResp        []models.TimeSlot
	bulkErr         error
	getResp         *models.TimeSlot
	getErr          error
	listAvailable   bool
	listAll         bool
	from, to        string
	listResp        []models.TimeSlot
	listErr         error
	deleted         string
	deleteErr       error
}

func (m *timeSlotServiceMock) CreateSlot(ctx context.Context, exhibitorID string, req dto.CreateSlotRequest, actor *models.JWTClaims) (*models.TimeSlot, error) {
	m.createExhibitor = exhibitorID
	m.createReq = req
	return m.createResp, m.createErr
}

func (m *timeSlotServiceMock) BulkCreateSlots(ctx context.Context, exhibitorID string, req dto.BulkCreateSlotsRequest, actor *models.JWTClaims) ([]models.TimeSlot, error) {
	return m.bulkResp, m.bulkErr
}

func (m *timeSlotServiceMock) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	return m.getResp, m.getErr
}

func (m *timeSlotServiceMock) ListAvailableSlots(ctx context.Context, exhibitorID, from, to string) ([]models.TimeSlot, error) {
	m.listAvailable = true
	m.from, m.to = from, to
	return m.listResp, m.listErr
}

func (m *timeSlotServiceMock) ListSlots(ctx context.Context, exhibitorID, from, to string, actor *models.JWTClaims) ([]models.TimeSlot, error) {
	m.listAll = true
	m.from, m.to = from, to
	return m.listResp, m.listErr
}

func (m *timeSlotServiceMock) DeleteSlot(ctx context.Context, id string, actor *models.JWTClaims) error {
	m.deleted = id
	return m.deleteErr
}

type appointmentServiceMock struct {
	requestReq     dto.RequestAppointmentRequest
	requestKey     string
	requestResp    *models.Appointment
	requestCreated bool
	requestErr     error
	confirmResp    *models.Appointment
	confirmErr     error
	cancelReq      dto.CancelAppointmentRequest
	cancelResp     *models.Appointment
	cancelErr      error
	getResp        *models.Appointment
	getErr         error
	listResp       []models.AppointmentDetail
	listErr        error
	listedVisitor  string
	listedExhib    string
}

func (m *appointmentServiceMock) RequestAppointment(ctx context.Context, req dto.RequestAppointmentRequest, idemKey string, actor *models.JWTClaims) (*models.Appointment, bool, error) {
	m.requestReq = req
	m.requestKey = idemKey
	return m.requestResp, m.requestCreated, m.requestErr
}

func (m *appointmentServiceMock) ConfirmAppointment(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appointment, error) {
	return m.confirmResp, m.confirmErr
}

func (m *appointmentServiceMock) CancelAppointment(ctx context.Context, id string, req dto.CancelAppointmentRequest, actor *models.JWTClaims) (*models.Appointment, error) {
	m.cancelReq = req
	return m.cancelResp, m.cancelErr
}

func (m *appointmentServiceMock) GetAppointment(ctx context.Context, id string, actor *models.JWTClaims) (*models.Appointment, error) {
	return m.getResp, m.getErr
}

func (m *appointmentServiceMock) ListForVisitor(ctx context.Context, visitorID string, actor *models.JWTClaims) ([]models.AppointmentDetail, error) {
	m.listedVisitor = visitorID
	return m.listResp, m.listErr
}

func (m *appointmentServiceMock) ListForExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) ([]models.AppointmentDetail, error) {
	m.listedExhib = exhibitorID
	return m.listResp, m.listErr
}

type agendaExporterMock struct {
	format dto.AgendaFormat
	resp   *dto.AgendaExport
	err    error
}

func (m *agendaExporterMock) ExhibitorAgenda(ctx context.Context, exhibitorID string, format dto.AgendaFormat, actor *models.JWTClaims) (*dto.AgendaExport, error) {
	m.format = format
	return m.resp, m.err
}

type miniSiteServiceMock struct {
	createdFrom    string
	createResp     *models.MiniSite
	createErr      error
	externalSource string
	enrichResp     *dto.EnrichmentResult
	enrichErr      error
	enqueued       bool
	enqueueErr     error
	published      *bool
	publishResp    *models.MiniSite
	publishErr     error
	themeReq       dto.UpdateThemeRequest
	siteResp       *models.MiniSite
	siteErr        error
	views          int64
	publicFor      string
}

func (m *miniSiteServiceMock) CreateFromExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error) {
	m.createdFrom = exhibitorID
	return m.createResp, m.createErr
}

func (m *miniSiteServiceMock) CreateFromExternalSite(ctx context.Context, exhibitorID, sourceURL string, actor *models.JWTClaims) (*dto.EnrichmentResult, error) {
	m.createdFrom = exhibitorID
	m.externalSource = sourceURL
	return m.enrichResp, m.enrichErr
}

func (m *miniSiteServiceMock) EnrichFromExternalSite(ctx context.Context, id string, req dto.EnrichMiniSiteRequest, actor *models.JWTClaims) (*dto.EnrichmentResult, error) {
	m.externalSource = req.SourceURL
	return m.enrichResp, m.enrichErr
}

func (m *miniSiteServiceMock) EnqueueEnrichment(ctx context.Context, id string, req dto.EnrichMiniSiteRequest, actor *models.JWTClaims) error {
	m.enqueued = true
	m.externalSource = req.SourceURL
	return m.enqueueErr
}

func (m *miniSiteServiceMock) SetPublished(ctx context.Context, id string, published bool, actor *models.JWTClaims) (*models.MiniSite, error) {
	m.published = &published
	return m.publishResp, m.publishErr
}

func (m *miniSiteServiceMock) UpdateTheme(ctx context.Context, id string, req dto.UpdateThemeRequest, actor *models.JWTClaims) (*models.MiniSite, error) {
	m.themeReq = req
	return m.siteResp, m.siteErr
}

func (m *miniSiteServiceMock) RecordView(ctx context.Context, id string) (int64, error) {
	m.views++
	return m.views, nil
}

func (m *miniSiteServiceMock) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.MiniSite, error) {
	return m.siteResp, m.siteErr
}

func (m *miniSiteServiceMock) GetByExhibitor(ctx context.Context, exhibitorID string, actor *models.JWTClaims) (*models.MiniSite, error) {
	return m.siteResp, m.siteErr
}

func (m *miniSiteServiceMock) GetPublic(ctx context.Context, exhibitorID string) (*models.MiniSite, error) {
	m.publicFor = exhibitorID
	return m.siteResp, m.siteErr
}
