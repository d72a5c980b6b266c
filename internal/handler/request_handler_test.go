package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/dto"
	"github.com/rayuela-fp/feoe-api/internal/middleware"
	"github.com/rayuela-fp/feoe-api/internal/models"
	appErrors "github.com/rayuela-fp/feoe-api/pkg/errors"
)

type requestServiceMock struct {
	createResp *models.Request
	createErr  error
	listResp   []models.Request
	listErr    error
	getResp    *models.Request
	getErr     error
	submitResp *models.Request
	submitErr  error
	resolveErr error
	count      int
	countErr   error

	lastQuery      dto.RequestQuery
	lastResolution dto.ResolveRequest
	createCalled   bool
	listCalled     bool
	submitCalled   bool
	resolveCalled  bool
}

func (m *requestServiceMock) Create(ctx context.Context, actor models.Actor, payload dto.CreateRequestRequest) (*models.Request, error) {
	m.createCalled = true
	return m.createResp, m.createErr
}

func (m *requestServiceMock) Get(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	return m.getResp, m.getErr
}

func (m *requestServiceMock) List(ctx context.Context, actor models.Actor, query dto.RequestQuery) ([]models.Request, error) {
	m.listCalled = true
	m.lastQuery = query
	return m.listResp, m.listErr
}

func (m *requestServiceMock) Amend(ctx context.Context, actor models.Actor, id string, payload dto.AmendRequestRequest) (*models.Request, error) {
	return m.getResp, m.getErr
}

func (m *requestServiceMock) Submit(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	m.submitCalled = true
	return m.submitResp, m.submitErr
}

func (m *requestServiceMock) Inspect(ctx context.Context, actor models.Actor, id string, verdict dto.InspectRequest) (*models.Request, error) {
	return m.getResp, m.getErr
}

func (m *requestServiceMock) Resolve(ctx context.Context, actor models.Actor, id string, resolution dto.ResolveRequest) (*models.Request, error) {
	m.resolveCalled = true
	m.lastResolution = resolution
	return m.getResp, m.resolveErr
}

func (m *requestServiceMock) RequestAnnulment(ctx context.Context, actor models.Actor, id, reason string) (*models.Request, error) {
	return m.getResp, m.getErr
}

func (m *requestServiceMock) ConfirmAnnulment(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	return m.getResp, m.getErr
}

func (m *requestServiceMock) SoftDelete(ctx context.Context, actor models.Actor, id string) (*models.Request, error) {
	return m.getResp, m.getErr
}

func (m *requestServiceMock) ForceState(ctx context.Context, actor models.Actor, id string, override dto.OverrideStateRequest) (*models.Request, error) {
	return m.getResp, m.getErr
}

func (m *requestServiceMock) PendingCount(ctx context.Context, actor models.Actor) (int, bool, error) {
	return m.count, false, m.countErr
}

func directorClaims() *models.JWTClaims {
	return &models.JWTClaims{
		UserID:     "dir-ba",
		FullName:   "Ana Díaz",
		Role:       models.RoleDirector,
		Province:   models.ProvinceBadajoz,
		CenterCode: "06006899",
	}
}

func requestTestContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestRequestHandlerListPassesFilters(t *testing.T) {
	mockSvc := &requestServiceMock{
		listResp: []models.Request{{ID: "2025-06006899-I-1", State: models.StateDraft}},
	}
	handler := NewRequestHandler(mockSvc, nil)

	c, w := requestTestContext(t, http.MethodGet, "/requests?state=DRAFT&annexType=I&student=martín", nil)
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.listCalled)
	assert.Equal(t, models.StateDraft, mockSvc.lastQuery.State)
	assert.Equal(t, models.AnnexTypeI, mockSvc.lastQuery.AnnexType)
	assert.Equal(t, "martín", mockSvc.lastQuery.StudentText)
}

func TestRequestHandlerListUnauthenticated(t *testing.T) {
	mockSvc := &requestServiceMock{}
	handler := NewRequestHandler(mockSvc, nil)

	c, w := requestTestContext(t, http.MethodGet, "/requests", nil)

	handler.List(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, mockSvc.listCalled)
}

func TestRequestHandlerCreateInvalidBody(t *testing.T) {
	mockSvc := &requestServiceMock{}
	handler := NewRequestHandler(mockSvc, nil)

	c, w := requestTestContext(t, http.MethodPost, "/requests", []byte(`{"annexType":`))
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.createCalled)
}

func TestRequestHandlerCreateCreated(t *testing.T) {
	mockSvc := &requestServiceMock{
		createResp: &models.Request{ID: "2025-06006899-I-1", State: models.StateDraft},
	}
	handler := NewRequestHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.CreateRequestRequest{AnnexType: models.AnnexTypeI, Draft: true})
	c, w := requestTestContext(t, http.MethodPost, "/requests", payload)
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, mockSvc.createCalled)
	assert.Contains(t, w.Body.String(), "2025-06006899-I-1")
}

func TestRequestHandlerSubmitConflict(t *testing.T) {
	mockSvc := &requestServiceMock{
		submitErr: appErrors.ErrIllegalState,
	}
	handler := NewRequestHandler(mockSvc, nil)

	c, w := requestTestContext(t, http.MethodPost, "/requests/2025-06006899-I-1/submit", nil)
	c.Params = gin.Params{{Key: "id", Value: "2025-06006899-I-1"}}
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.Submit(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, mockSvc.submitCalled)
}

func TestRequestHandlerResolvePassesOutcome(t *testing.T) {
	mockSvc := &requestServiceMock{
		getResp: &models.Request{ID: "2025-06006899-I-1", State: models.StateApproved},
	}
	handler := NewRequestHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.ResolveRequest{Outcome: models.StateApproved})
	c, w := requestTestContext(t, http.MethodPost, "/requests/2025-06006899-I-1/resolve", payload)
	c.Params = gin.Params{{Key: "id", Value: "2025-06006899-I-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{
		UserID: "dg", FullName: "Lucía Gallardo", Role: models.RoleDirectorGeneral,
	})

	handler.Resolve(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mockSvc.resolveCalled)
	assert.Equal(t, models.StateApproved, mockSvc.lastResolution.Outcome)
}

func TestRequestHandlerResolveForbidden(t *testing.T) {
	mockSvc := &requestServiceMock{
		resolveErr: appErrors.ErrForbidden,
	}
	handler := NewRequestHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.ResolveRequest{Outcome: models.StateRejected, Observations: "fuera de plazo"})
	c, w := requestTestContext(t, http.MethodPost, "/requests/2025-06006899-I-1/resolve", payload)
	c.Params = gin.Params{{Key: "id", Value: "2025-06006899-I-1"}}
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.Resolve(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestHandlerPendingCount(t *testing.T) {
	mockSvc := &requestServiceMock{count: 3}
	handler := NewRequestHandler(mockSvc, nil)

	c, w := requestTestContext(t, http.MethodGet, "/requests/pending-count", nil)
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.PendingCount(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.PendingCountResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, 3, envelope.Data.Count)
}

func TestRequestHandlerExportNotConfigured(t *testing.T) {
	handler := NewRequestHandler(&requestServiceMock{}, nil)

	c, w := requestTestContext(t, http.MethodPost, "/requests/export?format=csv", nil)
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.Export(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
