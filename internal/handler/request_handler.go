package handler

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rayuela-fp/feoe-api/internal/dto"
	"github.com/rayuela-fp/feoe-api/internal/middleware"
	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/internal/service"
	appErrors "github.com/rayuela-fp/feoe-api/pkg/errors"
	"github.com/rayuela-fp/feoe-api/pkg/response"
)

type requestService interface {
	Create(ctx context.Context, actor models.Actor, payload dto.CreateRequestRequest) (*models.Request, error)
	Get(ctx context.Context, actor models.Actor, id string) (*models.Request, error)
	List(ctx context.Context, actor models.Actor, query dto.RequestQuery) ([]models.Request, error)
	Amend(ctx context.Context, actor models.Actor, id string, payload dto.AmendRequestRequest) (*models.Request, error)
	Submit(ctx context.Context, actor models.Actor, id string) (*models.Request, error)
	Inspect(ctx context.Context, actor models.Actor, id string, verdict dto.InspectRequest) (*models.Request, error)
	Resolve(ctx context.Context, actor models.Actor, id string, resolution dto.ResolveRequest) (*models.Request, error)
	RequestAnnulment(ctx context.Context, actor models.Actor, id, reason string) (*models.Request, error)
	ConfirmAnnulment(ctx context.Context, actor models.Actor, id string) (*models.Request, error)
	SoftDelete(ctx context.Context, actor models.Actor, id string) (*models.Request, error)
	ForceState(ctx context.Context, actor models.Actor, id string, override dto.OverrideStateRequest) (*models.Request, error)
	PendingCount(ctx context.Context, actor models.Actor) (int, bool, error)
}

// RequestHandler exposes REST endpoints for the request workflow.
type RequestHandler struct {
	service requestService
	exports *service.ExportService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(svc requestService, exports *service.ExportService) *RequestHandler {
	return &RequestHandler{service: svc, exports: exports}
}

func actorFromContext(c *gin.Context) (models.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Actor{}, false
	}
	return claims.Actor(), true
}

// Create godoc
// @Summary Create an annex request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, created, nil)
}

// List godoc
// @Summary List visible annex requests
// @Tags Requests
// @Produce json
// @Param state query string false "State filter"
// @Param annexType query string false "Annex type filter"
// @Param center query string false "Center name filter"
// @Param student query string false "Student name or DNI filter"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	requests, err := h.service.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Get godoc
// @Summary Get request detail with full history
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	req, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// Amend godoc
// @Summary Amend an editable request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AmendRequestRequest true "Replacement payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [put]
func (h *RequestHandler) Amend(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AmendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request payload"))
		return
	}
	updated, err := h.service.Amend(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Submit godoc
// @Summary Submit a draft request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/submit [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	updated, err := h.service.Submit(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Inspect godoc
// @Summary Record the provincial inspection verdict
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.InspectRequest true "Verdict"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/inspect [post]
func (h *RequestHandler) Inspect(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.InspectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid verdict payload"))
		return
	}
	updated, err := h.service.Inspect(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Resolve godoc
// @Summary Issue the final resolution
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ResolveRequest true "Resolution"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/resolve [post]
func (h *RequestHandler) Resolve(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resolution payload"))
		return
	}
	updated, err := h.service.Resolve(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// RequestAnnulment godoc
// @Summary Request annulment of a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AnnulmentRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/annulment [post]
func (h *RequestHandler) RequestAnnulment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AnnulmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid annulment payload"))
		return
	}
	updated, err := h.service.RequestAnnulment(c.Request.Context(), actor, c.Param("id"), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// ConfirmAnnulment godoc
// @Summary Confirm a pending annulment
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/annulment/confirm [post]
func (h *RequestHandler) ConfirmAnnulment(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	updated, err := h.service.ConfirmAnnulment(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// SoftDelete godoc
// @Summary Move a request to the trash
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [delete]
func (h *RequestHandler) SoftDelete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	updated, err := h.service.SoftDelete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// ForceState godoc
// @Summary Force an arbitrary state (administrative correction)
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.OverrideStateRequest true "Target state and reason"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/state [put]
func (h *RequestHandler) ForceState(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.OverrideStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid state payload"))
		return
	}
	updated, err := h.service.ForceState(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// PendingCount godoc
// @Summary Count requests awaiting the actor's action
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/pending-count [get]
func (h *RequestHandler) PendingCount(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	count, cacheHit, err := h.service.PendingCount(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, dto.PendingCountResponse{Count: count}, nil, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Export the visible request listing
// @Tags Requests
// @Produce json
// @Param format query string false "csv or pdf (default pdf)"
// @Success 200 {object} response.Envelope
// @Router /requests/export [post]
func (h *RequestHandler) Export(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "exports not configured"))
		return
	}
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.RequestQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	format := service.ExportFormat(strings.ToLower(c.DefaultQuery("format", "pdf")))
	result, err := h.exports.Generate(c.Request.Context(), actor, query, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"url":        result.URL,
		"format":     result.Format,
		"expires_at": result.ExpiresAt,
	}, nil)
}

// Download godoc
// @Summary Download a previously generated export
// @Tags Requests
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /requests/export/{token} [get]
func (h *RequestHandler) Download(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "exports not configured"))
		return
	}
	_, relPath, _, err := h.exports.ParseToken(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}
	file, err := h.exports.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export no longer available"))
		return
	}
	defer file.Close()
	c.FileAttachment(file.Name(), filepath.Base(relPath))
}
