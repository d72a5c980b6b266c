package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/pkg/response"
)

type trashService interface {
	ListTrash(ctx context.Context, actor models.Actor) ([]models.Request, error)
	Restore(ctx context.Context, actor models.Actor, id string) (*models.Request, error)
	Purge(ctx context.Context, actor models.Actor, id string) error
}

// TrashHandler exposes the superuser trash surface.
type TrashHandler struct {
	service trashService
}

// NewTrashHandler constructs the handler.
func NewTrashHandler(svc trashService) *TrashHandler {
	return &TrashHandler{service: svc}
}

// List godoc
// @Summary List trashed requests
// @Tags Trash
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /trash [get]
func (h *TrashHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	requests, err := h.service.ListTrash(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Restore godoc
// @Summary Restore a trashed request to draft
// @Tags Trash
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /trash/{id}/restore [post]
func (h *TrashHandler) Restore(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	restored, err := h.service.Restore(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, restored, nil)
}

// Purge godoc
// @Summary Permanently delete a trashed request
// @Tags Trash
// @Produce json
// @Param id path string true "Request ID"
// @Success 204 "No Content"
// @Router /trash/{id} [delete]
func (h *TrashHandler) Purge(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Purge(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
