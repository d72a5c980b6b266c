package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/pkg/response"
)

type centerLister interface {
	List(ctx context.Context, province string) ([]models.Center, error)
	GetByCode(ctx context.Context, code string) (*models.Center, error)
}

type studentLister interface {
	List(ctx context.Context, centerCode, search string) ([]models.Student, error)
}

// ReferenceHandler serves the seeded center and student listings.
type ReferenceHandler struct {
	centers  centerLister
	students studentLister
}

// NewReferenceHandler constructs the handler.
func NewReferenceHandler(centers centerLister, students studentLister) *ReferenceHandler {
	return &ReferenceHandler{centers: centers, students: students}
}

// ListCenters godoc
// @Summary List educational centers
// @Tags Reference
// @Produce json
// @Param province query string false "Province filter"
// @Success 200 {object} response.Envelope
// @Router /centers [get]
func (h *ReferenceHandler) ListCenters(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	centers, err := h.centers.List(c.Request.Context(), c.Query("province"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, centers, nil)
}

// GetCenter godoc
// @Summary Get a single center
// @Tags Reference
// @Produce json
// @Param code path string true "Center code"
// @Success 200 {object} response.Envelope
// @Router /centers/{code} [get]
func (h *ReferenceHandler) GetCenter(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	center, err := h.centers.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, center, nil)
}

// ListStudents godoc
// @Summary List students
// @Tags Reference
// @Produce json
// @Param center query string false "Center code filter"
// @Param search query string false "Name or DNI search"
// @Success 200 {object} response.Envelope
// @Router /students [get]
func (h *ReferenceHandler) ListStudents(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	centerCode := c.Query("center")
	// Directors only browse their own center's enrolment.
	if actor.Role == models.RoleDirector {
		centerCode = actor.CenterCode
	}
	students, err := h.students.List(c.Request.Context(), centerCode, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, nil)
}
