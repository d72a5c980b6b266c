package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rayuela-fp/feoe-api/internal/middleware"
	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/internal/service"
	appErrors "github.com/rayuela-fp/feoe-api/pkg/errors"
	"github.com/rayuela-fp/feoe-api/pkg/response"
)

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Login godoc
// @Summary Authenticate an actor profile
// @Description Select a seeded profile and prove the shared access code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	req.IP = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, res, nil)
}

// Profiles godoc
// @Summary List selectable actor profiles
// @Description Returns the active profiles for the login screen
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/profiles [get]
func (h *AuthHandler) Profiles(c *gin.Context) {
	profiles, err := h.service.Profiles(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profiles, nil)
}

// Me godoc
// @Summary Get current actor
// @Description Returns the authenticated actor's info
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	jwtClaims := claims.(*models.JWTClaims)
	info := models.UserInfo{
		ID:         jwtClaims.UserID,
		FullName:   jwtClaims.FullName,
		Role:       jwtClaims.Role,
		Province:   jwtClaims.Province,
		CenterCode: jwtClaims.CenterCode,
	}

	response.JSON(c, http.StatusOK, info, nil)
}
