package handler

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/rayuela-fp/feoe-api/internal/models"
	appErrors "github.com/rayuela-fp/feoe-api/pkg/errors"
	"github.com/rayuela-fp/feoe-api/pkg/response"
	"github.com/rayuela-fp/feoe-api/pkg/storage"
)

// DocumentHandler stores uploaded attachments and serves them back through
// signed URLs, so document links inside a request need no session.
type DocumentHandler struct {
	storage     *storage.LocalStorage
	signer      *storage.SignedURLSigner
	apiPrefix   string
	maxFileSize int64
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(store *storage.LocalStorage, signer *storage.SignedURLSigner, apiPrefix string, maxFileSize int64) *DocumentHandler {
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}
	return &DocumentHandler{storage: store, signer: signer, apiPrefix: apiPrefix, maxFileSize: maxFileSize}
}

// Upload godoc
// @Summary Upload a supporting document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file"
// @Param tag formData string false "Document tag (PLAN or AGREEMENT)"
// @Success 201 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a file is required"))
		return
	}
	if header.Size > h.maxFileSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", h.maxFileSize)))
		return
	}
	src, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to read upload"))
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to read upload"))
		return
	}

	docID := uuid.NewString()
	filename := fmt.Sprintf("%s%s", docID, filepath.Ext(header.Filename))
	relPath, err := h.storage.Save(filename, data)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to store document"))
		return
	}

	token, _, err := h.signer.Generate(docID, relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "failed to sign document URL"))
		return
	}
	prefix := strings.TrimRight(h.apiPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	doc := models.Document{
		Name: header.Filename,
		Date: time.Now().UTC().Format("2006-01-02"),
		Tag:  strings.ToUpper(strings.TrimSpace(c.PostForm("tag"))),
		URL:  fmt.Sprintf("%s/documents/%s", prefix, token),
	}
	response.JSON(c, http.StatusCreated, doc, nil)
}

// Download godoc
// @Summary Download a document through its signed URL
// @Tags Documents
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /documents/{token} [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	_, relPath, _, err := h.signer.Parse(c.Param("token"), false)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired document token"))
		return
	}
	file, err := h.storage.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "document no longer available"))
		return
	}
	defer file.Close()
	c.FileAttachment(file.Name(), filepath.Base(relPath))
}
