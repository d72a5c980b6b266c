package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/middleware"
	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/pkg/storage"
)

func newDocumentHandler(t *testing.T) *DocumentHandler {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewDocumentHandler(store, signer, "/api/v1", 1<<20)
}

func multipartUpload(t *testing.T, filename, tag string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	if tag != "" {
		require.NoError(t, writer.WriteField("tag", tag))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDocumentHandlerUploadAndDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newDocumentHandler(t)

	body, contentType := multipartUpload(t, "plan-formativo.pdf", "plan", []byte("%PDF-1.4 contenido"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/documents", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "plan-formativo.pdf", envelope.Data.Name)
	assert.Equal(t, "PLAN", envelope.Data.Tag)
	require.Contains(t, envelope.Data.URL, "/api/v1/documents/")

	token := envelope.Data.URL[len("/api/v1/documents/"):]
	dw := httptest.NewRecorder()
	dc, _ := gin.CreateTestContext(dw)
	dreq, err := http.NewRequest(http.MethodGet, "/documents/"+token, nil)
	require.NoError(t, err)
	dc.Request = dreq
	dc.Params = gin.Params{{Key: "token", Value: token}}

	handler.Download(dc)
	require.Equal(t, http.StatusOK, dw.Code)
	assert.Equal(t, "%PDF-1.4 contenido", dw.Body.String())
}

func TestDocumentHandlerUploadTooLarge(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	handler := NewDocumentHandler(store, storage.NewSignedURLSigner("test-secret", time.Hour), "/api/v1", 8)

	body, contentType := multipartUpload(t, "grande.pdf", "", []byte("mas de ocho bytes"))
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/documents", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", contentType)
	c.Request = req
	c.Set(middleware.ContextUserKey, directorClaims())

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandlerDownloadBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newDocumentHandler(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodGet, "/documents/not-a-token", nil)
	require.NoError(t, err)
	c.Request = req
	c.Params = gin.Params{{Key: "token", Value: "not-a-token"}}

	handler.Download(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
