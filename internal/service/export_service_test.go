package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rayuela-fp/feoe-api/internal/dto"
	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/pkg/storage"
)

type stubRequestLister struct {
	requests []models.Request
}

func (s *stubRequestLister) List(ctx context.Context, actor models.Actor, query dto.RequestQuery) ([]models.Request, error) {
	return s.requests, nil
}

func newExportService(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	lister := &stubRequestLister{requests: []models.Request{
		{
			ID:          "2025-06006899-I-1",
			AnnexType:   models.AnnexTypeI,
			State:       models.StateApproved,
			CenterCode:  "06006899",
			CreatedDate: "2025-03-10",
			Students:    models.StudentSet{"11111111H", "22222222J"},
			ResolvedBy:  "DG FP",
		},
	}}
	centers := &stubCenterDirectory{centers: map[string]*models.Center{
		"06006899": {Code: "06006899", Name: "IES Llerena", Province: models.ProvinceBadajoz},
	}}
	return NewExportService(lister, centers, store, signer, ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
}

func TestExportGenerateCSV(t *testing.T) {
	svc := newExportService(t)
	actor := models.Actor{Name: "Admin", Role: models.RoleSuperuser}

	result, err := svc.Generate(context.Background(), actor, dto.RequestQuery{}, ExportFormatCSV)
	require.NoError(t, err)
	require.Contains(t, result.URL, "/api/v1/requests/export/")
	require.Equal(t, ExportFormatCSV, result.Format)

	file, err := svc.Open(result.RelativePath)
	require.NoError(t, err)
	defer file.Close()
	payload, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Contains(t, string(payload), "2025-06006899-I-1")
	require.Contains(t, string(payload), "IES Llerena")
}

func TestExportGeneratePDFAndToken(t *testing.T) {
	svc := newExportService(t)
	actor := models.Actor{Name: "Admin", Role: models.RoleSuperuser}

	result, err := svc.Generate(context.Background(), actor, dto.RequestQuery{}, ExportFormatPDF)
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)

	_, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	require.Equal(t, result.RelativePath, relPath)
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := newExportService(t)
	_, err := svc.Generate(context.Background(), models.Actor{Role: models.RoleSuperuser}, dto.RequestQuery{}, ExportFormat("xlsx"))
	require.Error(t, err)
}
