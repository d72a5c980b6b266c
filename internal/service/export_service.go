package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rayuela-fp/feoe-api/internal/dto"
	"github.com/rayuela-fp/feoe-api/internal/models"
	"github.com/rayuela-fp/feoe-api/pkg/export"
	"github.com/rayuela-fp/feoe-api/pkg/storage"
)

type requestLister interface {
	List(ctx context.Context, actor models.Actor, query dto.RequestQuery) ([]models.Request, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportFormat selects the rendered output.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders the actor's visible request listing as a file.
type ExportService struct {
	requests requestLister
	centers  centerDirectory
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// NewExportService constructs an ExportService.
func NewExportService(requests requestLister, centers centerDirectory, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		requests: requests,
		centers:  centers,
		storage:  store,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate renders the request listing visible to the actor and stores the
// file, returning a signed download URL.
func (s *ExportService) Generate(ctx context.Context, actor models.Actor, query dto.RequestQuery, format ExportFormat) (*ExportResult, error) {
	requests, err := s.requests.List(ctx, actor, query)
	if err != nil {
		return nil, err
	}
	dataset, title := s.buildDataset(ctx, requests)

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	exportID := fmt.Sprintf("requests-%s", time.Now().UTC().Format("20060102150405"))
	filename := fmt.Sprintf("%s.%s", exportID, format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/requests/export/%s", prefix, token),
		Format:       format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (exportID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, requests []models.Request) (export.Dataset, string) {
	centers := make(map[string]*models.Center)
	rows := make([]map[string]string, 0, len(requests))
	for i := range requests {
		req := &requests[i]
		centerName := req.CenterCode
		if center, ok := centers[req.CenterCode]; ok && center != nil {
			centerName = center.Name
		} else if !ok {
			center, err := s.centers.GetByCode(ctx, req.CenterCode)
			centers[req.CenterCode] = center
			if err == nil && center != nil {
				centerName = center.Name
			}
		}
		resolved := req.ResolvedBy
		if resolved == "" {
			resolved = "-"
		}
		rows = append(rows, map[string]string{
			"Identifier":  req.ID,
			"Type":        req.AnnexType.Label(),
			"Center":      centerName,
			"State":       string(req.State),
			"Created":     req.CreatedDate,
			"Students":    fmt.Sprintf("%d", len(req.Students)),
			"Resolved By": resolved,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Identifier", "Type", "Center", "State", "Created", "Students", "Resolved By"},
		Rows:    rows,
	}
	title := fmt.Sprintf("FEOE Requests %s", time.Now().UTC().Format("2006-01-02"))
	return dataset, title
}
