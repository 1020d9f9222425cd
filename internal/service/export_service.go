package service

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
	"github.com/tutorfinder/tutorfinder-api/pkg/export"
	"github.com/tutorfinder/tutorfinder-api/pkg/storage"
)

type bookingSource interface {
	AllForTutor(ctx context.Context, tutorID string) ([]models.BookingView, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult describes a stored export and its download link.
type ExportResult struct {
	RelativePath string              `json:"-"`
	Token        string              `json:"token"`
	URL          string              `json:"url"`
	Format       models.ExportFormat `json:"format"`
	Rows         int                 `json:"rows"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

// ExportService renders a tutor's bookings to CSV or PDF and hands out signed
// download links for the stored file.
type ExportService struct {
	bookings bookingSource
	storage  fileStorage
	csv      csvRenderer
	pdf      pdfRenderer
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
	cfg      ExportConfig
	now      func() time.Time
}

var bookingExportHeaders = []string{
	"Booking ID", "Student", "Subject", "Date", "Time", "Duration (min)",
	"Status", "Hourly Rate", "Estimated Cost", "Requested At",
}

// NewExportService constructs an ExportService.
func NewExportService(bookings bookingSource, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
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
		bookings: bookings,
		storage:  storage,
		csv:      csv,
		pdf:      pdf,
		signer:   signer,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// ExportBookings renders every booking addressed to tutorID.
func (s *ExportService) ExportBookings(ctx context.Context, tutorID string, role models.UserRole, format models.ExportFormat) (*ExportResult, error) {
	if role != models.RoleTutor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only tutors can export bookings")
	}
	format = models.ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = models.ExportFormatCSV
	}
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}

	views, err := s.bookings.AllForTutor(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	dataset := bookingDataset(views)

	var payload []byte
	switch format {
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset)
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := path.Join("bookings", fmt.Sprintf("%s_%s.%s", sanitizeFilename(tutorID), s.now().UTC().Format("20060102_150405"), format))
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(tutorID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("booking export generated",
		zap.String("tutor_id", tutorID),
		zap.String("format", string(format)),
		zap.Int("rows", len(views)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       format,
		Rows:         len(views),
		ExpiresAt:    expiresAt,
	}, nil
}

// Resolve validates a download token and returns the stored file path.
func (s *ExportService) Resolve(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export link is invalid or expired")
	}
	return relPath, nil
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	return file, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func bookingDataset(views []models.BookingView) export.Dataset {
	rows := make([]map[string]string, 0, len(views))
	for _, v := range views {
		rate := ""
		if v.HourlyRate != nil {
			rate = strconv.FormatFloat(*v.HourlyRate, 'f', 2, 64)
		}
		rows = append(rows, map[string]string{
			"Booking ID":     v.ID,
			"Student":        v.StudentName,
			"Subject":        v.Subject,
			"Date":           v.SessionDate,
			"Time":           v.SessionTime,
			"Duration (min)": strconv.Itoa(v.DurationMinutes),
			"Status":         string(v.Status),
			"Hourly Rate":    rate,
			"Estimated Cost": strconv.FormatFloat(v.Booking.EstimatedCost(), 'f', 2, 64),
			"Requested At":   v.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return export.Dataset{Title: "Session Bookings", Headers: bookingExportHeaders, Rows: rows}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
