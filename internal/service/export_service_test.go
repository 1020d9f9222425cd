package service

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
	"github.com/tutorfinder/tutorfinder-api/pkg/export"
	"github.com/tutorfinder/tutorfinder-api/pkg/storage"
)

type bookingSourceStub struct {
	views []models.BookingView
	err   error
}

func (b bookingSourceStub) AllForTutor(ctx context.Context, tutorID string) ([]models.BookingView, error) {
	return b.views, b.err
}

func sampleBookingViews() []models.BookingView {
	created := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	return []models.BookingView{
		{
			Booking: models.Booking{
				ID: "b1", TutorID: "tutor-1", Subject: "Calculus", SessionDate: "2026-11-02", SessionTime: "16:30",
				DurationMinutes: 90, Status: models.BookingStatusAccepted, HourlyRate: floatPtr(40), CreatedAt: created,
			},
			StudentName: "Sam Student",
		},
		{
			Booking: models.Booking{
				ID: "b2", TutorID: "tutor-1", Subject: "Physics", SessionDate: "2026-11-03", SessionTime: "10:00",
				DurationMinutes: 60, Status: models.BookingStatusPending, CreatedAt: created,
			},
			StudentName: "Ana",
		},
	}
}

func newExportServiceForTest(t *testing.T, source bookingSource) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(source, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportBookingsCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t, bookingSourceStub{views: sampleBookingViews()})

	result, err := svc.ExportBookings(context.Background(), "tutor-1", models.RoleTutor, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, result.Format)
	assert.Equal(t, 2, result.Rows)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/"))
	assert.True(t, strings.HasPrefix(result.RelativePath, "bookings/tutor-1_"))

	relPath, err := svc.Resolve(result.Token)
	require.NoError(t, err)
	file, err := svc.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Booking ID,Student,Subject,Date,Time,Duration (min),Status,Hourly Rate,Estimated Cost,Requested At", lines[0])
	assert.Equal(t, "b1,Sam Student,Calculus,2026-11-02,16:30,90,accepted,40.00,60.00,2026-10-01T09:00:00Z", lines[1])
	assert.Equal(t, "b2,Ana,Physics,2026-11-03,10:00,60,pending,,0.00,2026-10-01T09:00:00Z", lines[2])
}

func TestExportBookingsPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t, bookingSourceStub{views: sampleBookingViews()})

	result, err := svc.ExportBookings(context.Background(), "tutor-1", models.RoleTutor, "PDF")
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatPDF, result.Format)

	info, err := os.Stat(store.Path(result.RelativePath))
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportBookingsRejections(t *testing.T) {
	svc, _ := newExportServiceForTest(t, bookingSourceStub{})
	ctx := context.Background()

	_, err := svc.ExportBookings(ctx, "student-1", models.RoleStudent, models.ExportFormatCSV)
	assertAppError(t, err, appErrors.ErrForbidden)

	_, err = svc.ExportBookings(ctx, "tutor-1", models.RoleTutor, "xlsx")
	assertAppError(t, err, appErrors.ErrValidation)

	failing, _ := newExportServiceForTest(t, bookingSourceStub{err: errors.New("db down")})
	_, err = failing.ExportBookings(ctx, "tutor-1", models.RoleTutor, models.ExportFormatCSV)
	assert.Error(t, err)
}

func TestResolveRejectsBadToken(t *testing.T) {
	svc, _ := newExportServiceForTest(t, bookingSourceStub{})
	_, err := svc.Resolve("not-a-token")
	assertAppError(t, err, appErrors.ErrNotFound)
}

func TestCleanupRemovesOldExports(t *testing.T) {
	svc, store := newExportServiceForTest(t, bookingSourceStub{views: sampleBookingViews()})
	result, err := svc.ExportBookings(context.Background(), "tutor-1", models.RoleTutor, models.ExportFormatCSV)
	require.NoError(t, err)

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(store.Path(result.RelativePath), past, past))
	deleted, err := svc.Cleanup(0)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
}
