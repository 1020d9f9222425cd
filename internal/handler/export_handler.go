package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/tutorfinder/tutorfinder-api/pkg/response"
)

type exportFiles interface {
	Resolve(token string) (string, error)
	Open(relPath string) (*os.File, error)
}

// ExportHandler streams stored exports behind signed links.
type ExportHandler struct {
	files exportFiles
}

// NewExportHandler constructs an ExportHandler.
func NewExportHandler(files exportFiles) *ExportHandler {
	return &ExportHandler{files: files}
}

// Download godoc
// @Summary Download an export
// @Description Serves a file produced by a booking export. The link itself is the credential.
// @Tags Bookings
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	relPath, err := h.files.Resolve(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(relPath)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Cache-Control", "no-store")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
