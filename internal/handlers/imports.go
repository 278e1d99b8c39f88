package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/screwcat/internal/services"
	apperrors "github.com/charlesng35/screwcat/pkg/errors"
	"github.com/charlesng35/screwcat/pkg/response"
)

const (
	importFormField       = "file"
	defaultMaxUploadBytes = 10 << 20
)

var spreadsheetName = regexp.MustCompile(`(?i)\.(xlsx|xls)$`)

// ImportHandler accepts spreadsheet uploads for bulk catalog import.
type ImportHandler struct {
	svc      *services.ImportService
	maxBytes int64
}

// NewImportHandler constructs an import handler. A non-positive maxBytes uses 10 MiB.
func NewImportHandler(svc *services.ImportService, maxBytes int64) *ImportHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	return &ImportHandler{svc: svc, maxBytes: maxBytes}
}

// POST /files/importExcel
func (h *ImportHandler) ImportExcel(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)

	header, err := c.FormFile(importFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperrors.NewBadRequest(
				fmt.Sprintf("File exceeds the %d MB upload limit", h.maxBytes>>20)).WithInternal(err))
			return
		}
		response.Error(c, apperrors.NewBadRequest("A spreadsheet file is required").WithInternal(err))
		return
	}
	if !spreadsheetName.MatchString(header.Filename) {
		response.Error(c, apperrors.NewBadRequest("Invalid file extension, expected .xlsx or .xls"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.Wrap(err, "Import error: unable to read upload"))
		return
	}
	defer file.Close()

	report, err := h.svc.Import(requestContext(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	if report.CacheStale {
		c.Header(HeaderCacheInvalidation, "failed")
	}
	response.Success(c, http.StatusOK, report)
}
