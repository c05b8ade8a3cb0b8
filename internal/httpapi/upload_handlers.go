package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wizqueue/internal/invoice"
	"wizqueue/internal/logging"
	"wizqueue/internal/processing"
	"wizqueue/internal/rasterize"
)

const (
	uploadField = "invoice"
	// multipartOverhead leaves room for boundaries and part headers.
	multipartOverhead = 64 << 10
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (s *Server) uploadInvoice(c *gin.Context) {
	maxSize := s.cfg.Upload.MaxFileSize
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	fh, err := c.FormFile(uploadField)
	if err != nil {
		if isTooLarge(err) {
			respondFail(c, http.StatusRequestEntityTooLarge, "File too large",
				fmt.Sprintf("Maximum file size is %d bytes", maxSize))
			return
		}
		respondFail(c, http.StatusBadRequest, "No file uploaded", "")
		return
	}
	if fh.Size > maxSize {
		respondFail(c, http.StatusRequestEntityTooLarge, "File too large",
			fmt.Sprintf("Maximum file size is %d bytes", maxSize))
		return
	}
	if !s.cfg.IsAllowedType(fh.Header.Get("Content-Type")) {
		respondFail(c, http.StatusBadRequest, "Invalid file type",
			"Invalid file type. Allowed types: "+strings.Join(s.cfg.Upload.AllowedTypes, ", "))
		return
	}

	storedPath := filepath.Join(s.cfg.Paths.UploadDir, storedName(fh.Filename, time.Now()))
	if err := saveUpload(fh, storedPath); err != nil {
		_ = os.Remove(storedPath)
		s.respondError(c, fmt.Errorf("save upload: %w", err))
		return
	}
	if err := rasterize.SniffFile(storedPath); err != nil {
		_ = os.Remove(storedPath)
		if errors.Is(err, rasterize.ErrNotPDF) {
			respondFail(c, http.StatusBadRequest, "Invalid file type",
				"Invalid file type. Uploaded content is not a PDF document")
			return
		}
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	inv, err := s.deps.Invoices.Create(ctx, fh.Filename, storedPath)
	if err != nil {
		_ = os.Remove(storedPath)
		s.respondError(c, err)
		return
	}

	task := processing.Task{InvoiceID: inv.ID, FilePath: storedPath, SubmittedAt: time.Now().UTC()}
	if err := s.deps.Dispatcher.Dispatch(ctx, task); err != nil {
		logger := logging.WithContext(ctx, s.logger)
		logger.Warn("invoice dispatch failed",
			logging.Int64("invoice_id", inv.ID),
			logging.Error(err),
		)
		if markErr := s.deps.Invoices.MarkFailed(ctx, inv.ID, processing.FailureMessage(err)); markErr != nil {
			logger.Error("record dispatch failure", logging.Int64("invoice_id", inv.ID), logging.Error(markErr))
		}
		_ = os.Remove(storedPath)
		s.respondError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, UploadResult{
		InvoiceID: inv.ID,
		Filename:  inv.Filename,
		Message:   "Processing started",
	}, "Invoice uploaded successfully. Processing started.")
}

func (s *Server) getInvoiceStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	inv, err := s.deps.Invoices.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if inv == nil {
		respondFail(c, http.StatusNotFound, "Invoice not found", "")
		return
	}
	respondOK(c, http.StatusOK, toInvoiceStatus(inv, s.inFlight(inv.ID)), "")
}

func (s *Server) listInvoices(c *gin.Context) {
	limit := invoice.DefaultListLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondFail(c, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		limit = parsed
	}
	invoices, err := s.deps.Invoices.List(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	out := make([]Invoice, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, toInvoice(inv, s.inFlight(inv.ID)))
	}
	respondOK(c, http.StatusOK, out, "")
}

// inFlight is false when tasks run on another process behind the broker.
func (s *Server) inFlight(id int64) bool {
	if s.deps.Tasks == nil {
		return false
	}
	return s.deps.Tasks.InFlight(id)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// storedName builds <basename>-<unix millis>-<short uuid>.pdf.
func storedName(original string, now time.Time) string {
	base := filepath.Base(strings.ReplaceAll(original, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.Trim(unsafeName.ReplaceAllString(base, "_"), "._-")
	if base == "" {
		base = "invoice"
	}
	if len(base) > 100 {
		base = base[:100]
	}
	return fmt.Sprintf("%s-%d-%s.pdf", base, now.UnixMilli(), uuid.NewString()[:8])
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
