package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"legaldraft/internal/apperrors"
	"legaldraft/internal/domain"
	"legaldraft/internal/loader"
	"legaldraft/internal/service"
)

// Ingestor is the write side used by upload and delete.
type Ingestor interface {
	IngestDocument(ctx context.Context, in service.UploadInput) (*service.IngestResult, error)
	DeleteTemplate(ctx context.Context, id int64) error
}

// Catalog is the read side used by template listing.
type Catalog interface {
	Get(ctx context.Context, id int64) (*domain.Template, error)
	List(ctx context.Context, q string) ([]*domain.Template, error)
}

// Drafter runs one drafting turn.
type Drafter interface {
	Draft(ctx context.Context, in service.DraftInput) (*service.DraftResult, error)
}

// Pinger reports whether the template store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health collects the probes reported by GET /healthz. Nil probes are skipped.
type Health struct {
	Store   Pinger
	Index   interface{ Len() int }
	Metrics func() map[string]int
}

// Handler serves the HTTP API.
type Handler struct {
	ingestor    Ingestor
	catalog     Catalog
	drafter     Drafter
	health      Health
	maxUploadMB int
}

func NewHandler(ingestor Ingestor, catalog Catalog, drafter Drafter, health Health, maxUploadMB int) *Handler {
	return &Handler{
		ingestor:    ingestor,
		catalog:     catalog,
		drafter:     drafter,
		health:      health,
		maxUploadMB: maxUploadMB,
	}
}

type uploadResponse struct {
	Message    string   `json:"message"`
	TemplateID int64    `json:"template_id"`
	Indexed    bool     `json:"indexed"`
	Warnings   []string `json:"warnings"`
}

// Upload handles POST /upload.
func (h *Handler) Upload(c *gin.Context) {
	if h.maxUploadMB > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.maxUploadMB)<<20)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		if bodyTooLarge(err) {
			_ = c.Error(apperrors.New(apperrors.CodeInvalidRequest,
				fmt.Sprintf("upload exceeds %d MB", h.maxUploadMB), http.StatusRequestEntityTooLarge))
			return
		}
		_ = c.Error(apperrors.InvalidRequest("multipart field \"file\" is required"))
		return
	}
	if !loader.Supported(fh.Filename) {
		_ = c.Error(apperrors.BadRequest(apperrors.CodeUnsupportedFileType,
			fmt.Sprintf("unsupported file type %q: use .pdf, .docx, .txt or .md", loader.Ext(fh.Filename))))
		return
	}

	dir, err := os.MkdirTemp("", "legaldraft-upload-")
	if err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternal, "could not stage upload", http.StatusInternalServerError))
		return
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "document"+loader.Ext(fh.Filename))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInternal, "could not stage upload", http.StatusInternalServerError))
		return
	}

	res, err := h.ingestor.IngestDocument(c.Request.Context(), service.UploadInput{
		Path:         path,
		Filename:     fh.Filename,
		Jurisdiction: c.PostForm("jurisdiction"),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	msg := "Template stored and indexed."
	if !res.Indexed {
		msg = "Template stored; indexing is pending."
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(http.StatusCreated, uploadResponse{
		Message:    msg,
		TemplateID: res.Template.ID,
		Indexed:    res.Indexed,
		Warnings:   warnings,
	})
}

type draftRequest struct {
	Query      string         `json:"query"`
	Context    map[string]any `json:"context"`
	TemplateID int64          `json:"template_id"`
	SessionID  string         `json:"session_id"`
}

type draftResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	Questions  []string `json:"questions,omitempty"`
	Missing    []string `json:"missing,omitempty"`
	Draft      string   `json:"draft,omitempty"`
	TemplateID int64    `json:"template_id"`
	SessionID  string   `json:"session_id,omitempty"`
}

// Draft handles POST /draft.
func (h *Handler) Draft(c *gin.Context) {
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.Wrap(err, apperrors.CodeInvalidRequest, "request body must be a JSON object", http.StatusBadRequest))
		return
	}
	res, err := h.drafter.Draft(c.Request.Context(), service.DraftInput{
		Query:      req.Query,
		Context:    req.Context,
		TemplateID: req.TemplateID,
		SessionID:  strings.TrimSpace(req.SessionID),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, draftResponse{
		Status:     res.Status,
		Message:    res.Message,
		Questions:  res.Questions,
		Missing:    res.Missing,
		Draft:      res.Draft,
		TemplateID: res.TemplateID,
		SessionID:  res.SessionID,
	})
}

// ListTemplates handles GET /templates.
func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.catalog.List(c.Request.Context(), strings.TrimSpace(c.Query("q")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates, "count": len(templates)})
}

// GetTemplate handles GET /templates/:id.
func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	t, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// DeleteTemplate handles DELETE /templates/:id.
func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	if err := h.ingestor.DeleteTemplate(c.Request.Context(), id); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(c *gin.Context) {
	checks := gin.H{}
	httpStatus := http.StatusOK
	status := "ok"

	if h.health.Store != nil {
		if err := h.health.Store.Ping(c.Request.Context()); err != nil {
			checks["store"] = "error"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}
	if h.health.Index != nil {
		checks["index_entries"] = h.health.Index.Len()
	}
	if h.health.Metrics != nil {
		checks["workers"] = h.health.Metrics()
	}
	c.JSON(httpStatus, gin.H{"status": status, "checks": checks})
}

func templateID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperrors.InvalidRequest("template id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func bodyTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
