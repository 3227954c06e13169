package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/browserwing/actionrunner/export"
	"github.com/browserwing/actionrunner/models"
	"github.com/browserwing/actionrunner/pkg/logger"
	"github.com/browserwing/actionrunner/pkg/metrics"
	"github.com/browserwing/actionrunner/services/runner"
	"github.com/browserwing/actionrunner/storage"
	"github.com/browserwing/actionrunner/templates"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RunService executes runs.
type RunService interface {
	Run(ctx context.Context, in models.RunInput) (*models.RunSummary, error)
}

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(run *models.RunRecord) error
	GetRun(id string) (*models.RunRecord, error)
	ListRuns(limit int) ([]*models.RunRecord, error)
	DeleteRun(id string) error
}

type Handler struct {
	runner    RunService
	db        RunStore
	metrics   *metrics.Collector
	log       logger.Logger
	maxOutput int
	runLimit  gin.HandlerFunc
}

func NewHandler(svc RunService, db RunStore, collector *metrics.Collector, log logger.Logger, maxOutput int) *Handler {
	return &Handler{
		runner:    svc,
		db:        db,
		metrics:   collector,
		log:       log,
		maxOutput: maxOutput,
	}
}

// LimitRuns rate limits run creation per client. rps <= 0 leaves it open.
func (h *Handler) LimitRuns(ctx context.Context, rps float64, burst int) *Handler {
	if rps > 0 {
		h.runLimit = RateLimitMiddleware(ctx, rps, burst)
	}
	return h
}

func (h *Handler) runLimiter() gin.HandlerFunc {
	if h.runLimit == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h.runLimit
}

// ListTemplates lists the built-in templates.
func (h *Handler) ListTemplates(c *gin.Context) {
	list := templates.List()
	c.JSON(http.StatusOK, gin.H{
		"templates": list,
		"total":     len(list),
	})
}

// CreateRun executes a run synchronously and stores its record.
func (h *Handler) CreateRun(c *gin.Context) {
	ctx := c.Request.Context()

	var in models.RunInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid run input: " + err.Error()})
		return
	}
	if in.Engine != "" && !in.Engine.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown browser_type: %s", in.Engine)})
		return
	}

	id := uuid.New().String()
	started := time.Now()
	// a client disconnect does not stop a run that has started
	summary, err := h.runner.Run(runner.WithRunID(context.WithoutCancel(ctx), id), in)
	finished := time.Now()

	record := &models.RunRecord{
		ID:          id,
		Template:    in.Template,
		TraceID:     logger.GetTraceID(ctx),
		ActionCount: len(summary.Actions),
		Summary:     summary,
		StartedAt:   started,
		FinishedAt:  finished,
		DurationMS:  finished.Sub(started).Milliseconds(),
		Screenshots: summary.Screenshots,
	}
	if h.metrics != nil {
		h.metrics.RecordRun(summary, finished.Sub(started))
	}
	if saveErr := h.db.SaveRun(record); saveErr != nil {
		h.log.Error(ctx, "Failed to save run %s: %v", record.ID, saveErr)
	}

	status := http.StatusOK
	if err != nil {
		status = statusForKind(models.KindOf(err))
		h.log.Warn(ctx, "Run %s failed: %v", record.ID, err)
	}
	c.JSON(status, gin.H{
		"id":      record.ID,
		"summary": summary,
	})
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindTemplateError, models.KindInvalidInput:
		return http.StatusUnprocessableEntity
	case models.KindLaunchFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ListRuns lists stored runs, newest first.
func (h *Handler) ListRuns(c *gin.Context) {
	page := 1
	pageSize := 20
	if p := c.Query("page"); p != "" {
		if parsed, err := fmt.Sscanf(p, "%d", &page); err != nil || parsed != 1 || page <= 0 {
			page = 1
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if parsed, err := fmt.Sscanf(ps, "%d", &pageSize); err != nil || parsed != 1 || pageSize <= 0 || pageSize > 100 {
			pageSize = 20
		}
	}
	template := c.Query("template")

	runs, err := h.db.ListRuns(0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get run list: " + err.Error()})
		return
	}

	filtered := make([]*models.RunRecord, 0, len(runs))
	for _, run := range runs {
		if template != "" && run.Template != template {
			continue
		}
		filtered = append(filtered, run)
	}

	total := len(filtered)
	start := (page - 1) * pageSize
	end := start + pageSize
	if start >= total {
		filtered = []*models.RunRecord{}
	} else {
		if end > total {
			end = total
		}
		filtered = filtered[start:end]
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":      filtered,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) lookupRun(c *gin.Context) (*models.RunRecord, bool) {
	run, err := h.db.GetRun(c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get run: " + err.Error()})
		return nil, false
	}
	return run, true
}

func (h *Handler) GetRun(c *gin.Context) {
	run, ok := h.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, run)
}

func (h *Handler) DeleteRun(c *gin.Context) {
	err := h.db.DeleteRun(c.Param("id"))
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete run: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Run deleted"})
}

// ExportRun writes the per-action rows of a run as csv (default), table or xlsx.
func (h *Handler) ExportRun(c *gin.Context) {
	format, err := export.ParseFormat(strings.ToLower(c.DefaultQuery("format", "csv")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, ok := h.lookupRun(c)
	if !ok {
		return
	}

	rows := export.Rows(run.Summary, h.maxOutput)
	if c.Query("remove_duplicates") == "true" || c.Query("remove_empty") == "true" {
		rows = export.Clean(rows, c.Query("remove_duplicates") == "true", c.Query("remove_empty") == "true")
	}

	c.Header("Content-Type", format.ContentType())
	if format != export.FormatTable {
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="run-%s.%s"`, run.ID, format.Extension()))
	}
	c.Status(http.StatusOK)
	if err := export.Write(c.Writer, format, rows); err != nil {
		h.log.Error(c.Request.Context(), "Failed to export run %s: %v", run.ID, err)
	}
}
