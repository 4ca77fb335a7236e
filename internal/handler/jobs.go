package handler

import (
	"context"
	"net/http"
	"time"

	"marketstock/internal/apierror"
	"marketstock/internal/dto"
	"marketstock/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JobEnqueuer is the subset of the worker dispatcher the API uses.
type JobEnqueuer interface {
	EnqueueRecompute(ctx context.Context, companyID uuid.UUID) error
	EnqueueIngest(ctx context.Context, companyID uuid.UUID, from, to time.Time) error
}

// JobsHandler queues ingestion and recompute work for the caller's company.
type JobsHandler struct{ jobs JobEnqueuer }

func NewJobsHandler(jobs JobEnqueuer) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

// Recompute POST /v1/recompute
func (h *JobsHandler) Recompute(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	if err := h.jobs.EnqueueRecompute(c.Request.Context(), companyID); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, dto.RecomputeResponse{Queued: true, Queue: worker.QueueRecompute})
}

// Ingest POST /v1/ingest
func (h *JobsHandler) Ingest(c *gin.Context) {
	companyID, ok := companyID(c)
	if !ok {
		return
	}
	var req dto.IngestRequest
	if !bindAndValidate(c, &req) {
		return
	}
	from, _ := time.Parse(time.DateOnly, req.DateFrom)
	to, _ := time.Parse(time.DateOnly, req.DateTo)
	if to.Before(from) {
		c.JSON(http.StatusUnprocessableEntity, apierror.Coded(apierror.CodeValidation, "date_to is before date_from"))
		return
	}
	if err := h.jobs.EnqueueIngest(c.Request.Context(), companyID, from, to); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, dto.RecomputeResponse{Queued: true, Queue: worker.QueueIngest})
}
