package handler

import (
	"errors"
	"net/http"
	"strconv"

	"marketstock/internal/apierror"
	"marketstock/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// DLQHandler lets an admin inspect and replay dead-lettered jobs.
type DLQHandler struct{ rdb *redis.Client }

func NewDLQHandler(rdb *redis.Client) *DLQHandler {
	return &DLQHandler{rdb: rdb}
}

// queueParam maps the short route name (recompute, ingest) to the queue key.
func queueParam(c *gin.Context) string {
	return "jobs:" + c.Param("queue")
}

func limitParam(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 1000 {
		c.JSON(http.StatusBadRequest, apierror.New("limit must be between 1 and 1000"))
		return 0, false
	}
	return n, true
}

// Peek GET /v1/admin/dlq/:queue
func (h *DLQHandler) Peek(c *gin.Context) {
	limit, ok := limitParam(c, 50)
	if !ok {
		return
	}
	entries, err := worker.PeekDLQ(c.Request.Context(), h.rdb, queueParam(c), int64(limit))
	if errors.Is(err, worker.ErrUnknownQueue) {
		c.JSON(http.StatusNotFound, apierror.Coded(apierror.CodeNotFound, err.Error()))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

// Replay POST /v1/admin/dlq/:queue/replay
func (h *DLQHandler) Replay(c *gin.Context) {
	limit, ok := limitParam(c, 100)
	if !ok {
		return
	}
	n, err := worker.ReplayDLQ(c.Request.Context(), h.rdb, queueParam(c), limit)
	if errors.Is(err, worker.ErrUnknownQueue) {
		c.JSON(http.StatusNotFound, apierror.Coded(apierror.CodeNotFound, err.Error()))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": n})
}
