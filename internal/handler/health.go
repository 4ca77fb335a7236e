package handler

import (
	"context"
	"net/http"
	"time"

	"marketstock/internal/infra"
	"marketstock/internal/model"
	"marketstock/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports dead-letter depth and the
// state of each feed breaker. Never exposes credentials or internals.
func Health(db *gorm.DB, rdb *redis.Client, breakers map[model.MarketplaceType]*infra.CircuitBreaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq map[string]int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if depths, err := worker.DLQDepths(ctx, rdb); err == nil {
			dlq = depths
		}

		feeds := make(map[string]string, len(breakers))
		for m, cb := range breakers {
			feeds[string(m)] = cb.State().String()
		}

		// An open breaker degrades ingestion only, so it never fails the check.
		status := http.StatusOK
		if dbStatus != "connected" || redisStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    dbStatus,
			"redis": redisStatus,
			"dlq":   dlq,
			"feeds": feeds,
		})
	}
}
