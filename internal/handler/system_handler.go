package handler

import (
	"net/http"
	"time"

	"github.com/CodesWithRakib/edutrack-exam-backend/internal/config"
	"github.com/CodesWithRakib/edutrack-exam-backend/internal/response"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// SystemHandler exposes liveness and queue-depth probes.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
	}
}

// Health godoc
// GET /health
// Pings PostgreSQL and Redis and reports persistence queue depths.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()

	status := http.StatusOK
	dbOK := h.pool.Ping(ctx) == nil
	redisOK := h.rdb.Ping(ctx).Err() == nil
	if !dbOK || !redisOK {
		status = http.StatusServiceUnavailable
	}

	var queueAnswers, queueResults int64
	if redisOK {
		queueAnswers, _ = h.rdb.LLen(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		queueResults, _ = h.rdb.LLen(ctx, config.WorkerKey.PersistResultsQueue).Result()
	}

	response.Success(c, status, gin.H{
		"status":         map[bool]string{true: "ok", false: "degraded"}[dbOK && redisOK],
		"postgres":       dbOK,
		"redis":          redisOK,
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
		"queue_answers":  queueAnswers,
		"queue_results":  queueResults,
	})
}
