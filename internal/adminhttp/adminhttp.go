// Package adminhttp is the minimal gin router operators use to manage a
// running batchcore process. It deliberately never accepts a trigger —
// that's the external scheduler's surface, not this one — it exists only
// so operators can poll liveness, scrape Prometheus metrics, read the
// metadata lock's queue depth, look an execution up by external trigger
// id, and issue a stop by execution id. Its shape: a /healthz liveness
// route, trace-context middleware, and an errors.As(err, *apierr.Error)
// response pattern in the handlers that can fail.
package adminhttp

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/brightloop/batchcore/internal/coordinator"
	"github.com/brightloop/batchcore/internal/metrics"
	"github.com/brightloop/batchcore/internal/platform/apierr"
	"github.com/brightloop/batchcore/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// attachTraceContext assigns a trace/request id per inbound request,
// threading it through the context so downstream logging can correlate
// admin-surface calls even though this process exports no spans to a
// tracing backend.
func attachTraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := strings.TrimSpace(c.GetHeader(headerTraceID))
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx := ctxutil.WithTraceData(c.Request.Context(), &ctxutil.TraceData{
			TraceID:   traceID,
			RequestID: reqID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerTraceID, traceID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()
	}
}

func respondAPIErr(c *gin.Context, err error) {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		c.JSON(ae.Status, gin.H{"error": ae.Code, "message": ae.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "message": err.Error()})
}

// New builds the admin/observability router bound to coord (for queue
// depth, stop, and lookup) and reg (the metrics registry).
func New(coord *coordinator.Coordinator, reg *metrics.Registry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), attachTraceContext())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", func(c *gin.Context) {
		reg.LockQueueDepth.Set(float64(coord.QueueDepth()))
		c.Status(200)
		c.Header("Content-Type", "text/plain; version=0.0.4")
		_ = reg.WritePrometheus(c.Writer)
	})

	router.GET("/debug/lockqueue", func(c *gin.Context) {
		c.JSON(200, gin.H{"depth": coord.QueueDepth()})
	})

	// GET /executions/by-trigger/:triggerId looks an execution up by the
	// external caller's correlation id, for the scheduler's asynchronous-
	// acknowledgment flow.
	router.GET("/executions/by-trigger/:triggerId", func(c *gin.Context) {
		triggerID := c.Param("triggerId")
		exec, err := coord.FindByTriggerID(c.Request.Context(), triggerID)
		if err != nil {
			respondAPIErr(c, apierr.FromCoordinatorError(err))
			return
		}
		if exec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		ctxutil.WithExecutionID(c.Request.Context(), exec.ID.String())
		c.JSON(http.StatusOK, exec)
	})

	// POST /executions/:id/stop requests cooperative cancellation of a
	// running execution.
	router.POST("/executions/:id/stop", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			respondAPIErr(c, apierr.New(http.StatusBadRequest, "invalid_execution_id", err))
			return
		}
		ctxutil.WithExecutionID(c.Request.Context(), id.String())
		stopped, err := coord.Stop(c.Request.Context(), id)
		if err != nil {
			respondAPIErr(c, apierr.FromCoordinatorError(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"stopped": stopped})
	})

	return router
}
