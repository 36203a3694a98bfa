package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// RequestTelemetry logs one line per request and records API metrics from a
// single timing. Either sink may be nil. The caller identity is read after
// c.Next so route-level auth has attached it.
func RequestTelemetry(log *logger.Logger, m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.ApiInflightInc()
		c.Next()
		m.ApiInflightDec()
		dur := time.Since(start)

		method := strings.ToUpper(c.Request.Method)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.ObserveAPI(method, route, strconv.Itoa(status), dur)

		if log == nil {
			return
		}
		fields := []any{
			"method", method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", dur.Milliseconds(),
		}
		fields = append(fields, ctxutil.LogFields(c.Request.Context())...)
		if last := c.Errors.Last(); last != nil {
			fields = append(fields, "error", last.Err)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
