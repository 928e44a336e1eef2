package router

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-training/integration-relay/pkg/core"

	"github.com/gin-contrib/cors"
	sloggin "github.com/gin-contrib/slog"
	"github.com/gin-gonic/gin"
)

// RequestIDHeader carries the request id in and out of the relay.
const RequestIDHeader = "X-Request-ID"

// requestID reuses the caller's X-Request-ID or generates one, and exposes it
// through the request context.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := core.WithRequestIDValue(c.Request.Context(), strings.TrimSpace(c.GetHeader(RequestIDHeader)))
		c.Request = c.Request.WithContext(ctx)
		c.Header(RequestIDHeader, core.RequestIDFromCtx(ctx))
		c.Next()
	}
}

// redactedParams never reach the access log in clear text.
var redactedParams = []string{"code", "state", "error_description"}

// accessLog writes one structured line per request through the
// request-scoped logger, so every line carries request_id.
func accessLog() gin.HandlerFunc {
	return sloggin.SetLogger(
		sloggin.WithLogger(func(c *gin.Context, _ *slog.Logger) *slog.Logger {
			return core.LoggerFromCtx(c.Request.Context())
		}),
		sloggin.WithMessage("http request"),
		sloggin.WithDefaultLevel(slog.LevelInfo),
		sloggin.WithClientErrorLevel(slog.LevelWarn),
		sloggin.WithServerErrorLevel(slog.LevelError),
		sloggin.WithSkipper(belowLogLevel),
		sloggin.WithContext(redactQuery),
	)
}

// belowLogLevel skips requests whose line the logger would drop anyway.
// The middleware hands records straight to the handler, bypassing Enabled.
func belowLogLevel(c *gin.Context) bool {
	level := slog.LevelInfo
	switch status := c.Writer.Status(); {
	case status >= http.StatusInternalServerError:
		level = slog.LevelError
	case status >= http.StatusBadRequest:
		level = slog.LevelWarn
	}
	return !slog.Default().Enabled(c.Request.Context(), level)
}

// redactQuery masks OAuth callback values in the logged query string.
func redactQuery(_ *gin.Context, r *slog.Record) *slog.Record {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "query" {
			a = slog.String("query", redactValues(a.Value.String()))
		}
		out.AddAttrs(a)
		return true
	})
	return &out
}

func redactValues(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[unparsable]"
	}
	for _, k := range redactedParams {
		if q.Has(k) {
			q.Set(k, "[redacted]")
		}
	}
	return q.Encode()
}

// corsMiddleware allows the configured origins. A "*" entry allows every
// origin, in which case credentials are not allowed.
func corsMiddleware(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader, "Mcp-Protocol-Version", "Mcp-Session-Id"},
		ExposeHeaders: []string{RequestIDHeader, "Mcp-Session-Id"},
		MaxAge:        12 * time.Hour,
	}

	var explicit []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			config.AllowAllOrigins = true
		default:
			explicit = append(explicit, o)
		}
	}
	if !config.AllowAllOrigins {
		if len(explicit) == 0 {
			config.AllowAllOrigins = true
		} else {
			config.AllowOrigins = explicit
			config.AllowCredentials = true
		}
	}

	return cors.New(config)
}
