package middleware

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"

	"cardapi/internal/jsonlog"
)

// PhotoOmittedHeader is set by card downloads whose PHOTO field was left out.
const PhotoOmittedHeader = "X-Vcard-Photo-Omitted"

// Logger logs each HTTP request as one JSON line on stdout.
func Logger(loc *time.Location) fiber.Handler {
	return LoggerWithWriter(os.Stdout, loc)
}

// LoggerWithWriter is Logger writing to w. Each entry carries request_id
// (from RequestID), method, path without query, status and latency in ms,
// plus trace_id when the request is traced.
// Card downloads also record whether the photo was omitted.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	log := jsonlog.New(w, loc)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		entry := map[string]any{
			"request_id": rid,
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"latency":    float64(time.Since(start).Microseconds()) / 1000,
		}
		if sc := trace.SpanContextFromContext(c.UserContext()); sc.IsValid() {
			entry["trace_id"] = sc.TraceID().String()
		}
		if omitted := c.GetRespHeader(PhotoOmittedHeader); omitted != "" {
			entry["photo_omitted"] = true
		}
		if entry["status"].(int) >= fiber.StatusInternalServerError {
			entry["level"] = "error"
		}
		log.Log(entry)

		return err
	}
}
