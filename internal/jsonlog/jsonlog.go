// Package jsonlog writes one JSON object per line, the log format used by every
// component of the service.
package jsonlog

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes structured entries to an io.Writer. It is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	enc *json.Encoder
	loc *time.Location
}

// New returns a Logger writing to w with timestamps in loc.
func New(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.UTC
	}
	return &Logger{enc: json.NewEncoder(w), loc: loc}
}

// Stdout returns a Logger writing to standard output.
func Stdout(loc *time.Location) *Logger {
	return New(os.Stdout, loc)
}

// Location returns the timezone used for the ts field.
func (l *Logger) Location() *time.Location {
	return l.loc
}

// Log writes data with a ts field. When level is missing it is derived from
// status: "error" for status=error, "info" otherwise.
func (l *Logger) Log(data map[string]any) {
	if l == nil {
		return
	}
	data["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.enc.Encode(data)
}

// Info logs msg with extra fields at info level.
func (l *Logger) Info(msg string, fields map[string]any) {
	l.Log(with(fields, "info", msg))
}

// Warn logs msg with extra fields at warn level.
func (l *Logger) Warn(msg string, fields map[string]any) {
	l.Log(with(fields, "warn", msg))
}

// Error logs msg with extra fields at error level.
func (l *Logger) Error(msg string, fields map[string]any) {
	l.Log(with(fields, "error", msg))
}

func with(fields map[string]any, level, msg string) map[string]any {
	data := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		data[k] = v
	}
	data["level"] = level
	data["msg"] = msg
	return data
}
