package jsonlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, time.UTC)

	l.Log(map[string]any{"event": "db_migration_failed", "status": "error"})
	l.Log(map[string]any{"event": "db_migration_step", "status": "success"})
	l.Warn("photo_omitted", map[string]any{"component": "exporter"})

	sc := bufio.NewScanner(&buf)
	var entries []map[string]any
	for sc.Scan() {
		var e map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}

	require.Len(t, entries, 3)
	assert.Equal(t, "error", entries[0]["level"])
	assert.Equal(t, "info", entries[1]["level"])
	assert.Equal(t, "warn", entries[2]["level"])
	assert.Equal(t, "photo_omitted", entries[2]["msg"])
	assert.Equal(t, "exporter", entries[2]["component"])

	_, err := time.Parse(time.RFC3339Nano, entries[0]["ts"].(string))
	assert.NoError(t, err)
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("nothing", nil) })
}
