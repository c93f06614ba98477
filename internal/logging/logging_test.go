package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("reviewd", "debug", "json", &buf)

	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = context.WithValue(ctx, UserIDKey, "user-1")
	ctx = context.WithValue(ctx, RoleKey, "admin")

	log.WithContext(ctx).Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "reviewd", entry["service"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "admin", entry["role"])
	assert.Equal(t, "hello", entry["msg"])
}

func TestLogRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("reviewd", "info", "json", &buf)

	log.LogRequest(context.Background(), http.MethodGet, "/submissions", 503, 15*time.Millisecond)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.EqualValues(t, 503, entry["status"])
	assert.EqualValues(t, 15, entry["duration_ms"])
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	log := New("reviewd", "loud", "text")
	assert.Equal(t, "info", log.GetLevel().String())
}

func TestTraceIDHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, WithTraceID(ctx, ""))
	assert.Empty(t, GetTraceID(ctx))
	assert.NotEmpty(t, NewTraceID())
	assert.NotEqual(t, NewTraceID(), NewTraceID())
}
