package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONRedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "debug")

	log.Info("login attempt",
		"email", "a@example.com",
		"password", "hunter2",
		"refresh_token", "rt-secret",
		slog.Group("request", slog.String("Authorization", "Bearer abc")),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "a@example.com", record["email"])
	assert.Equal(t, redacted, record["password"])
	assert.Equal(t, redacted, record["refresh_token"])
	request, ok := record["request"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, redacted, request["Authorization"])
	assert.NotContains(t, buf.String(), "hunter2")
	assert.NotContains(t, buf.String(), "rt-secret")
}

func TestNew_WithAttrsAreRedacted(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "json", "info").With("access_token", "at-secret")

	log.Info("issued")

	assert.NotContains(t, buf.String(), "at-secret")
	assert.Contains(t, buf.String(), redacted)
}

func TestNew_PrettyRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "pretty", "warn")

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown", "error", errors.New("boom"), "password", "hunter2")
	out := buf.String()
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "hunter2")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestPrettyHandler_NilOptions(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))

	log.Debug("hidden")
	log.Info("visible", slog.Group("db", slog.Int("conns", 4)))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "db.conns")
}

func TestPrettyHandler_BoundAttrsKeepTheirGroup(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil)).
		With("request_id", "r-1").
		WithGroup("user").
		With("id", "u-1")

	log.Info("loaded", "email", "a@example.com", "took", 1500*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "request_id"+reset+"=r-1")
	assert.NotContains(t, out, "user.request_id")
	assert.Contains(t, out, "user.id"+reset+"=u-1")
	assert.Contains(t, out, "user.email"+reset+"=a@example.com")
	assert.Contains(t, out, "user.took"+reset+"=1.5s")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}
