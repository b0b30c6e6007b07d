package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{" error ", LevelError},
		{"unknown", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "input %q", tt.input)
	}
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "json", LevelInfo)
	t.Cleanup(func() { Init(os.Stderr, "text", LevelInfo) })

	Error("refresh failed", errors.New("boom"), "source", "main")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m), buf.String())
	assert.Equal(t, "refresh failed", m["msg"])
	assert.Equal(t, "ERROR", m["level"])
	assert.Equal(t, "boom", m["err"])
	assert.Equal(t, "main", m["source"])
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "text", LevelInfo)
	t.Cleanup(func() { Init(os.Stderr, "text", LevelInfo) })

	Debug("hidden")
	assert.Empty(t, buf.String())

	SetLevel(LevelDebug)
	Debug("shown", "k", "v")
	assert.True(t, strings.Contains(buf.String(), "k=v"), buf.String())

	buf.Reset()
	SetLevel(LevelError)
	Info("dropped")
	Warn("dropped too")
	assert.Empty(t, buf.String())
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(&buf, "text", LevelDebug)
	t.Cleanup(func() { Init(os.Stderr, "text", LevelInfo) })

	l := CronLogger()
	l.Info("wake", "now", "x")
	l.Error(errors.New("bad spec"), "schedule")

	out := buf.String()
	assert.Contains(t, out, "cron: wake")
	assert.Contains(t, out, "cron: schedule")
	assert.Contains(t, out, "bad spec")
}
