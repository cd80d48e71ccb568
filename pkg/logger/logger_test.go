package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNewWithWriter_SetsLevelAndBaseFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "staging", LogLevel: "warn"}, &buf)

	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	log.Info("dropped")
	assert.Zero(t, buf.Len(), "info must be filtered at warn level")

	log.Warn("kept")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "kept", entry["message"])
	assert.Equal(t, "staging", entry["env"])
	assert.Equal(t, "curator", entry["service"])
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"panic", zerolog.PanicLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	base := &Logger{zlog: zerolog.New(&buf)}

	t.Run("WithFields", func(t *testing.T) {
		buf.Reset()
		base.WithFields(map[string]interface{}{"draft_id": "d-1", "count": 3}).Info("draft created")
		entry := decodeLine(t, &buf)
		assert.Equal(t, "d-1", entry["draft_id"])
		assert.Equal(t, float64(3), entry["count"])
	})

	t.Run("WithKeyvals drops dangling key", func(t *testing.T) {
		buf.Reset()
		base.WithKeyvals("job", "lifecycle_check", "orphan").Info("tick")
		entry := decodeLine(t, &buf)
		assert.Equal(t, "lifecycle_check", entry["job"])
		assert.NotContains(t, entry, "orphan")
	})

	t.Run("WithComponent", func(t *testing.T) {
		buf.Reset()
		base.WithComponent("judge").Debug("resolving")
		assert.Equal(t, "judge", decodeLine(t, &buf)["component"])
	})

	t.Run("WithError", func(t *testing.T) {
		buf.Reset()
		base.WithError(errors.New("candle fetch timeout")).Error("resolve failed")
		entry := decodeLine(t, &buf)
		assert.Equal(t, "candle fetch timeout", entry["error"])
		assert.Equal(t, "error", entry["level"])
	})

	t.Run("Infof", func(t *testing.T) {
		buf.Reset()
		base.Infof("pending drafts: %d", 4)
		assert.Equal(t, "pending drafts: 4", decodeLine(t, &buf)["message"])
	})
}

func TestNop(t *testing.T) {
	log := Nop()
	// must not panic or write anywhere
	log.WithField("k", "v").Error("ignored")
}
