package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("debug", &buf)
	require.NoError(t, err)

	log.Sugar().Infow("Posted", "title", "Go")
	require.NoError(t, log.Sync())

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "INFO", line["level"])
	assert.Equal(t, "Posted", line["msg"])
	assert.Equal(t, "Go", line["title"])
	assert.Contains(t, line, "timestamp")
	assert.Contains(t, line, "caller")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("warn", &buf)
	require.NoError(t, err)

	log.Info("hidden")
	assert.Empty(t, buf.String())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInvalidLevel(t *testing.T) {
	_, err := NewWithWriter("loud", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestDefaultLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("", &buf)
	require.NoError(t, err)

	log.Debug("hidden")
	assert.Empty(t, buf.String())
}
