package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogrusLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLogger("mutabakat", logrus.InfoLevel, true, &buf)

	logger.Info("otp issued", "link_id", 7, "error", errors.New("x"), "dangling")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "otp issued", entry["msg"])
	assert.Equal(t, "mutabakat", entry["service"])
	assert.Equal(t, float64(7), entry["link_id"])
	assert.Equal(t, "x", entry["error"])
	assert.NotContains(t, entry, "dangling")
}

func TestLogrusLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrusLogger("mutabakat", logrus.WarnLevel, false, &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
}

func TestNewLogger_TestEnvironment(t *testing.T) {
	assert.IsType(t, &NoOpLogger{}, NewLogger("svc", "test", "INFO"))
}
