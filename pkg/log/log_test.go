package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestChildLoggersCarryTheirField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	logger := WithComponent("pubsub")
	logger.Info().Msg("hello")
	assert.Equal(t, "pubsub", logLine(t, &buf)["component"])

	buf.Reset()
	logger = WithCollection("users")
	logger.Info().Msg("hello")
	assert.Equal(t, "users", logLine(t, &buf)["collection"])

	buf.Reset()
	logger = WithRequestID("req-123")
	logger.Info().Msg("hello")
	assert.Equal(t, "req-123", logLine(t, &buf)["request_id"])
}

func TestInitRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: ErrorLevel, JSONOutput: true, Output: &buf})

	Logger.Info().Msg("suppressed")
	assert.Empty(t, buf.Bytes())

	Logger.Error().Msg("kept")
	assert.NotEmpty(t, buf.Bytes())
}
