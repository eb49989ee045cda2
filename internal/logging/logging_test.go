package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestJSONComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	log := Component(New(&buf, Config{Level: "info", Format: "json"}), "ledger")
	log.Debug("hidden")
	log.Info("saved", "categories", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "saved", rec["msg"])
	assert.Equal(t, "ledger", rec["component"])
	assert.EqualValues(t, 3, rec["categories"])
}

func TestTextHandlerIsDefault(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, Config{}).Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
