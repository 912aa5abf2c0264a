package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/pocketbook/internal/logging"
)

func TestNew(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer

		logging.New(&buf, slog.LevelInfo, "JSON").Info("started", "port", 8080)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "started", entry["msg"])
		assert.InDelta(t, 8080, entry["port"], 0)
	})

	t.Run("TextFiltersLevel", func(t *testing.T) {
		var buf bytes.Buffer

		logger := logging.New(&buf, slog.LevelWarn, "text")
		logger.Info("hidden")
		logger.Warn("shown", "user_id", "alice")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "msg=shown user_id=alice")
	})
}
