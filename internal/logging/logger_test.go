package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/sarge/internal/logging"
)

func init() {
	color.NoColor = true
}

func capture(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	logging.SetOutput(&buf, false)
	t.Cleanup(func() { logging.SetOutput(os.Stderr, false) })
	fn()
	return buf.String()
}

func TestLevelsArePrefixed(t *testing.T) {
	out := capture(t, func() {
		logging.Info("hello %d", 1)
		logging.Warn("careful")
		logging.Error("boom: %s", "x")
	})
	assert.Contains(t, out, "[INFO] hello 1")
	assert.Contains(t, out, "[WARN] careful")
	assert.Contains(t, out, "[ERROR] boom: x")
}

func TestDebugRequiresVerbose(t *testing.T) {
	out := capture(t, func() {
		logging.SetVerbose(false)
		logging.Debug("hidden")
		logging.SetVerbose(true)
		logging.Debug("shown")
		logging.SetVerbose(false)
	})
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[DEBUG] shown")
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sarge.log")
	closeLog, err := logging.OpenFile(path)
	require.NoError(t, err)
	logging.Info("to file")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] to file")
}
