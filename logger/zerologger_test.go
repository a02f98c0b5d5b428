package logger

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, TraceLevel, ParseLogLevel("trace"))
	assert.Equal(t, WarnLevel, ParseLogLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLogLevel("err"))
	assert.Equal(t, DisabledLevel, ParseLogLevel("off"))
	assert.Equal(t, InfoLevel, ParseLogLevel("bogus"))
	assert.Equal(t, "warn", WarnLevel.String())
}

func TestParseOutputFormat(t *testing.T) {
	assert.Equal(t, JSONFormat, ParseOutputFormat("json"))
	assert.Equal(t, DefaultFormat, ParseOutputFormat("standard"))
}

func TestZerologLogger_LevelIsPerInstance(t *testing.T) {
	quiet, quietBuf := createTestLogger(t, ErrorLevel)
	loud, loudBuf := createTestLogger(t, DebugLevel)

	quiet.Debug("hidden")
	loud.Debug("shown")

	assert.Empty(t, quietBuf.String())
	assert.Contains(t, loudBuf.String(), "shown")
	assert.False(t, quiet.IsLevelEnabled(WarnLevel))
	assert.True(t, loud.IsLevelEnabled(WarnLevel))
}

func TestZerologLogger_WithFields(t *testing.T) {
	log, buf := createTestLogger(t, InfoLevel)

	log.WithFields(String("path", "secret/foo"), Int("status", 200)).
		WithSubsystem("api").
		Info("request", Strings("warnings", []string{"w1"}), Bool("wrapped", true))

	entry := lastLine(t, buf)
	assert.Equal(t, "secret/foo", entry["path"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, "api", entry["module"])
	assert.Equal(t, []any{"w1"}, entry["warnings"])
	assert.Equal(t, true, entry["wrapped"])
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.Error("nothing")
	assert.False(t, log.IsLevelEnabled(ErrorLevel))
	assert.NoError(t, log.Close())
}

func TestZerologLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "client.log")
	log := NewZerologLogger(&Config{
		Level:      InfoLevel,
		Format:     JSONFormat,
		Outputs:    []io.Writer{io.Discard},
		FileConfig: DefaultFileConfig(path),
	})
	log.Info("to file")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
