package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestLogger(t *testing.T, level LogLevel) (Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return NewZerologLogger(&Config{
		Level:   level,
		Format:  JSONFormat,
		Outputs: []io.Writer{buf},
	}), buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestHCLogAdapter_LogLevels(t *testing.T) {
	tests := []struct {
		name    string
		logFunc func(adapter hclog.Logger)
		level   string
	}{
		{"Trace", func(a hclog.Logger) { a.Trace("msg") }, "trace"},
		{"Debug", func(a hclog.Logger) { a.Debug("msg") }, "debug"},
		{"Info", func(a hclog.Logger) { a.Info("msg") }, "info"},
		{"Warn", func(a hclog.Logger) { a.Warn("msg") }, "warn"},
		{"Error", func(a hclog.Logger) { a.Error("msg") }, "error"},
		{"Log", func(a hclog.Logger) { a.Log(hclog.Warn, "msg") }, "warn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := createTestLogger(t, TraceLevel)
			tt.logFunc(NewHCLogAdapter(log))

			entry := lastLine(t, buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "msg", entry["message"])
		})
	}
}

func TestHCLogAdapter_WithArgs(t *testing.T) {
	log, buf := createTestLogger(t, TraceLevel)
	adapter := NewHCLogAdapter(log).With("method", "GET")

	adapter.Debug("performing request", "url", "http://127.0.0.1:8200/v1/sys/health", "error", errors.New("boom"))

	entry := lastLine(t, buf)
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "http://127.0.0.1:8200/v1/sys/health", entry["url"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, []interface{}{"method", "GET"}, adapter.ImpliedArgs())
}

func TestHCLogAdapter_ArgsToFields_OddAndNonStringKeys(t *testing.T) {
	log, _ := createTestLogger(t, TraceLevel)
	adapter := NewHCLogAdapter(log).(*HCLogAdapter)

	fields := adapter.argsToFields([]interface{}{"a", 1, 2, "b", "dangling"})
	require.Len(t, fields, 1)
	assert.Equal(t, AnyField{Key: "a", Value: 1}, fields[0])
}

func TestHCLogAdapter_Named(t *testing.T) {
	log, buf := createTestLogger(t, TraceLevel)

	named := NewHCLogAdapter(log).Named("transport").Named("retry")
	assert.Equal(t, "transport.retry", named.Name())

	named.Info("hello")
	assert.Equal(t, "transport.retry", lastLine(t, buf)["module"])

	reset := named.ResetNamed("other")
	assert.Equal(t, "other", reset.Name())
}

func TestHCLogAdapter_GetLevel(t *testing.T) {
	log, _ := createTestLogger(t, WarnLevel)
	adapter := NewHCLogAdapter(log)

	assert.Equal(t, hclog.Warn, adapter.GetLevel())
	assert.False(t, adapter.IsDebug())
	assert.True(t, adapter.IsError())

	adapter.SetLevel(hclog.Trace)
	assert.Equal(t, hclog.Warn, adapter.GetLevel())

	assert.Equal(t, hclog.Off, NewHCLogAdapter(NewNopLogger()).GetLevel())
}

func TestHCLogAdapter_StandardLogger(t *testing.T) {
	log, buf := createTestLogger(t, TraceLevel)
	std := NewHCLogAdapter(log).StandardLogger(nil)
	require.NotNil(t, std)

	std.Println("from stdlib")
	assert.Equal(t, "from stdlib", lastLine(t, buf)["message"])
}
