package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/blockx"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
engine:
  synchronous: true
trace:
  exporter: yaml
model:
  setpoint: 23.5
  samplePeriod: 10ms
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Engine.Synchronous)
	assert.Equal(t, 4, cfg.Engine.PoolSize)
	assert.Equal(t, "yaml", cfg.Trace.Exporter)
	assert.Equal(t, 23.5, cfg.Model.Setpoint)
	assert.Equal(t, 10*time.Millisecond, cfg.Model.SamplePeriod)
	assert.Equal(t, 15.0, cfg.Model.Ambient)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "unknown key", body: "log:\n  colour: red\n", want: "colour"},
		{name: "bad level", body: "log:\n  level: loud\n", want: "log.level"},
		{name: "bad pool", body: "engine:\n  poolSize: 0\n", want: "engine.poolSize"},
		{name: "bad exporter", body: "trace:\n  exporter: jaeger\n", want: "trace.exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)

	buf.Reset()
	NewLogger("bogus", "text", &buf).Info("default level")
	assert.Contains(t, buf.String(), "level=INFO")
}

func TestAppYAMLTraceStream(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trace.Exporter = "yaml"
	cfg.Engine.Synchronous = true
	var out bytes.Buffer
	a, err := New(context.Background(), &out, cfg)
	require.NoError(t, err)

	b := blockx.NewTopology("lamp")
	dark := b.State("dark")
	b.Transition(b.Initial(), dark)
	topo, err := b.Build()
	require.NoError(t, err)

	m := blockx.NewMachine(topo, a.MachineOptions()...)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, a.Close(context.Background()))

	assert.Contains(t, out.String(), "nextState: dark")
	assert.Len(t, a.BlockOptions(), 3)
	assert.Len(t, a.ConstraintOptions(), 2)
}

func TestAppOTelTraceToFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trace.Exporter = "otel"
	cfg.Trace.File = filepath.Join(t.TempDir(), "spans.json")
	cfg.Engine.Synchronous = true
	a, err := New(context.Background(), &bytes.Buffer{}, cfg)
	require.NoError(t, err)

	b := blockx.NewTopology("lamp")
	dark := b.State("dark")
	b.Transition(b.Initial(), dark)
	topo, err := b.Build()
	require.NoError(t, err)
	m := blockx.NewMachine(topo, a.MachineOptions()...)
	require.NoError(t, m.Start(a.Context(context.Background())))
	require.NoError(t, a.Close(context.Background()))

	data, err := os.ReadFile(cfg.Trace.File)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "blockx.state.next"))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Log.Format = "xml"
	_, err := New(context.Background(), &bytes.Buffer{}, cfg)
	assert.ErrorContains(t, err, "log.format")
}
