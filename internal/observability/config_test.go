package observability

import (
	"testing"

	"github.com/smallbiznis/analytics/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaultsServiceName(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment: " production ",
		Observability: config.ObservabilityConfig{
			LogLevel:      "warn",
			OtelEnabled:   true,
			OtelEndpoint:  "collector:4317",
			OtelProtocol:  "grpc",
			SamplingRatio: 0.5,
		},
	})

	assert.Equal(t, "analytics", cfg.ServiceName)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, 0.5, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{LogLevel: "DEBUG", Environment: "production"}.Debug())
	assert.True(t, Config{LogLevel: "info", Environment: "local"}.Debug())
	assert.False(t, Config{LogLevel: "info", Environment: "staging"}.Debug())
}
