package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Config
		endpoint string
		ratio    float64
		env      string
	}{
		{"development samples everything", Config{OTLPEndpoint: "http://collector:4317", SampleRatio: 0.2}, "collector:4317", 1, "development"},
		{"production keeps ratio", Config{Environment: "production", OTLPEndpoint: "https://collector:4317", SampleRatio: 0.25}, "collector:4317", 0.25, "production"},
		{"invalid ratio falls back", Config{Environment: "staging", OTLPEndpoint: "collector:4317", SampleRatio: 3}, "collector:4317", 0.1, "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			assert.Equal(t, tt.endpoint, got.OTLPEndpoint)
			assert.Equal(t, tt.ratio, got.SampleRatio)
			assert.Equal(t, tt.env, got.Environment)
		})
	}
}

func TestServiceAttributes(t *testing.T) {
	attrs := ServiceAttributes(Config{ServiceName: "pointage", ServiceVersion: "v1", Environment: "production"})

	values := map[string]string{}
	for _, kv := range attrs {
		values[string(kv.Key)] = kv.Value.AsString()
	}
	assert.Equal(t, "pointage", values["service.name"])
	assert.Equal(t, "v1", values["service.version"])
	assert.Equal(t, "production", values["deployment.environment"])
	assert.Equal(t, "pointage", values["service.namespace"])
}
