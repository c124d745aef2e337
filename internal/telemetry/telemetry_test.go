package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "convene", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SamplingRate)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestConfig_Validate_DisabledAlwaysValid(t *testing.T) {
	cfg := Config{Enabled: false, SamplingRate: 42}
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate_BadProtocol(t *testing.T) {
	cfg := Config{Enabled: true, Protocol: "carrier-pigeon", Endpoint: "localhost:4317", SamplingRate: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protocol must be grpc or http/protobuf")
}

func TestConfig_Validate_BadSamplingRate(t *testing.T) {
	cfg := Config{Enabled: true, Protocol: "grpc", Endpoint: "localhost:4317", SamplingRate: 1.5}
	require.Error(t, cfg.Validate())
}

func TestConfig_Validate_InsecureRemoteRejected(t *testing.T) {
	cfg := Config{Enabled: true, Protocol: "grpc", Endpoint: "collector.example.com:4317", Insecure: true, SamplingRate: 1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insecure connections to remote endpoints")
}

func TestConfig_IsLocalEndpoint(t *testing.T) {
	local := []string{"localhost:4317", "127.0.0.1:4317", "[::1]:4317", "::1", "127.0.0.1"}
	for _, ep := range local {
		cfg := Config{Endpoint: ep}
		assert.True(t, cfg.isLocalEndpoint(), ep)
	}

	remote := []string{"collector.example.com:4317", "10.0.0.5:4317"}
	for _, ep := range remote {
		cfg := Config{Endpoint: ep}
		assert.False(t, cfg.isLocalEndpoint(), ep)
	}
}

func TestNew_Disabled(t *testing.T) {
	tel, err := New(context.Background(), Config{}, nil)
	require.NoError(t, err)
	assert.False(t, tel.Enabled())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Enabled: true, Protocol: "smoke-signals"}, nil)
	require.Error(t, err)
}

func TestTelemetry_NilReceiverIsSafe(t *testing.T) {
	var tel *Telemetry
	assert.False(t, tel.Enabled())
	assert.NoError(t, tel.Shutdown(context.Background()))
	assert.NoError(t, tel.ForceFlush(context.Background()))
}
