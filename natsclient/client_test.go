package natsclient

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionStatusString(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "unknown", ConnectionStatus(99).String())
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
	assert.Equal(t, -1, client.maxReconnects)
	assert.Equal(t, 2*time.Second, client.reconnectWait)
	assert.Equal(t, 5*time.Second, client.timeout)
}

func TestNewClientOptions(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithMaxReconnects(3),
		WithReconnectWait(time.Second),
		WithPingInterval(10*time.Second),
		WithTimeout(time.Second),
		WithDrainTimeout(5*time.Second),
		WithClientName("retailstore"),
		WithCredentials("user", "pass"),
		WithLogger(slog.Default()),
	)
	require.NoError(t, err)

	assert.Equal(t, 3, client.maxReconnects)
	assert.Equal(t, time.Second, client.reconnectWait)
	assert.Equal(t, 10*time.Second, client.pingInterval)
	assert.Equal(t, "retailstore", client.clientName)
	assert.Equal(t, "user", client.username)
}

func TestJetStreamWhenDisconnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	_, err = client.JetStream()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotConnected))
}

func TestHealthChangeCallback(t *testing.T) {
	var healthy bool
	client, err := NewClient("nats://localhost:4222",
		WithHealthChangeCallback(func(h bool) { healthy = h }))
	require.NoError(t, err)

	client.notifyHealth(true)
	assert.True(t, healthy)
	client.notifyHealth(false)
	assert.False(t, healthy)
}

func TestIsAlreadyExistsError(t *testing.T) {
	assert.False(t, isAlreadyExistsError(nil))
	assert.True(t, isAlreadyExistsError(jetstream.ErrStreamNameAlreadyInUse))
	assert.True(t, isAlreadyExistsError(jetstream.ErrBucketExists))
	assert.True(t, isAlreadyExistsError(errors.New("nats: stream name already in use")))
	assert.True(t, isAlreadyExistsError(errors.New("bucket already exists")))
	assert.False(t, isAlreadyExistsError(errors.New("connection refused")))
}

func TestCloseIsIdempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	require.NoError(t, client.Close(context.Background()))
	require.NoError(t, client.Close(context.Background()))
	assert.Equal(t, StatusDisconnected, client.Status())
}
