package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startNATSContainer starts a JetStream-enabled NATS server container
// and returns its client URL.
func startNATSContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		Cmd:          []string{"-js"},
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "4222")
	require.NoError(t, err)

	return container, "nats://" + host + ":" + port.Port()
}

func TestIntegration_ConnectAndProvision(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, natsURL := startNATSContainer(ctx, t)
	defer container.Terminate(ctx)

	client, err := NewClient(natsURL)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	assert.True(t, client.IsHealthy())
	assert.Equal(t, StatusConnected, client.Status())

	// Stream provisioning is idempotent
	for i := 0; i < 2; i++ {
		stream, err := client.EnsureStream(ctx, jetstream.StreamConfig{
			Name:      "RETAIL_QUEUE_ORDERS",
			Subjects:  []string{"retail.queue.orders"},
			Retention: jetstream.WorkQueuePolicy,
		})
		require.NoError(t, err)
		require.NotNil(t, stream)
	}

	// KV bucket provisioning is idempotent
	for i := 0; i < 2; i++ {
		bucket, err := client.EnsureKeyValueBucket(ctx, jetstream.KeyValueConfig{
			Bucket: "Products",
		})
		require.NoError(t, err)
		require.NotNil(t, bucket)
	}

	// Object bucket provisioning is idempotent
	for i := 0; i < 2; i++ {
		bucket, err := client.EnsureObjectStoreBucket(ctx, jetstream.ObjectStoreConfig{
			Bucket: "product-images",
		})
		require.NoError(t, err)
		require.NotNil(t, bucket)
	}
}

func TestIntegration_KVStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, natsURL := startNATSContainer(ctx, t)
	defer container.Terminate(ctx)

	client, err := NewClient(natsURL)
	require.NoError(t, err)
	require.NoError(t, client.Connect(ctx))
	defer client.Close(ctx)

	bucket, err := client.EnsureKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "kvtest"})
	require.NoError(t, err)

	kv := client.NewKVStore(bucket)

	_, err = kv.Put(ctx, "row-1", []byte("hello"))
	require.NoError(t, err)

	entry, err := kv.Get(ctx, "row-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), entry.Value)

	keys, err := kv.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"row-1"}, keys)

	require.NoError(t, kv.Delete(ctx, "row-1"))
	_, err = kv.Get(ctx, "row-1")
	assert.Error(t, err)
}
