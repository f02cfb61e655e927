package metric

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()
	require.NotNil(t, registry)
	require.NotNil(t, registry.CoreMetrics())
	require.NotNil(t, registry.PrometheusRegistry())
}

func TestRecordOperation(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordOperation("create_order", "ok", 25*time.Millisecond)
	m.RecordOperation("create_order", "ok", 10*time.Millisecond)
	m.RecordOperation("create_order", "error", time.Millisecond)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(m.OperationsTotal.WithLabelValues("create_order", "ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.OperationsTotal.WithLabelValues("create_order", "error")))
}

func TestRecordNotificationAndConsumer(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordNotification("orders", "sent")
	m.RecordNotification("orders", "lost")
	m.RecordConsumerMessage("orders", "processed")
	m.RecordConsumerMessage("images", "failed")

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("orders", "sent")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("orders", "lost")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ConsumerMessagesTotal.WithLabelValues("orders", "processed")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.ConsumerMessagesTotal.WithLabelValues("images", "failed")))
}

func TestRegisterCollectorRejectsDuplicates(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retailstore_test_counter",
		Help: "test",
	})

	require.NoError(t, registry.RegisterCollector("queue", "test_counter", counter))
	err := registry.RegisterCollector("queue", "test_counter", counter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "retailstore_unregister_counter",
		Help: "test",
	})
	require.NoError(t, registry.RegisterCollector("queue", "unregister_counter", counter))

	assert.True(t, registry.Unregister("queue", "unregister_counter"))
	assert.False(t, registry.Unregister("queue", "unregister_counter"))
}

func TestHandlerServesExposition(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordNotification("orders", "sent")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	registry.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "retailstore_notifications_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
