// Package consumer implements the queue-drain audit consumers: long
// running loops that move queue messages into the audit log partitions
// of the entity store.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/c360/retailstore/entitystore"
	"github.com/c360/retailstore/metric"
	"github.com/c360/retailstore/queue"
)

const (
	statusProcessed = "processed"
	statusFailed    = "failed"

	defaultBatchSize = 10
	defaultIdleWait  = time.Second
)

// Assignment binds a queue topic to the partition its audit rows land
// in.
type Assignment struct {
	Topic     string
	Partition string
}

// Assignments lists the four production consumers.
var Assignments = []Assignment{
	{Topic: queue.TopicOrders, Partition: entitystore.PartitionOrderLogs},
	{Topic: queue.TopicInventory, Partition: entitystore.PartitionInventoryLogs},
	{Topic: queue.TopicCustomers, Partition: entitystore.PartitionCustomerLogs},
	{Topic: queue.TopicImages, Partition: entitystore.PartitionImageLogs},
}

// receiver is the slice of queue behavior the consumer uses.
type receiver interface {
	ReceiveBatch(ctx context.Context, topic string, max int) ([]queue.Message, error)
	Acknowledge(ctx context.Context, topic, receipt string) error
}

// auditSink is the slice of entity-store behavior the consumer uses.
type auditSink interface {
	AppendAuditLog(ctx context.Context, partition, message string) error
}

// Drain consumes one topic and records every delivered message as an
// audit row. Delivery equals consumption: messages are acknowledged
// whether or not the audit write succeeded, so a broken sink drains
// the queue rather than wedging it. At-least-once delivery means
// duplicate audit rows are possible; each gets its own row key.
type Drain struct {
	topic     string
	partition string
	queues    receiver
	sink      auditSink
	batchSize int
	idleWait  time.Duration
	logger    *slog.Logger
	metrics   *metric.Metrics
}

// Option configures a Drain.
type Option func(*Drain)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Drain) { d.logger = logger }
}

// WithMetrics attaches consumer metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(d *Drain) { d.metrics = m }
}

// WithBatchSize bounds how many messages one iteration receives.
func WithBatchSize(n int) Option {
	return func(d *Drain) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithIdleWait sets the pause after an empty batch or a receive error.
func WithIdleWait(wait time.Duration) Option {
	return func(d *Drain) {
		if wait > 0 {
			d.idleWait = wait
		}
	}
}

// New creates a drain consumer for one topic/partition assignment.
func New(assignment Assignment, queues receiver, sink auditSink, opts ...Option) *Drain {
	d := &Drain{
		topic:     assignment.Topic,
		partition: assignment.Partition,
		queues:    queues,
		sink:      sink,
		batchSize: defaultBatchSize,
		idleWait:  defaultIdleWait,
		logger:    slog.Default(),
		metrics:   metric.NewMetrics(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("topic", d.topic, "partition", d.partition)
	return d
}

// Run consumes until the context is canceled. Receive errors are
// logged and retried after the idle wait; only cancellation stops the
// loop.
func (d *Drain) Run(ctx context.Context) error {
	d.logger.Info("drain consumer started")

	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("drain consumer stopped")
			return err
		}

		n, err := d.processBatch(ctx)
		if err != nil {
			d.logger.Warn("receive failed", "error", err)
		}
		if n == 0 || err != nil {
			select {
			case <-ctx.Done():
			case <-time.After(d.idleWait):
			}
		}
	}
}

// processBatch receives one batch and audits every message in it,
// returning how many messages were handled.
func (d *Drain) processBatch(ctx context.Context) (int, error) {
	messages, err := d.queues.ReceiveBatch(ctx, d.topic, d.batchSize)
	if err != nil {
		return 0, err
	}

	for _, msg := range messages {
		d.logger.Info("message received", "id", msg.ID, "text", msg.Text)

		if err := d.sink.AppendAuditLog(ctx, d.partition, msg.Text); err != nil {
			// Swallowed on purpose; the message is still consumed.
			d.logger.Error("audit write failed", "id", msg.ID, "error", err)
			d.metrics.RecordConsumerMessage(d.topic, statusFailed)
		} else {
			d.logger.Info("message processed", "id", msg.ID)
			d.metrics.RecordConsumerMessage(d.topic, statusProcessed)
		}

		if err := d.queues.Acknowledge(ctx, d.topic, msg.Receipt); err != nil {
			d.logger.Warn("acknowledge failed, message will redeliver",
				"id", msg.ID, "error", err)
		}
	}
	return len(messages), nil
}
