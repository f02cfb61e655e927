package queue

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360/retailstore/config"
	"github.com/c360/retailstore/errors"
	"github.com/c360/retailstore/natsclient"
)

// publisher is the slice of client behavior Send needs.
type publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// fetcher is the slice of consumer behavior ReceiveBatch needs.
type fetcher interface {
	Fetch(batch int, opts ...jetstream.FetchOpt) (jetstream.MessageBatch, error)
}

// heldMsg is a received message waiting for acknowledgment. The
// underlying JetStream message stays unacked until the receipt is
// redeemed or the lease runs out.
type heldMsg struct {
	msg       jetstream.Msg
	topic     string
	expiresAt time.Time
}

// Manager owns every queue topic: publishing, leased receives and
// receipt-based acknowledgment.
type Manager struct {
	pub       publisher
	client    *natsclient.Client
	lease     time.Duration
	batchSize int
	fetchWait time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	consumers map[string]fetcher
	receipts  map[string]heldMsg
}

// NewManager creates a queue manager. Topics must be provisioned with
// EnsureTopic before they can be used.
func NewManager(client *natsclient.Client, cfg config.QueueConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		pub:       client,
		client:    client,
		lease:     cfg.LeaseDuration,
		batchSize: cfg.BatchSize,
		fetchWait: cfg.FetchWait,
		logger:    logger,
		consumers: make(map[string]fetcher),
		receipts:  make(map[string]heldMsg),
	}
}

// EnsureTopic provisions the stream and durable consumer backing a
// topic. Safe to call repeatedly and from multiple processes.
func (m *Manager) EnsureTopic(ctx context.Context, topic string) error {
	_, err := m.client.EnsureStream(ctx, jetstream.StreamConfig{
		Name:      StreamName(topic),
		Subjects:  []string{Subject(topic)},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		return errors.Wrap(err, "queue", "EnsureTopic", "provision stream for "+topic)
	}

	consumer, err := m.client.EnsureConsumer(ctx, StreamName(topic), jetstream.ConsumerConfig{
		Durable:    consumerName(topic),
		AckPolicy:  jetstream.AckExplicitPolicy,
		AckWait:    m.lease,
		MaxDeliver: -1,
	})
	if err != nil {
		return errors.Wrap(err, "queue", "EnsureTopic", "provision consumer for "+topic)
	}

	m.mu.Lock()
	m.consumers[topic] = consumer
	m.mu.Unlock()

	m.logger.Info("queue topic ready", "topic", topic, "stream", StreamName(topic))
	return nil
}

func (m *Manager) consumer(topic string) (fetcher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.consumers[topic]
	if !ok {
		return nil, errors.WrapNotFound(errors.ErrTopicNotFound,
			"queue", "consumer", "resolve topic "+topic)
	}
	return c, nil
}

// Send enqueues one message on a topic. Delivery is at-least-once;
// consumers must tolerate duplicates.
func (m *Manager) Send(ctx context.Context, topic, text string) error {
	if err := m.pub.Publish(ctx, Subject(topic), encodePayload(text)); err != nil {
		return errors.Wrap(err, "queue", "Send", "publish to "+topic)
	}
	m.logger.Debug("message sent", "topic", topic)
	return nil
}

// ReceiveBatch leases up to max messages from a topic. Each message
// carries a receipt valid for the lease duration; unacknowledged
// messages become visible again after the lease expires.
func (m *Manager) ReceiveBatch(ctx context.Context, topic string, max int) ([]Message, error) {
	consumer, err := m.consumer(topic)
	if err != nil {
		return nil, err
	}
	if max <= 0 {
		max = m.batchSize
	}

	batch, err := consumer.Fetch(max, jetstream.FetchMaxWait(m.fetchWait))
	if err != nil {
		return nil, errors.Wrap(err, "queue", "ReceiveBatch", "fetch from "+topic)
	}

	m.pruneExpired()

	messages := make([]Message, 0, max)
	for msg := range batch.Messages() {
		messages = append(messages, m.hold(topic, msg))
	}
	if err := batch.Error(); err != nil {
		return nil, errors.Wrap(err, "queue", "ReceiveBatch", "drain batch from "+topic)
	}

	return messages, nil
}

// hold registers a receipt for a fetched message and builds its
// public representation.
func (m *Manager) hold(topic string, msg jetstream.Msg) Message {
	receipt := uuid.NewString()

	text, ok := decodePayload(msg.Data())
	if !ok {
		m.logger.Warn("message payload is not base64, passing through raw", "topic", topic)
	}

	message := Message{
		ID:      receipt,
		Text:    text,
		Receipt: receipt,
	}
	if meta, err := msg.Metadata(); err == nil {
		message.ID = strconv.FormatUint(meta.Sequence.Stream, 10)
		message.Attempts = int(meta.NumDelivered)
		message.EnqueuedAt = meta.Timestamp
	}

	m.mu.Lock()
	m.receipts[receipt] = heldMsg{
		msg:       msg,
		topic:     topic,
		expiresAt: time.Now().Add(m.lease),
	}
	m.mu.Unlock()

	return message
}

// Acknowledge deletes a leased message. An unknown, already-redeemed
// or expired receipt fails with a not-found error; the message, if it
// still exists, will simply redeliver.
func (m *Manager) Acknowledge(ctx context.Context, topic, receipt string) error {
	m.mu.Lock()
	held, ok := m.receipts[receipt]
	if ok && (held.topic != topic || time.Now().After(held.expiresAt)) {
		delete(m.receipts, receipt)
		ok = false
	}
	if ok {
		delete(m.receipts, receipt)
	}
	m.mu.Unlock()

	if !ok {
		return errors.WrapNotFound(errors.ErrReceiptNotFound,
			"queue", "Acknowledge", "redeem receipt on "+topic)
	}

	if err := held.msg.DoubleAck(ctx); err != nil {
		return errors.Wrap(err, "queue", "Acknowledge", "ack message on "+topic)
	}
	return nil
}

// Drain receives one batch and acknowledges every message in it,
// returning the message texts. Used by operators to inspect and clear
// a queue in one step.
func (m *Manager) Drain(ctx context.Context, topic string) ([]string, error) {
	messages, err := m.ReceiveBatch(ctx, topic, m.batchSize)
	if err != nil {
		return nil, err
	}

	texts := make([]string, 0, len(messages))
	for _, msg := range messages {
		if err := m.Acknowledge(ctx, topic, msg.Receipt); err != nil {
			return texts, err
		}
		texts = append(texts, msg.Text)
	}
	return texts, nil
}

// pruneExpired drops receipts whose lease has lapsed. The underlying
// messages redeliver on their own; only the bookkeeping is removed.
func (m *Manager) pruneExpired() {
	now := time.Now()
	m.mu.Lock()
	for receipt, held := range m.receipts {
		if now.After(held.expiresAt) {
			delete(m.receipts, receipt)
		}
	}
	m.mu.Unlock()
}

// HeldReceipts reports how many messages are currently leased.
func (m *Manager) HeldReceipts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receipts)
}
