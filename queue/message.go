// Package queue implements the at-least-once message queues on
// JetStream work-queue streams. Each topic maps to one stream with a
// durable pull consumer; received messages are leased and must be
// acknowledged by receipt before the lease expires, or they redeliver.
package queue

import (
	"encoding/base64"
	"strings"
	"time"
)

// Queue topics. Every mutating façade operation notifies exactly one
// of these.
const (
	TopicOrders    = "orders"
	TopicInventory = "inventory"
	TopicCustomers = "customers"
	TopicImages    = "images"
)

// Topics lists every topic the manager provisions at startup.
var Topics = []string{TopicOrders, TopicInventory, TopicCustomers, TopicImages}

const subjectPrefix = "retail.queue."

// Subject returns the publish subject for a topic.
func Subject(topic string) string {
	return subjectPrefix + topic
}

// StreamName returns the stream backing a topic.
func StreamName(topic string) string {
	return "RETAIL_QUEUE_" + strings.ToUpper(topic)
}

// consumerName returns the durable consumer shared by all receivers of
// a topic.
func consumerName(topic string) string {
	return "drain-" + topic
}

// Message is one received queue message. Receipt is an opaque token
// that authorizes deletion; it is only valid until the lease expires.
type Message struct {
	ID         string
	Text       string
	Receipt    string
	Attempts   int
	EnqueuedAt time.Time
}

// encodePayload wraps message text for the wire. Payloads are base64
// so arbitrary text survives intermediaries that expect printable
// bytes.
func encodePayload(text string) []byte {
	return []byte(base64.StdEncoding.EncodeToString([]byte(text)))
}

// decodePayload reverses encodePayload. Bytes that are not valid
// base64 are passed through untouched, so hand-published messages
// still drain instead of wedging the queue.
func decodePayload(data []byte) (string, bool) {
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return string(data), false
	}
	return string(decoded), true
}
