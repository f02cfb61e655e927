// Package retailstore provides a unified storage orchestration layer
// for a retail back office: one façade over five storage backends plus
// the audit consumers that drain its notification queues.
//
// # Backends
//
// The façade (package store) composes five adapters, each owning one
// backend:
//
//   - relational: users, carts and orders on MySQL (GORM)
//   - entitystore: partition-keyed catalog and audit rows on JetStream KV
//   - blobstore: product images on a JetStream object store bucket
//   - queue: at-least-once topic queues on JetStream work-queue streams
//   - fileshare: contract documents on a mounted share directory
//
// All NATS access goes through natsclient, which provisions streams and
// buckets idempotently so any number of processes can start in any
// order.
//
// # Notifications and audit
//
// Every mutating façade operation emits a human-readable message on one
// of four topics (orders, inventory, customers, images) after the write
// commits. Notification delivery is best effort: loss is logged and
// counted, never surfaced to the caller. Package consumer drains each
// topic into its audit partition; delivery equals consumption, so a
// failing audit write never wedges a queue.
//
// # Consistency
//
// The layer deliberately offers no cross-backend transactions. Writes
// spanning backends are sequential and independently durable; entity
// writes are last-writer-wins.
package retailstore
