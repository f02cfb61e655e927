// Package entitystore provides the partition-keyed entity store:
// catalog products, customer profiles and audit log rows held in
// JetStream key-value buckets, one bucket per partition.
package entitystore

import (
	"time"
)

// Partition names. Each partition maps to its own KV bucket.
const (
	PartitionProducts      = "Products"
	PartitionCustomers     = "Customers"
	PartitionOrderLogs     = "OrderLogs"
	PartitionInventoryLogs = "InventoryLogs"
	PartitionCustomerLogs  = "CustomerLogs"
	PartitionImageLogs     = "ImageLogs"
)

// Partitions lists every partition the store provisions at startup.
var Partitions = []string{
	PartitionProducts,
	PartitionCustomers,
	PartitionOrderLogs,
	PartitionInventoryLogs,
	PartitionCustomerLogs,
	PartitionImageLogs,
}

// Product is a catalog item. RowKey is assigned on creation and is the
// stable identifier used everywhere else (carts, image references).
type Product struct {
	RowKey        string    `json:"rowKey"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Category      string    `json:"category,omitempty"`
	StockQuantity int       `json:"stockQuantity"`
	ImageURL      string    `json:"imageUrl,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Customer is a profile row in the Customers partition, separate from
// the relational user account.
type Customer struct {
	RowKey      string    `json:"rowKey"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	CreatedDate time.Time `json:"createdDate"`
}

// AuditStatusProcessed is the status recorded on every audit row.
const AuditStatusProcessed = "Processed"

// AuditEntry is one drained queue message recorded in a *Logs
// partition.
type AuditEntry struct {
	RowKey      string    `json:"rowKey"`
	Message     string    `json:"message"`
	ProcessedAt time.Time `json:"processedAt"`
	Status      string    `json:"status"`
}
