// Package store is the unified storage façade: one surface over the
// relational store, the entity store, the object store, the queues and
// the contract share. Mutating operations emit a best-effort queue
// notification after the write commits; notification loss never fails
// the write.
package store

import (
	"context"

	"github.com/c360/retailstore/entitystore"
	"github.com/c360/retailstore/relational"
)

// Storage is the full façade surface. Consumers depend on this
// interface, or a subset of it, rather than on the production type.
type Storage interface {
	// Users and authentication.
	CreateUser(ctx context.Context, user relational.User, password string) (bool, error)
	Authenticate(ctx context.Context, email, password string) (*relational.User, error)
	ListUsers(ctx context.Context) ([]relational.User, error)

	// Cart. User identifiers are strings parsed defensively; a
	// malformed identifier degrades to a no-op or empty result.
	AddToCart(ctx context.Context, userID string, item relational.CartItem) error
	Cart(ctx context.Context, userID string) ([]relational.CartItem, error)
	RemoveCartItem(ctx context.Context, userID string, itemID uint) error
	ClearCart(ctx context.Context, userID string) error

	// Orders.
	CreateOrder(ctx context.Context, userID string, order relational.Order) (*relational.Order, error)
	UserOrders(ctx context.Context, userID string) ([]relational.Order, error)
	AllOrders(ctx context.Context) ([]relational.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status string) error

	// Catalog.
	AddProduct(ctx context.Context, product entitystore.Product) (string, error)
	Product(ctx context.Context, rowKey string) (*entitystore.Product, error)
	Products(ctx context.Context) ([]entitystore.Product, error)
	UpdateProduct(ctx context.Context, product entitystore.Product) error
	DeleteProduct(ctx context.Context, rowKey string) error

	// Customer profiles.
	AddCustomer(ctx context.Context, name, email, phone string) (string, error)
	Customers(ctx context.Context) ([]entitystore.Customer, error)

	// Product images.
	UploadImage(ctx context.Context, data []byte, filename string) (string, error)
	ImageURIs(ctx context.Context) ([]string, error)

	// Queue surface for operators.
	AddQueueMessage(ctx context.Context, topic, text string) error
	DrainQueue(ctx context.Context, topic string) ([]string, error)

	// Contract documents.
	UploadContract(ctx context.Context, name string, data []byte) error
	Contracts(ctx context.Context) ([]string, error)
}

// relationalStore is the slice of relational behavior the façade uses.
type relationalStore interface {
	CreateUser(ctx context.Context, user *relational.User) (bool, error)
	Authenticate(ctx context.Context, email, password string) (*relational.User, error)
	ListUsers(ctx context.Context) ([]relational.User, error)
	AddToCart(ctx context.Context, userID string, item *relational.CartItem) error
	CartItems(ctx context.Context, userID string) ([]relational.CartItem, error)
	RemoveCartItem(ctx context.Context, userID string, itemID uint) error
	ClearCart(ctx context.Context, userID string) error
	CreateOrder(ctx context.Context, userID string, order *relational.Order) (*relational.Order, error)
	UserOrders(ctx context.Context, userID string) ([]relational.Order, error)
	AllOrders(ctx context.Context) ([]relational.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uint, status string) (bool, error)
}

// entityStore is the slice of entity-store behavior the façade uses.
type entityStore interface {
	AddProduct(ctx context.Context, product *entitystore.Product) (string, error)
	Product(ctx context.Context, rowKey string) (*entitystore.Product, error)
	Products(ctx context.Context) ([]entitystore.Product, error)
	UpdateProduct(ctx context.Context, product *entitystore.Product) error
	DeleteProduct(ctx context.Context, rowKey string) error
	AddCustomer(ctx context.Context, customer *entitystore.Customer) (string, error)
	Customers(ctx context.Context) ([]entitystore.Customer, error)
}

// blobStore is the slice of object-store behavior the façade uses.
type blobStore interface {
	UploadImage(ctx context.Context, data []byte, filename string) (name, uri string, err error)
	ImageURIs(ctx context.Context) ([]string, error)
}

// queueManager is the slice of queue behavior the façade uses.
type queueManager interface {
	Send(ctx context.Context, topic, text string) error
	Drain(ctx context.Context, topic string) ([]string, error)
}

// contractShare is the slice of file-share behavior the façade uses.
type contractShare interface {
	UploadContract(ctx context.Context, name string, data []byte) error
	Contracts(ctx context.Context) ([]string, error)
}
