package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360/retailstore/entitystore"
	"github.com/c360/retailstore/metric"
	"github.com/c360/retailstore/pkg/worker"
	"github.com/c360/retailstore/queue"
	"github.com/c360/retailstore/relational"
)

const (
	statusOK    = "ok"
	statusError = "error"

	notificationSent = "sent"
	notificationLost = "lost"

	// Bounds for the async notification dispatcher. Sends are quick;
	// a small pool with a deep buffer absorbs write bursts.
	notifyWorkers   = 2
	notifyQueueSize = 256
	notifyTimeout   = 5 * time.Second
)

// notification is one queued post-write message.
type notification struct {
	topic string
	text  string
}

// Service is the production Storage implementation composing the five
// backend adapters.
type Service struct {
	rel       relationalStore
	entities  entityStore
	blobs     blobStore
	queues    queueManager
	contracts contractShare

	notifier *worker.Pool[notification]
	metrics  *metric.Metrics
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics attaches operation and notification metrics.
func WithMetrics(m *metric.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService builds the façade over the given adapters and starts the
// notification dispatcher. Call Close to flush pending notifications.
func NewService(
	ctx context.Context,
	rel relationalStore,
	entities entityStore,
	blobs blobStore,
	queues queueManager,
	contracts contractShare,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		rel:       rel,
		entities:  entities,
		blobs:     blobs,
		queues:    queues,
		contracts: contracts,
		metrics:   metric.NewMetrics(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.notifier = worker.NewPool(notifyWorkers, notifyQueueSize, s.dispatch)
	s.notifier.Start(ctx)
	return s
}

// Close stops the notification dispatcher, draining queued messages.
func (s *Service) Close() {
	s.notifier.Stop()
}

// dispatch delivers one notification. Runs on the pool goroutines.
func (s *Service) dispatch(ctx context.Context, n notification) error {
	sendCtx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()

	if err := s.queues.Send(sendCtx, n.topic, n.text); err != nil {
		s.logger.Warn("notification lost",
			"topic", n.topic, "text", n.text, "error", err)
		s.metrics.RecordNotification(n.topic, notificationLost)
		return err
	}
	s.metrics.RecordNotification(n.topic, notificationSent)
	return nil
}

// notify enqueues a post-write notification. Best effort only; a full
// dispatcher counts the message as lost and moves on.
func (s *Service) notify(topic, text string) {
	if !s.notifier.Submit(notification{topic: topic, text: text}) {
		s.logger.Warn("notification dropped, dispatcher full",
			"topic", topic, "text", text)
		s.metrics.RecordNotification(topic, notificationLost)
	}
}

// observe records one façade operation outcome.
func (s *Service) observe(operation string, start time.Time, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	s.metrics.RecordOperation(operation, status, time.Since(start))
}

// CreateUser registers an account. Returns (false, nil) when the email
// is already taken.
func (s *Service) CreateUser(ctx context.Context, user relational.User, password string) (created bool, err error) {
	defer func(start time.Time) { s.observe("create_user", start, err) }(time.Now())

	user.Password = password
	created, err = s.rel.CreateUser(ctx, &user)
	return created, err
}

// Authenticate resolves an email/password pair to an account, nil when
// no account matches.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user *relational.User, err error) {
	defer func(start time.Time) { s.observe("authenticate", start, err) }(time.Now())
	return s.rel.Authenticate(ctx, email, password)
}

// ListUsers returns every registered account.
func (s *Service) ListUsers(ctx context.Context) (users []relational.User, err error) {
	defer func(start time.Time) { s.observe("list_users", start, err) }(time.Now())
	return s.rel.ListUsers(ctx)
}

// AddToCart stages a product for a user.
func (s *Service) AddToCart(ctx context.Context, userID string, item relational.CartItem) (err error) {
	defer func(start time.Time) { s.observe("add_to_cart", start, err) }(time.Now())
	return s.rel.AddToCart(ctx, userID, &item)
}

// Cart returns a user's staged items.
func (s *Service) Cart(ctx context.Context, userID string) (items []relational.CartItem, err error) {
	defer func(start time.Time) { s.observe("cart", start, err) }(time.Now())
	return s.rel.CartItems(ctx, userID)
}

// RemoveCartItem removes one staged item.
func (s *Service) RemoveCartItem(ctx context.Context, userID string, itemID uint) (err error) {
	defer func(start time.Time) { s.observe("remove_cart_item", start, err) }(time.Now())
	return s.rel.RemoveCartItem(ctx, userID, itemID)
}

// ClearCart removes all staged items for a user.
func (s *Service) ClearCart(ctx context.Context, userID string) (err error) {
	defer func(start time.Time) { s.observe("clear_cart", start, err) }(time.Now())
	return s.rel.ClearCart(ctx, userID)
}

// CreateOrder places an order for a user and announces it on the
// orders topic.
func (s *Service) CreateOrder(ctx context.Context, userID string, order relational.Order) (created *relational.Order, err error) {
	defer func(start time.Time) { s.observe("create_order", start, err) }(time.Now())

	created, err = s.rel.CreateOrder(ctx, userID, &order)
	if err != nil {
		return nil, err
	}
	s.notify(queue.TopicOrders, fmt.Sprintf("Order placed: %d", created.ID))
	return created, nil
}

// UserOrders returns a user's orders, newest first.
func (s *Service) UserOrders(ctx context.Context, userID string) (orders []relational.Order, err error) {
	defer func(start time.Time) { s.observe("user_orders", start, err) }(time.Now())
	return s.rel.UserOrders(ctx, userID)
}

// AllOrders returns every order with its owner eager-loaded, newest
// first.
func (s *Service) AllOrders(ctx context.Context) (orders []relational.Order, err error) {
	defer func(start time.Time) { s.observe("all_orders", start, err) }(time.Now())
	return s.rel.AllOrders(ctx)
}

// UpdateOrderStatus sets a new status on an order. Unknown ids are a
// silent no-op and emit no notification.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (err error) {
	defer func(start time.Time) { s.observe("update_order_status", start, err) }(time.Now())

	updated, err := s.rel.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return err
	}
	if updated {
		s.notify(queue.TopicOrders,
			fmt.Sprintf("Order status updated: %d to %s", orderID, status))
	}
	return nil
}

// AddProduct stores a new catalog product and announces it on the
// inventory topic.
func (s *Service) AddProduct(ctx context.Context, product entitystore.Product) (rowKey string, err error) {
	defer func(start time.Time) { s.observe("add_product", start, err) }(time.Now())

	rowKey, err = s.entities.AddProduct(ctx, &product)
	if err != nil {
		return "", err
	}
	s.notify(queue.TopicInventory, "Product created: "+product.Name)
	return rowKey, nil
}

// Product returns one catalog product, nil when absent.
func (s *Service) Product(ctx context.Context, rowKey string) (product *entitystore.Product, err error) {
	defer func(start time.Time) { s.observe("product", start, err) }(time.Now())
	return s.entities.Product(ctx, rowKey)
}

// Products lists the catalog.
func (s *Service) Products(ctx context.Context) (products []entitystore.Product, err error) {
	defer func(start time.Time) { s.observe("products", start, err) }(time.Now())
	return s.entities.Products(ctx)
}

// UpdateProduct overwrites a product and announces the change on the
// inventory topic. Last writer wins.
func (s *Service) UpdateProduct(ctx context.Context, product entitystore.Product) (err error) {
	defer func(start time.Time) { s.observe("update_product", start, err) }(time.Now())

	if err = s.entities.UpdateProduct(ctx, &product); err != nil {
		return err
	}
	s.notify(queue.TopicInventory, "Product updated: "+product.Name)
	return nil
}

// DeleteProduct removes a product and announces the removal on the
// inventory topic.
func (s *Service) DeleteProduct(ctx context.Context, rowKey string) (err error) {
	defer func(start time.Time) { s.observe("delete_product", start, err) }(time.Now())

	if err = s.entities.DeleteProduct(ctx, rowKey); err != nil {
		return err
	}
	s.notify(queue.TopicInventory, "Product deleted: "+rowKey)
	return nil
}

// AddCustomer stores a customer profile and announces it on the
// customers topic.
func (s *Service) AddCustomer(ctx context.Context, name, email, phone string) (rowKey string, err error) {
	defer func(start time.Time) { s.observe("add_customer", start, err) }(time.Now())

	rowKey, err = s.entities.AddCustomer(ctx, &entitystore.Customer{
		Name:  name,
		Email: email,
		Phone: phone,
	})
	if err != nil {
		return "", err
	}
	s.notify(queue.TopicCustomers, "Customer added: "+name)
	return rowKey, nil
}

// Customers lists every customer profile.
func (s *Service) Customers(ctx context.Context) (customers []entitystore.Customer, err error) {
	defer func(start time.Time) { s.observe("customers", start, err) }(time.Now())
	return s.entities.Customers(ctx)
}

// UploadImage stores a product image, announces it on the images topic
// and returns the public URI.
func (s *Service) UploadImage(ctx context.Context, data []byte, filename string) (uri string, err error) {
	defer func(start time.Time) { s.observe("upload_image", start, err) }(time.Now())

	_, uri, err = s.blobs.UploadImage(ctx, data, filename)
	if err != nil {
		return "", err
	}
	s.notify(queue.TopicImages, "Image uploaded: "+filename)
	return uri, nil
}

// ImageURIs lists the public URIs of every stored image.
func (s *Service) ImageURIs(ctx context.Context) (uris []string, err error) {
	defer func(start time.Time) { s.observe("image_uris", start, err) }(time.Now())
	return s.blobs.ImageURIs(ctx)
}

// AddQueueMessage enqueues an arbitrary message. Unlike the post-write
// hooks this is a first-class write; failures propagate.
func (s *Service) AddQueueMessage(ctx context.Context, topic, text string) (err error) {
	defer func(start time.Time) { s.observe("add_queue_message", start, err) }(time.Now())
	return s.queues.Send(ctx, topic, text)
}

// DrainQueue receives and removes up to one batch of messages,
// returning their texts.
func (s *Service) DrainQueue(ctx context.Context, topic string) (texts []string, err error) {
	defer func(start time.Time) { s.observe("drain_queue", start, err) }(time.Now())
	return s.queues.Drain(ctx, topic)
}

// UploadContract stores a contract document; re-uploading the same
// name overwrites.
func (s *Service) UploadContract(ctx context.Context, name string, data []byte) (err error) {
	defer func(start time.Time) { s.observe("upload_contract", start, err) }(time.Now())
	return s.contracts.UploadContract(ctx, name, data)
}

// Contracts lists stored contract names.
func (s *Service) Contracts(ctx context.Context) (names []string, err error) {
	defer func(start time.Time) { s.observe("contracts", start, err) }(time.Now())
	return s.contracts.Contracts(ctx)
}

var _ Storage = (*Service)(nil)
