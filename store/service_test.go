package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/retailstore/entitystore"
	"github.com/c360/retailstore/errors"
	"github.com/c360/retailstore/relational"
)

type fakeRelational struct {
	users       []relational.User
	orders      []relational.Order
	cart        []relational.CartItem
	nextOrderID uint
	failCreate  bool
	updateKnown bool
	lastStatus  string
}

func (f *fakeRelational) CreateUser(_ context.Context, user *relational.User) (bool, error) {
	for _, u := range f.users {
		if u.Email == user.Email {
			return false, nil
		}
	}
	user.ID = uint(len(f.users) + 1)
	f.users = append(f.users, *user)
	return true, nil
}

func (f *fakeRelational) Authenticate(_ context.Context, email, password string) (*relational.User, error) {
	for _, u := range f.users {
		if u.Email == email && u.Password == password {
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeRelational) ListUsers(_ context.Context) ([]relational.User, error) {
	return f.users, nil
}

func (f *fakeRelational) AddToCart(_ context.Context, _ string, item *relational.CartItem) error {
	f.cart = append(f.cart, *item)
	return nil
}

func (f *fakeRelational) CartItems(_ context.Context, _ string) ([]relational.CartItem, error) {
	return f.cart, nil
}

func (f *fakeRelational) RemoveCartItem(_ context.Context, _ string, itemID uint) error {
	for i, item := range f.cart {
		if item.ID == itemID {
			f.cart = append(f.cart[:i], f.cart[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeRelational) ClearCart(_ context.Context, _ string) error {
	f.cart = nil
	return nil
}

func (f *fakeRelational) CreateOrder(_ context.Context, userID string, order *relational.Order) (*relational.Order, error) {
	if f.failCreate {
		return nil, errors.WrapInvalid(errors.ErrInvalidOwner, "fake", "CreateOrder", "resolve owner "+userID)
	}
	f.nextOrderID++
	order.ID = f.nextOrderID
	f.orders = append(f.orders, *order)
	return order, nil
}

func (f *fakeRelational) UserOrders(_ context.Context, _ string) ([]relational.Order, error) {
	return f.orders, nil
}

func (f *fakeRelational) AllOrders(_ context.Context) ([]relational.Order, error) {
	return f.orders, nil
}

func (f *fakeRelational) UpdateOrderStatus(_ context.Context, _ uint, status string) (bool, error) {
	if f.updateKnown {
		f.lastStatus = status
	}
	return f.updateKnown, nil
}

type fakeEntities struct {
	products  map[string]entitystore.Product
	customers []entitystore.Customer
}

func newFakeEntities() *fakeEntities {
	return &fakeEntities{products: make(map[string]entitystore.Product)}
}

func (f *fakeEntities) AddProduct(_ context.Context, product *entitystore.Product) (string, error) {
	if product.RowKey == "" {
		product.RowKey = "p-" + product.Name
	}
	f.products[product.RowKey] = *product
	return product.RowKey, nil
}

func (f *fakeEntities) Product(_ context.Context, rowKey string) (*entitystore.Product, error) {
	p, ok := f.products[rowKey]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeEntities) Products(_ context.Context) ([]entitystore.Product, error) {
	out := make([]entitystore.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeEntities) UpdateProduct(_ context.Context, product *entitystore.Product) error {
	f.products[product.RowKey] = *product
	return nil
}

func (f *fakeEntities) DeleteProduct(_ context.Context, rowKey string) error {
	delete(f.products, rowKey)
	return nil
}

func (f *fakeEntities) AddCustomer(_ context.Context, customer *entitystore.Customer) (string, error) {
	customer.RowKey = "c-" + customer.Name
	f.customers = append(f.customers, *customer)
	return customer.RowKey, nil
}

func (f *fakeEntities) Customers(_ context.Context) ([]entitystore.Customer, error) {
	return f.customers, nil
}

type fakeBlobs struct {
	uploads map[string][]byte
}

func (f *fakeBlobs) UploadImage(_ context.Context, data []byte, filename string) (string, string, error) {
	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
	}
	name := "id_" + filename
	f.uploads[name] = data
	return name, "https://cdn.example.com/product-images/" + name, nil
}

func (f *fakeBlobs) ImageURIs(_ context.Context) ([]string, error) {
	uris := make([]string, 0, len(f.uploads))
	for name := range f.uploads {
		uris = append(uris, "https://cdn.example.com/product-images/"+name)
	}
	return uris, nil
}

type fakeQueues struct {
	mu      sync.Mutex
	sent    map[string][]string
	sendErr error
}

func (f *fakeQueues) Send(_ context.Context, topic, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	if f.sent == nil {
		f.sent = make(map[string][]string)
	}
	f.sent[topic] = append(f.sent[topic], text)
	return nil
}

func (f *fakeQueues) Drain(_ context.Context, topic string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := f.sent[topic]
	delete(f.sent, topic)
	if texts == nil {
		texts = []string{}
	}
	return texts, nil
}

func (f *fakeQueues) sentOn(topic string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent[topic]...)
}

type fakeContracts struct {
	files map[string][]byte
}

func (f *fakeContracts) UploadContract(_ context.Context, name string, data []byte) error {
	if f.files == nil {
		f.files = make(map[string][]byte)
	}
	f.files[name] = data
	return nil
}

func (f *fakeContracts) Contracts(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	return names, nil
}

type fixture struct {
	svc       *Service
	rel       *fakeRelational
	entities  *fakeEntities
	blobs     *fakeBlobs
	queues    *fakeQueues
	contracts *fakeContracts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rel:       &fakeRelational{updateKnown: true},
		entities:  newFakeEntities(),
		blobs:     &fakeBlobs{},
		queues:    &fakeQueues{},
		contracts: &fakeContracts{},
	}
	f.svc = NewService(context.Background(), f.rel, f.entities, f.blobs, f.queues, f.contracts)
	return f
}

// drain flushes pending notifications so they can be asserted.
func (f *fixture) drain() {
	f.svc.Close()
}

func TestCreateOrder_Notifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, "1", relational.Order{TotalAmount: 12})
	require.NoError(t, err)
	require.NotNil(t, order)

	f.drain()
	assert.Equal(t, []string{"Order placed: 1"}, f.queues.sentOn("orders"))
}

func TestCreateOrder_InvalidOwnerPropagates(t *testing.T) {
	f := newFixture(t)
	f.rel.failCreate = true

	_, err := f.svc.CreateOrder(context.Background(), "garbage", relational.Order{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	f.drain()
	assert.Empty(t, f.queues.sentOn("orders"), "failed writes must not notify")
}

func TestUpdateOrderStatus_NotifiesOnlyWhenUpdated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateOrderStatus(ctx, 7, "SHIPPED"))

	f.rel.updateKnown = false
	require.NoError(t, f.svc.UpdateOrderStatus(ctx, 999, "SHIPPED"))

	f.drain()
	assert.Equal(t, []string{"Order status updated: 7 to SHIPPED"}, f.queues.sentOn("orders"))
	assert.Equal(t, "SHIPPED", f.rel.lastStatus)
}

func TestProductMutations_NotifyInventory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	key, err := f.svc.AddProduct(ctx, entitystore.Product{Name: "Widget"})
	require.NoError(t, err)

	p, err := f.svc.Product(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, p)
	p.Name = "Widget Pro"
	require.NoError(t, f.svc.UpdateProduct(ctx, *p))
	require.NoError(t, f.svc.DeleteProduct(ctx, key))

	f.drain()
	assert.Equal(t, []string{
		"Product created: Widget",
		"Product updated: Widget Pro",
		"Product deleted: " + key,
	}, f.queues.sentOn("inventory"))
}

func TestAddCustomer_Notifies(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.AddCustomer(context.Background(), "Avery Quinn", "avery@example.com", "555-0001")
	require.NoError(t, err)

	f.drain()
	assert.Equal(t, []string{"Customer added: Avery Quinn"}, f.queues.sentOn("customers"))
}

func TestUploadImage_NotifiesWithOriginalFilename(t *testing.T) {
	f := newFixture(t)

	uri, err := f.svc.UploadImage(context.Background(), []byte("png"), "widget.png")
	require.NoError(t, err)
	assert.Contains(t, uri, "widget.png")

	f.drain()
	assert.Equal(t, []string{"Image uploaded: widget.png"}, f.queues.sentOn("images"))
}

func TestNotificationLossDoesNotFailWrite(t *testing.T) {
	f := newFixture(t)
	f.queues.sendErr = assert.AnError

	_, err := f.svc.AddProduct(context.Background(), entitystore.Product{Name: "Lonely"})
	require.NoError(t, err, "write must succeed even when the queue is down")

	f.drain()
	_, _, failed, _ := f.svc.notifier.Stats()
	assert.Equal(t, int64(1), failed)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	defer f.drain()
	ctx := context.Background()

	created, err := f.svc.CreateUser(ctx, relational.User{Email: "a@example.com"}, "pw")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.CreateUser(ctx, relational.User{Email: "a@example.com"}, "pw")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestAddQueueMessage_ErrorsPropagate(t *testing.T) {
	f := newFixture(t)
	defer f.drain()
	f.queues.sendErr = assert.AnError

	err := f.svc.AddQueueMessage(context.Background(), "orders", "manual")
	require.Error(t, err)
}

func TestDrainQueue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.AddQueueMessage(ctx, "orders", "one"))
	require.NoError(t, f.svc.AddQueueMessage(ctx, "orders", "two"))

	texts, err := f.svc.DrainQueue(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, texts)

	texts, err = f.svc.DrainQueue(ctx, "orders")
	require.NoError(t, err)
	assert.Empty(t, texts)
	f.drain()
}

func TestContracts(t *testing.T) {
	f := newFixture(t)
	defer f.drain()
	ctx := context.Background()

	require.NoError(t, f.svc.UploadContract(ctx, "terms.pdf", []byte("v1")))
	names, err := f.svc.Contracts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"terms.pdf"}, names)
}
