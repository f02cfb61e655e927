package entitystore

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/retailstore/errors"
	"github.com/c360/retailstore/natsclient"
	"github.com/c360/retailstore/pkg/cache"
)

const fetchConcurrency = 8

// Bucket is the slice of KV behavior the store needs per partition.
// *natsclient.KVStore satisfies it; tests substitute in-memory fakes.
type Bucket interface {
	Get(ctx context.Context, key string) (*natsclient.KVEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// Row is one raw entity from a partition, keyed by its row key.
type Row struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Store routes entity operations to the bucket backing each partition.
// Writes are last-writer-wins; reads after a write in the same process
// observe the write.
type Store struct {
	buckets      map[string]Bucket
	productCache cache.Cache[Product]
	logger       *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithProductCache enables read-through caching of single-product
// lookups. Entries are invalidated on update and delete.
func WithProductCache(c cache.Cache[Product]) Option {
	return func(s *Store) { s.productCache = c }
}

// NewStore creates a store over the given partition buckets.
func NewStore(buckets map[string]Bucket, opts ...Option) *Store {
	s := &Store{
		buckets:      buckets,
		productCache: cache.Noop[Product](),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) bucket(partition string) (Bucket, error) {
	b, ok := s.buckets[partition]
	if !ok {
		return nil, errors.WrapNotFound(errors.ErrPartitionNotFound,
			"entitystore", "bucket", "resolve partition "+partition)
	}
	return b, nil
}

// AddProduct stores a new catalog product and returns its row key.
// A caller-supplied RowKey is honored; otherwise one is generated.
func (s *Store) AddProduct(ctx context.Context, product *Product) (string, error) {
	b, err := s.bucket(PartitionProducts)
	if err != nil {
		return "", err
	}

	if product.RowKey == "" {
		product.RowKey = uuid.NewString()
	}
	product.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(product)
	if err != nil {
		return "", errors.Wrap(err, "entitystore", "AddProduct", "encode product")
	}
	if _, err := b.Put(ctx, product.RowKey, data); err != nil {
		return "", errors.Wrap(err, "entitystore", "AddProduct", "store product")
	}

	s.logger.Debug("product added", "row_key", product.RowKey, "name", product.Name)
	return product.RowKey, nil
}

// Products lists the full catalog, ordered by row key for stable
// output. Rows deleted between the key listing and the fetch are
// skipped rather than failing the whole listing.
func (s *Store) Products(ctx context.Context) ([]Product, error) {
	b, err := s.bucket(PartitionProducts)
	if err != nil {
		return nil, err
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "entitystore", "Products", "list keys")
	}

	products := make([]Product, 0, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			entry, err := b.Get(gctx, key)
			if stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "entitystore", "Products", "fetch "+key)
			}
			var p Product
			if err := json.Unmarshal(entry.Value, &p); err != nil {
				return errors.Wrap(err, "entitystore", "Products", "decode "+key)
			}
			mu.Lock()
			products = append(products, p)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(products, func(i, j int) bool {
		return products[i].RowKey < products[j].RowKey
	})
	return products, nil
}

// Product returns one catalog product, or nil when no product has that
// key.
func (s *Store) Product(ctx context.Context, rowKey string) (*Product, error) {
	if cached, ok := s.productCache.Get(rowKey); ok {
		return &cached, nil
	}

	b, err := s.bucket(PartitionProducts)
	if err != nil {
		return nil, err
	}

	entry, err := b.Get(ctx, rowKey)
	if stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "entitystore", "Product", "fetch "+rowKey)
	}

	var p Product
	if err := json.Unmarshal(entry.Value, &p); err != nil {
		return nil, errors.Wrap(err, "entitystore", "Product", "decode "+rowKey)
	}
	s.productCache.Set(rowKey, p)
	return &p, nil
}

// UpdateProduct overwrites an existing product. The write wins
// regardless of concurrent edits; there is no revision check.
func (s *Store) UpdateProduct(ctx context.Context, product *Product) error {
	if product.RowKey == "" {
		return errors.WrapInvalid(errors.ErrEntityNotFound,
			"entitystore", "UpdateProduct", "update without row key")
	}

	b, err := s.bucket(PartitionProducts)
	if err != nil {
		return err
	}

	product.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(product)
	if err != nil {
		return errors.Wrap(err, "entitystore", "UpdateProduct", "encode product")
	}
	if _, err := b.Put(ctx, product.RowKey, data); err != nil {
		return errors.Wrap(err, "entitystore", "UpdateProduct", "store product")
	}

	s.productCache.Delete(product.RowKey)
	return nil
}

// DeleteProduct removes a product. Deleting a key that does not exist
// is a no-op.
func (s *Store) DeleteProduct(ctx context.Context, rowKey string) error {
	b, err := s.bucket(PartitionProducts)
	if err != nil {
		return err
	}

	err = b.Delete(ctx, rowKey)
	if err != nil && !stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
		return errors.Wrap(err, "entitystore", "DeleteProduct", "delete "+rowKey)
	}

	s.productCache.Delete(rowKey)
	return nil
}

// AddCustomer stores a new customer profile and returns its row key.
func (s *Store) AddCustomer(ctx context.Context, customer *Customer) (string, error) {
	b, err := s.bucket(PartitionCustomers)
	if err != nil {
		return "", err
	}

	if customer.RowKey == "" {
		customer.RowKey = uuid.NewString()
	}
	if customer.CreatedDate.IsZero() {
		customer.CreatedDate = time.Now().UTC()
	}

	data, err := json.Marshal(customer)
	if err != nil {
		return "", errors.Wrap(err, "entitystore", "AddCustomer", "encode customer")
	}
	if _, err := b.Put(ctx, customer.RowKey, data); err != nil {
		return "", errors.Wrap(err, "entitystore", "AddCustomer", "store customer")
	}
	return customer.RowKey, nil
}

// Customers lists every customer profile, ordered by row key.
func (s *Store) Customers(ctx context.Context) ([]Customer, error) {
	rows, err := s.Query(ctx, PartitionCustomers)
	if err != nil {
		return nil, err
	}

	customers := make([]Customer, 0, len(rows))
	for _, row := range rows {
		var c Customer
		if err := json.Unmarshal(row.Value, &c); err != nil {
			return nil, errors.Wrap(err, "entitystore", "Customers", "decode "+row.Key)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// AppendAuditLog records one processed queue message in the given logs
// partition. Every entry carries the processed status and timestamp.
func (s *Store) AppendAuditLog(ctx context.Context, partition, message string) error {
	b, err := s.bucket(partition)
	if err != nil {
		return err
	}

	entry := AuditEntry{
		RowKey:      uuid.NewString(),
		Message:     message,
		ProcessedAt: time.Now().UTC(),
		Status:      AuditStatusProcessed,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "entitystore", "AppendAuditLog", "encode entry")
	}
	if _, err := b.Put(ctx, entry.RowKey, data); err != nil {
		return errors.Wrap(err, "entitystore", "AppendAuditLog", "store entry")
	}
	return nil
}

// AuditEntries lists the audit rows in one logs partition, newest
// first.
func (s *Store) AuditEntries(ctx context.Context, partition string) ([]AuditEntry, error) {
	rows, err := s.Query(ctx, partition)
	if err != nil {
		return nil, err
	}

	entries := make([]AuditEntry, 0, len(rows))
	for _, row := range rows {
		var e AuditEntry
		if err := json.Unmarshal(row.Value, &e); err != nil {
			return nil, errors.Wrap(err, "entitystore", "AuditEntries", "decode "+row.Key)
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ProcessedAt.After(entries[j].ProcessedAt)
	})
	return entries, nil
}

// Query returns the raw rows of any partition, ordered by key. Rows
// deleted mid-listing are skipped.
func (s *Store) Query(ctx context.Context, partition string) ([]Row, error) {
	b, err := s.bucket(partition)
	if err != nil {
		return nil, err
	}

	keys, err := b.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "entitystore", "Query", "list keys")
	}

	rows := make([]Row, 0, len(keys))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, key := range keys {
		g.Go(func() error {
			entry, err := b.Get(gctx, key)
			if stderrors.Is(err, natsclient.ErrKVKeyNotFound) {
				return nil
			}
			if err != nil {
				return errors.Wrap(err, "entitystore", "Query", "fetch "+key)
			}
			mu.Lock()
			rows = append(rows, Row{Key: key, Value: entry.Value})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Key < rows[j].Key })
	return rows, nil
}
