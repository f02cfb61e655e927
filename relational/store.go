package relational

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/c360/retailstore/config"
	"github.com/c360/retailstore/errors"
)

// Store provides user, cart and order operations on MySQL.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewStore opens a MySQL connection, tunes the pool and migrates the
// schema. Migration is idempotent; running it on an already-migrated
// database is a no-op.
func NewStore(cfg config.MySQLConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.WrapUnavailable(err, "relational", "NewStore", "open connection")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.WrapUnavailable(err, "relational", "NewStore", "access pool")
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&User{}, &CartItem{}, &Order{}); err != nil {
		return nil, errors.Wrap(err, "relational", "NewStore", "migrate schema")
	}

	logger.Info("relational store ready", "database", cfg.Database)
	return &Store{db: db, logger: logger}, nil
}

// NewStoreWithDB wraps an existing gorm handle. Used by tests.
func NewStoreWithDB(db *gorm.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// parseID converts a string user identifier into a primary key.
// Returns false when the value is not a positive integer.
func parseID(id string) (uint, bool) {
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// CreateUser registers a new account. Returns (false, nil) when the
// email is already taken, which callers treat as a validation outcome
// rather than a backend failure.
func (s *Store) CreateUser(ctx context.Context, user *User) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return false, errors.Wrap(err, "relational", "CreateUser", "email lookup")
	}
	if count > 0 {
		return false, nil
	}

	if user.CreatedDate.IsZero() {
		user.CreatedDate = time.Now().UTC()
	}
	if user.Role == "" {
		user.Role = "Customer"
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// A concurrent registration can still lose the race on the
		// unique index; report that as the duplicate outcome too.
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, errors.Wrap(err, "relational", "CreateUser", "insert")
	}
	return true, nil
}

// Authenticate looks up a user by email and password. Returns nil
// without error when no account matches.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).
		Where("email = ? AND password = ?", email, password).
		First(&user).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "relational", "Authenticate", "lookup")
	}
	return &user, nil
}

// UserByID resolves a string identifier to an account. An unparseable
// or unknown identifier yields nil without error.
func (s *Store) UserByID(ctx context.Context, userID string) (*User, error) {
	id, ok := parseID(userID)
	if !ok {
		return nil, nil
	}
	var user User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "relational", "UserByID", "lookup")
	}
	return &user, nil
}

// ListUsers returns every registered account, newest first.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := s.db.WithContext(ctx).Order("created_date DESC").Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, "relational", "ListUsers", "query")
	}
	return users, nil
}

// AddToCart stages a product for the given user. An unparseable user
// identifier drops the request silently, matching the lenient
// read-path contract for malformed identifiers.
func (s *Store) AddToCart(ctx context.Context, userID string, item *CartItem) error {
	id, ok := parseID(userID)
	if !ok {
		s.logger.Warn("add to cart dropped, bad user id", "user_id", userID)
		return nil
	}
	item.UserID = id
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return errors.Wrap(err, "relational", "AddToCart", "insert")
	}
	return nil
}

// CartItems returns the user's staged items. An unparseable user
// identifier yields an empty result.
func (s *Store) CartItems(ctx context.Context, userID string) ([]CartItem, error) {
	id, ok := parseID(userID)
	if !ok {
		return []CartItem{}, nil
	}
	var items []CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", id).Find(&items).Error; err != nil {
		return nil, errors.Wrap(err, "relational", "CartItems", "query")
	}
	return items, nil
}

// RemoveCartItem deletes one staged item. Removing an item that does
// not exist, or that belongs to another user, is a no-op.
func (s *Store) RemoveCartItem(ctx context.Context, userID string, itemID uint) error {
	id, ok := parseID(userID)
	if !ok {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", itemID, id).
		Delete(&CartItem{}).Error
	if err != nil {
		return errors.Wrap(err, "relational", "RemoveCartItem", "delete")
	}
	return nil
}

// ClearCart removes all staged items for the user.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	id, ok := parseID(userID)
	if !ok {
		return nil
	}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", id).
		Delete(&CartItem{}).Error
	if err != nil {
		return errors.Wrap(err, "relational", "ClearCart", "delete")
	}
	return nil
}

// CreateOrder persists a new order. Unlike the lenient read paths, an
// owner that cannot be resolved is a hard failure: an order must never
// exist without a valid customer behind it.
func (s *Store) CreateOrder(ctx context.Context, userID string, order *Order) (*Order, error) {
	id, ok := parseID(userID)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrInvalidOwner,
			"relational", "CreateOrder", "parse owner id "+userID)
	}

	var owner User
	err := s.db.WithContext(ctx).First(&owner, id).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.WrapInvalid(errors.ErrInvalidOwner,
			"relational", "CreateOrder", "resolve owner "+userID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "relational", "CreateOrder", "owner lookup")
	}

	order.CustomerID = owner.ID
	order.CustomerEmail = owner.Email
	if order.Status == "" {
		order.Status = StatusPending
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now().UTC()
	}

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, errors.Wrap(err, "relational", "CreateOrder", "insert")
	}
	return order, nil
}

// UserOrders returns the user's orders, newest first. An unparseable
// identifier yields an empty result.
func (s *Store) UserOrders(ctx context.Context, userID string) ([]Order, error) {
	id, ok := parseID(userID)
	if !ok {
		return []Order{}, nil
	}
	var orders []Order
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", id).
		Order("order_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "relational", "UserOrders", "query")
	}
	return orders, nil
}

// AllOrders returns every order with its owning user preloaded,
// newest first.
func (s *Store) AllOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Order("order_date DESC").
		Find(&orders).Error
	if err != nil {
		return nil, errors.Wrap(err, "relational", "AllOrders", "query")
	}
	return orders, nil
}

// OrderByID returns one order, or nil when no order has that id.
func (s *Store) OrderByID(ctx context.Context, orderID uint) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).First(&order, orderID).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "relational", "OrderByID", "lookup")
	}
	return &order, nil
}

// UpdateOrderStatus sets a new status on an existing order and reports
// whether an order was actually updated. An unknown id is a no-op.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID uint, status string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&Order{}).
		Where("id = ?", orderID).
		Update("status", status)
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "relational", "UpdateOrderStatus", "update")
	}
	return res.RowsAffected > 0, nil
}
