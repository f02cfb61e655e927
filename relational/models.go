// Package relational implements the relational-store adapter: users,
// cart items and orders on MySQL with referential integrity.
package relational

import (
	"time"
)

// User is an application account. Email is unique across all users.
type User struct {
	ID          uint   `gorm:"primarykey"`
	UserName    string `gorm:"size:100;not null"`
	Email       string `gorm:"size:256;not null;uniqueIndex"`
	Password    string `gorm:"size:256;not null"`
	FirstName   string `gorm:"size:100;not null"`
	LastName    string `gorm:"size:100;not null"`
	Role        string `gorm:"size:50;not null;default:Customer"`
	PhoneNumber string `gorm:"size:50"`
	CreatedDate time.Time

	Orders    []Order    `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
	CartItems []CartItem `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName sets the users table name
func (User) TableName() string {
	return "users"
}

// CartItem is a product staged for purchase, scoped to one owning user.
// ProductID references an entity-store row key, so it is a string.
type CartItem struct {
	ID          uint   `gorm:"primarykey"`
	UserID      uint   `gorm:"not null;index"`
	ProductID   string `gorm:"size:64;not null"`
	ProductName string `gorm:"size:256;not null"`
	Price       float64
	Quantity    int

	User User `gorm:"foreignKey:UserID"`
}

// TableName sets the cart items table name
func (CartItem) TableName() string {
	return "cart_items"
}

// Order is a placed order. CustomerEmail and OrderItemsJSON are
// snapshots taken at checkout; later user or product edits do not
// rewrite history.
type Order struct {
	ID              uint   `gorm:"primarykey"`
	CustomerID      uint   `gorm:"not null;index"`
	CustomerEmail   string `gorm:"size:256;not null"`
	TotalAmount     float64
	Status          string `gorm:"size:50;not null;default:PENDING"`
	OrderDate       time.Time
	ShippingAddress string `gorm:"not null"`
	OrderItemsJSON  string `gorm:"type:text"`

	Customer User `gorm:"foreignKey:CustomerID"`
}

// TableName sets the orders table name
func (Order) TableName() string {
	return "orders"
}

// StatusPending is the initial order status
const StatusPending = "PENDING"
