package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role is the access level of a user
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Product categories
const (
	CategoryElectronics = "Electronics"
	CategoryClothing    = "Clothing"
	CategoryFurniture   = "Furniture"
	CategoryBooks       = "Books"
	CategorySports      = "Sports"
	CategoryHome        = "Home & Kitchen"
	CategoryToys        = "Toys"
	CategoryBeauty      = "Beauty"
)

// Categories lists every category a product may belong to
var Categories = []string{
	CategoryElectronics,
	CategoryClothing,
	CategoryFurniture,
	CategoryBooks,
	CategorySports,
	CategoryHome,
	CategoryToys,
	CategoryBeauty,
}

// IsValidCategory reports whether c is one of Categories
func IsValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// User represents a registered customer or administrator
type User struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Address      string    `db:"address" json:"address"`
	Role         Role      `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Product represents a product in the catalog
type Product struct {
	ID          int64           `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Stock       int             `db:"stock" json:"stock"`
	Category    string          `db:"category" json:"category"`
	Image       *string         `db:"image" json:"image"`
	Rating      float64         `db:"rating" json:"rating"`
	ReviewCount int             `db:"review_count" json:"reviewCount"`
	IsActive    bool            `db:"is_active" json:"isActive"`
	CreatedBy   int64           `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updatedAt"`
}

// Cart holds the denormalized aggregate of a user's cart items
type Cart struct {
	ID         int64           `db:"id" json:"id"`
	UserID     int64           `db:"user_id" json:"userId"`
	TotalPrice decimal.Decimal `db:"total_price" json:"totalPrice"`
	TotalItems int             `db:"total_items" json:"totalItems"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
	Items      []CartItem      `db:"-" json:"items"`
}

// CartItem is one product line of a cart
type CartItem struct {
	ID        int64           `db:"id" json:"id"`
	CartID    int64           `db:"cart_id" json:"cartId"`
	ProductID int64           `db:"product_id" json:"productId"`
	Quantity  int             `db:"quantity" json:"quantity"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Subtotal  decimal.Decimal `db:"subtotal" json:"subtotal"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
	Product   *Product        `db:"-" json:"product,omitempty"`
}

// WishlistItem marks a product a user wants to keep an eye on
type WishlistItem struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"userId"`
	ProductID int64     `db:"product_id" json:"productId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	Product   *Product  `db:"-" json:"product,omitempty"`
}

// Order represents a customer order
type Order struct {
	ID              int64           `db:"id" json:"id"`
	OrderNumber     string          `db:"order_number" json:"orderNumber"`
	UserID          int64           `db:"user_id" json:"userId"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"totalAmount"`
	TotalItems      int             `db:"total_items" json:"totalItems"`
	ShippingAddress string          `db:"shipping_address" json:"shippingAddress"`
	Notes           *string         `db:"notes" json:"notes"`
	Status          OrderStatus     `db:"status" json:"status"`
	PaymentStatus   PaymentStatus   `db:"payment_status" json:"paymentStatus"`
	CreatedAt       time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updatedAt"`
	Items           []OrderItem     `db:"-" json:"items"`
}

// OrderItem is a snapshot of a cart line taken when the order was placed.
// ProductID becomes nil once the product is deleted.
type OrderItem struct {
	ID          int64           `db:"id" json:"id"`
	OrderID     int64           `db:"order_id" json:"orderId"`
	ProductID   *int64          `db:"product_id" json:"productId"`
	ProductName string          `db:"product_name" json:"productName"`
	Quantity    int             `db:"quantity" json:"quantity"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Subtotal    decimal.Decimal `db:"subtotal" json:"subtotal"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// OrderStats summarises orders for the admin dashboard
type OrderStats struct {
	TotalOrders     int64           `db:"total_orders" json:"totalOrders"`
	PendingOrders   int64           `db:"pending_orders" json:"pendingOrders"`
	CompletedOrders int64           `db:"completed_orders" json:"completedOrders"`
	TotalRevenue    decimal.Decimal `db:"total_revenue" json:"totalRevenue"`
}

// OrderHistoryEntry is one recorded lifecycle event of an order
type OrderHistoryEntry struct {
	ID            int64         `db:"id" json:"id"`
	OrderID       int64         `db:"order_id" json:"orderId"`
	EventID       string        `db:"event_id" json:"eventId"`
	EventType     string        `db:"event_type" json:"eventType"`
	Status        OrderStatus   `db:"status" json:"status"`
	PaymentStatus PaymentStatus `db:"payment_status" json:"paymentStatus"`
	OccurredAt    time.Time     `db:"occurred_at" json:"occurredAt"`
	RecordedAt    time.Time     `db:"recorded_at" json:"recordedAt"`
}

// ProductFilter narrows catalog listings
type ProductFilter struct {
	Category        string
	Query           string
	IncludeInactive bool
	Limit           int
	Offset          int
}

// OrderFilter narrows order listings. A nil UserID lists every order.
type OrderFilter struct {
	UserID *int64
	Limit  int
	Offset int
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
