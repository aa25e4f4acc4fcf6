package store

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Repository is the persistence surface used by the services. It is
// implemented by *Queries over either the connection pool or a transaction.
type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error)
	DeleteUser(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	GetProductForShare(ctx context.Context, id int64) (*models.Product, error)
	LockCartProducts(ctx context.Context, userID int64) ([]int64, error)
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error)

	GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error)
	GetCartByID(ctx context.Context, id int64) (*models.Cart, error)
	GetCartIDsByProduct(ctx context.Context, productID int64) ([]int64, error)
	UpdateCartTotals(ctx context.Context, cart *models.Cart) error
	ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error)
	GetCartItem(ctx context.Context, id int64) (*models.CartItem, error)
	GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error)
	CreateCartItem(ctx context.Context, item *models.CartItem) error
	UpdateCartItem(ctx context.Context, item *models.CartItem) error
	DeleteCartItem(ctx context.Context, id int64) error
	DeleteCartItems(ctx context.Context, cartID int64) error

	ListWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error)
	GetWishlistItem(ctx context.Context, userID, productID int64) (*models.WishlistItem, error)
	CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error
	DeleteWishlistItem(ctx context.Context, id int64) error
	ClearWishlist(ctx context.Context, userID int64) error

	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error
	UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) error
	GetOrderStats(ctx context.Context) (*models.OrderStats, error)

	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	AppendOrderHistory(ctx context.Context, entry *models.OrderHistoryEntry) error
	ListOrderHistory(ctx context.Context, orderID int64) ([]models.OrderHistoryEntry, error)
}

// TxRepository is a Repository that can also run work in a transaction
type TxRepository interface {
	Repository
	InTx(ctx context.Context, fn func(Repository) error) error
}

// Queries executes statements against the pool or an open transaction
type Queries struct {
	ext sqlx.ExtContext
}

type Store struct {
	*Queries
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{Queries: &Queries{ext: db}, db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction, committing when fn returns nil
func (s *Store) InTx(ctx context.Context, fn func(Repository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Queries{ext: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (q *Queries) get(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translateError(sqlx.GetContext(ctx, q.ext, dest, query, args...))
}

func (q *Queries) selectAll(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return translateError(sqlx.SelectContext(ctx, q.ext, dest, query, args...))
}

func (q *Queries) exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	res, err := q.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, translateError(err)
	}
	return res.RowsAffected()
}

// execOne runs a statement that must touch exactly one row
func (q *Queries) execOne(ctx context.Context, query string, args ...interface{}) error {
	n, err := q.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// in expands an IN (?) query for the postgres bindvar style
func (q *Queries) in(query string, arg interface{}) (string, []interface{}, error) {
	expanded, args, err := sqlx.In(query, arg)
	if err != nil {
		return "", nil, err
	}
	return q.ext.Rebind(expanded), args, nil
}

var (
	_ TxRepository = (*Store)(nil)
	_ Repository   = (*Queries)(nil)
)
