package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateError(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		err := translateError(fmt.Errorf("scan: %w", sql.ErrNoRows))
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unique email", func(t *testing.T) {
		err := translateError(&pq.Error{Code: pqUniqueViolation, Constraint: "users_email_key"})
		appErr := apperror.From(err)
		require.NotNil(t, appErr)
		assert.Equal(t, apperror.KindConflict, appErr.Kind)
		assert.Equal(t, "Email already exists", appErr.Message)
		assert.Equal(t, 400, appErr.Status())
	})

	t.Run("unique unknown constraint", func(t *testing.T) {
		err := translateError(&pq.Error{Code: pqUniqueViolation, Constraint: "something_else"})
		assert.True(t, apperror.Is(err, apperror.KindConflict))
		assert.Equal(t, "Duplicate value", apperror.From(err).Message)
	})

	t.Run("check violation", func(t *testing.T) {
		err := translateError(&pq.Error{Code: pqCheckViolation, Constraint: "products_stock_check"})
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("foreign key violation", func(t *testing.T) {
		err := translateError(&pq.Error{Code: pqForeignKeyViolation})
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("passthrough", func(t *testing.T) {
		orig := errors.New("connection reset")
		assert.Equal(t, orig, translateError(orig))
		assert.NoError(t, translateError(nil))
	})
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}

// openTestStore connects to TEST_DATABASE_URL or skips the test
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires database")
	}

	store, err := NewStore(url, 5, 2)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func createTestUser(t *testing.T, s *Store) *models.User {
	t.Helper()
	suffix := uuid.NewString()[:8]
	user := &models.User{
		Name:         "Test User",
		Email:        "user-" + suffix + "@example.com",
		Phone:        "555" + suffix,
		PasswordHash: "hash",
		Address:      "1 Test Street",
		Role:         models.RoleUser,
		IsActive:     true,
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func TestCreateOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store)

	order := &models.Order{
		OrderNumber:     "ORD-TEST-" + uuid.NewString(),
		UserID:          user.ID,
		TotalAmount:     decimal.RequireFromString("25.00"),
		TotalItems:      3,
		ShippingAddress: "1 Test Street",
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}

	err := store.CreateOrder(ctx, order)
	assert.NoError(t, err)
	assert.NotZero(t, order.ID)

	retrieved, err := store.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.UserID, retrieved.UserID)
	assert.True(t, order.TotalAmount.Equal(retrieved.TotalAmount))

	// Second creation with the same order number hits the unique constraint
	dup := *order
	err = store.CreateOrder(ctx, &dup)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestGetOrCreateCart(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store)

	var first, second *models.Cart
	require.NoError(t, store.InTx(ctx, func(r Repository) error {
		var err error
		first, err = r.GetOrCreateCart(ctx, user.ID)
		return err
	}))
	require.NoError(t, store.InTx(ctx, func(r Repository) error {
		var err error
		second, err = r.GetOrCreateCart(ctx, user.ID)
		return err
	}))

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.TotalPrice.IsZero())
}

func TestDeleteProductKeepsOrderSnapshot(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store)

	product := &models.Product{
		Name:        "Lamp",
		Description: "Desk lamp",
		Price:       decimal.RequireFromString("10.00"),
		Stock:       5,
		Category:    models.CategoryHome,
		IsActive:    true,
		CreatedBy:   user.ID,
	}
	require.NoError(t, store.CreateProduct(ctx, product))

	order := &models.Order{
		OrderNumber:     "ORD-TEST-" + uuid.NewString(),
		UserID:          user.ID,
		TotalAmount:     decimal.RequireFromString("10.00"),
		TotalItems:      1,
		ShippingAddress: "1 Test Street",
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}
	require.NoError(t, store.CreateOrder(ctx, order))
	require.NoError(t, store.CreateOrderItem(ctx, &models.OrderItem{
		OrderID:     order.ID,
		ProductID:   &product.ID,
		ProductName: product.Name,
		Quantity:    1,
		Price:       product.Price,
		Subtotal:    product.Price,
	}))

	require.NoError(t, store.DeleteProduct(ctx, product.ID))

	items, err := store.GetOrderItemsByOrderID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Nil(t, items[0].ProductID)
	assert.Equal(t, "Lamp", items[0].ProductName)
}

func TestDecrementStock(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store)

	product := &models.Product{
		Name:        "Ball",
		Description: "Football",
		Price:       decimal.RequireFromString("5.00"),
		Stock:       2,
		Category:    models.CategorySports,
		IsActive:    true,
		CreatedBy:   user.ID,
	}
	require.NoError(t, store.CreateProduct(ctx, product))

	ok, err := store.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.DecrementStock(ctx, product.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func createTestProduct(t *testing.T, s *Store, owner int64, name string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString("10.00"),
		Stock:       10,
		Category:    models.CategoryHome,
		IsActive:    true,
		CreatedBy:   owner,
	}
	require.NoError(t, s.CreateProduct(context.Background(), product))
	return product
}

// holdProductLock locks the product in a transaction that deletes it once
// release is closed. The returned channel yields the transaction result.
func holdProductLock(t *testing.T, s *Store, productID int64, release <-chan struct{}) <-chan error {
	t.Helper()
	ctx := context.Background()
	locked := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.InTx(ctx, func(r Repository) error {
			if _, err := r.GetProductForUpdate(ctx, productID); err != nil {
				close(locked)
				return err
			}
			close(locked)
			<-release
			return r.DeleteProduct(ctx, productID)
		})
	}()
	<-locked
	return done
}

func TestProductLockKeepsNewCartLinesOut(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store)
	product := createTestProduct(t, store, user.ID, "Lamp")

	release := make(chan struct{})
	deleted := holdProductLock(t, store, product.ID, release)

	added := make(chan error, 1)
	go func() {
		added <- store.InTx(ctx, func(r Repository) error {
			if _, err := r.GetProductForShare(ctx, product.ID); err != nil {
				return err
			}
			cart, err := r.GetOrCreateCart(ctx, user.ID)
			if err != nil {
				return err
			}
			return r.CreateCartItem(ctx, &models.CartItem{
				CartID:    cart.ID,
				ProductID: product.ID,
				Quantity:  1,
				Price:     product.Price,
				Subtotal:  product.Price,
			})
		})
	}()

	select {
	case err := <-added:
		t.Fatalf("cart line written while the product was locked: %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-deleted)
	assert.ErrorIs(t, <-added, ErrNotFound)

	ids, err := store.GetCartIDsByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLockCartProductsWaitsForDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	user := createTestUser(t, store)
	kept := createTestProduct(t, store, user.ID, "Chair")
	removed := createTestProduct(t, store, user.ID, "Lamp")

	require.NoError(t, store.InTx(ctx, func(r Repository) error {
		cart, err := r.GetOrCreateCart(ctx, user.ID)
		if err != nil {
			return err
		}
		for _, p := range []*models.Product{kept, removed} {
			item := &models.CartItem{CartID: cart.ID, ProductID: p.ID, Quantity: 1, Price: p.Price, Subtotal: p.Price}
			if err := r.CreateCartItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	}))

	release := make(chan struct{})
	deleted := holdProductLock(t, store, removed.ID, release)

	type result struct {
		ids []int64
		err error
	}
	locked := make(chan result, 1)
	go func() {
		var res result
		res.err = store.InTx(ctx, func(r Repository) error {
			var err error
			res.ids, err = r.LockCartProducts(ctx, user.ID)
			return err
		})
		locked <- res
	}()

	select {
	case <-locked:
		t.Fatal("cart products locked while a product delete was in progress")
	case <-time.After(200 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-deleted)
	res := <-locked
	require.NoError(t, res.err)
	assert.Equal(t, []int64{kept.ID}, res.ids)
}
