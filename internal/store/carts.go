package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// GetOrCreateCart returns the user's cart, creating it on first use.
// The cart row is locked for the rest of the enclosing transaction.
func (q *Queries) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	if _, err := q.exec(ctx,
		"INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING", userID); err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return q.GetCartByUserID(ctx, userID)
}

// GetCartByUserID retrieves and locks the user's cart
func (q *Queries) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	if err := q.get(ctx, &cart, "SELECT * FROM carts WHERE user_id = $1 FOR UPDATE", userID); err != nil {
		return nil, fmt.Errorf("cart of user %d: %w", userID, err)
	}
	return &cart, nil
}

// GetCartByID retrieves and locks a cart
func (q *Queries) GetCartByID(ctx context.Context, id int64) (*models.Cart, error) {
	var cart models.Cart
	if err := q.get(ctx, &cart, "SELECT * FROM carts WHERE id = $1 FOR UPDATE", id); err != nil {
		return nil, fmt.Errorf("cart %d: %w", id, err)
	}
	return &cart, nil
}

// GetCartIDsByProduct lists carts holding the product
func (q *Queries) GetCartIDsByProduct(ctx context.Context, productID int64) ([]int64, error) {
	ids := []int64{}
	err := q.selectAll(ctx, &ids,
		"SELECT DISTINCT cart_id FROM cart_items WHERE product_id = $1 ORDER BY cart_id", productID)
	return ids, err
}

// UpdateCartTotals persists the cart aggregate
func (q *Queries) UpdateCartTotals(ctx context.Context, cart *models.Cart) error {
	return q.get(ctx, &cart.UpdatedAt,
		"UPDATE carts SET total_price = $1, total_items = $2, updated_at = NOW() WHERE id = $3 RETURNING updated_at",
		cart.TotalPrice, cart.TotalItems, cart.ID)
}

// ListCartItems returns the cart's items in insertion order
func (q *Queries) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := q.selectAll(ctx, &items,
		"SELECT * FROM cart_items WHERE cart_id = $1 ORDER BY id", cartID)
	return items, err
}

// GetCartItem retrieves a cart item by ID
func (q *Queries) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	var item models.CartItem
	if err := q.get(ctx, &item, "SELECT * FROM cart_items WHERE id = $1", id); err != nil {
		return nil, fmt.Errorf("cart item %d: %w", id, err)
	}
	return &item, nil
}

// GetCartItemByProduct retrieves the cart's line for a product
func (q *Queries) GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	var item models.CartItem
	err := q.get(ctx, &item,
		"SELECT * FROM cart_items WHERE cart_id = $1 AND product_id = $2", cartID, productID)
	if err != nil {
		return nil, fmt.Errorf("cart item for product %d: %w", productID, err)
	}
	return &item, nil
}

// CreateCartItem inserts a cart line
func (q *Queries) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, product_id, quantity, price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return q.get(ctx, item, query, item.CartID, item.ProductID, item.Quantity, item.Price, item.Subtotal)
}

// UpdateCartItem writes quantity, price and subtotal of a cart line
func (q *Queries) UpdateCartItem(ctx context.Context, item *models.CartItem) error {
	return q.get(ctx, &item.UpdatedAt,
		"UPDATE cart_items SET quantity = $1, price = $2, subtotal = $3, updated_at = NOW() WHERE id = $4 RETURNING updated_at",
		item.Quantity, item.Price, item.Subtotal, item.ID)
}

// DeleteCartItem removes a single cart line
func (q *Queries) DeleteCartItem(ctx context.Context, id int64) error {
	return q.execOne(ctx, "DELETE FROM cart_items WHERE id = $1", id)
}

// DeleteCartItems empties a cart
func (q *Queries) DeleteCartItems(ctx context.Context, cartID int64) error {
	_, err := q.exec(ctx, "DELETE FROM cart_items WHERE cart_id = $1", cartID)
	return err
}
