package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// ListWishlist returns the user's wishlist, newest first
func (q *Queries) ListWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	items := []models.WishlistItem{}
	err := q.selectAll(ctx, &items,
		"SELECT * FROM wishlists WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	return items, err
}

func (q *Queries) GetWishlistItem(ctx context.Context, userID, productID int64) (*models.WishlistItem, error) {
	var item models.WishlistItem
	err := q.get(ctx, &item,
		"SELECT * FROM wishlists WHERE user_id = $1 AND product_id = $2", userID, productID)
	if err != nil {
		return nil, fmt.Errorf("wishlist item for product %d: %w", productID, err)
	}
	return &item, nil
}

func (q *Queries) CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	return q.get(ctx, item,
		"INSERT INTO wishlists (user_id, product_id) VALUES ($1, $2) RETURNING id, created_at",
		item.UserID, item.ProductID)
}

func (q *Queries) DeleteWishlistItem(ctx context.Context, id int64) error {
	return q.execOne(ctx, "DELETE FROM wishlists WHERE id = $1", id)
}

func (q *Queries) ClearWishlist(ctx context.Context, userID int64) error {
	_, err := q.exec(ctx, "DELETE FROM wishlists WHERE user_id = $1", userID)
	return err
}
