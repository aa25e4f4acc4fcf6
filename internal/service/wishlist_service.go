package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"
)

// WishlistService manages saved products per user
type WishlistService struct {
	repo store.Repository
}

func NewWishlistService(repo store.Repository) *WishlistService {
	return &WishlistService{repo: repo}
}

// List returns the wishlist with product details, newest first
func (s *WishlistService) List(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.List")
	defer span.End()

	items, err := s.repo.ListWishlist(ctx, userID)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, util.RecordError(span, fmt.Errorf("failed to load wishlist products: %w", err))
	}

	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}
	return items, nil
}

// Add saves an active product to the wishlist
func (s *WishlistService) Add(ctx context.Context, userID, productID int64) (*models.WishlistItem, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.Add")
	defer span.End()

	if productID <= 0 {
		return nil, apperror.Validation("Please provide product ID")
	}

	product, err := s.repo.GetProductByID(ctx, productID)
	if err != nil {
		return nil, notFoundAs(err, "Product not found")
	}
	if !product.IsActive {
		return nil, apperror.NotFound("Product not found")
	}

	item := &models.WishlistItem{UserID: userID, ProductID: productID}
	if err := s.repo.CreateWishlistItem(ctx, item); err != nil {
		if apperror.Is(err, apperror.KindConflict) {
			return nil, apperror.Validation("Product already in wishlist")
		}
		return nil, util.RecordError(span, fmt.Errorf("failed to add to wishlist: %w", err))
	}
	return item, nil
}

// Remove drops a product from the wishlist
func (s *WishlistService) Remove(ctx context.Context, userID, productID int64) error {
	item, err := s.repo.GetWishlistItem(ctx, userID, productID)
	if err != nil {
		return notFoundAs(err, "Item not found in wishlist")
	}
	if err := s.repo.DeleteWishlistItem(ctx, item.ID); err != nil {
		return notFoundAs(err, "Item not found in wishlist")
	}
	return nil
}

// Contains reports whether the product is on the user's wishlist
func (s *WishlistService) Contains(ctx context.Context, userID, productID int64) (bool, error) {
	_, err := s.repo.GetWishlistItem(ctx, userID, productID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear empties the user's wishlist
func (s *WishlistService) Clear(ctx context.Context, userID int64) error {
	return s.repo.ClearWishlist(ctx, userID)
}
