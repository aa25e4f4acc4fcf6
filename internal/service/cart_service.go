package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartService keeps each cart's line items and its aggregate totals in step.
// Every mutation runs in one transaction holding the cart row lock.
type CartService struct {
	repo   store.TxRepository
	logger *zap.Logger
}

func NewCartService(repo store.TxRepository) *CartService {
	return &CartService{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// cartTotals sums subtotals and quantities over items
func cartTotals(items []models.CartItem) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, item := range items {
		total = total.Add(item.Subtotal)
		count += item.Quantity
	}
	return total, count
}

func lineSubtotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// recalculateCart recomputes cart totals from its remaining items and persists them
func recalculateCart(ctx context.Context, r store.Repository, cart *models.Cart) error {
	items, err := r.ListCartItems(ctx, cart.ID)
	if err != nil {
		return fmt.Errorf("failed to list cart items: %w", err)
	}

	cart.TotalPrice, cart.TotalItems = cartTotals(items)
	cart.Items = items
	if err := r.UpdateCartTotals(ctx, cart); err != nil {
		return fmt.Errorf("failed to update cart totals: %w", err)
	}
	return nil
}

// Get returns the user's cart with its items, creating an empty cart on first use
func (s *CartService) Get(ctx context.Context, userID int64) (*models.Cart, error) {
	ctx, span := util.StartSpan(ctx, "CartService.Get")
	defer span.End()

	var cart *models.Cart
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		var err error
		cart, err = r.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}
		cart.Items, err = r.ListCartItems(ctx, cart.ID)
		return err
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	if err := s.attachProducts(ctx, cart.Items); err != nil {
		return nil, util.RecordError(span, err)
	}
	return cart, nil
}

func (s *CartService) attachProducts(ctx context.Context, items []models.CartItem) error {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load cart products: %w", err)
	}

	byID := make(map[int64]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for i := range items {
		items[i].Product = byID[items[i].ProductID]
	}
	return nil
}

// AddItem puts quantity units of a product in the user's cart. Re-adding a
// product grows the existing line and reprices it at the current price.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem", util.UserAttr(userID), util.ProductAttr(productID))
	defer span.End()

	if productID <= 0 || quantity < 1 {
		return nil, apperror.Validation("Please provide valid product ID and quantity")
	}

	var item *models.CartItem
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		// product before cart, matching ProductService.Delete
		product, err := r.GetProductForShare(ctx, productID)
		if err != nil {
			return notFoundAs(err, "Product not found")
		}
		if !product.IsActive {
			return apperror.NotFound("Product not found")
		}

		cart, err := r.GetOrCreateCart(ctx, userID)
		if err != nil {
			return err
		}

		item, err = r.GetCartItemByProduct(ctx, cart.ID, productID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			item = &models.CartItem{CartID: cart.ID, ProductID: productID}
		case err != nil:
			return err
		}

		newQuantity := item.Quantity + quantity
		if product.Stock < newQuantity {
			util.CartStockRejectionsTotal.Inc()
			return apperror.Validation("Insufficient stock available")
		}

		item.Quantity = newQuantity
		item.Price = product.Price
		item.Subtotal = lineSubtotal(product.Price, newQuantity)

		if item.ID == 0 {
			err = r.CreateCartItem(ctx, item)
		} else {
			err = r.UpdateCartItem(ctx, item)
		}
		if err != nil {
			return fmt.Errorf("failed to save cart item: %w", err)
		}

		return recalculateCart(ctx, r, cart)
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	return item, nil
}

// ownedItem loads the user's locked cart and one of its items
func ownedItem(ctx context.Context, r store.Repository, userID, itemID int64) (*models.Cart, *models.CartItem, error) {
	cart, err := r.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, nil, notFoundAs(err, "Cart item not found")
	}

	item, err := r.GetCartItem(ctx, itemID)
	if err != nil {
		return nil, nil, notFoundAs(err, "Cart item not found")
	}
	if item.CartID != cart.ID {
		return nil, nil, apperror.NotFound("Cart item not found")
	}
	return cart, item, nil
}

// UpdateItem sets the absolute quantity of a cart line, keeping its captured price
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItem", util.UserAttr(userID))
	defer span.End()

	if quantity < 1 {
		return nil, apperror.Validation("Please provide valid quantity")
	}

	var item *models.CartItem
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		cart, owned, err := ownedItem(ctx, r, userID, itemID)
		if err != nil {
			return err
		}
		item = owned

		product, err := r.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return notFoundAs(err, "Product not found")
		}
		if product.Stock < quantity {
			util.CartStockRejectionsTotal.Inc()
			return apperror.Validation("Insufficient stock available")
		}

		item.Quantity = quantity
		item.Subtotal = lineSubtotal(item.Price, quantity)
		if err := r.UpdateCartItem(ctx, item); err != nil {
			return fmt.Errorf("failed to update cart item: %w", err)
		}

		return recalculateCart(ctx, r, cart)
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.CartMutationsTotal.WithLabelValues("update").Inc()
	return item, nil
}

// RemoveItem deletes one line from the user's cart
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	err := s.repo.InTx(ctx, func(r store.Repository) error {
		cart, item, err := ownedItem(ctx, r, userID, itemID)
		if err != nil {
			return err
		}
		if err := r.DeleteCartItem(ctx, item.ID); err != nil {
			return notFoundAs(err, "Cart item not found")
		}
		return recalculateCart(ctx, r, cart)
	})
	if err != nil {
		return util.RecordError(span, err)
	}

	util.CartMutationsTotal.WithLabelValues("remove").Inc()
	return nil
}

// Clear empties the user's cart
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	err := s.repo.InTx(ctx, func(r store.Repository) error {
		cart, err := r.GetCartByUserID(ctx, userID)
		if err != nil {
			return notFoundAs(err, "Cart not found")
		}
		if err := r.DeleteCartItems(ctx, cart.ID); err != nil {
			return err
		}
		return recalculateCart(ctx, r, cart)
	})
	if err != nil {
		return util.RecordError(span, err)
	}

	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	return nil
}
