package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// EventPublisher publishes order lifecycle events
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error
}

// IdempotencyStore remembers which order a client-supplied key produced
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// OrderOptions tunes order placement
type OrderOptions struct {
	// DecrementStock subtracts ordered quantities from product stock and
	// fails placement when any product no longer has enough.
	DecrementStock bool
	IdempotencyTTL time.Duration
}

const placementLockTTL = 30 * time.Second

// OrderService handles order business logic
type OrderService struct {
	repo        store.TxRepository
	idempotency IdempotencyStore
	publisher   EventPublisher
	opts        OrderOptions
	logger      *zap.Logger
	now         func() time.Time
}

// NewOrderService creates a new order service. idempotency and publisher may be nil.
func NewOrderService(
	repo store.TxRepository,
	idempotency IdempotencyStore,
	publisher EventPublisher,
	opts OrderOptions,
) *OrderService {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &OrderService{
		repo:        repo,
		idempotency: idempotency,
		publisher:   publisher,
		opts:        opts,
		logger:      util.GetLogger(),
		now:         time.Now,
	}
}

// PlaceOrderRequest represents a checkout of the current cart
type PlaceOrderRequest struct {
	ShippingAddress string  `json:"shippingAddress"`
	Notes           *string `json:"notes"`
	IdempotencyKey  string  `json:"-"`
}

// orderNumber is unique by construction: millisecond time plus a random suffix
func (s *OrderService) orderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", s.now().UnixMilli(), strings.ToUpper(uuid.NewString()[:8]))
}

// Place snapshots the user's cart into a pending order and empties the cart,
// all in one transaction. When the request carries an idempotency key that
// already produced an order, that order is returned with replayed set.
func (s *OrderService) Place(ctx context.Context, userID int64, req *PlaceOrderRequest) (order *models.Order, replayed bool, err error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Place", util.UserAttr(userID))
	defer span.End()

	start := time.Now()
	defer func() {
		util.OrderPlacementLatency.Observe(time.Since(start).Seconds())
	}()

	if blank(req.ShippingAddress) {
		return nil, false, apperror.Validation("Shipping address is required")
	}

	idemKey := ""
	if req.IdempotencyKey != "" && s.idempotency != nil {
		idemKey = fmt.Sprintf("%d:%s", userID, req.IdempotencyKey)

		if existing := s.lookupIdempotent(ctx, userID, idemKey); existing != nil {
			util.IdempotentReplaysTotal.Inc()
			return existing, true, nil
		}

		release, err := s.lockPlacement(ctx, idemKey)
		if err != nil {
			return nil, false, err
		}
		defer release()

		// the request holding the lock before us may have finished in between
		if existing := s.lookupIdempotent(ctx, userID, idemKey); existing != nil {
			util.IdempotentReplaysTotal.Inc()
			return existing, true, nil
		}
	}

	err = s.repo.InTx(ctx, func(r store.Repository) error {
		var err error
		order, err = s.snapshotCart(ctx, r, userID, req)
		return err
	})
	if err != nil {
		reason := "db_error"
		if appErr := apperror.From(err); appErr.Kind != apperror.KindInternal {
			reason = "rejected"
		}
		util.OrdersFailedTotal.WithLabelValues(reason).Inc()
		return nil, false, util.RecordError(span, err)
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("user_id", userID))

	if idemKey != "" {
		if err := s.idempotency.SetIdempotencyKey(ctx, idemKey, order.ID, s.opts.IdempotencyTTL); err != nil {
			s.logger.Warn("Failed to store idempotency key", zap.String("key", idemKey), zap.Error(err))
		}
	}

	s.publish(ctx, models.EventTypeOrderPlaced, order, "")
	return order, false, nil
}

func (s *OrderService) snapshotCart(ctx context.Context, r store.Repository, userID int64, req *PlaceOrderRequest) (*models.Order, error) {
	// product locks come before the cart lock, as in ProductService.Delete
	lockedIDs, err := r.LockCartProducts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart products: %w", err)
	}
	locked := make(map[int64]bool, len(lockedIDs))
	for _, id := range lockedIDs {
		locked[id] = true
	}

	cart, err := r.GetCartByUserID(ctx, userID)
	if err != nil {
		return nil, notFoundAsValidation(err, "Cart is empty")
	}

	items, err := r.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperror.Validation("Cart is empty")
	}
	for _, item := range items {
		if !locked[item.ProductID] {
			return nil, apperror.Conflict("Cart changed during checkout, please try again")
		}
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}
	products, err := r.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart products: %w", err)
	}
	names := make(map[int64]string, len(products))
	for _, p := range products {
		names[p.ID] = p.Name
	}

	totalAmount, totalItems := cartTotals(items)

	var notes *string
	if req.Notes != nil && !blank(*req.Notes) {
		trimmed := strings.TrimSpace(*req.Notes)
		notes = &trimmed
	}

	order := &models.Order{
		OrderNumber:     s.orderNumber(),
		UserID:          userID,
		TotalAmount:     totalAmount,
		TotalItems:      totalItems,
		ShippingAddress: strings.TrimSpace(req.ShippingAddress),
		Notes:           notes,
		Status:          models.OrderStatusPending,
		PaymentStatus:   models.PaymentStatusPending,
	}
	if err := r.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	for _, item := range items {
		if _, ok := names[item.ProductID]; !ok {
			return nil, apperror.Validation(fmt.Sprintf("Product %d is no longer available", item.ProductID))
		}
	}

	if s.opts.DecrementStock {
		// product id order keeps concurrent checkouts from deadlocking
		byProduct := append([]models.CartItem(nil), items...)
		sort.Slice(byProduct, func(i, j int) bool { return byProduct[i].ProductID < byProduct[j].ProductID })
		for _, item := range byProduct {
			ok, err := r.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return nil, fmt.Errorf("failed to decrement stock: %w", err)
			}
			if !ok {
				return nil, apperror.Validation(fmt.Sprintf("Insufficient stock for %s", names[item.ProductID]))
			}
		}
	}

	order.Items = make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		name := names[item.ProductID]
		productID := item.ProductID
		orderItem := models.OrderItem{
			OrderID:     order.ID,
			ProductID:   &productID,
			ProductName: name,
			Quantity:    item.Quantity,
			Price:       item.Price,
			Subtotal:    item.Subtotal,
		}
		if err := r.CreateOrderItem(ctx, &orderItem); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		order.Items = append(order.Items, orderItem)
	}

	if err := r.DeleteCartItems(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	cart.TotalPrice = decimal.Zero
	cart.TotalItems = 0
	if err := r.UpdateCartTotals(ctx, cart); err != nil {
		return nil, fmt.Errorf("failed to reset cart totals: %w", err)
	}

	return order, nil
}

// lookupIdempotent returns the order a key already produced. Redis failures
// are logged and placement proceeds without the replay check.
func (s *OrderService) lookupIdempotent(ctx context.Context, userID int64, key string) *models.Order {
	value, err := s.idempotency.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if value == "" {
		return nil
	}

	orderID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		s.logger.Warn("Malformed idempotency value", zap.String("key", key), zap.String("value", value))
		return nil
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil || order.UserID != userID {
		return nil
	}
	if err := s.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil
	}

	s.logger.Info("Duplicate order request detected",
		zap.String("idempotency_key", key),
		zap.Int64("order_id", order.ID))
	return order
}

func (s *OrderService) lockPlacement(ctx context.Context, key string) (func(), error) {
	lock := "order:" + key
	ok, err := s.idempotency.AcquireLock(ctx, lock, placementLockTTL)
	if err != nil {
		s.logger.Warn("Idempotency lock failed", zap.String("key", key), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, apperror.Conflict("Order with this idempotency key is already being processed")
	}
	return func() {
		if err := s.idempotency.ReleaseLock(context.Background(), lock); err != nil {
			s.logger.Warn("Failed to release idempotency lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// notFoundAsValidation reports a missing record as a client error
func notFoundAsValidation(err error, message string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperror.Validation(message)
	}
	return err
}

// List returns a page of orders: every order for admins, the user's own otherwise
func (s *OrderService) List(ctx context.Context, user *models.User, page Page) ([]models.Order, int, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.List", util.UserAttr(user.ID))
	defer span.End()

	filter := models.OrderFilter{Limit: page.Size, Offset: page.offset()}
	if !user.IsAdmin() {
		filter.UserID = &user.ID
	}

	orders, total, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, 0, util.RecordError(span, err)
	}

	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := s.attachItems(ctx, refs); err != nil {
		return nil, 0, util.RecordError(span, err)
	}
	return orders, total, nil
}

// All returns every order with its items, newest first
func (s *OrderService) All(ctx context.Context) ([]models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.All")
	defer span.End()

	const batch = 500
	var all []models.Order
	for offset := 0; ; offset += batch {
		orders, total, err := s.repo.ListOrders(ctx, models.OrderFilter{Limit: batch, Offset: offset})
		if err != nil {
			return nil, util.RecordError(span, err)
		}
		all = append(all, orders...)
		if len(orders) < batch || len(all) >= total {
			break
		}
	}

	refs := make([]*models.Order, len(all))
	for i := range all {
		refs[i] = &all[i]
	}
	if err := s.attachItems(ctx, refs); err != nil {
		return nil, util.RecordError(span, err)
	}
	return all, nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	items, err := s.repo.GetOrderItemsByOrderIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}

	byOrder := make(map[int64][]models.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for _, o := range orders {
		o.Items = byOrder[o.ID]
		if o.Items == nil {
			o.Items = []models.OrderItem{}
		}
	}
	return nil
}

// Get returns an order visible to user: their own, or any for admins
func (s *OrderService) Get(ctx context.Context, user *models.User, id int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Get", util.UserAttr(user.ID), util.OrderAttr(id))
	defer span.End()

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Order not found")
	}
	if !user.IsAdmin() && order.UserID != user.ID {
		return nil, apperror.Forbidden("Not authorized to view this order")
	}

	if err := s.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, util.RecordError(span, err)
	}
	return order, nil
}

// Cancel cancels a pending or processing order owned by user (or any order for admins)
func (s *OrderService) Cancel(ctx context.Context, user *models.User, id int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel", util.UserAttr(user.ID), util.OrderAttr(id))
	defer span.End()

	var (
		order    *models.Order
		previous models.OrderStatus
	)
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		var err error
		order, err = r.GetOrderForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "Order not found")
		}
		if !user.IsAdmin() && order.UserID != user.ID {
			return apperror.Forbidden("Not authorized to cancel this order")
		}
		if !order.Status.Cancellable() {
			return apperror.Validation("Cannot cancel this order")
		}

		previous = order.Status
		if err := r.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCancelled); err != nil {
			return err
		}
		order.Status = models.OrderStatusCancelled
		return nil
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.OrdersCancelledTotal.Inc()
	util.OrderStatusTransitions.WithLabelValues(string(previous), string(order.Status)).Inc()
	s.logger.Info("Order cancelled", zap.Int64("order_id", order.ID), zap.Int64("by_user", user.ID))

	s.publish(ctx, models.EventTypeOrderCancelled, order, previous)
	return order, nil
}

// UpdateStatus moves an order along the status state machine
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus", util.OrderAttr(id))
	defer span.End()

	if !status.IsValid() {
		return nil, apperror.Validation("Invalid order status")
	}

	var (
		order    *models.Order
		previous models.OrderStatus
	)
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		var err error
		order, err = r.GetOrderForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "Order not found")
		}
		if !order.Status.CanTransitionTo(status) {
			return apperror.Validation(fmt.Sprintf("Cannot change order status from %s to %s", order.Status, status))
		}

		previous = order.Status
		if err := r.UpdateOrderStatus(ctx, order.ID, status); err != nil {
			return err
		}
		order.Status = status
		return nil
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	util.OrderStatusTransitions.WithLabelValues(string(previous), string(status)).Inc()
	s.logger.Info("Order status updated",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	eventType := models.EventTypeOrderStatusChanged
	if status == models.OrderStatusCancelled {
		util.OrdersCancelledTotal.Inc()
		eventType = models.EventTypeOrderCancelled
	}
	s.publish(ctx, eventType, order, previous)
	return order, nil
}

// UpdatePaymentStatus sets the payment status, independent of the order status
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, id int64, status models.PaymentStatus) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdatePaymentStatus", util.OrderAttr(id))
	defer span.End()

	if !status.IsValid() {
		return nil, apperror.Validation("Invalid payment status")
	}

	var order *models.Order
	err := s.repo.InTx(ctx, func(r store.Repository) error {
		var err error
		order, err = r.GetOrderForUpdate(ctx, id)
		if err != nil {
			return notFoundAs(err, "Order not found")
		}
		if err := r.UpdatePaymentStatus(ctx, order.ID, status); err != nil {
			return err
		}
		order.PaymentStatus = status
		return nil
	})
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	s.logger.Info("Payment status updated",
		zap.Int64("order_id", order.ID),
		zap.String("payment_status", string(status)))

	s.publish(ctx, models.EventTypeOrderPaymentUpdated, order, "")
	return order, nil
}

// Stats summarises orders for the admin dashboard
func (s *OrderService) Stats(ctx context.Context) (*models.OrderStats, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Stats")
	defer span.End()

	stats, err := s.repo.GetOrderStats(ctx)
	if err != nil {
		return nil, util.RecordError(span, err)
	}
	return stats, nil
}

// History returns the recorded lifecycle events of an order visible to user
func (s *OrderService) History(ctx context.Context, user *models.User, id int64) ([]models.OrderHistoryEntry, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Order not found")
	}
	if !user.IsAdmin() && order.UserID != user.ID {
		return nil, apperror.Forbidden("Not authorized to view this order")
	}
	return s.repo.ListOrderHistory(ctx, id)
}

// publish emits an order event. Failures are logged and never fail the caller.
func (s *OrderService) publish(ctx context.Context, eventType string, order *models.Order, previous models.OrderStatus) {
	if s.publisher == nil {
		return
	}

	event := &models.OrderEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: s.now(),
		},
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		Status:         order.Status,
		PreviousStatus: previous,
		PaymentStatus:  order.PaymentStatus,
		TotalAmount:    order.TotalAmount,
		TotalItems:     order.TotalItems,
	}

	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish order event",
			zap.String("type", eventType),
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}
