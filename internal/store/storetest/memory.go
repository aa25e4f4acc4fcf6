// Package storetest provides an in-memory store.TxRepository for service and
// handler tests. It mirrors the unique constraints and cascade rules of the
// Postgres schema closely enough for the business logic above it.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/shopspring/decimal"
)

type dataset struct {
	nextID     int64
	users      map[int64]models.User
	products   map[int64]models.Product
	carts      map[int64]models.Cart
	cartItems  map[int64]models.CartItem
	wishlist   map[int64]models.WishlistItem
	orders     map[int64]models.Order
	orderItems map[int64]models.OrderItem
	history    map[int64]models.OrderHistoryEntry
	processed  map[string]string
}

func newDataset() *dataset {
	return &dataset{
		users:      map[int64]models.User{},
		products:   map[int64]models.Product{},
		carts:      map[int64]models.Cart{},
		cartItems:  map[int64]models.CartItem{},
		wishlist:   map[int64]models.WishlistItem{},
		orders:     map[int64]models.Order{},
		orderItems: map[int64]models.OrderItem{},
		history:    map[int64]models.OrderHistoryEntry{},
		processed:  map[string]string{},
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	c.nextID = d.nextID
	copyMap(c.users, d.users)
	copyMap(c.products, d.products)
	copyMap(c.carts, d.carts)
	copyMap(c.cartItems, d.cartItems)
	copyMap(c.wishlist, d.wishlist)
	copyMap(c.orders, d.orders)
	copyMap(c.orderItems, d.orderItems)
	copyMap(c.history, d.history)
	for k, v := range d.processed {
		c.processed[k] = v
	}
	return c
}

func copyMap[V any](dst, src map[int64]V) {
	for k, v := range src {
		dst[k] = v
	}
}

func (d *dataset) id() int64 {
	d.nextID++
	return d.nextID
}

// Memory is an in-memory store.TxRepository. Transactions are serialized and
// roll back to a snapshot when the callback fails.
type Memory struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *dataset
	fail map[string]error
}

// New returns an empty Memory store
func New() *Memory {
	return &Memory{data: newDataset(), fail: map[string]error{}}
}

// FailOn makes the next call of the named method return err
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = err
}

// InTx runs fn with exclusive access and restores the previous state on error
func (m *Memory) InTx(ctx context.Context, fn func(store.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.data.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.data = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// lock takes the data mutex and returns any injected failure for method
func (m *Memory) lock(method string) error {
	m.mu.Lock()
	if err, ok := m.fail[method]; ok {
		delete(m.fail, method)
		return err
	}
	return nil
}

func notFound(what string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", what, id, store.ErrNotFound)
}

func now() time.Time {
	return time.Now().UTC()
}

// Users

func (m *Memory) CreateUser(ctx context.Context, user *models.User) error {
	defer m.mu.Unlock()
	if err := m.lock("CreateUser"); err != nil {
		return err
	}
	if err := m.checkUserUnique(user); err != nil {
		return err
	}
	user.ID = m.data.id()
	user.CreatedAt = now()
	user.UpdatedAt = user.CreatedAt
	m.data.users[user.ID] = *user
	return nil
}

func (m *Memory) checkUserUnique(user *models.User) error {
	for _, u := range m.data.users {
		if u.ID == user.ID {
			continue
		}
		if u.Email == user.Email {
			return apperror.Conflict("Email already exists")
		}
		if u.Phone == user.Phone {
			return apperror.Conflict("Phone already exists")
		}
	}
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetUserByID"); err != nil {
		return nil, err
	}
	u, ok := m.data.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetUserByEmail"); err != nil {
		return nil, err
	}
	for _, u := range m.data.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("user", email)
}

func (m *Memory) UpdateUser(ctx context.Context, user *models.User) error {
	defer m.mu.Unlock()
	if err := m.lock("UpdateUser"); err != nil {
		return err
	}
	if _, ok := m.data.users[user.ID]; !ok {
		return notFound("user", user.ID)
	}
	if err := m.checkUserUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = now()
	m.data.users[user.ID] = *user
	return nil
}

func (m *Memory) ListUsers(ctx context.Context, limit, offset int) ([]models.User, int, error) {
	defer m.mu.Unlock()
	if err := m.lock("ListUsers"); err != nil {
		return nil, 0, err
	}
	users := make([]models.User, 0, len(m.data.users))
	for _, u := range m.data.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID > users[j].ID })
	return page(users, limit, offset), len(users), nil
}

func (m *Memory) DeleteUser(ctx context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.lock("DeleteUser"); err != nil {
		return err
	}
	if _, ok := m.data.users[id]; !ok {
		return notFound("user", id)
	}
	delete(m.data.users, id)

	for cid, c := range m.data.carts {
		if c.UserID == id {
			delete(m.data.carts, cid)
			for iid, it := range m.data.cartItems {
				if it.CartID == cid {
					delete(m.data.cartItems, iid)
				}
			}
		}
	}
	for wid, w := range m.data.wishlist {
		if w.UserID == id {
			delete(m.data.wishlist, wid)
		}
	}
	for oid, o := range m.data.orders {
		if o.UserID == id {
			m.deleteOrder(oid)
		}
	}
	return nil
}

func (m *Memory) deleteOrder(orderID int64) {
	delete(m.data.orders, orderID)
	for iid, it := range m.data.orderItems {
		if it.OrderID == orderID {
			delete(m.data.orderItems, iid)
		}
	}
	for hid, h := range m.data.history {
		if h.OrderID == orderID {
			delete(m.data.history, hid)
		}
	}
}

// Products

func (m *Memory) CreateProduct(ctx context.Context, product *models.Product) error {
	defer m.mu.Unlock()
	if err := m.lock("CreateProduct"); err != nil {
		return err
	}
	if product.Price.IsNegative() || product.Stock < 0 {
		return apperror.Validation("Invalid value (products_check)")
	}
	product.ID = m.data.id()
	product.CreatedAt = now()
	product.UpdatedAt = product.CreatedAt
	m.data.products[product.ID] = *product
	return nil
}

func (m *Memory) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetProductByID"); err != nil {
		return nil, err
	}
	p, ok := m.data.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

// GetProductForUpdate behaves like GetProductByID; transactions are already serialized
func (m *Memory) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	return m.productFor("GetProductForUpdate", id)
}

func (m *Memory) GetProductForShare(ctx context.Context, id int64) (*models.Product, error) {
	return m.productFor("GetProductForShare", id)
}

func (m *Memory) productFor(method string, id int64) (*models.Product, error) {
	defer m.mu.Unlock()
	if err := m.lock(method); err != nil {
		return nil, err
	}
	p, ok := m.data.products[id]
	if !ok {
		return nil, notFound("product", id)
	}
	return &p, nil
}

func (m *Memory) LockCartProducts(ctx context.Context, userID int64) ([]int64, error) {
	defer m.mu.Unlock()
	if err := m.lock("LockCartProducts"); err != nil {
		return nil, err
	}
	ids := []int64{}
	for _, c := range m.data.carts {
		if c.UserID != userID {
			continue
		}
		for _, it := range m.data.cartItems {
			if _, ok := m.data.products[it.ProductID]; ok && it.CartID == c.ID {
				ids = append(ids, it.ProductID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetProductsByIDs"); err != nil {
		return nil, err
	}
	products := []models.Product{}
	for _, id := range ids {
		if p, ok := m.data.products[id]; ok {
			products = append(products, p)
		}
	}
	return products, nil
}

func (m *Memory) ListProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error) {
	defer m.mu.Unlock()
	if err := m.lock("ListProducts"); err != nil {
		return nil, 0, err
	}
	query := strings.ToLower(filter.Query)
	products := []models.Product{}
	for _, p := range m.data.products {
		if !filter.IncludeInactive && !p.IsActive {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(p.Name), query) &&
			!strings.Contains(strings.ToLower(p.Description), query) {
			continue
		}
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID > products[j].ID })
	return page(products, filter.Limit, filter.Offset), len(products), nil
}

func (m *Memory) UpdateProduct(ctx context.Context, product *models.Product) error {
	defer m.mu.Unlock()
	if err := m.lock("UpdateProduct"); err != nil {
		return err
	}
	if _, ok := m.data.products[product.ID]; !ok {
		return notFound("product", product.ID)
	}
	if product.Price.IsNegative() || product.Stock < 0 {
		return apperror.Validation("Invalid value (products_check)")
	}
	product.UpdatedAt = now()
	m.data.products[product.ID] = *product
	return nil
}

func (m *Memory) DeleteProduct(ctx context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.lock("DeleteProduct"); err != nil {
		return err
	}
	if _, ok := m.data.products[id]; !ok {
		return notFound("product", id)
	}
	delete(m.data.products, id)

	for iid, it := range m.data.cartItems {
		if it.ProductID == id {
			delete(m.data.cartItems, iid)
		}
	}
	for wid, w := range m.data.wishlist {
		if w.ProductID == id {
			delete(m.data.wishlist, wid)
		}
	}
	for iid, it := range m.data.orderItems {
		if it.ProductID != nil && *it.ProductID == id {
			it.ProductID = nil
			m.data.orderItems[iid] = it
		}
	}
	return nil
}

func (m *Memory) DecrementStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	defer m.mu.Unlock()
	if err := m.lock("DecrementStock"); err != nil {
		return false, err
	}
	p, ok := m.data.products[productID]
	if !ok || p.Stock < quantity {
		return false, nil
	}
	p.Stock -= quantity
	p.UpdatedAt = now()
	m.data.products[productID] = p
	return true, nil
}

// Carts

func (m *Memory) GetOrCreateCart(ctx context.Context, userID int64) (*models.Cart, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetOrCreateCart"); err != nil {
		return nil, err
	}
	for _, c := range m.data.carts {
		if c.UserID == userID {
			return &c, nil
		}
	}
	if _, ok := m.data.users[userID]; !ok {
		return nil, apperror.NotFound("Referenced record not found")
	}
	c := models.Cart{
		ID:         m.data.id(),
		UserID:     userID,
		TotalPrice: decimal.Zero,
		CreatedAt:  now(),
	}
	c.UpdatedAt = c.CreatedAt
	m.data.carts[c.ID] = c
	return &c, nil
}

func (m *Memory) GetCartByUserID(ctx context.Context, userID int64) (*models.Cart, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetCartByUserID"); err != nil {
		return nil, err
	}
	for _, c := range m.data.carts {
		if c.UserID == userID {
			return &c, nil
		}
	}
	return nil, notFound("cart of user", userID)
}

func (m *Memory) GetCartByID(ctx context.Context, id int64) (*models.Cart, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetCartByID"); err != nil {
		return nil, err
	}
	c, ok := m.data.carts[id]
	if !ok {
		return nil, notFound("cart", id)
	}
	return &c, nil
}

func (m *Memory) GetCartIDsByProduct(ctx context.Context, productID int64) ([]int64, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetCartIDsByProduct"); err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	ids := []int64{}
	for _, it := range m.data.cartItems {
		if it.ProductID == productID && !seen[it.CartID] {
			seen[it.CartID] = true
			ids = append(ids, it.CartID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) UpdateCartTotals(ctx context.Context, cart *models.Cart) error {
	defer m.mu.Unlock()
	if err := m.lock("UpdateCartTotals"); err != nil {
		return err
	}
	c, ok := m.data.carts[cart.ID]
	if !ok {
		return notFound("cart", cart.ID)
	}
	c.TotalPrice = cart.TotalPrice
	c.TotalItems = cart.TotalItems
	c.UpdatedAt = now()
	cart.UpdatedAt = c.UpdatedAt
	m.data.carts[c.ID] = c
	return nil
}

func (m *Memory) ListCartItems(ctx context.Context, cartID int64) ([]models.CartItem, error) {
	defer m.mu.Unlock()
	if err := m.lock("ListCartItems"); err != nil {
		return nil, err
	}
	items := []models.CartItem{}
	for _, it := range m.data.cartItems {
		if it.CartID == cartID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *Memory) GetCartItem(ctx context.Context, id int64) (*models.CartItem, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetCartItem"); err != nil {
		return nil, err
	}
	it, ok := m.data.cartItems[id]
	if !ok {
		return nil, notFound("cart item", id)
	}
	return &it, nil
}

func (m *Memory) GetCartItemByProduct(ctx context.Context, cartID, productID int64) (*models.CartItem, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetCartItemByProduct"); err != nil {
		return nil, err
	}
	for _, it := range m.data.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			return &it, nil
		}
	}
	return nil, notFound("cart item for product", productID)
}

func (m *Memory) CreateCartItem(ctx context.Context, item *models.CartItem) error {
	defer m.mu.Unlock()
	if err := m.lock("CreateCartItem"); err != nil {
		return err
	}
	if item.Quantity < 1 {
		return apperror.Validation("Invalid value (cart_items_quantity_check)")
	}
	for _, it := range m.data.cartItems {
		if it.CartID == item.CartID && it.ProductID == item.ProductID {
			return apperror.Conflict("Product already in cart")
		}
	}
	item.ID = m.data.id()
	item.CreatedAt = now()
	item.UpdatedAt = item.CreatedAt
	stored := *item
	stored.Product = nil
	m.data.cartItems[item.ID] = stored
	return nil
}

func (m *Memory) UpdateCartItem(ctx context.Context, item *models.CartItem) error {
	defer m.mu.Unlock()
	if err := m.lock("UpdateCartItem"); err != nil {
		return err
	}
	it, ok := m.data.cartItems[item.ID]
	if !ok {
		return notFound("cart item", item.ID)
	}
	if item.Quantity < 1 {
		return apperror.Validation("Invalid value (cart_items_quantity_check)")
	}
	it.Quantity = item.Quantity
	it.Price = item.Price
	it.Subtotal = item.Subtotal
	it.UpdatedAt = now()
	item.UpdatedAt = it.UpdatedAt
	m.data.cartItems[it.ID] = it
	return nil
}

func (m *Memory) DeleteCartItem(ctx context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.lock("DeleteCartItem"); err != nil {
		return err
	}
	if _, ok := m.data.cartItems[id]; !ok {
		return notFound("cart item", id)
	}
	delete(m.data.cartItems, id)
	return nil
}

func (m *Memory) DeleteCartItems(ctx context.Context, cartID int64) error {
	defer m.mu.Unlock()
	if err := m.lock("DeleteCartItems"); err != nil {
		return err
	}
	for id, it := range m.data.cartItems {
		if it.CartID == cartID {
			delete(m.data.cartItems, id)
		}
	}
	return nil
}

// Wishlist

func (m *Memory) ListWishlist(ctx context.Context, userID int64) ([]models.WishlistItem, error) {
	defer m.mu.Unlock()
	if err := m.lock("ListWishlist"); err != nil {
		return nil, err
	}
	items := []models.WishlistItem{}
	for _, w := range m.data.wishlist {
		if w.UserID == userID {
			items = append(items, w)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, nil
}

func (m *Memory) GetWishlistItem(ctx context.Context, userID, productID int64) (*models.WishlistItem, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetWishlistItem"); err != nil {
		return nil, err
	}
	for _, w := range m.data.wishlist {
		if w.UserID == userID && w.ProductID == productID {
			return &w, nil
		}
	}
	return nil, notFound("wishlist item for product", productID)
}

func (m *Memory) CreateWishlistItem(ctx context.Context, item *models.WishlistItem) error {
	defer m.mu.Unlock()
	if err := m.lock("CreateWishlistItem"); err != nil {
		return err
	}
	for _, w := range m.data.wishlist {
		if w.UserID == item.UserID && w.ProductID == item.ProductID {
			return apperror.Conflict("Product already in wishlist")
		}
	}
	item.ID = m.data.id()
	item.CreatedAt = now()
	stored := *item
	stored.Product = nil
	m.data.wishlist[item.ID] = stored
	return nil
}

func (m *Memory) DeleteWishlistItem(ctx context.Context, id int64) error {
	defer m.mu.Unlock()
	if err := m.lock("DeleteWishlistItem"); err != nil {
		return err
	}
	if _, ok := m.data.wishlist[id]; !ok {
		return notFound("wishlist item", id)
	}
	delete(m.data.wishlist, id)
	return nil
}

func (m *Memory) ClearWishlist(ctx context.Context, userID int64) error {
	defer m.mu.Unlock()
	if err := m.lock("ClearWishlist"); err != nil {
		return err
	}
	for id, w := range m.data.wishlist {
		if w.UserID == userID {
			delete(m.data.wishlist, id)
		}
	}
	return nil
}

// Orders

func (m *Memory) CreateOrder(ctx context.Context, order *models.Order) error {
	defer m.mu.Unlock()
	if err := m.lock("CreateOrder"); err != nil {
		return err
	}
	for _, o := range m.data.orders {
		if o.OrderNumber == order.OrderNumber {
			return apperror.Conflict("Order number already exists")
		}
	}
	if _, ok := m.data.users[order.UserID]; !ok {
		return apperror.NotFound("Referenced record not found")
	}
	order.ID = m.data.id()
	order.CreatedAt = now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Items = nil
	m.data.orders[order.ID] = stored
	return nil
}

func (m *Memory) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	defer m.mu.Unlock()
	if err := m.lock("CreateOrderItem"); err != nil {
		return err
	}
	if _, ok := m.data.orders[item.OrderID]; !ok {
		return apperror.NotFound("Referenced record not found")
	}
	item.ID = m.data.id()
	item.CreatedAt = now()
	m.data.orderItems[item.ID] = *item
	return nil
}

func (m *Memory) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetOrderByID"); err != nil {
		return nil, err
	}
	o, ok := m.data.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	return &o, nil
}

func (m *Memory) GetOrderForUpdate(ctx context.Context, id int64) (*models.Order, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetOrderForUpdate"); err != nil {
		return nil, err
	}
	o, ok := m.data.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	return &o, nil
}

func (m *Memory) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, int, error) {
	defer m.mu.Unlock()
	if err := m.lock("ListOrders"); err != nil {
		return nil, 0, err
	}
	orders := []models.Order{}
	for _, o := range m.data.orders {
		if filter.UserID != nil && o.UserID != *filter.UserID {
			continue
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID > orders[j].ID })
	return page(orders, filter.Limit, filter.Offset), len(orders), nil
}

func (m *Memory) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetOrderItemsByOrderID"); err != nil {
		return nil, err
	}
	return m.orderItemsOf(map[int64]bool{orderID: true}), nil
}

func (m *Memory) GetOrderItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]models.OrderItem, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetOrderItemsByOrderIDs"); err != nil {
		return nil, err
	}
	wanted := map[int64]bool{}
	for _, id := range orderIDs {
		wanted[id] = true
	}
	return m.orderItemsOf(wanted), nil
}

func (m *Memory) orderItemsOf(orderIDs map[int64]bool) []models.OrderItem {
	items := []models.OrderItem{}
	for _, it := range m.data.orderItems {
		if orderIDs[it.OrderID] {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (m *Memory) UpdateOrderStatus(ctx context.Context, orderID int64, status models.OrderStatus) error {
	defer m.mu.Unlock()
	if err := m.lock("UpdateOrderStatus"); err != nil {
		return err
	}
	o, ok := m.data.orders[orderID]
	if !ok {
		return notFound("order", orderID)
	}
	o.Status = status
	o.UpdatedAt = now()
	m.data.orders[orderID] = o
	return nil
}

func (m *Memory) UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) error {
	defer m.mu.Unlock()
	if err := m.lock("UpdatePaymentStatus"); err != nil {
		return err
	}
	o, ok := m.data.orders[orderID]
	if !ok {
		return notFound("order", orderID)
	}
	o.PaymentStatus = status
	o.UpdatedAt = now()
	m.data.orders[orderID] = o
	return nil
}

func (m *Memory) GetOrderStats(ctx context.Context) (*models.OrderStats, error) {
	defer m.mu.Unlock()
	if err := m.lock("GetOrderStats"); err != nil {
		return nil, err
	}
	stats := &models.OrderStats{TotalRevenue: decimal.Zero}
	for _, o := range m.data.orders {
		stats.TotalOrders++
		switch o.Status {
		case models.OrderStatusPending:
			stats.PendingOrders++
		case models.OrderStatusDelivered:
			stats.CompletedOrders++
		}
		if o.PaymentStatus == models.PaymentStatusCompleted {
			stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		}
	}
	return stats, nil
}

// Events

func (m *Memory) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	defer m.mu.Unlock()
	if err := m.lock("IsEventProcessed"); err != nil {
		return false, err
	}
	_, ok := m.data.processed[eventID]
	return ok, nil
}

func (m *Memory) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	defer m.mu.Unlock()
	if err := m.lock("MarkEventProcessed"); err != nil {
		return err
	}
	if _, ok := m.data.processed[eventID]; !ok {
		m.data.processed[eventID] = eventType
	}
	return nil
}

func (m *Memory) AppendOrderHistory(ctx context.Context, entry *models.OrderHistoryEntry) error {
	defer m.mu.Unlock()
	if err := m.lock("AppendOrderHistory"); err != nil {
		return err
	}
	if _, ok := m.data.orders[entry.OrderID]; !ok {
		return apperror.NotFound("Referenced record not found")
	}
	entry.ID = m.data.id()
	entry.RecordedAt = now()
	m.data.history[entry.ID] = *entry
	return nil
}

func (m *Memory) ListOrderHistory(ctx context.Context, orderID int64) ([]models.OrderHistoryEntry, error) {
	defer m.mu.Unlock()
	if err := m.lock("ListOrderHistory"); err != nil {
		return nil, err
	}
	entries := []models.OrderHistoryEntry{}
	for _, h := range m.data.history {
		if h.OrderID == orderID {
			entries = append(entries, h)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].OccurredAt.Equal(entries[j].OccurredAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].OccurredAt.Before(entries[j].OccurredAt)
	})
	return entries, nil
}

func page[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}

var _ store.TxRepository = (*Memory)(nil)
