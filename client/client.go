// Package client is a typed Go client for the storefront REST API.
//
// Authentication state lives in a Session returned by Register or Login and
// passed explicitly to every protected call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Session is an authenticated user
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// APIError is a non-2xx response
type APIError struct {
	Status  int
	Message string
	Details []string
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, strings.Join(e.Details, "; "))
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// Pagination describes a page of a listing
type Pagination struct {
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Details    []string        `json:"details"`
	InWishlist bool            `json:"inWishlist"`
}

// Client talks to one API base URL
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client. A nil httpClient gets a 30 second timeout default.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type request struct {
	method  string
	path    string
	session *Session
	body    interface{}
	headers map[string]string
}

func (c *Client) do(ctx context.Context, r request, out interface{}) (*envelope, error) {
	var body io.Reader
	if r.body != nil {
		raw, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, err
	}
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.session != nil {
		req.Header.Set("Authorization", "Bearer "+r.session.Token)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message, Details: env.Details}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}

func pageQuery(page, limit int) string {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Registration is the body of Register
type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Address  string `json:"address"`
}

func (c *Client) Register(ctx context.Context, reg Registration) (*Session, error) {
	var session Session
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/register", body: reg}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/api/auth/login", body: body}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) Me(ctx context.Context, s *Session) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/api/auth/me", session: s}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileUpdate carries the fields to change; nil fields are left alone
type ProfileUpdate struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// UpdateProfile changes the profile and refreshes s.User
func (c *Client) UpdateProfile(ctx context.Context, s *Session, upd ProfileUpdate) (*models.User, error) {
	var user models.User
	if _, err := c.do(ctx, request{method: http.MethodPut, path: "/api/auth/update", session: s, body: upd}, &user); err != nil {
		return nil, err
	}
	s.User = &user
	return &user, nil
}

func (c *Client) ChangePassword(ctx context.Context, s *Session, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	_, err := c.do(ctx, request{method: http.MethodPut, path: "/api/auth/change-password", session: s, body: body}, nil)
	return err
}

// ListProducts returns a page of the catalog, optionally filtered by category
func (c *Client) ListProducts(ctx context.Context, category string, page, limit int) ([]models.Product, *Pagination, error) {
	path := "/api/products" + pageQuery(page, limit)
	if category != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + "category=" + url.QueryEscape(category)
	}
	return c.productPage(ctx, path)
}

func (c *Client) ProductsByCategory(ctx context.Context, category string, page, limit int) ([]models.Product, *Pagination, error) {
	return c.productPage(ctx, "/api/products/category/"+url.PathEscape(category)+pageQuery(page, limit))
}

func (c *Client) SearchProducts(ctx context.Context, query string, page, limit int) ([]models.Product, *Pagination, error) {
	return c.productPage(ctx, "/api/products/search/"+url.PathEscape(query)+pageQuery(page, limit))
}

func (c *Client) productPage(ctx context.Context, path string) ([]models.Product, *Pagination, error) {
	var products []models.Product
	env, err := c.do(ctx, request{method: http.MethodGet, path: path}, &products)
	if err != nil {
		return nil, nil, err
	}
	return products, env.Pagination, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if _, err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/api/products/%d", id)}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductFields is a JSON product write. Images need a multipart upload.
type ProductFields struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Stock       *int             `json:"stock,omitempty"`
	Category    *string          `json:"category,omitempty"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

func (c *Client) CreateProduct(ctx context.Context, s *Session, fields ProductFields) (*models.Product, error) {
	var product models.Product
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/api/products", session: s, body: fields}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) UpdateProduct(ctx context.Context, s *Session, id int64, fields ProductFields) (*models.Product, error) {
	var product models.Product
	path := fmt.Sprintf("/api/products/%d", id)
	if _, err := c.do(ctx, request{method: http.MethodPut, path: path, session: s, body: fields}, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *Client) DeleteProduct(ctx context.Context, s *Session, id int64) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/api/products/%d", id), session: s}, nil)
	return err
}

func (c *Client) GetCart(ctx context.Context, s *Session) (*models.Cart, error) {
	return c.cartCall(ctx, request{method: http.MethodGet, path: "/api/cart", session: s})
}

// AddToCart adds quantity of a product and returns the updated cart
func (c *Client) AddToCart(ctx context.Context, s *Session, productID int64, quantity int) (*models.Cart, error) {
	body := map[string]interface{}{"productId": productID, "quantity": quantity}
	return c.cartCall(ctx, request{method: http.MethodPost, path: "/api/cart/items", session: s, body: body})
}

func (c *Client) UpdateCartItem(ctx context.Context, s *Session, itemID int64, quantity int) (*models.Cart, error) {
	body := map[string]int{"quantity": quantity}
	path := fmt.Sprintf("/api/cart/items/%d", itemID)
	return c.cartCall(ctx, request{method: http.MethodPut, path: path, session: s, body: body})
}

func (c *Client) RemoveCartItem(ctx context.Context, s *Session, itemID int64) (*models.Cart, error) {
	path := fmt.Sprintf("/api/cart/items/%d", itemID)
	return c.cartCall(ctx, request{method: http.MethodDelete, path: path, session: s})
}

func (c *Client) ClearCart(ctx context.Context, s *Session) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/cart", session: s}, nil)
	return err
}

func (c *Client) cartCall(ctx context.Context, r request) (*models.Cart, error) {
	var cart models.Cart
	if _, err := c.do(ctx, r, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (c *Client) GetWishlist(ctx context.Context, s *Session) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/api/wishlist", session: s}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) AddToWishlist(ctx context.Context, s *Session, productID int64) (*models.WishlistItem, error) {
	var item models.WishlistItem
	body := map[string]int64{"productId": productID}
	if _, err := c.do(ctx, request{method: http.MethodPost, path: "/api/wishlist", session: s, body: body}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) RemoveFromWishlist(ctx context.Context, s *Session, productID int64) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/api/wishlist/%d", productID), session: s}, nil)
	return err
}

func (c *Client) InWishlist(ctx context.Context, s *Session, productID int64) (bool, error) {
	env, err := c.do(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/api/wishlist/check/%d", productID), session: s}, nil)
	if err != nil {
		return false, err
	}
	return env.InWishlist, nil
}

func (c *Client) ClearWishlist(ctx context.Context, s *Session) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "/api/wishlist", session: s}, nil)
	return err
}

// PlaceOrder checks out the cart. A non-empty idempotencyKey makes retries
// return the first order instead of placing another.
func (c *Client) PlaceOrder(ctx context.Context, s *Session, shippingAddress string, notes *string, idempotencyKey string) (*models.Order, error) {
	r := request{
		method:  http.MethodPost,
		path:    "/api/orders",
		session: s,
		body: map[string]interface{}{
			"shippingAddress": shippingAddress,
			"notes":           notes,
		},
	}
	if idempotencyKey != "" {
		r.headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	return c.orderCall(ctx, r)
}

// ListOrders returns the caller's orders, or every order for admins
func (c *Client) ListOrders(ctx context.Context, s *Session, page, limit int) ([]models.Order, *Pagination, error) {
	var orders []models.Order
	env, err := c.do(ctx, request{method: http.MethodGet, path: "/api/orders" + pageQuery(page, limit), session: s}, &orders)
	if err != nil {
		return nil, nil, err
	}
	return orders, env.Pagination, nil
}

func (c *Client) GetOrder(ctx context.Context, s *Session, id int64) (*models.Order, error) {
	return c.orderCall(ctx, request{method: http.MethodGet, path: fmt.Sprintf("/api/orders/%d", id), session: s})
}

func (c *Client) CancelOrder(ctx context.Context, s *Session, id int64) (*models.Order, error) {
	return c.orderCall(ctx, request{method: http.MethodDelete, path: fmt.Sprintf("/api/orders/%d", id), session: s})
}

func (c *Client) OrderHistory(ctx context.Context, s *Session, id int64) ([]models.OrderHistoryEntry, error) {
	var entries []models.OrderHistoryEntry
	path := fmt.Sprintf("/api/orders/%d/history", id)
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path, session: s}, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *Client) UpdateOrderStatus(ctx context.Context, s *Session, id int64, status models.OrderStatus) (*models.Order, error) {
	body := map[string]models.OrderStatus{"status": status}
	return c.orderCall(ctx, request{method: http.MethodPut, path: fmt.Sprintf("/api/orders/%d/status", id), session: s, body: body})
}

func (c *Client) UpdatePaymentStatus(ctx context.Context, s *Session, id int64, status models.PaymentStatus) (*models.Order, error) {
	body := map[string]models.PaymentStatus{"paymentStatus": status}
	return c.orderCall(ctx, request{method: http.MethodPut, path: fmt.Sprintf("/api/orders/%d/payment", id), session: s, body: body})
}

func (c *Client) OrderStats(ctx context.Context, s *Session) (*models.OrderStats, error) {
	var stats models.OrderStats
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/api/orders/stats/dashboard", session: s}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) orderCall(ctx context.Context, r request) (*models.Order, error) {
	var order models.Order
	if _, err := c.do(ctx, r, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
