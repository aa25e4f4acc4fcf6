package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"storefront/internal/api"
	"storefront/internal/auth"
	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store/storetest"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	util.SetLogger(zap.NewNop())
	os.Exit(m.Run())
}

type fixture struct {
	client *Client
	auth   *service.AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := storetest.New()
	authService := service.NewAuthService(repo, auth.NewTokenIssuer("secret", time.Hour))
	handler := api.NewHandler(api.Services{
		Auth:     authService,
		Products: service.NewProductService(repo, nil),
		Carts:    service.NewCartService(repo),
		Wishlist: service.NewWishlistService(repo),
		Orders:   service.NewOrderService(repo, nil, nil, service.OrderOptions{}),
	}, api.Options{})

	router := gin.New()
	handler.SetupRoutes(router)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &fixture{client: New(srv.URL, srv.Client()), auth: authService}
}

func (f *fixture) session(t *testing.T, email string, admin bool) *Session {
	t.Helper()
	ctx := context.Background()
	s, err := f.client.Register(ctx, Registration{
		Name:     "User",
		Email:    email,
		Phone:    "555" + email[:7],
		Password: "Secret@123",
		Address:  "1 Main Street",
	})
	require.NoError(t, err)
	if admin {
		_, err := f.auth.UpdateUserRole(ctx, s.User.ID, models.RoleAdmin)
		require.NoError(t, err)
	}
	return s
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestShoppingFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	admin := f.session(t, "1234567admin@example.com", true)
	shopper := f.session(t, "7654321shop@example.com", false)

	price := decimal.RequireFromString("12.50")
	product, err := f.client.CreateProduct(ctx, admin, ProductFields{
		Name:        strPtr("Mug"),
		Description: strPtr("Ceramic mug"),
		Price:       &price,
		Stock:       intPtr(4),
		Category:    strPtr(models.CategoryHome),
	})
	require.NoError(t, err)

	products, page, err := f.client.ListProducts(ctx, models.CategoryHome, 1, 10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, 1, page.Total)

	cart, err := f.client.AddToCart(ctx, shopper, product.ID, 2)
	require.NoError(t, err)
	assert.True(t, cart.TotalPrice.Equal(decimal.RequireFromString("25")))
	require.Len(t, cart.Items, 1)

	cart, err = f.client.UpdateCartItem(ctx, shopper, cart.Items[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.TotalItems)

	_, err = f.client.AddToWishlist(ctx, shopper, product.ID)
	require.NoError(t, err)
	in, err := f.client.InWishlist(ctx, shopper, product.ID)
	require.NoError(t, err)
	assert.True(t, in)

	order, err := f.client.PlaceOrder(ctx, shopper, "1 Main Street", nil, "")
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("37.5")))
	assert.Equal(t, models.OrderStatusPending, order.Status)

	cart, err = f.client.GetCart(ctx, shopper)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	order, err = f.client.UpdateOrderStatus(ctx, admin, order.ID, models.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)

	order, err = f.client.CancelOrder(ctx, shopper, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)

	stats, err := f.client.OrderStats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalOrders)
}

func TestAPIErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	shopper := f.session(t, "7654321shop@example.com", false)

	_, err := f.client.Login(ctx, "7654321shop@example.com", "wrong")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid credentials", apiErr.Message)

	_, err = f.client.OrderStats(ctx, shopper)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Status)

	_, err = f.client.PlaceOrder(ctx, shopper, "1 Main Street", nil, "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Cart is empty", apiErr.Message)

	_, err = f.client.GetProduct(ctx, 999)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSessionUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, "1112223me@example.com", false)

	_, err := f.client.UpdateProfile(ctx, s, ProfileUpdate{Name: strPtr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", s.User.Name)

	require.NoError(t, f.client.ChangePassword(ctx, s, "Secret@123", "Changed@456"))
	fresh, err := f.client.Login(ctx, "1112223me@example.com", "Changed@456")
	require.NoError(t, err)

	me, err := f.client.Me(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, s.User.ID, me.ID)
}
