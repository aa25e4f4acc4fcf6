package api

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/upload"
	"storefront/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups the business services behind the HTTP API
type Services struct {
	Auth     *service.AuthService
	Products *service.ProductService
	Carts    *service.CartService
	Wishlist *service.WishlistService
	Orders   *service.OrderService
}

// Options configures the HTTP layer
type Options struct {
	Production      bool
	UploadDir       string
	AllowOrigins    []string
	DefaultPageSize int
	MaxPageSize     int
	// Checks are pinged by /ready, keyed by dependency name
	Checks map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	auth     *service.AuthService
	products *service.ProductService
	carts    *service.CartService
	wishlist *service.WishlistService
	orders   *service.OrderService
	opts     Options
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(services Services, opts Options) *Handler {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	return &Handler{
		auth:     services.Auth,
		products: services.Products,
		carts:    services.Carts,
		wishlist: services.Wishlist,
		orders:   services.Orders,
		opts:     opts,
		logger:   util.GetLogger(),
	}
}

func (h *Handler) corsMiddleware() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	config.AllowOrigins = h.opts.AllowOrigins
	for _, origin := range h.opts.AllowOrigins {
		if origin == "*" {
			config.AllowAllOrigins = true
			config.AllowOrigins = nil
			break
		}
	}
	if len(config.AllowOrigins) == 0 {
		config.AllowAllOrigins = true
	}
	return cors.New(config)
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(h.corsMiddleware())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/", h.index)
	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.opts.UploadDir != "" {
		router.Static(upload.PublicPrefix, h.opts.UploadDir)
	}

	protect := h.protect()
	admin := h.authorize(models.RoleAdmin)

	api := router.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)
		auth.GET("/me", protect, h.me)
		auth.PUT("/update", protect, h.updateProfile)
		auth.PUT("/change-password", protect, h.changePassword)

		users := auth.Group("/users", protect, admin)
		users.GET("", h.listUsers)
		users.GET("/:id", h.getUser)
		users.DELETE("/:id", h.deleteUser)
		users.PUT("/:id/role", h.updateUserRole)
	}

	products := api.Group("/products")
	{
		products.GET("", h.listProducts)
		products.GET("/category/:category", h.productsByCategory)
		products.GET("/search/:query", h.searchProducts)
		products.GET("/:id", h.getProduct)
		products.POST("", protect, admin, h.createProduct)
		products.PUT("/:id", protect, admin, h.updateProduct)
		products.DELETE("/:id", protect, admin, h.deleteProduct)
	}

	cart := api.Group("/cart", protect)
	{
		cart.GET("", h.getCart)
		cart.DELETE("", h.clearCart)
		cart.POST("/items", h.addCartItem)
		cart.PUT("/items/:id", h.updateCartItem)
		cart.DELETE("/items/:id", h.removeCartItem)
	}

	wishlist := api.Group("/wishlist", protect)
	{
		wishlist.GET("", h.getWishlist)
		wishlist.POST("", h.addToWishlist)
		wishlist.DELETE("", h.clearWishlist)
		wishlist.GET("/check/:id", h.checkWishlist)
		wishlist.DELETE("/:id", h.removeFromWishlist)
	}

	orders := api.Group("/orders", protect)
	{
		orders.GET("", h.listOrders)
		orders.POST("", h.placeOrder)
		orders.GET("/stats/dashboard", admin, h.orderStats)
		orders.GET("/export", admin, h.exportOrders)
		orders.GET("/:id", h.getOrder)
		orders.DELETE("/:id", h.cancelOrder)
		orders.GET("/:id/history", h.orderHistory)
		orders.PUT("/:id/status", admin, h.updateOrderStatus)
		orders.PUT("/:id/payment", admin, h.updatePaymentStatus)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "Route not found",
			"path":    c.Request.URL.Path,
		})
	})
}

func (h *Handler) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Welcome to the storefront API",
		"endpoints": gin.H{
			"auth": gin.H{
				"register": "POST /api/auth/register",
				"login":    "POST /api/auth/login",
				"profile":  "GET /api/auth/me (protected)",
			},
			"products": "GET /api/products",
			"cart":     "GET /api/cart (protected)",
			"wishlist": "GET /api/wishlist (protected)",
			"orders":   "GET /api/orders (protected)",
		},
	})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency and reports 503 if any is down
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{}
	for name, dep := range h.opts.Checks {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}
