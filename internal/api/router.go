package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/feed"
	"storefront/internal/service"
	"storefront/internal/web"
)

// Deps holds what the router wires into handlers. Feed may be nil.
type Deps struct {
	Tokens    *service.TokenIssuer
	Users     *service.UserService
	Products  *service.ProductService
	Orders    *service.OrderService
	Feed      *feed.Service
	RateLimit float64
	AssetsDir string
}

// NewServer builds the echo instance serving the REST API, the storefront
// page and static assets.
func NewServer(deps Deps) (*echo.Echo, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.Logger())
	e.Use(middleware.CORS())
	if deps.RateLimit > 0 {
		e.Use(rateLimiter(deps.RateLimit))
	}

	userHandler := NewUserHandler(deps.Users)
	productHandler := NewProductHandler(deps.Products)
	orderHandler := NewOrderHandler(deps.Orders)
	auth := requireAuth(deps.Tokens)

	// Routes
	g := e.Group("/api")
	g.POST("/auth/register", userHandler.Register)
	g.POST("/auth/login", userHandler.Login)
	g.GET("/me", userHandler.Me, auth)

	g.GET("/products", productHandler.ListProducts)
	g.GET("/products/:id", productHandler.GetProduct)
	g.POST("/products", productHandler.CreateProduct, auth, requireAdmin)
	g.PUT("/products/:id", productHandler.UpdateProduct, auth, requireAdmin)
	g.DELETE("/products/:id", productHandler.DeleteProduct, auth, requireAdmin)
	g.POST("/products/warmup-cache", productHandler.PreWarmupCache, auth, requireAdmin)
	g.GET("/search", productHandler.Search)

	g.POST("/orders", orderHandler.CreateOrder)
	g.GET("/orders/:id", orderHandler.GetOrder, auth)

	if deps.Feed != nil {
		feedHandler := NewFeedHandler(deps.Feed)
		g.GET("/feed", feedHandler.List)
		g.GET("/feed/hero", feedHandler.Hero)
	}

	g.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"service": "storefront",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	pages := web.NewHandler(deps.Products, deps.Orders, deps.Feed)
	e.GET("/", pages.Index)
	e.GET("/fragments/products", pages.ProductsFragment)
	e.GET("/fragments/hero", pages.HeroFragment)

	fragments := e.Group("/fragments/cart")
	fragments.POST("/add", pages.AddToCart)
	fragments.POST("/inc", pages.IncrementCartLine)
	fragments.POST("/dec", pages.DecrementCartLine)
	fragments.POST("/remove", pages.RemoveCartLine)
	fragments.POST("/clear", pages.ClearCart)
	fragments.POST("/checkout", pages.Checkout)
	if deps.AssetsDir != "" {
		e.Static("/assets", deps.AssetsDir)
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e, nil
}
