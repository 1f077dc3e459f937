package server

import (
	"context"
	"log/slog"
	"net/http"
	"storefront/internal/config"
	"storefront/internal/handler"
	authmw "storefront/internal/middleware"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// syncProductsPath has no request deadline; the sync carries its own.
const syncProductsPath = "/api/admin/sync-products"

// Services are built once in main and shared by every request.
type Services struct {
	Catalog     service.CatalogService
	Profile     service.ProfileService
	Coupon      service.CouponService
	Checkout    service.CheckoutService
	Fulfillment service.FulfillmentService
	CatalogSync service.CatalogSyncService
	Order       service.OrderService
	Roles       repository.RoleRepository
}

type Server struct {
	echo            *echo.Echo
	cfg             *config.Config
	roles           repository.RoleRepository
	productHandler  *handler.ProductHandler
	profileHandler  *handler.ProfileHandler
	couponHandler   *handler.CouponHandler
	checkoutHandler *handler.CheckoutHandler
	webhookHandler  *handler.WebhookHandler
	orderHandler    *handler.OrderHandler
	adminHandler    *handler.AdminHandler
}

func NewServer(cfg *config.Config, svc *Services, log *slog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)

	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(requestLoggerConfig(log)))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if cfg.HTTP.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Skipper: func(c echo.Context) bool { return c.Path() == syncProductsPath },
			Timeout: cfg.HTTP.RequestTimeout,
		}))
	}

	s := &Server{
		echo:            e,
		cfg:             cfg,
		roles:           svc.Roles,
		productHandler:  handler.NewProductHandler(svc.Catalog),
		profileHandler:  handler.NewProfileHandler(svc.Profile),
		couponHandler:   handler.NewCouponHandler(svc.Coupon),
		checkoutHandler: handler.NewCheckoutHandler(svc.Checkout),
		webhookHandler:  handler.NewWebhookHandler(svc.Fulfillment, log),
		orderHandler:    handler.NewOrderHandler(svc.Order),
		adminHandler:    handler.NewAdminHandler(svc.CatalogSync, svc.Order, svc.Catalog, svc.Profile, cfg.SyncTimeout, log),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- webhooks --------
	api.POST("/webhooks/stripe", s.webhookHandler.StripeWebhook)

	// -------- catalog --------
	api.GET("/products", s.productHandler.ListProducts)
	api.GET("/products/:id", s.productHandler.GetProduct)

	// -------- signed-in users --------
	signedIn := []echo.MiddlewareFunc{authmw.Authenticate(s.cfg.Auth.JWTSecret), authmw.RequireAuth()}
	api.GET("/profile", s.profileHandler.GetProfile, signedIn...)
	api.POST("/profile", s.profileHandler.CreateProfile, signedIn...)
	api.POST("/coupons/validate", s.couponHandler.ValidateCoupon, signedIn...)
	api.POST("/checkout", s.checkoutHandler.CreateCheckoutSession, signedIn...)
	api.GET("/orders", s.orderHandler.ListMyOrders, signedIn...)
	api.GET("/commissions", s.orderHandler.ListMyCommissions, signedIn...)

	// -------- admin --------
	admin := api.Group("/admin", append(signedIn, authmw.RequireRole(s.roles, model.RoleAdmin))...)
	admin.POST("/sync-products", s.adminHandler.SyncProducts)
	admin.GET("/orders", s.adminHandler.ListOrders)
	admin.PATCH("/orders/:id/status", s.adminHandler.UpdateOrderStatus)
	admin.POST("/orders/:id/commission/pay", s.adminHandler.PayCommission)
	admin.GET("/users", s.adminHandler.ListUsers)
	admin.POST("/products", s.adminHandler.CreateProduct)
	admin.PUT("/products/:id", s.adminHandler.UpdateProduct)
	admin.GET("/analytics", s.adminHandler.Analytics)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func requestLoggerConfig(log *slog.Logger) middleware.RequestLoggerConfig {
	return middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			log.LogAttrs(c.Request().Context(), level, "request",
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	}
}
