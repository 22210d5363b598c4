package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/linemk/gogol-pizza/internal/app/handlers"
	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/gogol-pizza/internal/lib/logger/handlers/urllog"
	"github.com/linemk/gogol-pizza/internal/lib/metrics"
	"github.com/linemk/gogol-pizza/internal/realtime"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/prometheus/client_golang/prometheus"
)

type Services struct {
	Auth    service.AuthService
	Product service.ProductService
	Cart    service.CartService
	Order   service.OrderService
	Payment service.PaymentService
	Seller  service.SellerService
}

type RouterOptions struct {
	JWTSecret      string
	Cookie         handlers.CookieConfig
	AllowedOrigins []string
	Hub            *realtime.Hub
	WS             realtime.WSOptions
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
}

// NewRouter mounts the REST API, the websocket endpoint and /metrics.
func NewRouter(log *slog.Logger, svc Services, opts RouterOptions) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	auth := jwtmiddleware.NewJWTMiddleware(opts.JWTSecret, opts.Cookie.Name)
	staff := jwtmiddleware.RequireRoles(models.RoleSeller, models.RoleAdmin)

	router.Get("/api/health", handlers.HealthHandler())
	if opts.Hub != nil {
		ws := opts.WS
		ws.AllowedOrigins = opts.AllowedOrigins
		router.Get("/ws", realtime.ServeWS(log, opts.Hub, ws))
	}
	if opts.Gatherer != nil {
		router.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	router.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", handlers.RegisterHandler(log, svc.Auth, opts.Cookie))
		r.Post("/login", handlers.LoginHandler(log, svc.Auth, opts.Cookie))
		r.Post("/seller/verify", handlers.VerifySellerHandler(log, svc.Auth, opts.Cookie))
		r.Post("/forgot", handlers.ForgotPasswordHandler(log, svc.Auth))
		r.Post("/logout", handlers.LogoutHandler(opts.Cookie))
		r.With(auth).Get("/me", handlers.MeHandler(log, svc.Auth))
	})

	router.Route("/api/products", func(r chi.Router) {
		r.Get("/", handlers.ListProductsHandler(log, svc.Product))
		r.Get("/{id}", handlers.GetProductHandler(log, svc.Product))

		r.Group(func(r chi.Router) {
			r.Use(auth, staff)
			r.Post("/", handlers.CreateProductHandler(log, svc.Product))
			r.Put("/{id}", handlers.UpdateProductHandler(log, svc.Product))
			r.Patch("/{id}", handlers.UpdateProductHandler(log, svc.Product))
			r.Delete("/{id}", handlers.DeleteProductHandler(log, svc.Product))
			r.Delete("/{id}/images", handlers.RemoveProductImageHandler(log, svc.Product))
			r.Patch("/{id}/cover", handlers.SetProductCoverHandler(log, svc.Product))
		})
	})

	router.Route("/api/orders", func(r chi.Router) {
		// Daraja calls this one without credentials.
		r.Post("/mpesa/callback", handlers.MpesaCallbackHandler(log, svc.Payment))

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/", handlers.CreateOrderHandler(log, svc.Order))
			r.Get("/", handlers.ListOrdersHandler(log, svc.Order))
			r.Get("/{id}", handlers.GetOrderHandler(log, svc.Order))
			r.Delete("/{id}", handlers.DeleteOrderHandler(log, svc.Order))
			r.With(staff).Put("/{id}/status", handlers.UpdateOrderStatusHandler(log, svc.Order))
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(auth)

		r.Get("/api/cart", handlers.GetCartHandler(log, svc.Cart))
		r.Post("/api/cart", handlers.SaveCartHandler(log, svc.Cart))

		r.Post("/api/payments/order/{id}/stkpush", handlers.InitiatePaymentHandler(log, svc.Payment))

		r.Group(func(r chi.Router) {
			r.Use(staff)
			r.Get("/api/seller/analytics", handlers.SellerAnalyticsHandler(log, svc.Seller))
			r.Get("/api/seller/clients", handlers.SellerClientsHandler(log, svc.Seller))
		})
	})

	return router
}
