package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aridelgado/blindbox-backend/api/controllers"
	"github.com/aridelgado/blindbox-backend/api/middleware"
	"github.com/aridelgado/blindbox-backend/internal/accounts"
	"github.com/aridelgado/blindbox-backend/internal/cart"
	"github.com/aridelgado/blindbox-backend/internal/catalog"
	"github.com/aridelgado/blindbox-backend/internal/delivery"
	"github.com/aridelgado/blindbox-backend/internal/orders"
	"github.com/aridelgado/blindbox-backend/internal/refunds"
	"github.com/aridelgado/blindbox-backend/internal/roles"
	"github.com/aridelgado/blindbox-backend/pkg/auth/session"
	"github.com/aridelgado/blindbox-backend/pkg/config"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	"github.com/aridelgado/blindbox-backend/pkg/logger"
	"github.com/aridelgado/blindbox-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbPinger controllers.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	accountsService accounts.Service,
	rolesService roles.Service,
	catalogService catalog.Service,
	cartService cart.Service,
	ordersService orders.Service,
	deliveryService delivery.Service,
	refundsService refunds.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Idempotency inspects the matched route pattern, so it must be chained
	// onto endpoints with With rather than mounted on a subtree with Use:
	// subtree middleware runs before the rest of the route has matched.
	idem := middleware.Idempotency(redisClient, logg)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.AuthRateLimit(registerPolicy, redisClient, logg),
			idem,
		).Post("/register", controllers.AuthRegister(accountsService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(accountsService, logg))
		r.Post("/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessions, cfg.JWT, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(catalogService, logg))
			r.Get("/{productId}", controllers.ProductGet(catalogService, logg))
			r.Get("/{productId}/stock", controllers.ProductStock(catalogService, logg))
			r.Get("/{productId}/quote", controllers.OrderQuote(ordersService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))
				r.Post("/", controllers.ProductCreate(catalogService, logg))
				r.Patch("/{productId}", controllers.ProductUpdate(catalogService, logg))
				r.Post("/{productId}/deactivate", controllers.ProductDeactivate(catalogService, logg))
				r.Post("/{productId}/reactivate", controllers.ProductReactivate(catalogService, logg))
				r.Get("/{productId}/audit", controllers.ProductAuditTrail(catalogService, logg))
			})
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.With(idem).Post("/items", controllers.CartAdd(cartService, logg))
			r.Delete("/items", controllers.CartRemove(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(idem).Post("/buy", controllers.OrderBuy(ordersService, logg))
			r.Get("/", controllers.OrderListMine(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderGet(ordersService, logg))
			r.Get("/{orderId}/history", controllers.DeliveryHistory(deliveryService, logg))
			r.Get("/{orderId}/refunds", controllers.RefundListByOrder(refundsService, logg))

			r.With(middleware.RequireRole(enums.RoleAdmin.String(), logg)).
				Get("/all", controllers.OrderListAll(ordersService, logg))
		})

		r.Route("/payments", func(r chi.Router) {
			r.With(idem).Post("/", controllers.OrderPayDirect(ordersService, logg))
			r.With(idem).Post("/{orderId}/claim", controllers.PaymentClaimRefund(refundsService, logg))
			r.With(middleware.RequireRole(enums.RoleAdmin.String(), logg)).
				Post("/{orderId}/approve", controllers.PaymentApproveRefund(refundsService, logg))
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Post("/", controllers.RefundOpen(refundsService, logg))
			r.Get("/{refundId}", controllers.RefundGet(refundsService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))
				r.Post("/{refundId}/approve", controllers.RefundApprove(refundsService, logg))
				r.Post("/{refundId}/reject", controllers.RefundReject(refundsService, logg))
				r.With(idem).Post("/{refundId}/pay", controllers.RefundPay(refundsService, logg))
			})
		})

		r.Route("/delivery", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, enums.RoleDelivery.String(), enums.RoleAdmin.String()))
			r.Post("/orders/{orderId}/proof", controllers.DeliverySubmitProof(deliveryService, logg))
			r.Post("/orders/{orderId}/status", controllers.DeliveryAddStatus(deliveryService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))
				r.Post("/orders/{orderId}/out-for-delivery", controllers.DeliveryMarkOut(deliveryService, logg))
				r.Post("/orders/{orderId}/confirm", controllers.DeliveryConfirm(deliveryService, logg))
				r.Post("/orders/{orderId}/assign", controllers.DeliveryAssign(deliveryService, logg))
			})
		})

		r.Route("/roles", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.RoleAdmin.String(), logg))
			r.Post("/admins", controllers.RoleGrantAdmin(rolesService, logg))
			r.Post("/delivery-men", controllers.RoleGrantDelivery(rolesService, logg))
			r.Post("/assign", controllers.RoleAssign(rolesService, logg))
		})
	})

	return r
}
