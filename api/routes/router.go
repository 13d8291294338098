package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hatidph/hatid-backend/api/controllers"
	dispatchcontrollers "github.com/hatidph/hatid-backend/api/controllers/dispatch"
	inventorycontrollers "github.com/hatidph/hatid-backend/api/controllers/inventory"
	ordercontrollers "github.com/hatidph/hatid-backend/api/controllers/orders"
	refundcontrollers "github.com/hatidph/hatid-backend/api/controllers/refunds"
	webhookcontrollers "github.com/hatidph/hatid-backend/api/controllers/webhooks"
	"github.com/hatidph/hatid-backend/api/middleware"
	"github.com/hatidph/hatid-backend/internal/dispatch"
	"github.com/hatidph/hatid-backend/internal/inventory"
	"github.com/hatidph/hatid-backend/internal/orders"
	"github.com/hatidph/hatid-backend/internal/payments"
	"github.com/hatidph/hatid-backend/internal/refunds"
	"github.com/hatidph/hatid-backend/pkg/config"
	"github.com/hatidph/hatid-backend/pkg/db"
	"github.com/hatidph/hatid-backend/pkg/enums"
	"github.com/hatidph/hatid-backend/pkg/logger"
	"github.com/hatidph/hatid-backend/pkg/redis"
	"github.com/hatidph/hatid-backend/pkg/square"
)

// RouterParams carry everything the HTTP surface depends on.
type RouterParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Registry     *prometheus.Registry
	Orders       orders.Service
	Refunds      refunds.Service
	Dispatch     dispatch.Service
	Presence     *dispatch.Presence
	Inventory    inventory.Service
	Payments     payments.Service
	Square       *square.Client
	WebhookGuard *payments.IdempotencyGuard
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readinessDeps(p)))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentWebhook(p.Payments, p.Square, p.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(logg))

		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Post("/", ordercontrollers.Create(p.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.RoleCustomer)).Get("/", ordercontrollers.ListMine(p.Orders, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(p.Orders, logg))
				r.Get("/history", ordercontrollers.History(p.Orders, logg))
				r.Post("/transition", ordercontrollers.Transition(p.Orders, logg))
				r.Post("/cancel", refundcontrollers.Cancel(p.Refunds, logg))
				r.Get("/refund-eligibility", refundcontrollers.Eligibility(p.Refunds, logg))
				r.With(middleware.RequireRole(logg, enums.RoleAdmin)).Post("/dispatch", dispatchcontrollers.Offer(p.Dispatch, logg))
			})
		})

		r.Route("/refunds", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleAdmin)).Post("/{refundId}/process", refundcontrollers.Process(p.Refunds, logg))
		})

		r.Route("/offers", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleRider)).Post("/{offerId}/respond", dispatchcontrollers.Respond(p.Dispatch, logg))
		})

		r.Route("/riders", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleRider)).Post("/heartbeat", dispatchcontrollers.Heartbeat(p.Presence, logg))
		})

		r.Route("/restaurants/{restaurantId}", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleVendor, enums.RoleAdmin)).Get("/orders", ordercontrollers.ListRestaurant(p.Orders, logg))
			r.With(middleware.RequireRole(logg, enums.RoleVendor, enums.RoleAdmin)).Get("/inventory/low-stock", inventorycontrollers.LowStock(p.Inventory, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/check", inventorycontrollers.CheckAvailability(p.Inventory, logg))
			r.With(middleware.RequireRole(logg, enums.RoleVendor, enums.RoleAdmin)).Put("/items/{itemId}/stock", inventorycontrollers.AdjustStock(p.Inventory, logg))
		})
	})

	return r
}

func readinessDeps(p RouterParams) map[string]controllers.Pinger {
	deps := map[string]controllers.Pinger{}
	if p.DB != nil {
		deps["db"] = p.DB
	}
	if p.Redis != nil {
		deps["redis"] = p.Redis
	}
	return deps
}
