package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventhub/eventhub-backend/api/controllers"
	leadcontrollers "github.com/eventhub/eventhub-backend/api/controllers/leads"
	offercontrollers "github.com/eventhub/eventhub-backend/api/controllers/offers"
	ordercontrollers "github.com/eventhub/eventhub-backend/api/controllers/orders"
	webhookcontrollers "github.com/eventhub/eventhub-backend/api/controllers/webhooks"
	"github.com/eventhub/eventhub-backend/api/middleware"
	"github.com/eventhub/eventhub-backend/internal/bookings"
	"github.com/eventhub/eventhub-backend/internal/cancellation"
	"github.com/eventhub/eventhub-backend/internal/leads"
	"github.com/eventhub/eventhub-backend/internal/offers"
	"github.com/eventhub/eventhub-backend/internal/payments"
	"github.com/eventhub/eventhub-backend/pkg/config"
	"github.com/eventhub/eventhub-backend/pkg/db"
	"github.com/eventhub/eventhub-backend/pkg/enums"
	"github.com/eventhub/eventhub-backend/pkg/logger"
	"github.com/eventhub/eventhub-backend/pkg/metrics"
	"github.com/eventhub/eventhub-backend/pkg/redis"
)

// Deps carries everything the HTTP surface is built from.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        redis.Pinger
	Idempotency  redis.IdempotencyStore
	Offers       offers.Service
	Bookings     bookings.Service
	Payments     payments.Service
	Cancellation cancellation.Service
	Leads        leads.Service
	WebhookGuard *payments.WebhookGuard
	Webhooks     *metrics.WebhookMetrics
	Metrics      http.Handler
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", paymentWebhook(deps))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Get("/payments/{paymentId}", ordercontrollers.PaymentStatus(deps.Payments, logg))
		r.Get("/threads/{threadId}/offers", offercontrollers.ListByThread(deps.Offers, logg))

		r.Route("/offers", func(r chi.Router) {
			r.Get("/{offerId}", offercontrollers.Detail(deps.Offers, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer))
				r.Post("/", offercontrollers.Propose(deps.Offers, logg))
				r.Get("/mine", offercontrollers.ListMine(deps.Offers, logg))
				r.Post("/{offerId}/recounter", offercontrollers.UserReCounter(deps.Offers, logg))
				r.Post("/{offerId}/accept-counter", offercontrollers.UserAcceptCounter(deps.Offers, logg))
				r.Post("/{offerId}/withdraw", offercontrollers.UserWithdraw(deps.Offers, logg))
				r.Post("/{offerId}/token-payment", ordercontrollers.InitiateOfferTokenPayment(deps.Payments, logg))
			})
		})

		r.Route("/orders/{orderId}", func(r chi.Router) {
			r.Get("/", ordercontrollers.Detail(deps.Bookings, logg))
			r.Get("/payments", ordercontrollers.PaymentHistory(deps.Payments, logg))
			r.Get("/balance", ordercontrollers.Balance(deps.Payments, logg))
			r.Get("/token-payment", ordercontrollers.TokenPaymentState(deps.Payments, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.ActorRoleCustomer))
				r.Post("/token-payment", ordercontrollers.InitiateTokenPayment(deps.Payments, logg))
				r.Get("/refund-estimate", ordercontrollers.RefundEstimate(deps.Cancellation, logg))
				r.Post("/cancel", ordercontrollers.Cancel(deps.Cancellation, logg))
			})
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireVendor(logg))
			r.Get("/offers", offercontrollers.ListForVendor(deps.Offers, logg))
			r.Post("/offers/{offerId}/counter", offercontrollers.VendorCounter(deps.Offers, logg))
			r.Post("/offers/{offerId}/accept", offercontrollers.VendorAccept(deps.Offers, logg))
			r.Post("/offers/{offerId}/reject", offercontrollers.VendorReject(deps.Offers, logg))
			r.Post("/orders/{orderId}/confirm", ordercontrollers.VendorConfirm(deps.Bookings, logg))
			r.Post("/orders/{orderId}/complete", ordercontrollers.VendorComplete(deps.Bookings, logg))
			r.Get("/leads", leadcontrollers.VendorList(deps.Leads, logg))
			r.Get("/leads/{leadId}", leadcontrollers.VendorDetail(deps.Leads, logg))
		})
	})

	return r
}

func paymentWebhook(deps Deps) http.HandlerFunc {
	if deps.WebhookGuard == nil {
		return webhookcontrollers.PaymentWebhook(deps.Payments, nil, deps.Webhooks, deps.Logger)
	}
	return webhookcontrollers.PaymentWebhook(deps.Payments, deps.WebhookGuard, deps.Webhooks, deps.Logger)
}
