package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campuscycles/pos-backend/api/controllers"
	"github.com/campuscycles/pos-backend/api/middleware"
	"github.com/campuscycles/pos-backend/internal/audit"
	"github.com/campuscycles/pos-backend/internal/inventory"
	"github.com/campuscycles/pos-backend/internal/orderrequests"
	"github.com/campuscycles/pos-backend/internal/orders"
	"github.com/campuscycles/pos-backend/internal/transactions"
	"github.com/campuscycles/pos-backend/pkg/config"
	"github.com/campuscycles/pos-backend/pkg/logger"
	pkgredis "github.com/campuscycles/pos-backend/pkg/redis"
)

type Deps struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         controllers.Pinger
	Redis            *pkgredis.Client
	Registry         *prometheus.Registry
	AuditService     audit.Service
	InventoryService inventory.Service
	RequestsService  orderrequests.Service
	OrdersService    orders.Service
	TxnService       transactions.Service
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DBPinger, redisPinger(deps.Redis)))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireActor(deps.Logger))
		if deps.Redis != nil {
			r.Use(middleware.Idempotency(deps.Redis, deps.Logger))
		}

		r.Route("/order-requests", func(r chi.Router) {
			r.Get("/", controllers.ListOrderRequests(deps.RequestsService, deps.Logger))
			r.Post("/", controllers.CreateOrderRequest(deps.RequestsService, deps.Logger))
			r.Get("/latest", controllers.LatestOrderRequests(deps.RequestsService, deps.Logger))
			r.Route("/{requestID}", func(r chi.Router) {
				r.Get("/", controllers.GetOrderRequest(deps.RequestsService, deps.Logger))
				r.Delete("/", controllers.DeleteOrderRequest(deps.RequestsService, deps.Logger))
				r.Put("/request", controllers.UpdateRequestDescription(deps.RequestsService, deps.Logger))
				r.Put("/part-number", controllers.UpdateRequestPartNumber(deps.RequestsService, deps.Logger))
				r.Put("/notes", controllers.UpdateRequestNotes(deps.RequestsService, deps.Logger))
				r.Put("/quantity", controllers.UpdateRequestQuantity(deps.RequestsService, deps.Logger))
				r.Put("/item", controllers.AssignRequestItem(deps.RequestsService, deps.Logger))
				r.Put("/status", controllers.UpdateRequestStatus(deps.RequestsService, deps.Logger))
				r.Post("/transactions", controllers.AddRequestTransaction(deps.RequestsService, deps.Logger))
				r.Delete("/transactions/{transactionID}", controllers.RemoveRequestTransaction(deps.RequestsService, deps.Logger))
				r.Get("/actions", controllers.ListRequestActions(deps.AuditService, deps.Logger))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.OrdersService, deps.Logger))
			r.Post("/", controllers.CreateOrder(deps.OrdersService, deps.Logger))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(deps.OrdersService, deps.Logger))
				r.Delete("/", controllers.DeleteOrder(deps.OrdersService, deps.Logger))
				r.Put("/status", controllers.UpdateOrderStatus(deps.OrdersService, deps.Logger))
				r.Put("/supplier", controllers.UpdateOrderSupplier(deps.OrdersService, deps.Logger))
				r.Put("/tracking-number", controllers.UpdateOrderTrackingNumber(deps.OrdersService, deps.Logger))
				r.Put("/freight-charge", controllers.UpdateOrderFreightCharge(deps.OrdersService, deps.Logger))
				r.Post("/requests/{requestID}", controllers.AttachOrderRequest(deps.OrdersService, deps.Logger))
				r.Delete("/requests/{requestID}", controllers.DetachOrderRequest(deps.OrdersService, deps.Logger))
			})
		})

		r.Route("/items/{itemID}", func(r chi.Router) {
			r.Put("/stock", controllers.AdjustItemStock(deps.InventoryService, deps.Logger))
		})

		r.Route("/transactions/{transactionID}", func(r chi.Router) {
			r.Get("/waiting-requests", controllers.TransactionWaitingCount(deps.TxnService, deps.Logger))
			r.Post("/waiting-requests", controllers.AddTransactionWaitingRequest(deps.RequestsService, deps.Logger))
			r.Delete("/waiting-requests/{requestID}", controllers.RemoveTransactionWaitingRequest(deps.RequestsService, deps.Logger))
			r.Delete("/items/{itemID}", controllers.RemoveTransactionItem(deps.TxnService, deps.Logger))
			r.Post("/complete", controllers.CompleteTransaction(deps.TxnService, deps.Logger))
			r.Get("/actions", controllers.ListTransactionActions(deps.AuditService, deps.Logger))
		})
	})

	return r
}

// redisPinger keeps the nil *Client from masquerading as a non-nil interface.
func redisPinger(client *pkgredis.Client) controllers.Pinger {
	if client == nil {
		return nil
	}
	return client
}
