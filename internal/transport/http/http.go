package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/metrics"
	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/storefront/internal/service/models/user"
	createorder "github.com/corray333/backend-labs/storefront/internal/transport/http/create_order"
	deliverorder "github.com/corray333/backend-labs/storefront/internal/transport/http/deliver_order"
	getorder "github.com/corray333/backend-labs/storefront/internal/transport/http/get_order"
	listorders "github.com/corray333/backend-labs/storefront/internal/transport/http/list_orders"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/middleware/auth"
	myorders "github.com/corray333/backend-labs/storefront/internal/transport/http/my_orders"
	payorder "github.com/corray333/backend-labs/storefront/internal/transport/http/pay_order"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
	"github.com/corray333/backend-labs/storefront/pkg/http/middleware/trace"
	"github.com/corray333/backend-labs/storefront/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type service interface {
	PlaceOrder(
		ctx context.Context,
		userID int64,
		items []orderitem.OrderItem,
		total decimal.Decimal,
		address order.ShippingAddress,
	) (*order.Order, error)
	PayOrder(ctx context.Context, orderID int64) (*order.Order, error)
	DeliverOrder(ctx context.Context, orderID int64) (*order.Order, error)
	GetOrderDetail(ctx context.Context, orderID int64, requester user.User) (*order.Order, error)
	ListOrders(ctx context.Context, filter order.ListFilter) ([]order.Order, error)
	Ping(ctx context.Context) error
}

type authenticator interface {
	Authenticate(next http.Handler) http.Handler
}

type HTTPTransport struct {
	server  *http.Server
	router  *chi.Mux
	service service
	auth    authenticator
}

func NewHTTPTransport(service service, auth authenticator) *HTTPTransport {
	router := newRouter()
	server := newServer(router)

	return &HTTPTransport{
		server:  server,
		router:  router,
		service: service,
		auth:    auth,
	}
}

// Handler returns the router, for tests and embedding.
func (h *HTTPTransport) Handler() http.Handler {
	return h.router
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Get("/healthz", h.healthz)
	h.router.Method(http.MethodGet, "/metrics", metrics.Handler())

	h.router.Route("/api", func(r chi.Router) {
		r.Use(h.auth.Authenticate)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/myorders", h.myOrders)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/pay", h.payOrder)
		})

		r.Route("/admin/orders", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Put("/{id}/deliver", h.deliverOrder)
		})
	})
}

func (h *HTTPTransport) createOrder(w http.ResponseWriter, r *http.Request) {
	createorder.CreateOrder(w, r, h.service)
}

func (h *HTTPTransport) myOrders(w http.ResponseWriter, r *http.Request) {
	myorders.MyOrders(w, r, h.service)
}

func (h *HTTPTransport) getOrder(w http.ResponseWriter, r *http.Request) {
	getorder.GetOrder(w, r, h.service)
}

func (h *HTTPTransport) payOrder(w http.ResponseWriter, r *http.Request) {
	payorder.PayOrder(w, r, h.service)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.service)
}

func (h *HTTPTransport) deliverOrder(w http.ResponseWriter, r *http.Request) {
	deliverorder.DeliverOrder(w, r, h.service)
}

func (h *HTTPTransport) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.service.Ping(ctx); err != nil {
		logger.FromContext(r.Context()).Error("Health check failed", "error", err)
		respond.JSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})

		return
	}

	respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(middleware.Recoverer)
	router.Use(trace.NewTraceMiddleware)
	router.Use(metrics.Middleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:              "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(viper.GetInt("server.http.read_timeout_seconds")) * time.Second,
		WriteTimeout:      time.Duration(viper.GetInt("server.http.write_timeout_seconds")) * time.Second,
	}
}
