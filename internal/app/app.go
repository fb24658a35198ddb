package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/config"
	"github.com/corray333/backend-labs/storefront/internal/dal/rabbitmq"
	outboxrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/outbox/sql"
	userrepo "github.com/corray333/backend-labs/storefront/internal/dal/repositories/user/sql"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/corray333/backend-labs/storefront/internal/otel"
	"github.com/corray333/backend-labs/storefront/internal/service/services/ordersvc"
	httptransport "github.com/corray333/backend-labs/storefront/internal/transport/http"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/middleware/auth"
	outboxworker "github.com/corray333/backend-labs/storefront/internal/worker/outbox"
	"github.com/spf13/viper"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	transport      *httptransport.HTTPTransport
	sqlClient      *sqldb.Client
	rabbitMqClient *rabbitmq.Client
	outboxWorker   *outboxworker.Worker
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp(ctx context.Context) *App {
	a := &App{}

	if viper.GetBool("tracing.enabled") {
		a.otelController = otel.MustInitOtel(
			viper.GetString("tracing.jaeger_endpoint"),
			viper.GetString("app.env"),
		)
	}

	a.sqlClient = sqldb.MustNewClient(ctx, config.MustSQLConfig())
	if viper.GetBool("database.migrate_on_start") {
		if err := a.sqlClient.Migrate(ctx); err != nil {
			panic(err)
		}
	}

	exchange := ""
	if viper.GetBool("rabbitmq.enabled") {
		exchange = viper.GetString("rabbitmq.exchange")
		a.rabbitMqClient = rabbitmq.MustNewClient(rabbitmq.Config{
			User:     viper.GetString("rabbitmq.user"),
			Password: viper.GetString("rabbitmq.password"),
			Host:     viper.GetString("rabbitmq.host"),
			Port:     viper.GetInt("rabbitmq.port"),
			VHost:    viper.GetString("rabbitmq.vhost"),
		})
		if err := a.rabbitMqClient.DeclareExchange(rabbitmq.DeclareExchangeConfig{
			Name:    exchange,
			Kind:    "topic",
			Durable: true,
		}); err != nil {
			panic("failed to declare exchange: " + err.Error())
		}

		// The worker polls outside any unit of work, so it reads through the pool.
		outboxRepository := outboxrepo.NewOutboxRepository(a.sqlClient.DB(), a.sqlClient.Dialect())
		a.outboxWorker = outboxworker.NewWorker(outboxRepository, a.rabbitMqClient)
	}

	a.orderSvc = ordersvc.MustNewOrderService(
		ordersvc.WithSQLClient(a.sqlClient),
		ordersvc.WithPaymentMethod(viper.GetString("orders.payment_method")),
		ordersvc.WithTotalVerification(viper.GetBool("orders.verify_total")),
		ordersvc.WithPaymentRequiredForDelivery(viper.GetBool("orders.require_payment_before_delivery")),
		ordersvc.WithEvents(exchange, viper.GetInt("rabbitmq.outbox.max_retries")),
	)

	secret := viper.GetString("jwt.secret")
	if secret == "" {
		panic("JWT_SECRET is required")
	}
	authMiddleware := auth.New(auth.Config{
		Secret:     []byte(secret),
		CookieName: viper.GetString("auth.cookie_name"),
	}, userrepo.NewUserRepository(a.sqlClient.DB(), a.sqlClient.Dialect()))

	a.transport = httptransport.NewHTTPTransport(a.orderSvc, authMiddleware)
	a.transport.RegisterRoutes()

	return a
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server", "port", viper.GetString("server.http.port"))
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	if a.outboxWorker != nil {
		go func() {
			slog.Info("Starting outbox worker")
			a.outboxWorker.Start(ctx)
		}()
	}

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the HTTP server first so no new orders arrive,
// then the outbox worker, the broker, the database and the tracer.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.outboxWorker != nil {
		a.outboxWorker.Stop()
		slog.Info("Outbox worker stopped gracefully")
	}

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	a.sqlClient.Close()
	slog.Info("Database connection closed gracefully")

	if a.otelController != nil {
		if err := a.otelController.Shutdown(ctx); err != nil {
			slog.Error("Otel trace provider connection close error", "error", err)
		} else {
			slog.Info("Otel trace provider connection closed gracefully")
		}
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
