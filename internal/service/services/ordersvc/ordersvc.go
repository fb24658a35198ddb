package ordersvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/iorderitemrepo"
	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/storefront/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/corray333/backend-labs/storefront/internal/dal/uow"
	"github.com/corray333/backend-labs/storefront/internal/metrics"
	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/storefront/internal/service/models/outbox"
	"github.com/corray333/backend-labs/storefront/internal/service/models/user"
	"github.com/corray333/backend-labs/storefront/pkg/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultPaymentMethod labels payments recorded without a real gateway.
	DefaultPaymentMethod = "MockGateway"

	defaultEventMaxRetries = 5

	// moneyScale is the number of decimal places stored for prices and totals.
	moneyScale = 2
)

var tracer = otel.Tracer("ordersvc")

// OrderService places orders and drives their payment and delivery.
type OrderService struct {
	client *sqldb.Client
	now    func() time.Time

	paymentMethod             string
	verifyTotal               bool
	requirePaymentForDelivery bool

	eventExchange   string
	eventMaxRetries int
}

func (s *OrderService) newUOW() unitOfWork {
	return uow.NewUnitOfWork(s.client)
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	Release()

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService. It panics without a
// database client.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now:             time.Now,
		paymentMethod:   DefaultPaymentMethod,
		verifyTotal:     true,
		eventMaxRetries: defaultEventMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		panic("ordersvc: database client is required")
	}

	return s
}

// WithSQLClient sets the database client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSQLClient(client *sqldb.Client) option {
	return func(s *OrderService) {
		s.client = client
	}
}

// WithClock replaces time.Now for creation, payment and delivery stamps.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// WithPaymentMethod sets the label recorded on paid orders.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentMethod(method string) option {
	return func(s *OrderService) {
		if method != "" {
			s.paymentMethod = method
		}
	}
}

// WithTotalVerification toggles the check that the submitted total equals
// the sum of the lines.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithTotalVerification(enabled bool) option {
	return func(s *OrderService) {
		s.verifyTotal = enabled
	}
}

// WithPaymentRequiredForDelivery rejects delivery of unpaid orders.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentRequiredForDelivery(required bool) option {
	return func(s *OrderService) {
		s.requirePaymentForDelivery = required
	}
}

// WithEvents writes lifecycle events to the outbox for publishing to
// exchange. An empty exchange disables events.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEvents(exchange string, maxRetries int) option {
	return func(s *OrderService) {
		s.eventExchange = exchange
		if maxRetries > 0 {
			s.eventMaxRetries = maxRetries
		}
	}
}

// Ping reports whether the database is reachable.
func (s *OrderService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// PlaceOrder validates the lines, then stores the order header and its
// lines in one transaction and returns the committed order.
func (s *OrderService) PlaceOrder(
	ctx context.Context,
	userID int64,
	items []orderitem.OrderItem,
	total decimal.Decimal,
	address order.ShippingAddress,
) (_ *order.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("order.lines", len(items)),
	))
	defer func() { finish(span, "place", err) }()

	if err := s.validatePlacement(items, total, address); err != nil {
		return nil, err
	}
	// Clients send a floating point sum; keep the stored scale.
	total = total.Round(moneyScale)

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return nil, apperr.Storage("failed to begin transaction", err)
	}
	defer work.Release()

	o := order.Order{
		UserID:          userID,
		TotalPrice:      total,
		ShippingAddress: address,
		CreatedAt:       s.now().UTC(),
	}

	id, err := work.OrderRepository().Insert(ctx, o)
	if err != nil {
		return nil, abort(ctx, work, "failed to insert order", err)
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	if err := work.OrderItemRepository().InsertBatch(ctx, id, items); err != nil {
		return nil, abort(ctx, work, "failed to insert order items", err)
	}

	o.ID = id
	if err := s.enqueue(ctx, work, outbox.EventOrderPlaced, o); err != nil {
		return nil, abort(ctx, work, "failed to enqueue order event", err)
	}

	if err := work.Commit(); err != nil {
		return nil, apperr.Storage("failed to commit order", err)
	}

	metrics.OrderTransitions.WithLabelValues("placed").Inc()
	logger.FromContext(ctx).Info("Order placed",
		"order_id", id,
		"user_id", userID,
		"lines", len(items),
		"total", total.StringFixed(2),
	)

	return s.getOrder(ctx, id)
}

func (s *OrderService) validatePlacement(
	items []orderitem.OrderItem,
	total decimal.Decimal,
	address order.ShippingAddress,
) error {
	if len(items) == 0 {
		return apperr.InvalidRequest("no order items")
	}

	for i, item := range items {
		switch {
		case item.ProductID <= 0:
			return apperr.InvalidRequest(fmt.Sprintf("order item %d: product id is required", i+1))
		case strings.TrimSpace(item.Name) == "":
			return apperr.InvalidRequest(fmt.Sprintf("order item %d: name is required", i+1))
		case item.Quantity <= 0:
			return apperr.InvalidRequest(fmt.Sprintf("order item %d: quantity must be positive", i+1))
		case item.Price.IsNegative():
			return apperr.InvalidRequest(fmt.Sprintf("order item %d: price must not be negative", i+1))
		case !item.Price.Equal(item.Price.Round(moneyScale)):
			return apperr.InvalidRequest(fmt.Sprintf("order item %d: price has more than %d decimal places", i+1, moneyScale))
		}
	}

	if strings.TrimSpace(address.Address) == "" ||
		strings.TrimSpace(address.City) == "" ||
		strings.TrimSpace(address.PostalCode) == "" ||
		strings.TrimSpace(address.Country) == "" {
		return apperr.InvalidRequest("shipping address, city, postal code and country are required")
	}

	if total.IsNegative() {
		return apperr.InvalidRequest("total price must not be negative")
	}

	if s.verifyTotal {
		if expected := order.ItemsTotal(items); !expected.Equal(total.Round(moneyScale)) {
			return apperr.InvalidRequest(fmt.Sprintf(
				"total price %s does not match order items total %s",
				total.StringFixed(2), expected.StringFixed(2),
			))
		}
	}

	return nil
}

// PayOrder marks the order paid with the configured payment method. Paying
// a paid order returns it unchanged.
func (s *OrderService) PayOrder(ctx context.Context, orderID int64) (_ *order.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.PayOrder", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
	))
	defer func() { finish(span, "pay", err) }()

	err = s.transition(ctx, orderID, func(work unitOfWork, o *order.Order) (bool, error) {
		if o.IsPaid {
			return false, nil
		}

		changed, err := work.OrderRepository().MarkPaid(ctx, o.ID, s.paymentMethod, s.stamp(o))
		if err != nil || !changed {
			return false, err
		}

		return true, s.enqueue(ctx, work, outbox.EventOrderPaid, *o)
	}, "paid")
	if err != nil {
		return nil, err
	}

	return s.getOrder(ctx, orderID)
}

// DeliverOrder marks the order delivered. Delivering a delivered order
// returns it unchanged.
func (s *OrderService) DeliverOrder(ctx context.Context, orderID int64) (_ *order.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.DeliverOrder", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
	))
	defer func() { finish(span, "deliver", err) }()

	err = s.transition(ctx, orderID, func(work unitOfWork, o *order.Order) (bool, error) {
		if o.IsDelivered {
			return false, nil
		}
		if s.requirePaymentForDelivery && !o.IsPaid {
			return false, apperr.InvalidRequest("order is not paid")
		}

		changed, err := work.OrderRepository().MarkDelivered(ctx, o.ID, s.stamp(o))
		if err != nil || !changed {
			return false, err
		}

		return true, s.enqueue(ctx, work, outbox.EventOrderDelivered, *o)
	}, "delivered")
	if err != nil {
		return nil, err
	}

	return s.getOrder(ctx, orderID)
}

// transition loads the order inside a transaction and applies mutate. The
// transaction commits only when mutate reports a change.
func (s *OrderService) transition(
	ctx context.Context,
	orderID int64,
	mutate func(work unitOfWork, o *order.Order) (bool, error),
	label string,
) error {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return apperr.Storage("failed to begin transaction", err)
	}
	defer work.Release()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return abort(ctx, work, "failed to load order", err)
	}

	changed, err := mutate(work, o)
	if err != nil {
		return abort(ctx, work, "failed to mark order "+label, err)
	}
	if !changed {
		logger.FromContext(ctx).Info("Order already "+label, "order_id", orderID)

		return work.Rollback()
	}

	if err := work.Commit(); err != nil {
		return apperr.Storage("failed to commit order "+label, err)
	}

	metrics.OrderTransitions.WithLabelValues(label).Inc()
	logger.FromContext(ctx).Info("Order "+label, "order_id", orderID)

	return nil
}

// stamp returns the transition time, never earlier than the order creation.
func (s *OrderService) stamp(o *order.Order) time.Time {
	at := s.now().UTC()
	if at.Before(o.CreatedAt) {
		return o.CreatedAt
	}

	return at
}

// GetOrderDetail returns the order with its lines when requester owns it or
// is an admin.
func (s *OrderService) GetOrderDetail(
	ctx context.Context,
	orderID int64,
	requester user.User,
) (_ *order.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.GetOrderDetail", trace.WithAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("user.id", requester.ID),
	))
	defer func() { finish(span, "detail", err) }()

	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if o.UserID != requester.ID && !requester.IsAdmin {
		return nil, apperr.Forbidden("not authorized to view this order")
	}

	return o, nil
}

// ListOrders returns the orders of filter.ForUserID, or every order with
// its owner's username when ForUserID is zero. Lines are not loaded.
func (s *OrderService) ListOrders(ctx context.Context, filter order.ListFilter) (_ []order.Order, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.ListOrders", trace.WithAttributes(
		attribute.Int64("user.id", filter.ForUserID),
	))
	defer func() { finish(span, "list", err) }()

	repo := s.newUOW().OrderRepository()

	var orders []order.Order
	if filter.ForUserID > 0 {
		orders, err = repo.ListByUser(ctx, filter.ForUserID)
	} else {
		orders, err = repo.ListAll(ctx, filter)
	}
	if err != nil {
		return nil, apperr.Storage("failed to list orders", err)
	}

	return orders, nil
}

func (s *OrderService) getOrder(ctx context.Context, orderID int64) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return nil, apperr.Storage("failed to get order", err)
	}

	items, err := work.OrderItemRepository().ListByOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Storage("failed to get order items", err)
	}
	o.OrderItems = items

	return o, nil
}

// orderEvent is the payload of lifecycle messages.
type orderEvent struct {
	Event      string          `json:"event"`
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (s *OrderService) enqueue(ctx context.Context, work unitOfWork, event string, o order.Order) error {
	if s.eventExchange == "" {
		return nil
	}

	now := s.now().UTC()
	payload, err := json.Marshal(orderEvent{
		Event:      event,
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		OccurredAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", event, err)
	}

	return work.OutboxRepository().Insert(ctx, outbox.OutboxMessage{
		ExchangeName: s.eventExchange,
		RoutingKey:   event,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   s.eventMaxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	})
}

// abort rolls the unit of work back before the error leaves the service.
func abort(ctx context.Context, work unitOfWork, msg string, err error) error {
	if rbErr := work.Rollback(); rbErr != nil {
		logger.FromContext(ctx).Error("Error rolling back transaction", "error", rbErr)
	}

	return apperr.Storage(msg, err)
}

func finish(span trace.Span, operation string, err error) {
	defer span.End()

	if err == nil {
		return
	}

	kind := kindOf(err)
	metrics.OrderFailures.WithLabelValues(operation, kind).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, kind)
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, apperr.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, apperr.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperr.ErrForbidden):
		return "forbidden"
	default:
		return "storage"
	}
}
