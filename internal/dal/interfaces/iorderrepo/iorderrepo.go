package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
)

// IOrderRepository is an interface for the order repository.
type IOrderRepository interface {
	Insert(ctx context.Context, o order.Order) (int64, error)
	GetByID(ctx context.Context, id int64) (*order.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]order.Order, error)
	ListAll(ctx context.Context, filter order.ListFilter) ([]order.Order, error)
	MarkPaid(ctx context.Context, id int64, method string, at time.Time) (bool, error)
	MarkDelivered(ctx context.Context, id int64, at time.Time) (bool, error)
}
