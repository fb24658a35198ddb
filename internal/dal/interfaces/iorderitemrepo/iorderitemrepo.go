package iorderitemrepo

import (
	"context"

	"github.com/corray333/backend-labs/storefront/internal/service/models/orderitem"
)

// IOrderItemRepository is an interface for the order item repository.
type IOrderItemRepository interface {
	InsertBatch(ctx context.Context, orderID int64, items []orderitem.OrderItem) error
	ListByOrder(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error)
}
