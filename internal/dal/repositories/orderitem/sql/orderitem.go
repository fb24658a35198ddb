package sqlrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/corray333/backend-labs/storefront/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// OrderItemDal represents order item data access layer model.
type OrderItemDal struct {
	ID        int64           `db:"id"`
	OrderID   int64           `db:"order_id"`
	ProductID int64           `db:"product_id"`
	Name      string          `db:"name"`
	Quantity  int             `db:"quantity"`
	Price     decimal.Decimal `db:"price"`
	Image     string          `db:"image"`
}

// ToModel converts OrderItemDal to service layer OrderItem model.
func (oi *OrderItemDal) ToModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ID:        oi.ID,
		OrderID:   oi.OrderID,
		ProductID: oi.ProductID,
		Name:      oi.Name,
		Quantity:  oi.Quantity,
		Price:     oi.Price,
		Image:     oi.Image,
	}
}

var itemColumns = []string{
	"order_id",
	"product_id",
	"name",
	"quantity",
	"price",
	"image",
}

// OrderItemRepository stores order lines.
type OrderItemRepository struct {
	conn  sqldb.Executor
	sb    sq.StatementBuilderType
	batch bool
	chunk int
}

// NewOrderItemRepository creates an order item repository. With batch set,
// lines are written with multi-row inserts sized to the dialect's bind
// parameter limit; otherwise one insert per line.
func NewOrderItemRepository(conn sqldb.Executor, dialect sqldb.Dialect, batch bool) *OrderItemRepository {
	return &OrderItemRepository{
		conn:  conn,
		sb:    dialect.Builder(),
		batch: batch,
		chunk: dialect.MaxBindParams() / len(itemColumns),
	}
}

// InsertBatch writes the lines of orderID on the repository's executor.
func (r *OrderItemRepository) InsertBatch(ctx context.Context, orderID int64, items []orderitem.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	size := 1
	if r.batch {
		size = r.chunk
	}

	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		b := r.sb.Insert("order_items").Columns(itemColumns...)
		for _, item := range items[start:end] {
			b = b.Values(orderID, item.ProductID, item.Name, item.Quantity, item.Price, item.Image)
		}

		query, args, err := b.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build insert query: %w", err)
		}

		if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert order items %d-%d of order %d: %w", start+1, end, orderID, err)
		}
	}

	return nil
}

// ListByOrder returns the lines of orderID in insertion order.
func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID int64) ([]orderitem.OrderItem, error) {
	query, args, err := r.sb.Select("id").
		Columns(itemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dals []OrderItemDal
	if err := r.conn.SelectContext(ctx, &dals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	items := make([]orderitem.OrderItem, 0, len(dals))
	for i := range dals {
		items = append(items, dals[i].ToModel())
	}

	return items, nil
}
