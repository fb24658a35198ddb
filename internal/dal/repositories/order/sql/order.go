package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/shopspring/decimal"
)

// OrderDal represents order data access layer model
type OrderDal struct {
	ID                 int64           `db:"id"`
	UserID             int64           `db:"user_id"`
	Username           sql.NullString  `db:"username"`
	Email              sql.NullString  `db:"email"`
	TotalPrice         decimal.Decimal `db:"total_price"`
	ShippingAddress    string          `db:"shipping_address"`
	ShippingCity       string          `db:"shipping_city"`
	ShippingPostalCode string          `db:"shipping_postal_code"`
	ShippingCountry    string          `db:"shipping_country"`
	IsPaid             bool            `db:"is_paid"`
	PaidAt             sql.NullTime    `db:"paid_at"`
	PaymentMethod      string          `db:"payment_method"`
	IsDelivered        bool            `db:"is_delivered"`
	DeliveredAt        sql.NullTime    `db:"delivered_at"`
	CreatedAt          time.Time       `db:"created_at"`
}

// ToModel converts OrderDal to service layer Order model
func (o *OrderDal) ToModel() *order.Order {
	return &order.Order{
		ID:         o.ID,
		UserID:     o.UserID,
		Username:   o.Username.String,
		Email:      o.Email.String,
		TotalPrice: o.TotalPrice,
		ShippingAddress: order.ShippingAddress{
			Address:    o.ShippingAddress,
			City:       o.ShippingCity,
			PostalCode: o.ShippingPostalCode,
			Country:    o.ShippingCountry,
		},
		IsPaid:        o.IsPaid,
		PaidAt:        nullTime(o.PaidAt),
		PaymentMethod: o.PaymentMethod,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   nullTime(o.DeliveredAt),
		CreatedAt:     o.CreatedAt.UTC(),
	}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()

	return &v
}

var orderColumns = []string{
	"o.id",
	"o.user_id",
	"o.total_price",
	"o.shipping_address",
	"o.shipping_city",
	"o.shipping_postal_code",
	"o.shipping_country",
	"o.is_paid",
	"o.paid_at",
	"o.payment_method",
	"o.is_delivered",
	"o.delivered_at",
	"o.created_at",
}

// OrderRepository reads and writes the orders table through the executor it
// was built with: the pool or the caller's transaction.
type OrderRepository struct {
	conn    sqldb.Executor
	dialect sqldb.Dialect
	sb      sq.StatementBuilderType
}

func NewOrderRepository(conn sqldb.Executor, dialect sqldb.Dialect) *OrderRepository {
	return &OrderRepository{
		conn:    conn,
		dialect: dialect,
		sb:      dialect.Builder(),
	}
}

// Insert stores the order header and returns its generated id.
func (r *OrderRepository) Insert(ctx context.Context, o order.Order) (int64, error) {
	b := r.sb.Insert("orders").
		Columns(
			"user_id",
			"total_price",
			"shipping_address",
			"shipping_city",
			"shipping_postal_code",
			"shipping_country",
			"is_paid",
			"payment_method",
			"is_delivered",
			"created_at",
		).
		Values(
			o.UserID,
			o.TotalPrice,
			o.ShippingAddress.Address,
			o.ShippingAddress.City,
			o.ShippingAddress.PostalCode,
			o.ShippingAddress.Country,
			false,
			"",
			false,
			o.CreatedAt.UTC(),
		)

	id, err := r.dialect.InsertReturningID(ctx, r.conn, b)
	if err != nil {
		return 0, fmt.Errorf("failed to insert order: %w", err)
	}

	return id, nil
}

// GetByID returns the order header joined with its owner's username and
// email. A missing order yields apperr.ErrNotFound.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	query, args, err := r.sb.Select(orderColumns...).
		Columns("u.username", "u.email").
		From("orders o").
		LeftJoin("users u ON u.id = o.user_id").
		Where(sq.Eq{"o.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.GetContext(ctx, &dal, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("order not found")
		}

		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	return dal.ToModel(), nil
}

// ListByUser returns the orders owned by userID, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID int64) ([]order.Order, error) {
	b := r.sb.Select(orderColumns...).
		From("orders o").
		Where(sq.Eq{"o.user_id": userID}).
		OrderBy("o.created_at DESC", "o.id DESC")

	return r.list(ctx, b)
}

// ListAll returns every order joined with its owner's username, newest first.
// Limit and Offset are applied when positive.
func (r *OrderRepository) ListAll(ctx context.Context, filter order.ListFilter) ([]order.Order, error) {
	b := r.sb.Select(orderColumns...).
		Columns("u.username").
		From("orders o").
		LeftJoin("users u ON u.id = o.user_id").
		OrderBy("o.created_at DESC", "o.id DESC")

	if filter.ForUserID > 0 {
		b = b.Where(sq.Eq{"o.user_id": filter.ForUserID})
	}
	if filter.Limit > 0 {
		b = b.Limit(uint64(filter.Limit))
		if filter.Offset > 0 {
			b = b.Offset(uint64(filter.Offset))
		}
	}

	return r.list(ctx, b)
}

func (r *OrderRepository) list(ctx context.Context, b sq.SelectBuilder) ([]order.Order, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var dals []OrderDal
	if err := r.conn.SelectContext(ctx, &dals, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	result := make([]order.Order, 0, len(dals))
	for i := range dals {
		result = append(result, *dals[i].ToModel())
	}

	return result, nil
}

// MarkPaid flags an unpaid order as paid. It reports false when the order was
// already paid or does not exist; a paid order is never re-stamped.
func (r *OrderRepository) MarkPaid(ctx context.Context, id int64, method string, at time.Time) (bool, error) {
	b := r.sb.Update("orders").
		Set("is_paid", true).
		Set("paid_at", at.UTC()).
		Set("payment_method", method).
		Where(sq.Eq{"id": id, "is_paid": false})

	return r.update(ctx, b, "failed to mark order paid")
}

// MarkDelivered flags an undelivered order as delivered. It reports false when
// the order was already delivered or does not exist.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id int64, at time.Time) (bool, error) {
	b := r.sb.Update("orders").
		Set("is_delivered", true).
		Set("delivered_at", at.UTC()).
		Where(sq.Eq{"id": id, "is_delivered": false})

	return r.update(ctx, b, "failed to mark order delivered")
}

func (r *OrderRepository) update(ctx context.Context, b sq.UpdateBuilder, msg string) (bool, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update query: %w", err)
	}

	res, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("%s: %w", msg, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", msg, err)
	}

	return affected > 0, nil
}
