package orderitem

import "github.com/shopspring/decimal"

// OrderItem is one line of an order. Name, price and image are a snapshot of
// the catalog entry taken when the order was placed.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

// Subtotal returns price multiplied by quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
