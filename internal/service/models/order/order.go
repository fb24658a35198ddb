package order

import (
	"encoding/json"
	"time"

	"github.com/corray333/backend-labs/storefront/internal/service/models/orderitem"
	"github.com/shopspring/decimal"
)

// ShippingAddress is where an order is delivered. Every field is required.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// Order represents a placed order with its payment and delivery state.
type Order struct {
	ID              int64                 `json:"id"`
	UserID          int64                 `json:"user_id"`
	Username        string                `json:"username,omitempty"`
	Email           string                `json:"email,omitempty"`
	TotalPrice      decimal.Decimal       `json:"total_price"`
	ShippingAddress ShippingAddress       `json:"-"`
	IsPaid          bool                  `json:"is_paid"`
	PaidAt          *time.Time            `json:"paid_at"`
	PaymentMethod   string                `json:"payment_method,omitempty"`
	IsDelivered     bool                  `json:"is_delivered"`
	DeliveredAt     *time.Time            `json:"delivered_at"`
	CreatedAt       time.Time             `json:"created_at"`
	OrderItems      []orderitem.OrderItem `json:"orderItems,omitempty"`
}

type orderAlias Order

// orderJSON spreads the shipping address over the column-named fields
// clients read.
type orderJSON struct {
	orderAlias
	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingPostalCode string `json:"shipping_postal_code"`
	ShippingCountry    string `json:"shipping_country"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		orderAlias:         orderAlias(o),
		ShippingAddress:    o.ShippingAddress.Address,
		ShippingCity:       o.ShippingAddress.City,
		ShippingPostalCode: o.ShippingAddress.PostalCode,
		ShippingCountry:    o.ShippingAddress.Country,
	})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var v orderJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}

	*o = Order(v.orderAlias)
	o.ShippingAddress = ShippingAddress{
		Address:    v.ShippingAddress,
		City:       v.ShippingCity,
		PostalCode: v.ShippingPostalCode,
		Country:    v.ShippingCountry,
	}

	return nil
}

// ItemsTotal sums price times quantity over the order lines.
func ItemsTotal(items []orderitem.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}

	return total
}
