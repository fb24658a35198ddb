package createorder

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/service/models/orderitem"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/middleware/auth"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
	"github.com/corray333/backend-labs/storefront/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// service is an interface for the service layer.
type service interface {
	PlaceOrder(
		ctx context.Context,
		userID int64,
		items []orderitem.OrderItem,
		total decimal.Decimal,
		address order.ShippingAddress,
	) (*order.Order, error)
}

var validate = validator.New()

// itemInCreateOrderRequest is one cart line with the catalog snapshot.
type itemInCreateOrderRequest struct {
	ProductID int64           `json:"id"       validate:"gt=0"`
	Name      string          `json:"name"     validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

// toModel converts itemInCreateOrderRequest to orderitem.OrderItem.
func (r *itemInCreateOrderRequest) toModel() orderitem.OrderItem {
	return orderitem.OrderItem{
		ProductID: r.ProductID,
		Name:      r.Name,
		Quantity:  r.Quantity,
		Price:     r.Price,
		Image:     r.Image,
	}
}

type shippingAddressRequest struct {
	Address    string `json:"address"    validate:"required"`
	City       string `json:"city"       validate:"required"`
	PostalCode string `json:"postalCode" validate:"required"`
	Country    string `json:"country"    validate:"required"`
}

// createOrderRequest represents a create order request.
type createOrderRequest struct {
	OrderItems      []itemInCreateOrderRequest `json:"orderItems"      validate:"dive"`
	TotalPrice      decimal.Decimal            `json:"totalPrice"`
	ShippingAddress shippingAddressRequest     `json:"shippingAddress"`
}

// Validate checks the request shape. An empty cart is left to the service.
func (r *createOrderRequest) Validate() error {
	return validate.Struct(r)
}

func (r *createOrderRequest) items() []orderitem.OrderItem {
	items := make([]orderitem.OrderItem, len(r.OrderItems))
	for i := range r.OrderItems {
		items[i] = r.OrderItems[i].toModel()
	}

	return items
}

// CreateOrder places an order for the authenticated user.
func CreateOrder(w http.ResponseWriter, r *http.Request, service service) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authorized"))

		return
	}

	req := createOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.FromContext(r.Context()).Warn("Error decoding request body for create order", "error", err)
		respond.Error(w, r, apperr.InvalidRequest("malformed request body"))

		return
	}

	if err := req.Validate(); err != nil {
		logger.FromContext(r.Context()).Warn("Error validating request body for create order", "error", err)
		respond.Error(w, r, apperr.InvalidRequest(err.Error()))

		return
	}

	placed, err := service.PlaceOrder(r.Context(), u.ID, req.items(), req.TotalPrice, order.ShippingAddress{
		Address:    req.ShippingAddress.Address,
		City:       req.ShippingAddress.City,
		PostalCode: req.ShippingAddress.PostalCode,
		Country:    req.ShippingAddress.Country,
	})
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusCreated, placed)
}
