package payorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
)

type service interface {
	PayOrder(ctx context.Context, orderID int64) (*order.Order, error)
}

// PayOrder records a mock payment and returns the updated order.
func PayOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.PayOrder(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}
