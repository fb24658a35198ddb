package deliverorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
)

type service interface {
	DeliverOrder(ctx context.Context, orderID int64) (*order.Order, error)
}

// DeliverOrder marks the order delivered and returns it.
func DeliverOrder(w http.ResponseWriter, r *http.Request, service service) {
	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.DeliverOrder(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}
