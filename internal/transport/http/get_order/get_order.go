package getorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/service/models/user"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/middleware/auth"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
)

type service interface {
	GetOrderDetail(ctx context.Context, orderID int64, requester user.User) (*order.Order, error)
}

// GetOrder returns the order with its lines to its owner or an admin.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authorized"))

		return
	}

	id, err := respond.PathID(r)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	o, err := service.GetOrderDetail(r.Context(), id, u)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, o)
}
