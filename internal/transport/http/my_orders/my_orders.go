package myorders

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/middleware/auth"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
)

type service interface {
	ListOrders(ctx context.Context, filter order.ListFilter) ([]order.Order, error)
}

// MyOrders lists the authenticated user's orders without their lines.
func MyOrders(w http.ResponseWriter, r *http.Request, service service) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		respond.Error(w, r, apperr.Unauthorized("not authorized"))

		return
	}

	orders, err := service.ListOrders(r.Context(), order.ListFilter{ForUserID: u.ID})
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, orders)
}
