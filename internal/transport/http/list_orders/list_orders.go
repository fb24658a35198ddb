package listorders

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/storefront/internal/service/apperr"
	"github.com/corray333/backend-labs/storefront/internal/service/models/order"
	"github.com/corray333/backend-labs/storefront/internal/transport/http/respond"
	"github.com/corray333/backend-labs/storefront/pkg/logger"
	"github.com/gorilla/schema"
)

const maxPageSize = 500

type service interface {
	ListOrders(ctx context.Context, filter order.ListFilter) ([]order.Order, error)
}

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)

	return d
}()

// queryOrdersRequest is the optional pagination of the admin listing.
type queryOrdersRequest struct {
	Page     int `schema:"page,omitempty"`
	PageSize int `schema:"pageSize,omitempty"`
}

func (q *queryOrdersRequest) ToModel() (order.ListFilter, error) {
	if q.Page < 0 || q.PageSize < 0 || q.PageSize > maxPageSize {
		return order.ListFilter{}, apperr.InvalidRequest("invalid page or pageSize")
	}
	if q.PageSize == 0 {
		return order.ListFilter{}, nil
	}

	page := max(q.Page, 1)

	return order.ListFilter{
		Limit:  q.PageSize,
		Offset: (page - 1) * q.PageSize,
	}, nil
}

// ListOrders returns every order with its owner's username.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		logger.FromContext(r.Context()).Warn("Error decoding query for list orders", "error", err)
		respond.Error(w, r, apperr.InvalidRequest("invalid query parameters"))

		return
	}

	filter, err := query.ToModel()
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	orders, err := service.ListOrders(r.Context(), filter)
	if err != nil {
		respond.Error(w, r, err)

		return
	}

	respond.JSON(w, r, http.StatusOK, orders)
}
