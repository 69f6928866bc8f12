package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tradelink/internal/trader/mirror"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"
)

// OrdersHandler serves the order mirror, with journal history when present.
type OrdersHandler struct {
	Session Session
	History OrderHistory
}

// HandleList handles GET /v1/orders
//
//	@Summary		List Orders
//	@Description	Returns orders known to the session, sorted by client order id
//	@Tags			Orders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			state	query		string				false	"Filter by lifecycle state"	Enums(open, filled)
//	@Success		200		{object}	ListOrdersResponse	"orders"
//	@Failure		400		{object}	httpx.ErrorBody		"error, error_description"
//	@Failure		401		{object}	httpx.ErrorBody		"error, error_description"
//	@Router			/v1/orders [get].
func (h *OrdersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var orders []mirror.Order
	switch state := strings.ToLower(r.URL.Query().Get("state")); state {
	case "":
		orders = h.Session.GetAllOrders()
	case "open":
		orders = h.Session.GetOpenOrders()
	case "filled":
		orders = h.Session.GetFilledOrders()
	default:
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "state must be open or filled")
		return
	}

	resp := ListOrdersResponse{Orders: make([]OrderResponse, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = orderResponse(o)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/orders/{clOrdId}
//
//	@Summary		Get Order
//	@Description	Returns one order and, when journaling is on, its recorded status history
//	@Tags			Orders
//	@Produce		json
//	@Security		BearerAuth
//	@Param			clOrdId	path		string			true	"Client order id"
//	@Success		200		{object}	OrderResponse	"order"
//	@Failure		404		{object}	httpx.ErrorBody	"error, error_description"
//	@Router			/v1/orders/{clOrdId} [get].
func (h *OrdersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("clOrdId"))

	o, ok := h.Session.GetOrder(id)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "unknown order "+id)
		return
	}
	resp := orderResponse(o)

	if h.History != nil {
		events, err := h.History.Events(ctx, id)
		if err != nil {
			// The mirror answer still stands
			slogx.FromContext(ctx).Warn("order history unavailable", "cl_ord_id", id, "err", err)
		}
		for _, e := range events {
			resp.Events = append(resp.Events, orderEventResponse(e))
		}
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
