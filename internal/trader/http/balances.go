package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tradelink/pkg/httpx"
)

// BalancesHandler serves the balance mirror.
type BalancesHandler struct {
	Session Session
}

// HandleList handles GET /v1/balances
//
//	@Summary		List Balances
//	@Description	Returns the account balance per currency
//	@Tags			Balances
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListBalancesResponse	"balances"
//	@Failure		401	{object}	httpx.ErrorBody			"error, error_description"
//	@Router			/v1/balances [get].
func (h *BalancesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	all := h.Session.GetAllBalances()

	resp := ListBalancesResponse{Balances: make([]BalanceResponse, len(all))}
	for i, b := range all {
		resp.Balances[i] = balanceResponse(b)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/balances/{currency}
//
//	@Summary		Get Balance
//	@Description	Returns the balance in one currency. Currency codes are case-insensitive.
//	@Tags			Balances
//	@Produce		json
//	@Security		BearerAuth
//	@Param			currency	path		string			true	"ISO currency code"
//	@Success		200			{object}	BalanceResponse	"balance"
//	@Failure		404			{object}	httpx.ErrorBody	"error, error_description"
//	@Router			/v1/balances/{currency} [get].
func (h *BalancesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	currency := strings.TrimSpace(r.PathValue("currency"))

	b, ok := h.Session.GetBalance(currency)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "no balance in "+strings.ToUpper(currency))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balanceResponse(b))
}
