package http

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/tradelink/pkg/httpx"
)

// PositionsHandler serves the position mirror.
type PositionsHandler struct {
	Session Session
}

// HandleList handles GET /v1/positions
//
//	@Summary		List Positions
//	@Description	Returns every position the venue has reported, sorted by symbol
//	@Tags			Positions
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListPositionsResponse	"positions"
//	@Failure		401	{object}	httpx.ErrorBody			"error, error_description"
//	@Failure		429	{object}	httpx.ErrorBody			"error, error_description"
//	@Router			/v1/positions [get].
func (h *PositionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	all := h.Session.GetAllPositions()

	resp := ListPositionsResponse{Positions: make([]PositionResponse, len(all))}
	for i, p := range all {
		resp.Positions[i] = positionResponse(p)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/positions/{symbol}
//
//	@Summary		Get Position
//	@Description	Returns the position held in one symbol
//	@Tags			Positions
//	@Produce		json
//	@Security		BearerAuth
//	@Param			symbol	path		string				true	"Instrument symbol"
//	@Success		200		{object}	PositionResponse	"position"
//	@Failure		404		{object}	httpx.ErrorBody		"error, error_description"
//	@Router			/v1/positions/{symbol} [get].
func (h *PositionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.PathValue("symbol"))

	p, ok := h.Session.GetPosition(symbol)
	if !ok {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "no position for "+symbol)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, positionResponse(p))
}
