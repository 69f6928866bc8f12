package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/channel"
	"github.com/aussiebroadwan/tradelink/pkg/authsdk"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Check Endpoint
//	@Description	Liveness probe returning basic status, uptime and version
//	@Description	This endpoint always returns 200 OK while the process runs
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe reporting whether the session can trade
//	@Description	Checks the verification key set, the channel state, the venue login and the order journal
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	authsdk.HealthResponse	"status, uptime, version, checks - session not ready"
//	@Router			/readyz [get].
func ReadyzHandler(
	startTime time.Time,
	version string,
	sess Session,
	keys *jwtx.KeySet,
	history OrderHistory,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &authsdk.HealthChecks{
			KeySet:  "ok",
			Channel: sess.State().String(),
			Login:   "ok",
		}
		ready := true

		if keys == nil || !keys.IsReady() {
			checks.KeySet = "error: no keys loaded"
			ready = false
		}

		if sess.State() != channel.StateConnected {
			ready = false
		}

		if !sess.LoggedIn() {
			checks.Login = "pending"
			ready = false
		}

		if history != nil {
			checks.Journal = "ok"
			if err := history.Ping(r.Context()); err != nil {
				checks.Journal = "error: " + err.Error()
				ready = false
			}
		}

		resp := authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		code := http.StatusOK
		if !ready {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, resp)
	}
}
