package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/tradelink/internal/trader/channel"
	"github.com/aussiebroadwan/tradelink/internal/trader/journal"
	"github.com/aussiebroadwan/tradelink/internal/trader/mirror"
	"github.com/aussiebroadwan/tradelink/pkg/httpx"
	"github.com/aussiebroadwan/tradelink/pkg/jwtx"
	"github.com/aussiebroadwan/tradelink/pkg/slogx"

	_ "github.com/aussiebroadwan/tradelink/api/trader" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Session is the read side of a trading session.
type Session interface {
	State() channel.State
	LoggedIn() bool

	GetPosition(symbol string) (mirror.Position, bool)
	GetAllPositions() []mirror.Position
	GetBalance(currency string) (mirror.Balance, bool)
	GetAllBalances() []mirror.Balance
	GetOrder(clOrdID string) (mirror.Order, bool)
	GetAllOrders() []mirror.Order
	GetOpenOrders() []mirror.Order
	GetFilledOrders() []mirror.Order
}

// OrderHistory is the read side of the order journal.
type OrderHistory interface {
	Ping(ctx context.Context) error
	Events(ctx context.Context, clOrdID string) ([]journal.Event, error)
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	session      Session
	keys         *jwtx.KeySet
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	// Verifier guards the /v1 routes when set.
	Verifier jwtx.Verifier
	// Scopes, when set with a Verifier, must include one the token carries.
	Scopes []string
	// History adds journal events to single-order lookups. Optional.
	History OrderHistory

	ProbeLimit httpx.RateLimitConfig
	QueryLimit httpx.RateLimitConfig

	// one bucket per caller across all /v1 routes
	queryLimiter httpx.Middleware
}

func NewRouter(sess Session, keys *jwtx.KeySet, buildVersion string, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		session:      sess,
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       slogx.Component(logger, "http"),
		ProbeLimit:   httpx.ProbeLimit,
		QueryLimit:   httpx.QueryLimit,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	// Authenticated callers are limited by subject, anonymous ones by IP
	r.queryLimiter = httpx.RateLimitMiddleware(r.QueryLimit, httpx.SubjectKeyExtractor)

	r.registerSystem()
	r.registerPositions()
	r.registerBalances()
	r.registerOrders()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Tradelink Session Status API
//	@version		0.1.0
//	@description	Read-only view of a streaming trading session: channel health and the
//	@description	positions, balances and orders mirrored from the venue.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/tradelink
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8081
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Venue-issued JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// query wraps a /v1 handler with authn and scope checks (when enabled)
// and the query limit.
func (r *Router) query(h http.HandlerFunc) http.Handler {
	mws := make([]httpx.Middleware, 0, 3)
	if r.Verifier != nil {
		mws = append(mws, httpx.AuthnMiddleware(r.Verifier))
		if len(r.Scopes) > 0 {
			mws = append(mws, httpx.RequireAnyScope(r.Scopes...))
		}
	}
	mws = append(mws, r.queryLimiter)
	return httpx.Chain(h, mws...)
}

func (r *Router) registerSystem() {
	probe := httpx.RateLimitByIP(r.ProbeLimit)

	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion), probe),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.session, r.keys, r.History), probe),
	)
}

func (r *Router) registerPositions() {
	h := &PositionsHandler{Session: r.session}

	r.Mux.Handle("GET /v1/positions", r.query(h.HandleList))
	r.Mux.Handle("GET /v1/positions/{symbol}", r.query(h.HandleGet))
}

func (r *Router) registerBalances() {
	h := &BalancesHandler{Session: r.session}

	r.Mux.Handle("GET /v1/balances", r.query(h.HandleList))
	r.Mux.Handle("GET /v1/balances/{currency}", r.query(h.HandleGet))
}

func (r *Router) registerOrders() {
	h := &OrdersHandler{Session: r.session, History: r.History}

	r.Mux.Handle("GET /v1/orders", r.query(h.HandleList))
	r.Mux.Handle("GET /v1/orders/{clOrdId}", r.query(h.HandleGet))
}
