// Package httpapi is the HTTP surface of the service: routing,
// middleware, session cookies and JSON codecs.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"achievio.org/internal/achievements"
	"achievio.org/internal/auth"
	"achievio.org/internal/obs"
	"achievio.org/internal/stream"
	"achievio.org/internal/users"
)

// ReadyProbe is a simple readiness check (for example a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options carries the optional collaborators and tuning knobs.
type Options struct {
	Version     string
	ReadyProbe  ReadyProbe
	Stream      *stream.Stream
	CORSOrigins []string
	RateRPS     float64
	RateBurst   int
	HasherCost  int
}

// API is the HTTP layer.
type API struct {
	mux          *http.ServeMux
	auth         *auth.Service
	users        users.Store
	achievements achievements.Store
	hasher       auth.Hasher
	stream       *stream.Stream
	readyProbe   ReadyProbe
	version      string
	corsOrigins  []string
	rateRPS      float64
	rateBurst    int
}

func New(authSvc *auth.Service, userStore users.Store, achStore achievements.Store, opts Options) *API {
	a := &API{
		mux:          http.NewServeMux(),
		auth:         authSvc,
		users:        userStore,
		achievements: achStore,
		hasher:       auth.NewHasher(opts.HasherCost),
		stream:       opts.Stream,
		readyProbe:   opts.ReadyProbe,
		version:      opts.Version,
		corsOrigins:  opts.CORSOrigins,
		rateRPS:      opts.RateRPS,
		rateBurst:    opts.RateBurst,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// session lifecycle
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/profile", a.handleProfile)

	// users
	a.mux.HandleFunc("/v1/users", a.handleUsersCollection)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)

	// achievements
	a.mux.HandleFunc("/v1/achievements", a.handleAchievementsCollection)
	a.mux.HandleFunc("/v1/achievements/", a.handleAchievementResource)

	// session introspection
	a.mux.HandleFunc("/v1/tokens", a.handleTokensCollection)
	a.mux.HandleFunc("/v1/tokens/", a.handleTokenResource)

	// live award feed
	a.mux.HandleFunc("/v1/stream/awards", a.StreamAwards)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	if a.rateRPS > 0 && a.rateBurst > 0 {
		h = RateLimit(h, a.rateBurst, a.rateRPS)
	}
	h = CORS(h, a.corsOrigins)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}
