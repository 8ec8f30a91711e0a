package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gearguard.io/api"
	"gearguard.io/internal/auth"
	"gearguard.io/internal/gear"
	"gearguard.io/internal/obs"
	"gearguard.io/internal/stream"
)

const serviceName = "gearguard-api"

// Pinger is anything whose health can be probed, usually the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe: проверка готовности (ping хранилища).
type ReadyProbe struct {
	Store Pinger
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	return rp.Store.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Deps is everything the HTTP layer needs. Auth and Store are required.
type Deps struct {
	Auth    *auth.Service
	Store   gear.Store
	Events  gear.EventPublisher
	Stream  *stream.Hub
	Version string
	Env     string

	EnforceRoles  bool
	CORSOrigins   []string
	RateBurst     int
	RatePerSecond float64
	// TrustedProxies may set the rate-limit key via X-Forwarded-For.
	TrustedProxies TrustedProxies
}

// API is the HTTP layer.
type API struct {
	router *mux.Router
	ready  readinessChecker

	auth      *auth.Service
	equipment *gear.EquipmentService
	teams     *gear.TeamService
	requests  *gear.RequestService
	dashboard *gear.DashboardService
	stream    *stream.Hub

	version      string
	env          string
	enforceRoles bool
	origins      []string
	authLimiter  *RateLimiter
}

func New(d Deps) *API {
	events := d.Events
	if d.Stream != nil {
		events = gear.MultiPublisher{d.Events, d.Stream}
	}
	burst, perSec := d.RateBurst, d.RatePerSecond
	if burst <= 0 {
		burst = 20
	}
	if perSec <= 0 {
		perSec = 5
	}
	a := &API{
		router:       mux.NewRouter(),
		ready:        ReadyProbe{Store: d.Store},
		auth:         d.Auth,
		equipment:    gear.NewEquipmentService(d.Store),
		teams:        gear.NewTeamService(d.Store),
		requests:     gear.NewRequestService(d.Store, events),
		dashboard:    gear.NewDashboardService(d.Store),
		stream:       d.Stream,
		version:      d.Version,
		env:          d.Env,
		enforceRoles: d.EnforceRoles,
		origins:      d.CORSOrigins,
		authLimiter:  NewRateLimiter(burst, perSec),
	}
	a.authLimiter.TrustProxies(d.TrustedProxies)
	a.routes()
	return a
}

func (a *API) routes() {
	r := a.router
	fallbacks(r)

	// health/ready/info
	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.HandleFunc("/api/info", a.Info).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", a.OpenAPISpec).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	authR := r.PathPrefix("/api/auth").Subrouter()
	fallbacks(authR)
	authR.Use(a.authLimiter.Middleware)
	authR.HandleFunc("/register", a.register).Methods(http.MethodPost)
	authR.HandleFunc("/login", a.login).Methods(http.MethodPost)
	authR.HandleFunc("/google", a.loginGoogle).Methods(http.MethodPost)
	authR.Handle("/me", a.authenticate(http.HandlerFunc(a.me))).Methods(http.MethodGet)

	protected := r.PathPrefix("/api").Subrouter()
	fallbacks(protected)
	protected.Use(a.authenticate)

	protected.HandleFunc("/equipment", a.listEquipment).Methods(http.MethodGet)
	protected.HandleFunc("/equipment", a.createEquipment).Methods(http.MethodPost)
	protected.HandleFunc("/equipment/{id}", a.getEquipment).Methods(http.MethodGet)
	protected.HandleFunc("/equipment/{id}", a.updateEquipment).Methods(http.MethodPatch)
	protected.Handle("/equipment/{id}", a.guard(a.deleteEquipment, gear.RoleAdmin, gear.RoleManager)).Methods(http.MethodDelete)
	protected.HandleFunc("/equipment/{id}/requests", a.equipmentRequests).Methods(http.MethodGet)

	protected.HandleFunc("/teams", a.listTeams).Methods(http.MethodGet)
	protected.HandleFunc("/teams", a.createTeam).Methods(http.MethodPost)
	protected.HandleFunc("/teams/{id}", a.getTeam).Methods(http.MethodGet)
	protected.HandleFunc("/teams/{id}", a.updateTeam).Methods(http.MethodPatch)
	protected.Handle("/teams/{id}", a.guard(a.deleteTeam, gear.RoleAdmin, gear.RoleManager)).Methods(http.MethodDelete)
	protected.Handle("/teams/{id}/members", a.guard(a.addMember, gear.RoleAdmin, gear.RoleManager)).Methods(http.MethodPost)
	protected.Handle("/teams/{id}/members/{userId}", a.guard(a.removeMember, gear.RoleAdmin, gear.RoleManager)).Methods(http.MethodDelete)

	// static segments before /requests/{id}
	protected.HandleFunc("/requests/calendar", a.calendar).Methods(http.MethodGet)
	protected.HandleFunc("/requests/kanban", a.kanban).Methods(http.MethodGet)
	protected.HandleFunc("/requests/stream", a.Stream).Methods(http.MethodGet)
	protected.HandleFunc("/requests", a.listRequests).Methods(http.MethodGet)
	protected.HandleFunc("/requests", a.createRequest).Methods(http.MethodPost)
	protected.HandleFunc("/requests/{id}", a.getRequest).Methods(http.MethodGet)
	protected.HandleFunc("/requests/{id}", a.updateRequest).Methods(http.MethodPatch)
	protected.HandleFunc("/requests/{id}/status", a.updateRequestStatus).Methods(http.MethodPatch)

	protected.HandleFunc("/dashboard/stats", a.stats).Methods(http.MethodGet)
	protected.HandleFunc("/dashboard/recent-requests", a.recentRequests).Methods(http.MethodGet)
	protected.Handle("/dashboard/users", a.guard(a.users, gear.RoleAdmin, gear.RoleManager)).Methods(http.MethodGet)
}

// fallbacks installs the 404/405 handlers. A subrouter swallows method
// mismatches unless it has its own, and mux skips middleware for both.
func fallbacks(r *mux.Router) {
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
}

// Handler returns the router wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(a.origins)(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(routeTemplate(a.router))(h)
	h = Tracing(routeTemplate(a.router))(h)
	h = Logging(h)
	h = Recoverer(h)
	h = RequestID(h)
	return h
}

// routeTemplate resolves the mux path template so metrics and spans
// carry "/api/equipment/{id}" rather than the raw path.
func routeTemplate(router *mux.Router) obs.RouteFunc {
	return func(r *http.Request) string {
		var match mux.RouteMatch
		if !router.Match(r, &match) || match.Route == nil {
			return ""
		}
		tpl, err := match.Route.GetPathTemplate()
		if err != nil {
			return ""
		}
		return tpl
	}
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.ready.Check(ctx); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        serviceName,
		"version":     a.version,
		"environment": a.env,
		"time":        time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(api.OpenAPI)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
