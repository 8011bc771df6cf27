package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	audithttp "github.com/skolara/skolara/internal/audit/http"
	"github.com/skolara/skolara/internal/auth"
	"github.com/skolara/skolara/internal/guard"
	"github.com/skolara/skolara/internal/identity"
	"github.com/skolara/skolara/internal/observability"
	"github.com/skolara/skolara/internal/platform/httpx"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger       *slog.Logger
	Config       *Config
	AuthHandler  *auth.Handler
	AuditHandler *audithttp.Handler
	Guard        guard.Middleware
	Metrics      *observability.Metrics
}

// capability declares one protected route and the exact role set allowed to
// reach it. This table is the single authorization mapping; handlers never
// re-check roles themselves.
type capability struct {
	pattern string
	allowed []identity.Role
	handler http.HandlerFunc
}

func capabilityRoutes() []capability {
	return []capability{
		{"/admin/dashboard", []identity.Role{identity.RoleAdminSystem, identity.RoleAdminSchool}, stubHandler("Admin dashboard")},
		{"/teacher/classes", []identity.Role{identity.RoleAdminSystem, identity.RoleAdminSchool, identity.RoleTeacher}, stubHandler("Teacher classes")},
		{"/student/exams", []identity.Role{identity.RoleStudent}, stubHandler("Student exams")},
		{"/parent/children", []identity.Role{identity.RoleParent}, stubHandler("Parent children")},
	}
}

// stubHandler stands in for the business module behind a capability route.
// The exam, class and guardian modules live in their own services; this one
// only decides whether the caller may pass.
func stubHandler(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"message": message})
	}
}

// NewRouter constructs the chi.Router with Skolara defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics.Handler())
	}

	// Login is the only credential oracle in the system, so it gets its own
	// per-IP rate limit on top of the global stack.
	rateLimit := 10
	rateWindow := loginRateWindow(params.Config)
	if params.Config != nil && params.Config.LoginRateLimit > 0 {
		rateLimit = params.Config.LoginRateLimit
	}
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(rateLimit, rateWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
		params.AuthHandler.MountRoutes(gr)
	})

	r.Group(func(gr chi.Router) {
		gr.Use(params.Guard.Authenticate)

		gr.Get("/me", params.AuthHandler.HandleMe)

		for _, c := range capabilityRoutes() {
			gr.With(params.Guard.RequireRole(c.allowed...)).Get(c.pattern, c.handler)
		}

		gr.Group(func(ag chi.Router) {
			ag.Use(params.Guard.RequireRole(identity.RoleAdminSystem))
			params.AuditHandler.MountRoutes(ag)
		})
	})

	return r
}

func loginRateWindow(cfg *Config) time.Duration {
	if cfg != nil && cfg.LoginRateWindow > 0 {
		return cfg.LoginRateWindow
	}
	return time.Minute
}
