package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/authgate/internal/logging"
	"github.com/dmitrijs2005/authgate/internal/server/metrics"
	"github.com/dmitrijs2005/authgate/internal/server/oauth"
)

// RouterDeps bundles everything NewRouter needs.
type RouterDeps struct {
	Auth      AuthService
	OAuth     OAuthService
	OAuthFlow OAuthFlow
	Metrics   metrics.Collector
	Gatherer  prometheus.Gatherer
	Logger    logging.Logger
	Config    HandlerConfig
}

// NewRouter wires the full endpoint set with its middleware chain.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logging(deps.Logger, deps.Metrics))

	h := NewHandler(deps.Auth, deps.OAuth, deps.OAuthFlow, deps.Metrics, deps.Logger, deps.Config)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)

		r.Route("/oauth/{provider}", func(r chi.Router) {
			r.Get("/url", withProvider(h.OAuthURL))
			r.Post("/", withProvider(h.OAuthLogin))
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(deps.Auth))
			r.Get("/me", h.Me)
		})
	})

	r.Get("/healthz", Healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	return r
}

// withProvider validates the provider path parameter before handing it to
// the endpoint factory.
func withProvider(factory func(provider string) http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := chi.URLParam(r, "provider")
		switch p {
		case oauth.ProviderGoogle, oauth.ProviderFacebook, oauth.ProviderGitHub:
			factory(p)(w, r)
		default:
			writeError(w, http.StatusNotFound, "unknown provider")
		}
	}
}
