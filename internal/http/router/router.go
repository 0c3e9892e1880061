// Package router arma el árbol de rutas chi del servicio.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	connectctrl "github.com/dropDatabas3/oauthconnect/internal/http/controllers/connect"
	healthctrl "github.com/dropDatabas3/oauthconnect/internal/http/controllers/health"
	httperrors "github.com/dropDatabas3/oauthconnect/internal/http/errors"
	"github.com/dropDatabas3/oauthconnect/internal/http/metrics"
	mw "github.com/dropDatabas3/oauthconnect/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	// ConnectPaths son los prefijos de /{service}, uno por zona
	// ("/connect", "/admin/connect", ...).
	ConnectPaths []string
	// TrustForwardedHeaders habilita X-Forwarded-* en logs y HSTS.
	TrustForwardedHeaders bool
	Connect               *connectctrl.Controller
	Health                *healthctrl.HealthController
	Metrics               *metrics.Metrics
}

// New registra todas las rutas.
//
//	GET {connect_path}/{service}  redirect al resource owner, por cada connect_path
//	GET /healthz, /readyz         health checks (sin logging)
//	GET /metrics                  Prometheus
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithMetrics(d.Metrics),
	)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/readyz", d.Health.Readyz)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithLogging(d.TrustForwardedHeaders),
			mw.WithSecurityHeaders(d.TrustForwardedHeaders),
			mw.WithNoStore(),
		)
		seen := map[string]bool{}
		for _, p := range d.ConnectPaths {
			p = strings.TrimRight(p, "/")
			if seen[p] {
				continue
			}
			seen[p] = true
			r.Get(p+"/{"+connectctrl.URLParamService+"}", d.Connect.RedirectToService)
		}
	})

	return r
}
