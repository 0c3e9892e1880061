// Package health contiene el controller para health checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	httperrors "github.com/dropDatabas3/oauthconnect/internal/http/errors"
	"github.com/dropDatabas3/oauthconnect/internal/observability/logger"
)

const readyTimeout = 2 * time.Second

// Pinger es un componente que se verifica en /readyz (cache, ...).
type Pinger interface {
	Ping(ctx context.Context) error
}

// Response es el body de /healthz y /readyz.
type Response struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// HealthController maneja las rutas de health check.
type HealthController struct {
	version    string
	components map[string]Pinger
}

// NewHealthController crea un nuevo controller de health check.
func NewHealthController(version string, components map[string]Pinger) *HealthController {
	return &HealthController{version: version, components: components}
}

// Healthz maneja GET /healthz (liveness).
func (c *HealthController) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", Version: c.version})
}

// Readyz maneja GET /readyz. Si algún componente falla responde
// SERVICE_UNAVAILABLE con los nombres en el detail, sin la causa.
func (c *HealthController) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("HealthController.Readyz"))

	resp := Response{Status: "ready", Version: c.version, Components: map[string]string{}}
	var down []string
	for name, p := range c.components {
		if err := p.Ping(ctx); err != nil {
			log.Warn("component not ready", logger.Component(name), logger.Err(err))
			down = append(down, name)
			continue
		}
		resp.Components[name] = "ok"
	}

	if len(down) > 0 {
		sort.Strings(down)
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithDetail("componentes no disponibles: "+strings.Join(down, ", ")))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v Response) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
