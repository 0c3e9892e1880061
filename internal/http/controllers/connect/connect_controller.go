// Package connect contiene el controller de GET /connect/{service}.
package connect

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/oauthconnect/internal/http/errors"
	svc "github.com/dropDatabas3/oauthconnect/internal/http/services/connect"
	"github.com/dropDatabas3/oauthconnect/internal/observability/logger"
	"github.com/dropDatabas3/oauthconnect/internal/security/oauthutil"
	"github.com/dropDatabas3/oauthconnect/internal/security/ownermap"
	"github.com/dropDatabas3/oauthconnect/internal/session"
)

// URLParamService es el parámetro de ruta con el nombre del resource owner.
const URLParamService = "service"

// Controller maneja el inicio del flujo OAuth.
type Controller struct {
	service svc.Service
	store   session.Store
}

func NewController(service svc.Service, store session.Store) *Controller {
	return &Controller{service: service, store: store}
}

// RedirectToService maneja GET {connect_path}/{service}
func (c *Controller) RedirectToService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ConnectController.RedirectToService"))

	service := chi.URLParam(r, URLParamService)
	if service == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing service"))
		return
	}

	sess, err := c.store.Load(r)
	if err != nil {
		log.Error("session load failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	result, err := c.service.RedirectToService(ctx, r, sess, service)
	if err != nil {
		httperrors.WriteError(w, mapError(err))
		return
	}

	// La sesión se persiste antes del redirect: Set-Cookie debe ir en los
	// headers del 302.
	if err := c.store.Save(w, r, sess); err != nil {
		log.Error("session save failed", logger.Service(service), logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(err))
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	http.Redirect(w, r, result.AuthorizationURL, http.StatusFound)
}

func mapError(err error) *httperrors.AppError {
	var denied *svc.AccessDeniedError
	switch {
	case errors.As(err, &denied):
		return httperrors.ErrForbidden.WithDetail(denied.Error()).WithCause(err)
	case errors.Is(err, svc.ErrServiceNotFound):
		return httperrors.ErrNotFound.WithDetail(err.Error()).WithCause(err)
	case errors.Is(err, oauthutil.ErrNoFirewall), errors.Is(err, ownermap.ErrMapNotFound):
		return httperrors.ErrMisconfigured.WithCause(err)
	default:
		return httperrors.ErrInternalServerError.WithCause(err)
	}
}
