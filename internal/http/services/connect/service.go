// Package connect implementa el inicio del flujo OAuth hacia un resource
// owner: resuelve el firewall de la ruta, valida el destino post-login
// contra el whitelist de dominios, lo deja en la sesión y devuelve la URL de
// autorización del proveedor.
package connect

import (
	"context"
	"errors"
	"net/http"

	"github.com/dropDatabas3/oauthconnect/internal/security/ownermap"
	"github.com/dropDatabas3/oauthconnect/internal/session"
)

// Service inicia el redirect hacia un resource owner.
type Service interface {
	// RedirectToService valida y guarda el destino post-login en sess y
	// devuelve la URL de autorización de service. Ante cualquier error la
	// sesión queda intacta.
	RedirectToService(ctx context.Context, r *http.Request, sess session.Session, service string) (*Result, error)
}

// Result contiene el resultado de un redirect exitoso.
type Result struct {
	AuthorizationURL string
	Firewall         string
	Service          string
	// SessionKey y TargetPath están vacíos si no se escribió la sesión.
	SessionKey string
	TargetPath string
}

// Errors for connect service.
var (
	ErrServiceNotFound  = errors.New("resource owner not found")
	ErrAccessDenied     = errors.New("redirect target not allowed")
	ErrAuthorizationURL = errors.New("failed to build authorization url")
)

// AccessDeniedError identifica el destino rechazado. errors.Is(err,
// ErrAccessDenied) es true.
type AccessDeniedError struct {
	Target string
}

func (e *AccessDeniedError) Error() string {
	return "Not allowed to redirect to " + e.Target
}

func (e *AccessDeniedError) Is(target error) bool {
	return target == ErrAccessDenied
}

// Resolver resuelve el firewall activo y su mapa de resource owners.
// Implementado por *oauthutil.Utils.
type Resolver interface {
	ResourceOwnerMap(r *http.Request) (string, ownermap.ResourceOwnerMap, error)
}

// TargetValidator decide si un destino post-login es seguro.
// Implementado por *whitelist.DomainWhitelist.
type TargetValidator interface {
	IsWhitelisted(target string) bool
}

// Options controla de dónde sale el destino post-login.
type Options struct {
	// TargetPathParameter es el parámetro del request con el destino
	// explícito. Vacío deshabilita el parámetro.
	TargetPathParameter string
	// UseReferer usa el header Referer cuando no hay parámetro.
	UseReferer bool
	// FailedUseReferer guarda el destino bajo la key de login fallido.
	FailedUseReferer bool
	// ForwardParameters son parámetros de query que se reenvían al
	// proveedor (login_hint, prompt, ...).
	ForwardParameters []string
	// TrustForwardedHeaders arma el redirect_uri con X-Forwarded-Proto y
	// X-Forwarded-Host. Solo detrás de un proxy que los reescriba.
	TrustForwardedHeaders bool
}
