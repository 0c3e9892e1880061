package connect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dropDatabas3/oauthconnect/internal/http/helpers"
	"github.com/dropDatabas3/oauthconnect/internal/http/metrics"
	"github.com/dropDatabas3/oauthconnect/internal/observability/logger"
	"github.com/dropDatabas3/oauthconnect/internal/security/oauthutil"
	"github.com/dropDatabas3/oauthconnect/internal/security/ownermap"
	"github.com/dropDatabas3/oauthconnect/internal/session"
)

// Deps contains dependencies for the connect service.
type Deps struct {
	Resolver  Resolver
	Whitelist TargetValidator
	Options   Options
	Metrics   *metrics.Metrics // opcional
}

type service struct {
	resolver  Resolver
	whitelist TargetValidator
	opts      Options
	metrics   *metrics.Metrics
}

// NewService creates a new connect Service.
func NewService(d Deps) Service {
	return &service{
		resolver:  d.Resolver,
		whitelist: d.Whitelist,
		opts:      d.Options,
		metrics:   d.Metrics,
	}
}

type candidate struct {
	value       string
	fromReferer bool
}

// RedirectToService implements Service.
func (s *service) RedirectToService(ctx context.Context, r *http.Request, sess session.Session, svcName string) (*Result, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("connect"), logger.Service(svcName))

	fw, ownerMap, err := s.resolver.ResourceOwnerMap(r)
	if err != nil {
		log.Error("no resource owner map for request", logger.Err(err))
		if fw == "" {
			fw = metrics.LabelUnknown
		}
		s.metrics.ObserveRedirect(fw, metrics.LabelUnknown, metrics.ResultError)
		return nil, err
	}
	log = log.With(logger.Firewall(fw))

	owner, err := ownerMap.ResourceOwnerByName(svcName)
	if err != nil {
		if errors.Is(err, ownermap.ErrResourceOwnerNotFound) {
			log.Warn("unknown resource owner")
			s.metrics.ObserveRedirect(fw, metrics.LabelUnknown, metrics.ResultUnknownService)
			return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, svcName)
		}
		s.metrics.ObserveRedirect(fw, metrics.LabelUnknown, metrics.ResultError)
		return nil, err
	}

	// owner resuelto: svcName es un nombre registrado y acota la
	// cardinalidad del label service.
	cand, ok := s.candidate(r)
	if ok && !s.whitelist.IsWhitelisted(cand.value) {
		log.Warn("redirect target rejected", logger.TargetPath(cand.value), logger.Bool("from_referer", cand.fromReferer))
		s.metrics.ObserveRedirect(fw, svcName, metrics.ResultDenied)
		return nil, &AccessDeniedError{Target: cand.value}
	}

	checkPath, err := ownerMap.ResourceOwnerCheckPath(svcName)
	if err != nil {
		log.Error("no check path for resource owner", logger.Err(err))
		s.metrics.ObserveRedirect(fw, svcName, metrics.ResultError)
		return nil, err
	}
	redirectURI, err := helpers.AbsoluteURL(r, checkPath, s.opts.TrustForwardedHeaders)
	if err != nil {
		log.Error("invalid check path", logger.String("check_path", checkPath), logger.Err(err))
		s.metrics.ObserveRedirect(fw, svcName, metrics.ResultError)
		return nil, fmt.Errorf("%w: check path %q: %v", ErrAuthorizationURL, checkPath, err)
	}

	authURL, err := owner.AuthorizationURL(redirectURI, s.extraParameters(r))
	if err != nil {
		log.Error("authorization url failed", logger.Err(err))
		s.metrics.ObserveRedirect(fw, svcName, metrics.ResultError)
		return nil, fmt.Errorf("%w: %v", ErrAuthorizationURL, err)
	}

	res := &Result{AuthorizationURL: authURL, Firewall: fw, Service: svcName}

	if ok {
		key := oauthutil.TargetPathKey(fw)
		if s.opts.FailedUseReferer {
			key = oauthutil.FailedTargetPathKey(fw)
		}
		switch {
		case cand.fromReferer && cand.value == authURL:
			log.Debug("referer is the authorization url, not stored")
		case cand.fromReferer && sess.Has(key):
			log.Debug("target path already in session", logger.SessionKey(key))
		default:
			sess.Set(key, cand.value)
			res.SessionKey, res.TargetPath = key, cand.value
		}
	}

	s.metrics.ObserveRedirect(fw, svcName, metrics.ResultRedirected)
	log.Info("redirecting to resource owner",
		logger.SessionKey(res.SessionKey),
		logger.TargetPath(res.TargetPath),
	)
	return res, nil
}

// candidate devuelve el destino post-login: primero el parámetro
// configurado, después el Referer si algún modo de referer está activo.
func (s *service) candidate(r *http.Request) (candidate, bool) {
	if p := s.opts.TargetPathParameter; p != "" {
		if v := r.FormValue(p); v != "" {
			return candidate{value: v}, true
		}
	}
	if s.opts.UseReferer || s.opts.FailedUseReferer {
		if ref := r.Header.Get("Referer"); ref != "" {
			return candidate{value: ref, fromReferer: true}, true
		}
	}
	return candidate{}, false
}

func (s *service) extraParameters(r *http.Request) map[string]string {
	if len(s.opts.ForwardParameters) == 0 {
		return nil
	}
	q := r.URL.Query()
	extra := make(map[string]string, len(s.opts.ForwardParameters))
	for _, name := range s.opts.ForwardParameters {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			extra[name] = v
		}
	}
	return extra
}
