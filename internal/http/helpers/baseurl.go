// Package helpers contiene utilidades HTTP compartidas por controllers y
// middlewares.
package helpers

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// IsHTTPS detecta si el request llegó por HTTPS. X-Forwarded-Proto solo se
// considera con trustForwarded (servicio detrás de un proxy propio).
func IsHTTPS(r *http.Request, trustForwarded bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustForwarded && strings.EqualFold(firstValue(r.Header.Get("X-Forwarded-Proto")), "https")
}

// BaseURL devuelve scheme://host del request. Sin trustForwarded usa
// r.Host y r.TLS; con trustForwarded respeta X-Forwarded-Proto y
// X-Forwarded-Host.
func BaseURL(r *http.Request, trustForwarded bool) string {
	scheme := "http"
	if IsHTTPS(r, trustForwarded) {
		scheme = "https"
	}
	host := r.Host
	if trustForwarded {
		if fh := firstValue(r.Header.Get("X-Forwarded-Host")); fh != "" {
			host = fh
		}
	}
	return scheme + "://" + host
}

// AbsoluteURL resuelve ref contra la base del request. Refs absolutas se
// devuelven sin cambios.
func AbsoluteURL(r *http.Request, ref string, trustForwarded bool) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return ref, nil
	}
	base, err := url.Parse(BaseURL(r, trustForwarded) + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(u).String(), nil
}

// ClientIP extrae la IP del cliente. X-Forwarded-For solo con
// trustForwarded.
func ClientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xf := firstValue(r.Header.Get("X-Forwarded-For")); xf != "" {
			return xf
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func firstValue(h string) string {
	if i := strings.IndexByte(h, ','); i >= 0 {
		h = h[:i]
	}
	return strings.TrimSpace(h)
}
