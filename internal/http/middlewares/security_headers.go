package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/oauthconnect/internal/http/helpers"
)

// WithSecurityHeaders inyecta cabeceras de seguridad por defecto. El
// servicio no sirve HTML: solo redirects y JSON. HSTS se emite en requests
// HTTPS; X-Forwarded-Proto cuenta solo con trustForwarded.
func WithSecurityHeaders(trustForwarded bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()

			// No filtrar la URL de origen (puede llevar target_path) al IdP.
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cross-Origin-Resource-Policy", "same-site")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

			if helpers.IsHTTPS(r, trustForwarded) {
				h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithNoStore marca la respuesta como no cacheable. Los redirects de
// connect llevan un state de un solo uso.
func WithNoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Set("Pragma", "no-cache")
			next.ServeHTTP(w, r)
		})
	}
}
