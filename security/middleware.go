// Package security holds the HTTP guards placed in front of an admin site.
package security

import (
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/leeforge/adminsite/errors"
	"github.com/leeforge/adminsite/http/middleware"
	"github.com/leeforge/adminsite/http/responder"
)

// Config selects the guards applied by Chain.
type Config struct {
	// DisableHelmet skips the security response headers.
	DisableHelmet bool `mapstructure:"disable-helmet" json:"disableHelmet" yaml:"disable-helmet"`
	// RequestSize caps request bodies in bytes. Zero disables the cap.
	RequestSize int64 `mapstructure:"request-size" json:"requestSize" yaml:"request-size" default:"1048576" validate:"gte=0"`
	// Unsafe requests whose Origin or Referer is neither the request host
	// nor one of TrustedOrigins are rejected unless DisableCSRF is set.
	DisableCSRF    bool     `mapstructure:"disable-csrf" json:"disableCSRF" yaml:"disable-csrf"`
	TrustedOrigins []string `mapstructure:"trusted-origins" json:"trustedOrigins" yaml:"trusted-origins"`
	// IPAllowList restricts clients by remote IP when not empty.
	IPAllowList []string `mapstructure:"ip-allow-list" json:"ipAllowList" yaml:"ip-allow-list"`
}

// Middleware applies Config to a handler.
type Middleware struct {
	config Config
}

func NewMiddleware(config Config) *Middleware {
	return &Middleware{config: config}
}

// Chain returns the configured guards as one middleware. The IP filter
// runs first, then the size limit, headers and CSRF check.
func (m *Middleware) Chain() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := next
		if !m.config.DisableCSRF {
			h = m.csrf(h)
		}
		if !m.config.DisableHelmet {
			h = helmet(h)
		}
		if m.config.RequestSize > 0 {
			h = m.sizeLimit(h)
		}
		if len(m.config.IPAllowList) > 0 {
			h = m.ipFilter(h)
		}
		return h
	}
}

func (m *Middleware) ipFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !slices.Contains(m.config.IPAllowList, ip) {
			fail(w, r, errors.NewForbidden("IP not allowed"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) sizeLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > m.config.RequestSize {
			_ = responder.WriteError(w, http.StatusRequestEntityTooLarge,
				responder.NewError(responder.ErrCodeTooLarge, ""),
				responder.WithTraceID(middleware.GetTraceIDFromRequest(r)))
			return
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, m.config.RequestSize)
		}
		next.ServeHTTP(w, r)
	})
}

func helmet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'")
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) csrf(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}

		source := r.Header.Get("Origin")
		if source == "" {
			source = r.Header.Get("Referer")
		}
		if source == "" {
			fail(w, r, errors.NewForbidden("CSRF validation failed: missing origin"))
			return
		}
		if !m.trusted(r, source) {
			fail(w, r, errors.NewForbidden("CSRF validation failed: untrusted origin"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// trusted compares the host of source with the request host and the
// configured origins. "*" trusts everything.
func (m *Middleware) trusted(r *http.Request, source string) bool {
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range m.config.TrustedOrigins {
		if o == "*" {
			return true
		}
		if t, err := url.Parse(o); err == nil && t.Host != "" {
			if strings.EqualFold(t.Host, u.Host) && (t.Scheme == "" || t.Scheme == u.Scheme) {
				return true
			}
		} else if strings.EqualFold(o, u.Host) {
			return true
		}
	}
	return false
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	_ = responder.Fail(w, err, responder.WithTraceID(middleware.GetTraceIDFromRequest(r)))
}
