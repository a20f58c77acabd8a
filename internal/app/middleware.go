package app

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/unrolled/secure"

	"github.com/rentiva/rentiva/internal/access"
)

// Identity headers populated by the upstream authentication layer. The
// application trusts them without re-verification; the deployment must not
// expose these ports without that layer in front.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserRole  = "X-User-Role"
	HeaderCompanyID = "X-Company-Id"
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger *slog.Logger
	Config *Config
}

// IdentityMiddleware resolves the caller's identity from the trusted
// headers and stores it in the request context. Requests without identity
// headers proceed anonymously; authorization happens downstream.
func IdentityMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := identityFromHeaders(r, logger)
			ctx := access.ContextWithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func identityFromHeaders(r *http.Request, logger *slog.Logger) access.Identity {
	raw := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if raw == "" {
		return access.Identity{}
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		if logger != nil {
			logger.Warn("malformed identity header", slog.String("header", HeaderUserID))
		}
		return access.Identity{}
	}
	id := access.Identity{
		UserID: userID,
		Role:   access.Role(strings.TrimSpace(r.Header.Get(HeaderUserRole))),
	}
	if companyRaw := strings.TrimSpace(r.Header.Get(HeaderCompanyID)); companyRaw != "" {
		if companyID, err := uuid.Parse(companyRaw); err == nil {
			id.CompanyID = companyID
		}
	}
	return id
}

// MiddlewareStack installs the Rentiva middleware chain.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.Config != nil && cfg.Config.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	timeout := 30 * time.Second
	if cfg.Config != nil && cfg.Config.AppRequestTimeout > 0 {
		timeout = cfg.Config.AppRequestTimeout
	}

	return []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Timeout(timeout),
		func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := secureMiddleware.Process(w, r); err != nil {
					cfg.Logger.Warn("secure headers blocked request", slog.Any("error", err))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r)
			})
		},
		middleware.Compress(5),
		httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		IdentityMiddleware(cfg.Logger),
	}
}
