package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/leo/leo-picture-client/internal/credential"
	"github.com/leo/leo-picture-client/internal/logging"
	"github.com/leo/leo-picture-client/internal/model/user"
)

// SessionCookie is the cookie the dev server hands out on login.
const SessionCookie = "satoken"

type ctxKey struct{}

// Authenticator resolves a token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (user.LoginUser, error)
}

// CORS 允许携带凭证的跨域请求
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, token, satoken")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger writes one access log line per request.
func RequestLogger(next http.Handler) http.Handler {
	logger := logging.Component("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)

		var evt *zerolog.Event
		if ww.Status() >= http.StatusInternalServerError {
			evt = logger.Error()
		} else {
			evt = logger.Info()
		}
		evt.Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

// Authenticate attaches the user behind the request token, if any, to the
// request context. Requests without a valid token pass through anonymous.
func Authenticate(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if u, err := auth.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// TokenFromRequest looks for a token in the conventional headers, then the
// token query parameter, then the session cookie.
func TokenFromRequest(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(credential.HeaderToken)); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get(credential.HeaderSatoken)); v != "" {
		return v
	}
	if v := r.Header.Get(credential.HeaderAuthorization); v != "" {
		if scheme, token, ok := strings.Cut(v, " "); ok && strings.EqualFold(scheme, credential.SchemeBearer) {
			return strings.TrimSpace(token)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get(credential.QueryParam)); v != "" {
		return v
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u user.LoginUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFrom returns the authenticated user of ctx.
func UserFrom(ctx context.Context) (user.LoginUser, bool) {
	u, ok := ctx.Value(ctxKey{}).(user.LoginUser)
	return u, ok
}
