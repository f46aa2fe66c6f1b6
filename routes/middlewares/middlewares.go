package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/felixge/httpsnoop"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/oauth"

	"github.com/mbolis/survey-dashboard/httpx"
	"github.com/mbolis/survey-dashboard/log"
	"github.com/mbolis/survey-dashboard/model"
	"github.com/mbolis/survey-dashboard/store"
)

type UserGetter interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// Authorized checks the bearer token and puts the user named by its "uid"
// claim in the request context.
func Authorized(secret string, users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return chi.Chain(oauth.Authorize(secret, nil), loadUser(users)).Handler(next)
	}
}

func loadUser(users UserGetter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := r.Context().Value(oauth.ClaimsContext).(map[string]string)
			uid := claims["uid"]
			if uid == "" {
				httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.claims.uid")
				return
			}

			user, err := users.GetUser(r.Context(), uid)
			if errors.Is(err, store.ErrNotFound) {
				httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "auth.user.not_found")
				return
			}
			if err != nil {
				httpx.LogInternalError(w, "auth.user.get", err)
				return
			}

			next.ServeHTTP(w, r.WithContext(httpx.WithUser(r.Context(), user)))
		})
	}
}

// CookieAuth lets browsers carry their bearer tokens in cookies. A rejected
// access token is replaced using the refresh token; without a usable refresh
// token the browser is sent to the login page.
func CookieAuth(bearerServer *oauth.BearerServer, secure bool) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := r.Cookie(httpx.AccessTokenCookie)
			if err == nil && token.Value != "" {
				r.Header.Set("authorization", "Bearer "+token.Value)
				buf := httpx.NewResponseBuffer()
				h.ServeHTTP(buf, r)
				if buf.Status() != http.StatusUnauthorized {
					buf.Flush(w)
					return
				}
			}

			// token was empty or unauthorized
			refreshToken, err := r.Cookie(httpx.RefreshTokenCookie)
			if err != nil || refreshToken.Value == "" {
				redirectToLogin(w, r, secure)
				return
			}

			refreshed, err := httpx.RequestToken(r.Context(), bearerServer, httpx.RefreshGrant(refreshToken.Value))
			if err != nil {
				level := log.WarnLevel
				if errors.Is(err, httpx.ErrUnauthorized) {
					level = log.DebugLevel
				}
				log.Logf(level, "auth.cookie.refresh: %s", err)
				redirectToLogin(w, r, secure)
				return
			}

			httpx.SetSessionCookies(w, refreshed, secure)
			r.Header.Set("authorization", "Bearer "+refreshed.AccessToken)
			h.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, secure bool) {
	httpx.ClearSessionCookies(w, secure)

	status := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		status = http.StatusTemporaryRedirect
	}
	http.Redirect(w, r, "/login?goto="+url.QueryEscape(r.RequestURI), status)
}

// RequestLogger logs one line per request with its status, size and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"uri":      r.RequestURI,
			"status":   m.Code,
			"bytes":    m.Written,
			"duration": m.Duration,
			"remote":   r.RemoteAddr,
		}).Info("request")
	})
}
