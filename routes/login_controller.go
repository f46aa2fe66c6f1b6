package routes

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/render"

	"github.com/mbolis/survey-dashboard/app"
	"github.com/mbolis/survey-dashboard/httpx"
	"github.com/mbolis/survey-dashboard/log"
)

const (
	msgEmailRequired      = "Email is required"
	msgPasswordRequired   = "Password is required"
	msgInvalidCredentials = "Invalid credentials, check your email and password"
)

var reRefresh = regexp.MustCompile(`(?i)^refresh\s+(.*)`)

type loginForm struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Goto     string `form:"goto"`
}

// safeGoto only follows local paths after login.
func safeGoto(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, `/\`) {
		return "/dashboard"
	}
	return target
}

func LoginPage(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(httpx.AccessTokenCookie); err == nil && c.Value != "" {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
			return
		}

		render.JSON(w, r, render.M{
			"goto":   safeGoto(r.URL.Query().Get("goto")),
			"google": app.GoogleOAuth != nil,
		})
	}
}

func LoginForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form loginForm
		if err := httpx.DecodeForm(r, &form); err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "login.parse_form")
			return
		}
		if form.Goto == "" {
			form.Goto = r.URL.Query().Get("goto")
		}

		email := strings.TrimSpace(form.Email)
		switch {
		case email == "":
			httpx.RenderFieldErrors(w, r, "login.email", httpx.FieldErrors{"email": msgEmailRequired})
			return
		case form.Password == "":
			httpx.RenderFieldErrors(w, r, "login.password", httpx.FieldErrors{"password": msgPasswordRequired})
			return
		}

		token, err := httpx.RequestToken(r.Context(), app.BearerServer, httpx.PasswordGrant(email, form.Password))
		if errors.Is(err, httpx.ErrUnauthorized) {
			httpx.RenderFieldErrors(w, r, "login.credentials", httpx.FieldErrors{"email": msgInvalidCredentials})
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "login.token", err)
			return
		}

		httpx.SetSessionCookies(w, token, app.CookieSecure)
		http.Redirect(w, r, safeGoto(form.Goto), http.StatusSeeOther)
	}
}

func Logout(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := httpx.UserFromContext(r.Context())
		if err := app.RevokeTokens(r.Context(), user.Email); err != nil {
			httpx.LogInternalError(w, "logout.revoke_tokens", err)
			return
		}

		httpx.ClearSessionCookies(w, app.CookieSecure)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

// Token answers HTTP Basic credentials with a bearer token pair.
func Token(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "token.basic_auth")
			return
		}

		req, err := httpx.GrantRequest(r.Context(), httpx.PasswordGrant(user, pass))
		if err != nil {
			httpx.LogInternalError(w, "token.new_request", err)
			return
		}
		app.UserCredentials(w, req)
	}
}

// Refresh trades "Authorization: Refresh <token>" for a new token pair.
func Refresh(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		match := reRefresh.FindStringSubmatch(r.Header.Get("authorization"))
		if len(match) == 0 {
			httpx.LogStatus(w, http.StatusUnauthorized, log.DebugLevel, "refresh.token")
			return
		}

		req, err := httpx.GrantRequest(r.Context(), httpx.RefreshGrant(match[1]))
		if err != nil {
			httpx.LogInternalError(w, "refresh.new_request", err)
			return
		}

		resp := httpx.NewResponseBuffer()
		app.UserCredentials(resp, req)
		resp.Flush(w)
	}
}
