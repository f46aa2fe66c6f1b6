package routes

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mbolis/survey-dashboard/app"
	"github.com/mbolis/survey-dashboard/config"
	"github.com/mbolis/survey-dashboard/httpx"
	"github.com/mbolis/survey-dashboard/log"
	"github.com/mbolis/survey-dashboard/model"
)

const (
	googleStateCookie = "google_state"
	loginTicketTTL    = 5 * time.Minute
)

var googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// NewGoogleConfig returns nil unless both client id and secret are set.
func NewGoogleConfig(cfg config.Config) *oauth2.Config {
	if !cfg.GoogleEnabled() {
		return nil
	}
	return &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.GoogleCallbackURL(),
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

func GoogleLogin(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state := uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Path:     "/auth/google",
			Name:     googleStateCookie,
			Value:    state,
			MaxAge:   int(loginTicketTTL / time.Second),
			HttpOnly: true,
			Secure:   app.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, app.GoogleOAuth.AuthCodeURL(state), http.StatusFound)
	}
}

func GoogleCallback(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()

		state, err := r.Cookie(googleStateCookie)
		if err != nil || state.Value == "" || state.Value != query.Get("state") {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "google.state")
			return
		}
		http.SetCookie(w, &http.Cookie{
			Path:     "/auth/google",
			Name:     googleStateCookie,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   app.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})

		if reason := query.Get("error"); reason != "" {
			log.Debugf("google.consent: %s", reason)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		token, err := app.GoogleOAuth.Exchange(ctx, query.Get("code"))
		if err != nil {
			httpx.LogStatusMsg(w, http.StatusUnauthorized, log.DebugLevel, "google.exchange", "could not sign in with Google")
			return
		}

		info, err := fetchGoogleUser(r, app.GoogleOAuth.Client(ctx, token))
		if err != nil {
			httpx.LogInternalError(w, "google.userinfo", err)
			return
		}
		if info.Email == "" || !info.EmailVerified {
			httpx.LogStatusMsg(w, http.StatusUnauthorized, log.DebugLevel, "google.userinfo.email", "Google account has no verified email")
			return
		}

		user, err := app.UpsertGoogleUser(ctx, &model.User{
			Email:     info.Email,
			Name:      info.Name,
			AvatarURL: info.Picture,
			GoogleID:  info.Sub,
		})
		if err != nil {
			httpx.LogInternalError(w, "db.upsert_google_user", err)
			return
		}

		// the ticket stands in for a password in the bearer server's grant
		ticket := uuid.NewString()
		err = app.CreateLoginTicket(ctx, user.ID, httpx.HashTicket(ticket), time.Now().Add(loginTicketTTL))
		if err != nil {
			httpx.LogInternalError(w, "db.insert_login_ticket", err)
			return
		}

		session, err := httpx.RequestToken(ctx, app.BearerServer, httpx.PasswordGrant(user.Email, ticket))
		if err != nil {
			httpx.LogInternalError(w, "google.token", err)
			return
		}

		log.Infof("google.login: %s", user.Email)
		httpx.SetSessionCookies(w, session, app.CookieSecure)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func fetchGoogleUser(r *http.Request, client *http.Client) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, googleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo answered %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := render.DecodeJSON(resp.Body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
