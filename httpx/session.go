package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/oauth"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	refreshCookieMaxAge = 60 * 60 * 24 * 365
)

// ErrUnauthorized is returned when the bearer server refuses a grant.
var ErrUnauthorized = errors.New("unauthorized")

// TokenResponse is the bearer server's answer to a successful grant.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

func PasswordGrant(username, password string) url.Values {
	return url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
}

func RefreshGrant(refreshToken string) url.Values {
	return url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
}

// GrantRequest builds the form POST the bearer server expects.
func GrantRequest(ctx context.Context, grant url.Values) (*http.Request, error) {
	body := grant.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/x-www-form-urlencoded")
	req.Header.Set("content-length", strconv.Itoa(len(body)))
	return req, nil
}

// RequestToken runs grant through the bearer server in process.
func RequestToken(ctx context.Context, bs *oauth.BearerServer, grant url.Values) (*TokenResponse, error) {
	req, err := GrantRequest(ctx, grant)
	if err != nil {
		return nil, err
	}

	resp := NewResponseBuffer()
	bs.UserCredentials(resp, req)
	switch resp.Status() {
	case 0, http.StatusOK:
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		return nil, fmt.Errorf("bearer server answered %d", resp.Status())
	}

	var token TokenResponse
	if err := json.Unmarshal(resp.Body(), &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrUnauthorized
	}
	return &token, nil
}

// SetSessionCookies hands both tokens to the browser.
func SetSessionCookies(w http.ResponseWriter, token *TokenResponse, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     AccessTokenCookie,
		Value:    token.AccessToken,
		MaxAge:   int(token.ExpiresIn),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Path:     "/",
		Name:     RefreshTokenCookie,
		Value:    token.RefreshToken,
		MaxAge:   refreshCookieMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookies(w http.ResponseWriter, secure bool) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Path:     "/",
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
