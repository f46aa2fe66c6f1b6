package httpx

import (
	"encoding/base64"
	"net/http"
)

const flashCookie = "flash"

func flashCookieFor(value string, maxAge int, secure bool) *http.Cookie {
	return &http.Cookie{
		Path:     "/",
		Name:     flashCookie,
		Value:    value,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetFlash leaves a message for the next page the browser loads.
func SetFlash(w http.ResponseWriter, msg string, secure bool) {
	http.SetCookie(w, flashCookieFor(base64.RawURLEncoding.EncodeToString([]byte(msg)), 0, secure))
}

// PopFlash reads the pending message, if any, and clears it.
func PopFlash(w http.ResponseWriter, r *http.Request, secure bool) (string, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return "", false
	}
	http.SetCookie(w, flashCookieFor("", -1, secure))

	msg, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil || len(msg) == 0 {
		return "", false
	}
	return string(msg), true
}
