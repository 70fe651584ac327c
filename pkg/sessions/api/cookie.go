package api

import (
	"net/http"
	"time"

	"github.com/tendant/simple-tokens/pkg/sessions"
)

const (
	AccessTokenCookieName  = sessions.AccessTokenCookieName
	RefreshTokenCookieName = "refresh_token"
)

// CookieSetter writes and clears credential cookies
type CookieSetter interface {
	SetCookie(w http.ResponseWriter, name, value, path string, expire time.Time)
	ClearCookie(w http.ResponseWriter, name, path string)
}

// BaseCookieSetter provides a base implementation of CookieSetter
type BaseCookieSetter struct {
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// SetCookie sets a cookie with the given value and expiry
func (c *BaseCookieSetter) SetCookie(w http.ResponseWriter, name, value, path string, expire time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     path,
		Value:    value,
		Expires:  expire,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ClearCookie clears a cookie
func (c *BaseCookieSetter) ClearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     path,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: c.HttpOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// NewCookieSetter creates a cookie setter for HttpOnly credential cookies
func NewCookieSetter(secure bool) CookieSetter {
	return &BaseCookieSetter{
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
