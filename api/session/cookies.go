package session

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Cookie names of the session contract. accessToken/refreshToken are
// HTTP-only; accessJS/loginJS carry the human-readable expiries for
// client-side display; userID carries the resolved account id.
const (
	CookieAccessToken   = "accessToken"
	CookieRefreshToken  = "refreshToken"
	CookieAccessExpiry  = "accessJS"
	CookieRefreshExpiry = "loginJS"
	CookieUserID        = "userID"
)

// CookieTimeFormat is the display format of the expiry companion cookies.
const CookieTimeFormat = "02.01.2006/15:04:05"

const (
	accessCookieMaxAge  = 2100
	refreshCookieMaxAge = 5184000
)

func newCookie(name, value string, maxAge int, httpOnly bool, domain string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   domain,
		Secure:   secure,
		HttpOnly: httpOnly,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetAuthCookies writes all five session cookies. Also used to rewrite the
// set after a refresh-triggered rotation.
func SetAuthCookies(c echo.Context, pair TokenPair, userID int64, domain string, secure bool) {
	c.SetCookie(newCookie(CookieAccessToken, pair.AccessToken, accessCookieMaxAge, true, domain, secure))
	c.SetCookie(newCookie(CookieRefreshToken, pair.RefreshToken, refreshCookieMaxAge, true, domain, secure))
	c.SetCookie(newCookie(CookieAccessExpiry, pair.AccessExpiry.Format(CookieTimeFormat), refreshCookieMaxAge, false, domain, secure))
	c.SetCookie(newCookie(CookieRefreshExpiry, pair.RefreshExpiry.Format(CookieTimeFormat), refreshCookieMaxAge, false, domain, secure))
	c.SetCookie(newCookie(CookieUserID, strconv.FormatInt(userID, 10), refreshCookieMaxAge, false, domain, secure))
}

// ClearAuthCookies expires all five session cookies.
func ClearAuthCookies(c echo.Context, domain string, secure bool) {
	for _, name := range []string{CookieAccessToken, CookieRefreshToken, CookieAccessExpiry, CookieRefreshExpiry, CookieUserID} {
		c.SetCookie(newCookie(name, "", -1, name == CookieAccessToken || name == CookieRefreshToken, domain, secure))
	}
}

// ReadAuthCookies returns the access and refresh token cookie values,
// empty strings when absent.
func ReadAuthCookies(c echo.Context) (accessToken, refreshToken string) {
	if cookie, err := c.Cookie(CookieAccessToken); err == nil {
		accessToken = cookie.Value
	}
	if cookie, err := c.Cookie(CookieRefreshToken); err == nil {
		refreshToken = cookie.Value
	}
	return accessToken, refreshToken
}
