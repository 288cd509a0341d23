package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/response"
)

const userIDContextKey = "userID"

// AuthMiddleware resolves the caller's identity from the session cookies
// and rejects unauthenticated requests. An access token rotated through
// the refresh fallback is written back to the cookies before the handler
// runs.
func AuthMiddleware(sessionService *session.Service, cfg *config.Config) echo.MiddlewareFunc {
	resolve := resolver(sessionService, cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !resolve(c) {
				return response.ErrorResponse(c, http.StatusUnauthorized, response.ErrAuthorization, "Invalid session key")
			}
			return next(c)
		}
	}
}

// OptionalAuthMiddleware resolves the identity when cookies are present
// but lets anonymous requests through. Handlers distinguish the two cases
// via UserID.
func OptionalAuthMiddleware(sessionService *session.Service, cfg *config.Config) echo.MiddlewareFunc {
	resolve := resolver(sessionService, cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			resolve(c)
			return next(c)
		}
	}
}

func resolver(sessionService *session.Service, cfg *config.Config) func(echo.Context) bool {
	cookieSecure := cfg.CookieSecure != "false"
	return func(c echo.Context) bool {
		accessToken, refreshToken := session.ReadAuthCookies(c)
		if accessToken == "" && refreshToken == "" {
			return false
		}

		ownerID, rotated, err := sessionService.ResolveIdentity(accessToken, refreshToken)
		if err != nil {
			return false
		}
		if rotated != nil {
			session.SetAuthCookies(c, *rotated, ownerID, cfg.CookieDomain, cookieSecure)
		}
		c.Set(userIDContextKey, ownerID)
		return true
	}
}

// UserID returns the resolved account id of the request, if any.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(userIDContextKey).(int64)
	return id, ok
}
