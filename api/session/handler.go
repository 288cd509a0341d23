package session

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/response"
)

type Handler struct {
	service      *Service
	cookieDomain string
	cookieSecure bool
	checkToken   string
}

func NewHandler(service *Service, cfg *config.Config) *Handler {
	return &Handler{
		service:      service,
		cookieDomain: cfg.CookieDomain,
		cookieSecure: cfg.CookieSecure != "false",
		checkToken:   cfg.AccessCheckToken,
	}
}

type loginRequest struct {
	Login    string `json:"login" form:"login"`
	Password string `json:"password" form:"password"`
}

// PasswordLogin authenticates with username/password and sets the session
// cookies. Bad credentials answer 412, matching the password flow of the
// public API.
func (h *Handler) PasswordLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid request body")
	}
	if req.Login == "" || req.Password == "" {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "login and password are required")
	}

	accountID, pair, err := h.service.PasswordLogin(req.Login, req.Password)
	if err != nil {
		return response.ErrorResponse(c, http.StatusPreconditionFailed, response.ErrPrecondition, "Wrong login or password")
	}

	SetAuthCookies(c, pair, accountID, h.cookieDomain, h.cookieSecure)
	return response.SuccessResponse(c, map[string]interface{}{
		"user_id":        accountID,
		"access_expiry":  pair.AccessExpiry.Format(CookieTimeFormat),
		"refresh_expiry": pair.RefreshExpiry.Format(CookieTimeFormat),
	})
}

// Refresh mints a new token pair from the refresh cookie and rewrites the
// cookie set. The consumed refresh token is unusable afterwards.
func (h *Handler) Refresh(c echo.Context) error {
	_, refreshToken := ReadAuthCookies(c)
	if refreshToken == "" {
		return response.ErrorResponse(c, http.StatusUnauthorized, response.ErrAuthorization, "Invalid session key")
	}

	ownerID, pair, err := h.service.RefreshSession(refreshToken)
	if err != nil {
		return response.ErrorResponse(c, http.StatusUnauthorized, response.ErrAuthorization, "Invalid session key")
	}

	SetAuthCookies(c, pair, ownerID, h.cookieDomain, h.cookieSecure)
	return response.SuccessResponse(c, true)
}

// CheckAccess resolves an access token to its account id for sibling
// services. Callers authenticate with the shared check token; the
// endpoint never rotates or touches cookies.
func (h *Handler) CheckAccess(c echo.Context) error {
	if h.checkToken == "" || c.QueryParam("check_token") != h.checkToken {
		return response.ErrorResponse(c, http.StatusForbidden, response.ErrForbidden, "Forbidden")
	}

	s, err := h.service.ValidateAccessToken(c.QueryParam("access_token"))
	if err != nil {
		return response.ErrorResponse(c, http.StatusUnauthorized, response.ErrAuthorization, "Invalid session key")
	}
	return response.SuccessResponse(c, map[string]interface{}{"user_id": s.OwnerID})
}

// Logout breaks the current session and clears the cookies. A repeated
// logout on an already broken session reports failure, not silent success.
func (h *Handler) Logout(c echo.Context) error {
	accessToken, _ := ReadAuthCookies(c)
	err := h.service.Logout(accessToken)

	ClearAuthCookies(c, h.cookieDomain, h.cookieSecure)

	if err != nil {
		return response.ErrorResponse(c, http.StatusUnauthorized, response.ErrAuthorization, "Session already invalid")
	}
	return response.SuccessResponse(c, true)
}
