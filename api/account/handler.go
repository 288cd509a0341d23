package account

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/openworkshop/owapi/api/session"
	"github.com/openworkshop/owapi/shared/middleware"
	"github.com/openworkshop/owapi/shared/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func parseBool(value string, def bool) bool {
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// ProfileInfo returns profile sections: general is public, rights and
// private need the account holder or an admin.
func (h *Handler) ProfileInfo(c echo.Context) error {
	targetID, err := parseID(c, "user_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid user id")
	}

	var requesterID *int64
	if id, ok := middleware.UserID(c); ok {
		requesterID = &id
	}

	result, err := h.service.ProfileInfo(requesterID, targetID,
		parseBool(c.QueryParam("general"), true),
		parseBool(c.QueryParam("rights"), false),
		parseBool(c.QueryParam("private"), false))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// ProfileAvatar redirects to the avatar location, 204 when unset.
func (h *Handler) ProfileAvatar(c echo.Context) error {
	userID, err := parseID(c, "user_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid user id")
	}

	location, err := h.service.AvatarLocation(userID)
	if err != nil {
		return response.FromError(c, err)
	}
	if location == "" {
		return c.NoContent(http.StatusNoContent)
	}
	return c.Redirect(http.StatusTemporaryRedirect, location)
}

func parseMute(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, session.CookieTimeFormat} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return &parsed, nil
		}
	}
	return nil, response.NewStatusError(http.StatusBadRequest, response.ErrInput, "Invalid mute date format")
}

// EditProfile mutates profile fields under the profile edit policy.
func (h *Handler) EditProfile(c echo.Context) error {
	targetID, err := parseID(c, "user_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid user id")
	}
	actorID, _ := middleware.UserID(c)

	in := ProfileEditInput{
		OffPassword: parseBool(c.FormValue("off_password"), false),
		EmptyAvatar: parseBool(c.FormValue("empty_avatar"), false),
	}
	for name, target := range map[string]**string{
		"username":     &in.Username,
		"about":        &in.About,
		"grade":        &in.Grade,
		"new_password": &in.NewPassword,
	} {
		if value := c.FormValue(name); value != "" {
			v := value
			*target = &v
		}
	}

	mute, err := parseMute(c.FormValue("mute"))
	if err != nil {
		return response.FromError(c, err)
	}
	in.Mute = mute

	if file, err := c.FormFile("avatar"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return response.ErrorResponse(c, http.StatusInternalServerError, response.ErrServer, "Failed to read the avatar")
		}
		defer src.Close()

		ext := strings.TrimPrefix(filepath.Ext(file.Filename), ".")
		if ext == "" {
			ext = "png"
		}
		in.Avatar = src
		in.AvatarExt = ext
		in.AvatarSize = file.Size
	}

	if err := h.service.EditProfile(actorID, targetID, in); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Changes accepted")
}

// EditRights changes permission flags, admin only.
func (h *Handler) EditRights(c echo.Context) error {
	targetID, err := parseID(c, "user_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid user id")
	}
	actorID, _ := middleware.UserID(c)

	var update RightsUpdate
	if err := c.Bind(&update); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid request body")
	}

	if err := h.service.EditRights(actorID, targetID, update); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Changes accepted")
}

// DeleteAccount soft-deletes the caller's own account.
func (h *Handler) DeleteAccount(c echo.Context) error {
	actorID, _ := middleware.UserID(c)

	if err := h.service.Delete(actorID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, true)
}

// Disconnect unlinks one external identity service from the account.
func (h *Handler) Disconnect(c echo.Context) error {
	actorID, _ := middleware.UserID(c)

	if err := h.service.Disconnect(actorID, c.FormValue("service_name")); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, true)
}
