package association

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
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

func parseFormID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.FormValue(name), 10, 64)
}

// toggleCall parses the shared shape of every association endpoint: a path
// id, a form id and the mode flag.
func toggleCall(c echo.Context, pathName, formName string) (int64, int64, bool, error) {
	pathID, err := parseID(c, pathName)
	if err != nil {
		return 0, 0, false, response.NewStatusError(http.StatusBadRequest, response.ErrInput, "Invalid "+pathName)
	}
	formID, err := parseFormID(c, formName)
	if err != nil {
		return 0, 0, false, response.NewStatusError(http.StatusBadRequest, response.ErrInput, "Invalid "+formName)
	}
	return pathID, formID, parseBool(c.FormValue("mode"), true), nil
}

func (h *Handler) GameGenre(c echo.Context) error {
	gameID, genreID, mode, err := toggleCall(c, "game_id", "genre_id")
	if err != nil {
		return response.FromError(c, err)
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.GameGenre(actorID, gameID, genreID, mode); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Complite")
}

func (h *Handler) GameTag(c echo.Context) error {
	gameID, tagID, mode, err := toggleCall(c, "game_id", "tag_id")
	if err != nil {
		return response.FromError(c, err)
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.GameTag(actorID, gameID, tagID, mode); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Complite")
}

func (h *Handler) ModTag(c echo.Context) error {
	modID, tagID, mode, err := toggleCall(c, "mod_id", "tag_id")
	if err != nil {
		return response.FromError(c, err)
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.ModTag(actorID, modID, tagID, mode); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Complite")
}

func (h *Handler) ModDependency(c echo.Context) error {
	modID, dependenceID, mode, err := toggleCall(c, "mod_id", "dependence_id")
	if err != nil {
		return response.FromError(c, err)
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.ModDependency(actorID, modID, dependenceID, mode); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Complite")
}
