package game

import (
	"net/http"
	"strconv"
	"strings"

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

func parseID(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

func parseIntDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseIDList(values []string) []int64 {
	var ids []int64
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if id, err := strconv.ParseInt(part, 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func formString(c echo.Context, name string) *string {
	if value := c.FormValue(name); value != "" {
		return &value
	}
	return nil
}

// List returns one page of the game catalog.
func (h *Handler) List(c echo.Context) error {
	opts := ListOptions{
		PageSize: parseIntDefault(c.QueryParam("page_size"), 10),
		Page:     parseIntDefault(c.QueryParam("page"), 0),
		Sort:     c.QueryParam("sort"),
		Name:     c.QueryParam("name"),
		Type:     c.QueryParam("type"),
		Genres:   parseIDList(c.QueryParams()["genres"]),
	}
	if opts.PageSize < PageSizeMin || opts.PageSize > PageSizeMax {
		return response.ErrorResponse(c, http.StatusRequestEntityTooLarge, response.ErrInput,
			"Page size out of range")
	}

	result, err := h.service.List(opts)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// Info returns one game.
func (h *Handler) Info(c echo.Context) error {
	gameID, err := parseID(c, "game_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid game id")
	}

	result, err := h.service.Info(gameID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

func editInput(c echo.Context) EditInput {
	return EditInput{
		Name:             formString(c, "name"),
		ShortDescription: formString(c, "short_description"),
		Description:      formString(c, "description"),
		Type:             formString(c, "type"),
		Logo:             formString(c, "logo"),
	}
}

// Add creates a game, admin only.
func (h *Handler) Add(c echo.Context) error {
	actorID, _ := middleware.UserID(c)

	gameID, err := h.service.Add(actorID, editInput(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusCreated, map[string]interface{}{"id": gameID})
}

// Edit updates game fields, admin only.
func (h *Handler) Edit(c echo.Context) error {
	gameID, err := parseID(c, "game_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid game id")
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.Edit(actorID, gameID, editInput(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Changes accepted")
}

// Delete removes a game, admin only.
func (h *Handler) Delete(c echo.Context) error {
	gameID, err := parseID(c, "game_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid game id")
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.Delete(actorID, gameID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, true)
}
