package tag

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

func (h *Handler) List(c echo.Context) error {
	opts := ListOptions{
		PageSize: parseIntDefault(c.QueryParam("page_size"), 10),
		Page:     parseIntDefault(c.QueryParam("page"), 0),
		Name:     c.QueryParam("name"),
		Game:     int64(parseIntDefault(c.QueryParam("game"), 0)),
		Mod:      int64(parseIntDefault(c.QueryParam("mod"), 0)),
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

func (h *Handler) Add(c echo.Context) error {
	actorID, _ := middleware.UserID(c)

	tagID, err := h.service.Add(actorID, c.FormValue("name"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusCreated, map[string]interface{}{"id": tagID})
}

func (h *Handler) Edit(c echo.Context) error {
	tagID, err := strconv.ParseInt(c.Param("tag_id"), 10, 64)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid tag id")
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.Edit(actorID, tagID, c.FormValue("name")); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Changes accepted")
}

func (h *Handler) Delete(c echo.Context) error {
	tagID, err := strconv.ParseInt(c.Param("tag_id"), 10, 64)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid tag id")
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.Delete(actorID, tagID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, true)
}
