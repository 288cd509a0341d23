package resource

import (
	"net/http"
	"path/filepath"
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

func optionalUserID(c echo.Context) *int64 {
	if id, ok := middleware.UserID(c); ok {
		return &id
	}
	return nil
}

// List returns resources of the requested mods or games.
func (h *Handler) List(c echo.Context) error {
	opts := ListOptions{
		PageSize:  parseIntDefault(c.QueryParam("page_size"), 10),
		Page:      parseIntDefault(c.QueryParam("page"), 0),
		OwnerType: c.QueryParam("owner_type"),
		OwnerIDs:  parseIDList(c.QueryParams()["owner_ids"]),
		Types:     c.QueryParams()["types"],
	}
	if opts.PageSize < PageSizeMin || opts.PageSize > PageSizeMax {
		return response.ErrorResponse(c, http.StatusRequestEntityTooLarge, response.ErrInput,
			"Page size out of range")
	}
	if len(opts.OwnerIDs) > OwnersMax {
		return response.ErrorResponse(c, http.StatusRequestEntityTooLarge, response.ErrInput,
			"Too many owner ids")
	}

	result, err := h.service.List(optionalUserID(c), opts)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// Add attaches a logo or screenshot to a mod or game.
func (h *Handler) Add(c echo.Context) error {
	actorID, _ := middleware.UserID(c)

	ownerID, err := strconv.ParseInt(c.FormValue("owner_id"), 10, 64)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid owner id")
	}

	in := AddInput{
		Type:      c.FormValue("type"),
		OwnerType: c.FormValue("owner_type"),
		OwnerID:   ownerID,
		URL:       c.FormValue("url"),
	}

	if file, err := c.FormFile("resource_file"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return response.ErrorResponse(c, http.StatusInternalServerError, response.ErrServer, "Failed to read the file")
		}
		defer src.Close()

		ext := strings.TrimPrefix(filepath.Ext(file.Filename), ".")
		if ext == "" {
			ext = "png"
		}
		in.File = src
		in.FileExt = ext
	}

	resourceID, err := h.service.Add(actorID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusCreated, map[string]interface{}{"id": resourceID})
}

// Edit changes the type or url of a resource.
func (h *Handler) Edit(c echo.Context) error {
	resourceID, err := strconv.ParseInt(c.Param("resource_id"), 10, 64)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid resource id")
	}
	actorID, _ := middleware.UserID(c)

	var resourceType, url *string
	if value := c.FormValue("type"); value != "" {
		resourceType = &value
	}
	if value := c.FormValue("url"); value != "" {
		url = &value
	}

	if err := h.service.Edit(actorID, resourceID, resourceType, url); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Changes accepted")
}

// Delete removes a resource.
func (h *Handler) Delete(c echo.Context) error {
	resourceID, err := strconv.ParseInt(c.Param("resource_id"), 10, 64)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid resource id")
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.Delete(actorID, resourceID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, true)
}
