package mod

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/openworkshop/owapi/config"
	"github.com/openworkshop/owapi/shared/middleware"
	"github.com/openworkshop/owapi/shared/response"
)

type Handler struct {
	service    *Service
	checkToken string
}

func NewHandler(service *Service, cfg *config.Config) *Handler {
	return &Handler{service: service, checkToken: cfg.AccessCheckToken}
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

// parseIDList accepts both repeated query params and comma separated
// values.
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

// List returns one catalog page with the requested filters and sections.
func (h *Handler) List(c echo.Context) error {
	params := c.QueryParams()

	opts := ListOptions{
		PageSize:          parseIntDefault(c.QueryParam("page_size"), 10),
		Page:              parseIntDefault(c.QueryParam("page"), 0),
		Sort:              c.QueryParam("sort"),
		Tags:              parseIDList(params["tags"]),
		Game:              int64(parseIntDefault(c.QueryParam("game"), 0)),
		AllowedIDs:        parseIDList(params["allowed_ids"]),
		Independents:      parseBool(c.QueryParam("independents"), false),
		PrimarySources:    params["primary_sources"],
		AllowedSourcesIDs: parseIDList(params["allowed_sources_ids"]),
		Name:              c.QueryParam("name"),
		User:              int64(parseIntDefault(c.QueryParam("user"), 0)),
		UserOwner:         parseIntDefault(c.QueryParam("user_owner"), -1),
		OnlyPublic:        parseBool(c.QueryParam("catalog"), false),
	}
	if opts.PageSize < PageSizeMin || opts.PageSize > PageSizeMax {
		return response.ErrorResponse(c, http.StatusRequestEntityTooLarge, response.ErrInput,
			"Page size out of range")
	}
	if len(opts.Tags)+len(opts.AllowedIDs)+len(opts.PrimarySources)+len(opts.AllowedSourcesIDs) > FiltersMax {
		return response.ErrorResponse(c, http.StatusRequestEntityTooLarge, response.ErrInput,
			"Too many filter values")
	}

	in := ListInput{
		Options:          opts,
		General:          parseBool(c.QueryParam("general"), true),
		ShortDescription: parseBool(c.QueryParam("short_description"), false),
		Description:      parseBool(c.QueryParam("description"), false),
		Dates:            parseBool(c.QueryParam("dates"), false),
	}

	result, err := h.service.List(optionalUserID(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// Info returns one mod with the requested sections.
func (h *Handler) Info(c echo.Context) error {
	modID, err := parseID(c, "mod_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid mod id")
	}

	in := InfoInput{
		ModID:            modID,
		General:          parseBool(c.QueryParam("general"), true),
		ShortDescription: parseBool(c.QueryParam("short_description"), false),
		Description:      parseBool(c.QueryParam("description"), false),
		Dates:            parseBool(c.QueryParam("dates"), false),
		Dependencies:     parseBool(c.QueryParam("dependencies"), false),
		Tags:             parseBool(c.QueryParam("tags"), false),
		Authors:          parseBool(c.QueryParam("authors"), false),
	}

	result, err := h.service.Info(optionalUserID(c), in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// Public filters the requested ids down to publicly readable mods.
func (h *Handler) Public(c echo.Context) error {
	ids := parseIDList(c.QueryParams()["ids"])
	result, err := h.service.PublicIDs(ids, parseBool(c.QueryParam("catalog"), false))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// Access filters the requested ids by the caller's read or edit access.
// Works for anonymous callers too; denied ids vanish from the result.
// Sibling services may check on behalf of another account through the
// user and token query params; user=0 runs the anonymous path.
func (h *Handler) Access(c echo.Context) error {
	ids := parseIDList(c.QueryParams()["ids"])
	if len(ids) > FiltersMax {
		return response.ErrorResponse(c, http.StatusRequestEntityTooLarge, response.ErrInput,
			"Too many ids")
	}
	edit := parseBool(c.QueryParam("edit"), false)

	subject := optionalUserID(c)
	if user := parseIntDefault(c.QueryParam("user"), -1); user >= 0 {
		if user == 0 {
			subject = nil
		} else {
			if !h.allowUserCheck(c) {
				return response.ErrorResponse(c, http.StatusForbidden, response.ErrForbidden, "Access denied")
			}
			userID := int64(user)
			subject = &userID
		}
	}

	result, err := h.service.FilterAccessible(subject, ids, edit)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, result)
}

// allowUserCheck admits third-party access checks with the shared check
// token. Admin rights of the cookie identity serve as an equivalent.
func (h *Handler) allowUserCheck(c echo.Context) bool {
	if h.checkToken != "" && c.QueryParam("token") == h.checkToken {
		return true
	}
	actor, err := h.service.identity(optionalUserID(c))
	return err == nil && actor != nil && actor.Admin
}

// Add uploads a new mod.
func (h *Handler) Add(c echo.Context) error {
	actorID, _ := middleware.UserID(c)

	file, err := c.FormFile("mod_file")
	if err != nil || file == nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Mod archive is required")
	}
	src, err := file.Open()
	if err != nil {
		return response.ErrorResponse(c, http.StatusInternalServerError, response.ErrServer, "Failed to read the archive")
	}
	defer src.Close()

	in := AddInput{
		Name:             c.FormValue("name"),
		ShortDescription: c.FormValue("short_description"),
		Description:      c.FormValue("description"),
		Public:           parseIntDefault(c.FormValue("public"), 0),
		Game:             int64(parseIntDefault(c.FormValue("game"), 0)),
		File:             src,
		FileSize:         file.Size,
	}

	modID, err := h.service.Add(actorID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusCreated, map[string]interface{}{"id": modID})
}

// Edit updates mod fields and optionally replaces the archive.
func (h *Handler) Edit(c echo.Context) error {
	modID, err := parseID(c, "mod_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid mod id")
	}
	actorID, _ := middleware.UserID(c)

	var in EditInput
	for name, target := range map[string]**string{
		"name":              &in.Name,
		"short_description": &in.ShortDescription,
		"description":       &in.Description,
	} {
		if value := c.FormValue(name); value != "" {
			v := value
			*target = &v
		}
	}
	if value := c.FormValue("public"); value != "" {
		public := parseIntDefault(value, 0)
		in.Public = &public
	}
	if value := c.FormValue("game"); value != "" {
		game := int64(parseIntDefault(value, 0))
		in.Game = &game
	}

	if file, err := c.FormFile("mod_file"); err == nil && file != nil {
		src, err := file.Open()
		if err != nil {
			return response.ErrorResponse(c, http.StatusInternalServerError, response.ErrServer, "Failed to read the archive")
		}
		defer src.Close()
		in.File = src
		in.FileSize = file.Size
	}

	if err := h.service.Edit(actorID, modID, in); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Changes accepted")
}

// Delete removes a mod.
func (h *Handler) Delete(c echo.Context) error {
	modID, err := parseID(c, "mod_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid mod id")
	}
	actorID, _ := middleware.UserID(c)

	if err := h.service.Delete(actorID, modID); err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, true)
}

// EditAuthors adds, promotes or removes an author on a mod.
func (h *Handler) EditAuthors(c echo.Context) error {
	modID, err := parseID(c, "mod_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid mod id")
	}
	actorID, _ := middleware.UserID(c)

	targetID, err := strconv.ParseInt(c.FormValue("user_id"), 10, 64)
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid user id")
	}

	err = h.service.EditAuthors(actorID, modID, targetID,
		parseBool(c.FormValue("adding"), true),
		parseBool(c.FormValue("owner"), false))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponseWithStatus(c, http.StatusAccepted, "Changes accepted")
}

// Download counts the download and redirects to the archive in storage.
func (h *Handler) Download(c echo.Context) error {
	modID, err := parseID(c, "mod_id")
	if err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.ErrInput, "Invalid mod id")
	}

	url, err := h.service.DownloadInfo(optionalUserID(c), modID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Redirect(http.StatusTemporaryRedirect, url)
}
