package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/middleware"
	"github.com/Skotchmaster/videohub/internal/service"
	"github.com/Skotchmaster/videohub/internal/transport"
)

type ChannelHTTP struct {
	Svc *service.ChannelService
}

func (h *ChannelHTTP) Profile(c echo.Context) error {
	viewer := uuid.Nil
	if u := middleware.CurrentUser(c); u != nil {
		viewer = u.ID
	}

	profile, err := h.Svc.Profile(c.Request().Context(), c.Param("username"), viewer)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "User channel fetched successfully")
}

func (h *ChannelHTTP) Subscribe(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	profile, err := h.Svc.Subscribe(c.Request().Context(), user.ID, c.Param("username"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "Subscribed successfully")
}

func (h *ChannelHTTP) Unsubscribe(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	profile, err := h.Svc.Unsubscribe(c.Request().Context(), user.ID, c.Param("username"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, profile, "Unsubscribed successfully")
}

func (h *ChannelHTTP) Search(c echo.Context) error {
	var q transport.SearchQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return apperr.Validation("Invalid query parameters")
	}

	res, err := h.Svc.Search(c.Request().Context(), q.Q, q.Page, q.Size)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, res, "Channels fetched successfully")
}
