package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/middleware"
	"github.com/Skotchmaster/videohub/internal/service"
)

type HistoryHTTP struct {
	Svc *service.HistoryService
}

func (h *HistoryHTTP) List(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	videos, err := h.Svc.WatchHistory(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, videos, "Watch history fetched successfully")
}

func (h *HistoryHTTP) Record(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		return apperr.Validation("Invalid video id")
	}

	if err := h.Svc.RecordWatch(c.Request().Context(), user.ID, videoID); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Watch recorded")
}
