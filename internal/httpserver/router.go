package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/videohub/internal/middleware"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	ChannelHandler *ChannelHTTP
	HistoryHandler *HistoryHTTP
	Guard          *middleware.Guard

	// Ready backs /health/ready; nil means always ready.
	Ready   func(ctx context.Context) error
	Metrics http.Handler

	// AuthRate limits login/register/refresh per client IP; zero disables it.
	AuthRate  rate.Limit
	AuthBurst int
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewRequestValidator()
	e.HTTPErrorHandler = ErrorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics))
	}

	var open []echo.MiddlewareFunc
	if d.AuthRate > 0 {
		open = append(open, echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
			Store: echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
				Rate:  d.AuthRate,
				Burst: d.AuthBurst,
			}),
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests")
			},
		}))
	}

	users := e.Group("/users")
	users.POST("/register", d.AuthHandler.Register, open...)
	users.POST("/login", d.AuthHandler.Login, open...)
	users.POST("/refresh-token", d.AuthHandler.Refresh, open...)

	auth := d.Guard.RequireAuth
	users.POST("/logout", d.AuthHandler.Logout, auth)
	users.PATCH("/password", d.AuthHandler.ChangePassword, auth)
	users.GET("/me", d.AuthHandler.CurrentUser, auth)
	users.PATCH("/me", d.AuthHandler.UpdateProfile, auth)
	users.PATCH("/avatar", d.AuthHandler.UpdateAvatar, auth)
	users.PATCH("/cover-image", d.AuthHandler.UpdateCoverImage, auth)
	users.GET("/history", d.HistoryHandler.List, auth)
	users.POST("/history/:videoId", d.HistoryHandler.Record, auth)

	// Every segment under /channels is a username, so search lives elsewhere.
	e.GET("/search/channels", d.ChannelHandler.Search)

	channels := e.Group("/channels")
	channels.GET("/:username", d.ChannelHandler.Profile, d.Guard.OptionalAuth)
	channels.POST("/:username/subscribe", d.ChannelHandler.Subscribe, auth)
	channels.DELETE("/:username/subscribe", d.ChannelHandler.Unsubscribe, auth)
}
