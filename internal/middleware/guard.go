// Package middleware holds the access guard for protected routes.
package middleware

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	jwthelp "github.com/Skotchmaster/videohub/pkg/jwt"
	"github.com/Skotchmaster/videohub/pkg/logging"
	"github.com/Skotchmaster/videohub/pkg/tokens"
)

const userKey = "user"

type Guard struct {
	Codec *tokens.Codec
	Repo  *repo.GormRepo
}

func NewGuard(codec *tokens.Codec, r *repo.GormRepo) *Guard {
	return &Guard{Codec: codec, Repo: r}
}

// RequireAuth resolves the bearer from the accessToken cookie or the
// Authorization header and attaches the secrets-free user.
func (g *Guard) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := g.resolve(c)
		if err != nil {
			return err
		}
		c.Set(userKey, user)
		return next(c)
	}
}

// OptionalAuth attaches the user when a valid token is present and lets
// anonymous requests through otherwise.
func (g *Guard) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if bearer(c) == "" {
			return next(c)
		}
		if user, err := g.resolve(c); err == nil {
			c.Set(userKey, user)
		}
		return next(c)
	}
}

func (g *Guard) resolve(c echo.Context) (*models.User, error) {
	l := logging.FromContext(c.Request().Context()).With("mw", "auth")

	raw := bearer(c)
	if raw == "" {
		return nil, apperr.Unauthorized("Unauthorized request")
	}

	claims, err := g.Codec.VerifyAccessToken(raw)
	if err != nil {
		l.Warn("auth_failed", "status", 401, "reason", "invalid access token", "error", err)
		return nil, apperr.Unauthorized("Invalid access token").WithCause(err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid access token").WithCause(err)
	}

	user, err := g.Repo.FindByID(c.Request().Context(), id, true)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("auth_failed", "status", 401, "reason", "user no longer exists", "user_id", id.String())
			return nil, apperr.Unauthorized("Invalid access token")
		}
		l.Error("auth_failed", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while authenticating", err)
	}
	return user, nil
}

func bearer(c echo.Context) string {
	if ck, err := c.Cookie(jwthelp.AccessCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// CurrentUser returns the identity attached by the guard, or nil.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(userKey).(*models.User)
	return u
}
