package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/middleware"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/service"
	"github.com/Skotchmaster/videohub/internal/transport"
	jwthelp "github.com/Skotchmaster/videohub/pkg/jwt"
	"github.com/Skotchmaster/videohub/pkg/logging"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
	TempDir      string
}

type imageUpdater func(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error)

func (h *AuthHTTP) setSession(c echo.Context, res *service.LoginResult) {
	c.SetCookie(jwthelp.CreateCookie(jwthelp.AccessCookie, res.AccessToken, "/", res.AccessExp, h.CookieSecure))
	c.SetCookie(jwthelp.CreateCookie(jwthelp.RefreshCookie, res.RefreshToken, "/", res.RefreshExp, h.CookieSecure))
}

func (h *AuthHTTP) clearSession(c echo.Context) {
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.AccessCookie, "/", h.CookieSecure))
	c.SetCookie(jwthelp.DeleteCookie(jwthelp.RefreshCookie, "/", h.CookieSecure))
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	avatar, err := stageFile(c, "avatar", h.TempDir)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "stage avatar", "error", err)
		return apperr.Upload(http.StatusInternalServerError, "Failed to read avatar file").WithCause(err)
	}
	cover, err := stageFile(c, "coverImage", h.TempDir)
	if err != nil {
		unstage(avatar)
		l.Error("register_error", "status", 500, "reason", "stage cover image", "error", err)
		return apperr.Upload(http.StatusInternalServerError, "Failed to read cover image file").WithCause(err)
	}
	defer unstage(avatar, cover)

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return apperr.Validation("Invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{
		Username:       req.Username,
		FullName:       req.FullName,
		Email:          req.Email,
		Password:       req.Password,
		AvatarPath:     avatar,
		CoverImagePath: cover,
	})
	if err != nil {
		return err
	}

	return respond(c, http.StatusCreated, user, "User registered Successfully")
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperr.Validation("Invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	res, err := h.Svc.Login(ctx, service.LoginInput{Username: req.Username, Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}

	h.setSession(c, res)
	return respond(c, http.StatusOK, transport.LoginResponse{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}, "User logged In Successfully")
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	if err := h.Svc.Logout(c.Request().Context(), user.ID); err != nil {
		return err
	}

	h.clearSession(c)
	return respond(c, http.StatusOK, nil, "User logged Out")
}

// Refresh takes the token from the refreshToken cookie, falling back to the body.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var incoming string
	if ck, err := c.Cookie(jwthelp.RefreshCookie); err == nil {
		incoming = ck.Value
	}
	if incoming == "" {
		var req transport.RefreshRequest
		if err := c.Bind(&req); err == nil {
			incoming = req.RefreshToken
		}
	}

	res, err := h.Svc.Refresh(ctx, incoming)
	if err != nil {
		return err
	}

	h.setSession(c, res)
	return respond(c, http.StatusOK, transport.TokenPair{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}, "Access token refreshed")
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.Svc.ChangePassword(c.Request().Context(), user.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil, "Password changed successfully")
}

// CurrentUser echoes the identity the guard already resolved.
func (h *AuthHTTP) CurrentUser(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}
	return respond(c, http.StatusOK, user, "User fetched successfully")
}

func (h *AuthHTTP) UpdateProfile(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	var req transport.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("Invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	updated, err := h.Svc.UpdateProfile(c.Request().Context(), user.ID, req.FullName, req.Email)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, updated, "Account details updated successfully")
}

func (h *AuthHTTP) UpdateAvatar(c echo.Context) error {
	return h.updateImage(c, "avatar", h.Svc.UpdateAvatar, "Avatar image updated successfully")
}

func (h *AuthHTTP) UpdateCoverImage(c echo.Context) error {
	return h.updateImage(c, "coverImage", h.Svc.UpdateCoverImage, "Cover image updated successfully")
}

func (h *AuthHTTP) updateImage(c echo.Context, field string, update imageUpdater, msg string) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apperr.Unauthorized("Unauthorized request")
	}

	path, err := stageFile(c, field, h.TempDir)
	if err != nil {
		logging.FromContext(c.Request().Context()).Error("stage_failed", "handler", "auth_update_"+field, "error", err)
		return apperr.Upload(http.StatusInternalServerError, "Failed to read "+field+" file").WithCause(err)
	}
	defer unstage(path)

	updated, err := update(c.Request().Context(), user.ID, path)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, updated, msg)
}
