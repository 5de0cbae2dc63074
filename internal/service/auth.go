package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/media"
	"github.com/Skotchmaster/videohub/internal/metrics"
	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/internal/repo"
	"github.com/Skotchmaster/videohub/internal/search"
	pkg_hash "github.com/Skotchmaster/videohub/pkg/hash"
	jwthelp "github.com/Skotchmaster/videohub/pkg/jwt"
	"github.com/Skotchmaster/videohub/pkg/logging"
	"github.com/Skotchmaster/videohub/pkg/tokens"
)

// AuthService drives the session lifecycle and profile mutations.
type AuthService struct {
	Repo    *repo.GormRepo
	Codec   *tokens.Codec
	Media   MediaStore
	Events  EventPublisher
	Index   ChannelIndexer
	Metrics metrics.AuthRecorder
}

// NewAuthService fills nil collaborators with no-ops.
func NewAuthService(r *repo.GormRepo, codec *tokens.Codec, store MediaStore, pub EventPublisher, idx ChannelIndexer, rec metrics.AuthRecorder) *AuthService {
	if pub == nil {
		pub = events.Nop{}
	}
	if idx == nil {
		idx = search.Nop{}
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{Repo: r, Codec: codec, Media: store, Events: pub, Index: idx, Metrics: rec}
}

type RegisterInput struct {
	Username       string
	FullName       string
	Email          string
	Password       string
	AvatarPath     string
	CoverImagePath string
}

type LoginInput struct {
	Username string
	Email    string
	Password string
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

func channelDoc(u *models.User) search.ChannelDoc {
	return search.ChannelDoc{ID: u.ID.String(), Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"username", in.Username},
		{"fullName", in.FullName},
		{"email", in.Email},
		{"password", in.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		l.Warn("register_failed", "status", 400, "reason", "missing fields")
		s.Metrics.RecordAuthEvent("register", metrics.OutcomeFailure)
		return nil, apperr.Validation("All fields are required", missing...)
	}
	if len(in.Password) > pkg_hash.MaxPasswordBytes {
		l.Warn("register_failed", "status", 400, "reason", "password too long")
		s.Metrics.RecordAuthEvent("register", metrics.OutcomeFailure)
		return nil, passwordTooLong()
	}

	existing, err := s.Repo.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil && existing != nil:
		l.Warn("register_failed", "status", 409, "reason", "user already exists")
		s.Metrics.RecordAuthEvent("register", metrics.OutcomeFailure)
		return nil, apperr.Conflict("User with email or username already exists")
	case err != nil && !errors.Is(err, repo.ErrUserNotFound):
		l.Error("register_failed", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while registering the user", err)
	}

	if in.AvatarPath == "" {
		s.Metrics.RecordAuthEvent("register", metrics.OutcomeFailure)
		return nil, apperr.Upload(http.StatusBadRequest, "Avatar file is required")
	}

	avatar, err := s.Media.Upload(ctx, in.AvatarPath)
	if err != nil {
		l.Error("register_failed", "status", 500, "reason", "avatar upload", "error", err)
		s.Metrics.RecordAuthEvent("register", metrics.OutcomeFailure)
		return nil, uploadError(err, "Avatar file is required", "Failed to upload avatar")
	}
	uploaded := []*media.Asset{avatar}

	var cover *media.Asset
	if in.CoverImagePath != "" {
		cover, err = s.Media.Upload(ctx, in.CoverImagePath)
		if err != nil {
			l.Error("register_failed", "status", 500, "reason", "cover upload", "error", err)
			s.discard(ctx, uploaded)
			s.Metrics.RecordAuthEvent("register", metrics.OutcomeFailure)
			return nil, uploadError(err, "Cover image file is missing", "Failed to upload cover image")
		}
		uploaded = append(uploaded, cover)
	}

	u := &models.User{
		Username: in.Username,
		FullName: in.FullName,
		Email:    in.Email,
		Password: in.Password,
		Avatar:   avatar.URL,
	}
	if cover != nil {
		u.CoverImage = cover.URL
	}

	created, err := s.Repo.CreateUser(ctx, u)
	if err != nil {
		s.discard(ctx, uploaded)
		s.Metrics.RecordAuthEvent("register", metrics.OutcomeFailure)
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("register_failed", "status", 409, "reason", "unique violation")
			return nil, apperr.Conflict("User with email, username or full name already exists")
		}
		if errors.Is(err, pkg_hash.ErrPasswordTooLong) {
			return nil, passwordTooLong()
		}
		l.Error("register_failed", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while registering the user", err)
	}

	index(ctx, s.Index, channelDoc(created))
	publish(ctx, s.Events, events.UserEvent{
		Type: events.UserRegistered, UserID: created.ID.String(), Username: created.Username, At: time.Now().UTC(),
	})
	s.Metrics.RecordAuthEvent("register", metrics.OutcomeSuccess)
	l.Info("register_success", "user_id", created.ID.String())
	return created, nil
}

// discard removes objects uploaded for a registration that did not complete.
func (s *AuthService) discard(ctx context.Context, assets []*media.Asset) {
	for _, a := range assets {
		if err := s.Media.Delete(context.WithoutCancel(ctx), a.Key); err != nil {
			logging.FromContext(ctx).Warn("media_cleanup_failed", "key", a.Key, "error", err)
		}
	}
}

func passwordTooLong() *apperr.Error {
	return apperr.Validation("Password is too long", "password must be at most 72 bytes")
}

func uploadError(err error, missingMsg, failedMsg string) error {
	if errors.Is(err, media.ErrNoFile) {
		return apperr.Upload(http.StatusBadRequest, missingMsg).WithCause(err)
	}
	return apperr.Upload(http.StatusInternalServerError, failedMsg).WithCause(err)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if strings.TrimSpace(in.Username) == "" && strings.TrimSpace(in.Email) == "" {
		s.Metrics.RecordAuthEvent("login", metrics.OutcomeFailure)
		return nil, apperr.Validation("username or email is required")
	}

	user, err := s.Repo.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		s.Metrics.RecordAuthEvent("login", metrics.OutcomeFailure)
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login_failed", "status", 404, "reason", "user does not exist")
			return nil, apperr.NotFound("User does not exist")
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while logging in", err)
	}

	if !pkg_hash.CheckPassword(user.Password, in.Password) {
		l.Warn("login_failed", "status", 401, "reason", "invalid password", "user_id", user.ID.String())
		s.Metrics.RecordAuthEvent("login", metrics.OutcomeFailure)
		return nil, apperr.Unauthorized("Invalid user credentials")
	}

	res, err := s.generateTokens(ctx, user.ID, func(ctx context.Context, digest string) error {
		return s.Repo.SetRefreshToken(ctx, user.ID, &digest)
	})
	if err != nil {
		l.Error("login_failed", "status", apperr.StatusCode(err), "error", err)
		s.Metrics.RecordAuthEvent("login", metrics.OutcomeFailure)
		return nil, err
	}

	publish(ctx, s.Events, events.UserEvent{
		Type: events.UserLoggedIn, UserID: user.ID.String(), Username: user.Username, At: time.Now().UTC(),
	})
	s.Metrics.RecordAuthEvent("login", metrics.OutcomeSuccess)
	l.Info("login_success", "user_id", user.ID.String())
	return res, nil
}

// generateTokens loads the secrets-free user, mints a pair and hands the
// refresh digest to persist. Only the refresh column is written.
func (s *AuthService) generateTokens(ctx context.Context, userID uuid.UUID, persist func(ctx context.Context, digest string) error) (*LoginResult, error) {
	const failMsg = "Something went wrong while generating refresh and access token"

	user, err := s.Repo.FindByID(ctx, userID, true)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, apperr.Unauthorized("Invalid refresh token")
		}
		return nil, apperr.Internal(failMsg, err)
	}

	access, accessExp, err := s.Codec.IssueAccessToken(tokens.Identity{
		UserID:   user.ID.String(),
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
	})
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}

	refresh, refreshExp, err := s.Codec.IssueRefreshToken(user.ID.String())
	if err != nil {
		return nil, apperr.Internal(failMsg, err)
	}

	if err := persist(ctx, jwthelp.Sha256Hex(refresh)); err != nil {
		if errors.Is(err, repo.ErrStaleRefreshToken) {
			return nil, apperr.Unauthorized("Refresh token is expired or used").WithCause(err)
		}
		return nil, apperr.Internal(failMsg, err)
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh exchanges the stored refresh token for a new pair. The old token
// stops working the moment the swap commits.
func (s *AuthService) Refresh(ctx context.Context, incoming string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	fail := func(status int, reason string, err error) {
		l.Warn("refresh_failed", "status", status, "reason", reason, "error", err)
		s.Metrics.RecordAuthEvent("refresh", metrics.OutcomeFailure)
	}

	if incoming == "" {
		fail(401, "missing token", nil)
		return nil, apperr.Unauthorized("Unauthorized request")
	}

	claims, err := s.Codec.VerifyRefreshToken(incoming)
	if err != nil {
		fail(401, "invalid token", err)
		return nil, apperr.Unauthorized("Invalid refresh token").WithCause(err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		fail(401, "invalid subject", err)
		return nil, apperr.Unauthorized("Invalid refresh token").WithCause(err)
	}

	user, err := s.Repo.FindByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			fail(401, "user not found", err)
			return nil, apperr.Unauthorized("Invalid refresh token")
		}
		fail(500, "lookup", err)
		return nil, apperr.Internal("Something went wrong while refreshing the session", err)
	}

	oldDigest := jwthelp.Sha256Hex(incoming)
	if user.RefreshToken == nil || *user.RefreshToken != oldDigest {
		fail(401, "stale token", nil)
		return nil, apperr.Unauthorized("Refresh token is expired or used")
	}

	res, err := s.generateTokens(ctx, userID, func(ctx context.Context, digest string) error {
		return s.Repo.RotateRefreshToken(ctx, userID, oldDigest, digest)
	})
	if err != nil {
		fail(apperr.StatusCode(err), "rotate", err)
		return nil, err
	}

	s.Metrics.RecordAuthEvent("refresh", metrics.OutcomeSuccess)
	l.Info("refresh_success", "user_id", userID.String())
	return res, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if err := s.Repo.SetRefreshToken(ctx, userID, nil); err != nil {
		s.Metrics.RecordAuthEvent("logout", metrics.OutcomeFailure)
		if errors.Is(err, repo.ErrUserNotFound) {
			return apperr.NotFound("User does not exist")
		}
		l.Error("logout_failed", "status", 500, "error", err)
		return apperr.Internal("Something went wrong while logging out", err)
	}

	publish(ctx, s.Events, events.UserEvent{Type: events.UserLoggedOut, UserID: userID.String(), At: time.Now().UTC()})
	s.Metrics.RecordAuthEvent("logout", metrics.OutcomeSuccess)
	l.Info("logout_success", "user_id", userID.String())
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password")

	if oldPassword == "" || newPassword == "" {
		return apperr.Validation("oldPassword and newPassword are required")
	}
	if len(newPassword) > pkg_hash.MaxPasswordBytes {
		return passwordTooLong()
	}

	user, err := s.Repo.FindByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return apperr.NotFound("User does not exist")
		}
		return apperr.Internal("Something went wrong while changing the password", err)
	}

	if !pkg_hash.CheckPassword(user.Password, oldPassword) {
		l.Warn("change_password_failed", "status", 400, "reason", "invalid old password", "user_id", userID.String())
		s.Metrics.RecordAuthEvent("change_password", metrics.OutcomeFailure)
		return apperr.BadCredentials("Invalid old password")
	}

	if err := s.Repo.SetPassword(ctx, userID, newPassword); err != nil {
		if errors.Is(err, pkg_hash.ErrPasswordTooLong) {
			return passwordTooLong()
		}
		l.Error("change_password_failed", "status", 500, "error", err)
		s.Metrics.RecordAuthEvent("change_password", metrics.OutcomeFailure)
		return apperr.Internal("Something went wrong while changing the password", err)
	}

	publish(ctx, s.Events, events.UserEvent{Type: events.PasswordChanged, UserID: userID.String(), At: time.Now().UTC()})
	s.Metrics.RecordAuthEvent("change_password", metrics.OutcomeSuccess)
	l.Info("change_password_success", "user_id", userID.String())
	return nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName, email string) (*models.User, error) {
	fullName, email = strings.TrimSpace(fullName), strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, apperr.Validation("All fields are required")
	}

	return s.updateUser(ctx, userID, map[string]any{"full_name": fullName, "email": email})
}

func (s *AuthService) UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error) {
	return s.replaceImage(ctx, userID, localPath, "avatar", "Avatar file is missing")
}

func (s *AuthService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (*models.User, error) {
	return s.replaceImage(ctx, userID, localPath, "cover_image", "Cover image file is missing")
}

func (s *AuthService) replaceImage(ctx context.Context, userID uuid.UUID, localPath, column, missingMsg string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.update_"+column)

	if localPath == "" {
		return nil, apperr.Upload(http.StatusBadRequest, missingMsg)
	}

	asset, err := s.Media.Upload(ctx, localPath)
	if err != nil {
		l.Error("upload_failed", "status", 500, "error", err)
		return nil, uploadError(err, missingMsg, "Error while uploading "+strings.ReplaceAll(column, "_", " "))
	}

	return s.updateUser(ctx, userID, map[string]any{column: asset.URL})
}

func (s *AuthService) updateUser(ctx context.Context, userID uuid.UUID, fields map[string]any) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.update_user")

	updated, err := s.Repo.UpdateFields(ctx, userID, fields)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicate):
			return nil, apperr.Conflict("Email or full name is already taken")
		case errors.Is(err, repo.ErrUserNotFound):
			return nil, apperr.NotFound("User does not exist")
		}
		l.Error("update_failed", "status", 500, "error", err)
		return nil, apperr.Internal("Something went wrong while updating the user", err)
	}

	index(ctx, s.Index, channelDoc(updated))
	return updated, nil
}
