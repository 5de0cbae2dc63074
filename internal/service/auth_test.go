package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/videohub/internal/apperr"
	"github.com/Skotchmaster/videohub/internal/events"
	"github.com/Skotchmaster/videohub/internal/models"
	jwthelp "github.com/Skotchmaster/videohub/pkg/jwt"
)

func countUsers(t *testing.T, h *harness) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.repo.DB.Model(&models.User{}).Count(&n).Error)
	return n
}

func TestRegister_Success(t *testing.T) {
	h := newHarness(t)
	in := registerInput("Alice")
	in.CoverImagePath = "/tmp/alice-cover.png"

	u, err := h.auth.Register(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "https://cdn.example.com/media//tmp/Alice-avatar.png", u.Avatar)
	assert.Equal(t, "https://cdn.example.com/media//tmp/alice-cover.png", u.CoverImage)
	assert.Empty(t, u.Password)
	assert.Nil(t, u.RefreshToken)

	assert.Contains(t, h.index.docs, u.ID.String())
	require.Equal(t, 1, h.pub.count())
	assert.Equal(t, events.UserRegistered, h.pub.events[0].(events.UserEvent).Type)
	assert.Contains(t, h.rec.seen, recordedEvent{"register", "success"})
}

func TestRegister_ValidationAndUpload(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		kind   error
		code   int
	}{
		{"missing username", func(in *RegisterInput) { in.Username = "" }, apperr.ErrValidation, http.StatusBadRequest},
		{"missing full name", func(in *RegisterInput) { in.FullName = "  " }, apperr.ErrValidation, http.StatusBadRequest},
		{"missing email", func(in *RegisterInput) { in.Email = "" }, apperr.ErrValidation, http.StatusBadRequest},
		{"missing password", func(in *RegisterInput) { in.Password = "" }, apperr.ErrValidation, http.StatusBadRequest},
		{"missing avatar", func(in *RegisterInput) { in.AvatarPath = "" }, apperr.ErrUpload, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			in := registerInput("bob")
			tt.mutate(&in)

			_, err := h.auth.Register(context.Background(), in)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.code, apperr.StatusCode(err))
			assert.Zero(t, countUsers(t, h))
			assert.Empty(t, h.media.uploads)
		})
	}
}

func TestRegister_AvatarUploadFails(t *testing.T) {
	h := newHarness(t)
	in := registerInput("carol")
	h.media.fail[in.AvatarPath] = errBoom

	_, err := h.auth.Register(context.Background(), in)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusCode(err))
	assert.Zero(t, countUsers(t, h))
}

func TestRegister_CoverFailureDiscardsAvatar(t *testing.T) {
	h := newHarness(t)
	in := registerInput("dave")
	in.CoverImagePath = "/tmp/dave-cover.png"
	h.media.fail[in.CoverImagePath] = errBoom

	_, err := h.auth.Register(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.Equal(t, []string{"media/" + in.AvatarPath}, h.media.deleted)
	assert.Zero(t, countUsers(t, h))
}

func TestRegister_Conflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("same username", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.auth.Register(ctx, registerInput("erin"))
		require.NoError(t, err)

		in := registerInput("erin")
		in.Email = "other@example.com"
		in.FullName = "Someone Else"
		_, err = h.auth.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, http.StatusConflict, apperr.StatusCode(err))
	})

	t.Run("same email", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.auth.Register(ctx, registerInput("frank"))
		require.NoError(t, err)

		in := registerInput("frank2")
		in.Email = "frank@example.com"
		_, err = h.auth.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("same full name compensates uploads", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.auth.Register(ctx, registerInput("gina"))
		require.NoError(t, err)

		in := registerInput("gina2")
		in.FullName = "Full gina"
		_, err = h.auth.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, []string{"media/" + in.AvatarPath}, h.media.deleted)
		assert.EqualValues(t, 1, countUsers(t, h))
	})
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.auth.Register(ctx, registerInput("henry"))
	require.NoError(t, err)

	t.Run("by username", func(t *testing.T) {
		res, err := h.auth.Login(ctx, LoginInput{Username: "HENRY", Password: "Secret123"})
		require.NoError(t, err)

		assert.Equal(t, u.ID, res.User.ID)
		assert.Empty(t, res.User.Password)
		assert.Nil(t, res.User.RefreshToken)

		claims, err := h.codec.VerifyAccessToken(res.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, u.ID.String(), claims.Subject)
		assert.Equal(t, "henry", claims.Username)

		stored, err := h.repo.FindByID(ctx, u.ID, false)
		require.NoError(t, err)
		require.NotNil(t, stored.RefreshToken)
		assert.Equal(t, jwthelp.Sha256Hex(res.RefreshToken), *stored.RefreshToken)
	})

	t.Run("by email", func(t *testing.T) {
		_, err := h.auth.Login(ctx, LoginInput{Email: "henry@example.com", Password: "Secret123"})
		require.NoError(t, err)
	})

	t.Run("no identifier", func(t *testing.T) {
		_, err := h.auth.Login(ctx, LoginInput{Password: "Secret123"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := h.auth.Login(ctx, LoginInput{Username: "nobody", Password: "Secret123"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := h.auth.Login(ctx, LoginInput{Username: "henry", Password: "nope"})
		assert.ErrorIs(t, err, apperr.ErrAuth)
		assert.Equal(t, http.StatusUnauthorized, apperr.StatusCode(err))
	})
}

func TestRefresh_RotatesAndRejectsReuse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.Register(ctx, registerInput("iris"))
	require.NoError(t, err)

	first, err := h.auth.Login(ctx, LoginInput{Username: "iris", Password: "Secret123"})
	require.NoError(t, err)

	second, err := h.auth.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = h.auth.Refresh(ctx, first.RefreshToken)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, http.StatusUnauthorized, apperr.StatusCode(err))

	third, err := h.auth.Refresh(ctx, second.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, third.AccessToken)
}

func TestRefresh_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := h.auth.Refresh(ctx, "")
		assert.ErrorIs(t, err, apperr.ErrAuth)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := h.auth.Refresh(ctx, "not-a-token")
		assert.ErrorIs(t, err, apperr.ErrAuth)
	})

	t.Run("access token in place of refresh", func(t *testing.T) {
		tok, _, err := h.codec.IssueAccessToken(tokensIdentity(uuid.New()))
		require.NoError(t, err)
		_, err = h.auth.Refresh(ctx, tok)
		assert.ErrorIs(t, err, apperr.ErrAuth)
	})

	t.Run("unknown user", func(t *testing.T) {
		tok, _, err := h.codec.IssueRefreshToken(uuid.NewString())
		require.NoError(t, err)
		_, err = h.auth.Refresh(ctx, tok)
		assert.ErrorIs(t, err, apperr.ErrAuth)
	})

	t.Run("after logout", func(t *testing.T) {
		u, err := h.auth.Register(ctx, registerInput("jack"))
		require.NoError(t, err)
		res, err := h.auth.Login(ctx, LoginInput{Username: "jack", Password: "Secret123"})
		require.NoError(t, err)

		require.NoError(t, h.auth.Logout(ctx, u.ID))
		_, err = h.auth.Refresh(ctx, res.RefreshToken)
		assert.ErrorIs(t, err, apperr.ErrAuth)
	})
}

func TestRefresh_ConcurrentRotationHasOneWinner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.auth.Register(ctx, registerInput("kate"))
	require.NoError(t, err)
	res, err := h.auth.Login(ctx, LoginInput{Username: "kate", Password: "Secret123"})
	require.NoError(t, err)

	const racers = 4
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		authErr int
	)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.auth.Refresh(ctx, res.RefreshToken)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperr.ErrAuth):
				authErr++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, authErr)
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.auth.Register(ctx, registerInput("liam"))
	require.NoError(t, err)

	before, err := h.repo.FindByID(ctx, u.ID, false)
	require.NoError(t, err)

	err = h.auth.ChangePassword(ctx, u.ID, "wrong", "NewSecret1")
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))

	after, err := h.repo.FindByID(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Equal(t, before.Password, after.Password)

	require.NoError(t, h.auth.ChangePassword(ctx, u.ID, "Secret123", "NewSecret1"))

	_, err = h.auth.Login(ctx, LoginInput{Username: "liam", Password: "Secret123"})
	assert.ErrorIs(t, err, apperr.ErrAuth)
	_, err = h.auth.Login(ctx, LoginInput{Username: "liam", Password: "NewSecret1"})
	assert.NoError(t, err)

	err = h.auth.ChangePassword(ctx, u.ID, "", "x")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestPasswordByteLimit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	long := strings.Repeat("é", 40)

	in := registerInput("mia")
	in.Password = long
	_, err := h.auth.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))
	assert.Empty(t, h.media.uploads)
	assert.Zero(t, countUsers(t, h))

	u, err := h.auth.Register(ctx, registerInput("mia"))
	require.NoError(t, err)
	before, err := h.repo.FindByID(ctx, u.ID, false)
	require.NoError(t, err)

	err = h.auth.ChangePassword(ctx, u.ID, "Secret123", long)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))

	after, err := h.repo.FindByID(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Equal(t, before.Password, after.Password)
}

func TestUpdateProfile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.auth.Register(ctx, registerInput("mia"))
	require.NoError(t, err)
	_, err = h.auth.Register(ctx, registerInput("noah"))
	require.NoError(t, err)

	updated, err := h.auth.UpdateProfile(ctx, u.ID, "X", "y@z.com")
	require.NoError(t, err)
	assert.Equal(t, "X", updated.FullName)
	assert.Equal(t, "y@z.com", updated.Email)
	assert.Empty(t, updated.Password)
	assert.Nil(t, updated.RefreshToken)
	assert.Equal(t, "X", h.index.docs[u.ID.String()].FullName)

	current, err := h.repo.FindByID(ctx, u.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "X", current.FullName)
	assert.Equal(t, "y@z.com", current.Email)

	_, err = h.auth.UpdateProfile(ctx, u.ID, "", "y@z.com")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = h.auth.UpdateProfile(ctx, u.ID, "Other", "noah@example.com")
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateImages(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.auth.Register(ctx, registerInput("olga"))
	require.NoError(t, err)

	updated, err := h.auth.UpdateAvatar(ctx, u.ID, "/tmp/new-avatar.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media//tmp/new-avatar.png", updated.Avatar)

	updated, err = h.auth.UpdateCoverImage(ctx, u.ID, "/tmp/new-cover.png")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media//tmp/new-cover.png", updated.CoverImage)

	_, err = h.auth.UpdateAvatar(ctx, u.ID, "")
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))

	h.media.fail["/tmp/broken.png"] = errBoom
	_, err = h.auth.UpdateCoverImage(ctx, u.ID, "/tmp/broken.png")
	assert.ErrorIs(t, err, apperr.ErrUpload)
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusCode(err))
}

func TestLogout_ClearsRefreshToken(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.auth.Register(ctx, registerInput("paul"))
	require.NoError(t, err)
	_, err = h.auth.Login(ctx, LoginInput{Username: "paul", Password: "Secret123"})
	require.NoError(t, err)

	require.NoError(t, h.auth.Logout(ctx, u.ID))

	stored, err := h.repo.FindByID(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Nil(t, stored.RefreshToken)

	err = h.auth.Logout(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
