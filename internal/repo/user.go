package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/videohub/internal/models"
	"github.com/Skotchmaster/videohub/pkg/hash"
)

var secretColumns = []string{"password", "refresh_token"}

// NormalizeUsername is the canonical stored form of a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// FindByUsernameOrEmail returns the full record, secrets included, for
// credential checks.
func (r *GormRepo) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	username = NormalizeUsername(username)
	email = strings.TrimSpace(email)
	if username == "" && email == "" {
		return nil, ErrUserNotFound
	}

	var user models.User
	err := r.DB.WithContext(ctx).
		Where("username = ? OR email = ?", username, email).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByID(ctx context.Context, id uuid.UUID, excludeSecrets bool) (*models.User, error) {
	var user models.User
	q := r.DB.WithContext(ctx)
	if excludeSecrets {
		q = q.Omit(secretColumns...)
	}
	if err := q.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser normalizes identity fields and hashes u.Password before the
// insert, then returns the stored record without secrets.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Username = NormalizeUsername(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	u.FullName = strings.TrimSpace(u.FullName)

	pwHash, err := hash.HashPassword(u.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.Password = pwHash
	u.RefreshToken = nil

	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	return r.FindByID(ctx, u.ID, true)
}

// UpdateFields applies a partial update and returns the secrets-free record.
func (r *GormRepo) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.User, error) {
	for _, col := range secretColumns {
		delete(fields, col)
	}
	if len(fields) == 0 {
		return r.FindByID(ctx, id, true)
	}

	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return nil, ErrDuplicate
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrUserNotFound
	}

	return r.FindByID(ctx, id, true)
}

// SetRefreshToken stores the digest of the current refresh token, or clears
// it when digest is nil. Only that column is written.
func (r *GormRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, digest *string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("refresh_token", digest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// RotateRefreshToken swaps oldDigest for newDigest only if oldDigest is still
// the stored value. Of two concurrent rotations from the same token, one gets
// ErrStaleRefreshToken.
func (r *GormRepo) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldDigest, newDigest string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", id, oldDigest).
		UpdateColumn("refresh_token", newDigest)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleRefreshToken
	}
	return nil
}

func (r *GormRepo) SetPassword(ctx context.Context, id uuid.UUID, plaintext string) error {
	pwHash, err := hash.HashPassword(plaintext)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("password", pwHash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
