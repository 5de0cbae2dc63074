package transport

import "github.com/Skotchmaster/videohub/internal/models"

type RegisterRequest struct {
	Username string `form:"username" json:"username" validate:"required,max=64"`
	FullName string `form:"fullName" json:"fullName" validate:"required,max=128"`
	Email    string `form:"email"    json:"email"    validate:"required,email"`
	Password string `form:"password" json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest needs one of Username or Email.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email"    form:"email"    validate:"omitempty,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

type UpdateProfileRequest struct {
	FullName string `json:"fullName" validate:"required,max=128"`
	Email    string `json:"email"    validate:"required,email"`
}

type SearchQuery struct {
	Q    string `query:"q"`
	Page int    `query:"page"`
	Size int    `query:"size"`
}

type LoginResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
