package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers malformed, expired and wrongly signed tokens alike.
var ErrInvalidToken = errors.New("invalid token")

// Token types carried in the typ claim. A token is only accepted as its own type.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Type     string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

func Sign(claims jwt.Claims, secret []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func AccessClaimsFromToken(tokenStr string, accessSecret []byte) (*AccessClaims, error) {
	return AccessClaimsAt(tokenStr, accessSecret, time.Now)
}

func RefreshClaimsFromToken(tokenStr string, refreshSecret []byte) (*RefreshClaims, error) {
	return RefreshClaimsAt(tokenStr, refreshSecret, time.Now)
}

func AccessClaimsAt(tokenStr string, accessSecret []byte, now func() time.Time) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parse(tokenStr, &claims, accessSecret, now); err != nil {
		return nil, err
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: not an access token", ErrInvalidToken)
	}
	return &claims, nil
}

func RefreshClaimsAt(tokenStr string, refreshSecret []byte, now func() time.Time) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parse(tokenStr, &claims, refreshSecret, now); err != nil {
		return nil, err
	}
	if claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	return &claims, nil
}

func parse(tokenStr string, claims jwt.Claims, secret []byte, now func() time.Time) error {
	if tokenStr == "" {
		return ErrInvalidToken
	}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return nil
}
