package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	jwthelp "github.com/Skotchmaster/videohub/pkg/jwt"
)

// Identity is what an access token asserts about its bearer.
type Identity struct {
	UserID   string
	Email    string
	Username string
	FullName string
}

// Codec issues and verifies the access/refresh token pair. It performs no I/O.
type Codec struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

func NewCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) *Codec {
	return &Codec{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

func (c *Codec) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Codec) IssueAccessToken(id Identity) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.AccessTTL)
	claims := AccessClaims{
		Email:    id.Email,
		Username: id.Username,
		FullName: id.FullName,
		Type:     TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := Sign(claims, c.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// IssueRefreshToken carries only the user id. The random JTI keeps two
// tokens minted in the same second distinct.
func (c *Codec) IssueRefreshToken(userID string) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.RefreshTTL)
	claims := RefreshClaims{
		Type: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jwthelp.NewJTI(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := Sign(claims, c.RefreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (c *Codec) VerifyAccessToken(token string) (*AccessClaims, error) {
	return AccessClaimsAt(token, c.AccessSecret, c.now)
}

func (c *Codec) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	return RefreshClaimsAt(token, c.RefreshSecret, c.now)
}
