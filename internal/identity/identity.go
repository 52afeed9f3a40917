// Package identity maps an inbound request to the single owner key under
// which carts and shipping profiles are scoped: an authenticated user id or
// an anonymous session token, never both.
package identity

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var ErrMissingIdentity = errors.New("missing identity")

type OwnerKey struct {
	UserID       uint
	SessionToken string
}

func Authenticated(userID uint) OwnerKey {
	return OwnerKey{UserID: userID}
}

func Anonymous(token string) OwnerKey {
	return OwnerKey{SessionToken: token}
}

func (k OwnerKey) IsAuthenticated() bool { return k.UserID != 0 }

func (k OwnerKey) IsZero() bool { return k.UserID == 0 && k.SessionToken == "" }

type Resolver struct {
	JWTSecret []byte
}

// Resolve returns the owner key for a request. An authenticated user always
// wins; otherwise the caller-supplied session token is used. Neither present
// is ErrMissingIdentity. No side effects.
func (r *Resolver) Resolve(c echo.Context, sessionToken string) (OwnerKey, error) {
	if userID, err := r.userFromCookie(c); err == nil {
		return Authenticated(userID), nil
	}
	if sessionToken != "" {
		return Anonymous(sessionToken), nil
	}
	return OwnerKey{}, ErrMissingIdentity
}

func (r *Resolver) userFromCookie(c echo.Context) (uint, error) {
	cookie, err := c.Cookie("accessToken")
	if err != nil || cookie.Value == "" {
		return 0, ErrMissingIdentity
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrMissingIdentity
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrMissingIdentity
	}
	subRaw, ok := claims["sub"].(float64)
	if !ok || subRaw <= 0 {
		return 0, ErrMissingIdentity
	}
	return uint(subRaw), nil
}
