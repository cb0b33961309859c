// Package token contains utilities for session cookies.
package token

import (
	"context"
	"errors"
	"net/http"

	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/jwt"
)

const accessTokenLifetime = 60 * 60 // 1 hour, matches the JWT exp

func AccessTokenName(e *env.Env) string {
	if e.Config.IsProd() {
		return "__Host-Heirloom-access"
	}
	return "access"
}

// NewAccessToken signs a JWT for the user with the configured app secret.
func NewAccessToken(userID string, e *env.Env) (string, error) {
	secret := e.Config.AppSecret.Value
	if secret == "" {
		return "", errors.New("app secret not configured")
	}
	version := e.Config.AppSecret.Version
	if version == "" {
		version = jwt.DefaultKID
	}
	return jwt.Generate(userID, []byte(secret), version)
}

func NewAccessTokenCookie(token string, e *env.Env) *http.Cookie {
	return &http.Cookie{
		Name:     AccessTokenName(e),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   accessTokenLifetime,
		SameSite: http.SameSiteLaxMode,
		Secure:   e.Config.IsProd(),
	}
}

// ExpiredAccessTokenCookie clears the session cookie on logout.
func ExpiredAccessTokenCookie(e *env.Env) *http.Cookie {
	return &http.Cookie{
		Name:     AccessTokenName(e),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
		Secure:   e.Config.IsProd(),
	}
}

type userIDKeyType struct{}

var userIDKey userIDKeyType

var ErrNoUserID = errors.New("no user id in context")

func UserIDWithCtx(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromCtx returns the authenticated user's id, or ErrNoUserID when
// the request carries no valid session.
func UserIDFromCtx(ctx context.Context) (string, error) {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id, nil
	}
	return "", ErrNoUserID
}

// OptionalUserID returns the session user id or "" for anonymous
// requests. List endpoints use it for visibility filtering.
func OptionalUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}
