// Package middleware contains middleware functions for the API.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	apiError "github.com/msegal/heirloom/internal/api/error"
	"github.com/msegal/heirloom/internal/api/requestid"
	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/config"
	"github.com/msegal/heirloom/internal/env"
	hJwt "github.com/msegal/heirloom/internal/jwt"
	"github.com/msegal/heirloom/internal/log"
)

// RequestTimeout bounds every request so a hung store call surfaces as a
// visible failure instead of an open connection.
const RequestTimeout = 30 * time.Second

// InjectEnv injects the environment struct into the request context.
func InjectEnv(environment *env.Env) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(env.WithCtx(r.Context(), environment)))
		})
	}
}

func LogRequest(logger *slog.Logger) func(http.Handler) http.Handler {
	return httplog.RequestLogger(logger, &httplog.Options{
		LogExtraAttrs: func(r *http.Request, reqBody string, respStatus int) []slog.Attr {
			if id := requestid.Extract(r.Context()); id != 0 {
				return []slog.Attr{slog.Uint64("log_id", id)}
			}
			return []slog.Attr{slog.String("log_id", "N/A")}
		},
	})
}

// AddRequestID adds a request id to the request context.
func AddRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := ulid.Now()
		r = r.WithContext(log.AppendCtx(r.Context(), slog.Uint64("log_id", requestID)))
		r = r.WithContext(requestid.Inject(r.Context(), requestID))
		next.ServeHTTP(w, r)
	})
}

// AddTimeout caps the request context at RequestTimeout.
func AddTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AddCors adds the necessary CORS headers to the response.
func AddCors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := env.FromCtx(r.Context())
		origin := r.Header.Get("Origin")

		allowedOrigin := e.Config.HostOrigin
		if e.Config.Env != config.EnvProd && origin != "" {
			// In dev mode, allow all origins.
			allowedOrigin = origin
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Max-Age", "86400")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Authenticate resolves the session cookie into a user id in the request
// context when present. Requests without a valid cookie pass through
// anonymously; RequireUser gates endpoints that need an identity.
func Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := env.FromCtx(r.Context())

		cookie, err := r.Cookie(token.AccessTokenName(e))
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := validateSession(e, cookie.Value)
		if err != nil {
			e.Logger.DebugContext(r.Context(), "ignoring invalid session cookie",
				slog.Any("error", err))
			next.ServeHTTP(w, r)
			return
		}

		r = r.WithContext(log.AppendCtx(r.Context(), slog.String("user-id", userID)))
		r = r.WithContext(token.UserIDWithCtx(r.Context(), userID))
		next.ServeHTTP(w, r)
	})
}

// RequireUser rejects requests that did not authenticate.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e := env.FromCtx(r.Context())
		requestID := strconv.FormatUint(requestid.Extract(r.Context()), 10)

		cookie, err := r.Cookie(token.AccessTokenName(e))
		if err != nil {
			e.Logger.ErrorContext(r.Context(), "unable to get access token", slog.Any("error", err))
			_ = apiError.EncodeError(w, apiError.InvalidAccessToken, "invalid access token", requestID)
			return
		}

		userID, err := validateSession(e, cookie.Value)
		if errors.Is(err, jwt.ErrTokenExpired) {
			e.Logger.ErrorContext(r.Context(), "access token expired", slog.Any("error", err))
			_ = apiError.EncodeError(w, apiError.ExpiredAccessToken, "access token expired", requestID)
			return
		} else if err != nil {
			e.Logger.ErrorContext(r.Context(), "invalid access token", slog.Any("error", err))
			_ = apiError.EncodeError(w, apiError.InvalidAccessToken, "invalid access token", requestID)
			return
		}

		r = r.WithContext(log.AppendCtx(r.Context(), slog.String("user-id", userID)))
		r = r.WithContext(token.UserIDWithCtx(r.Context(), userID))
		next.ServeHTTP(w, r)
	})
}

func validateSession(e *env.Env, rawToken string) (string, error) {
	secret := e.Config.AppSecret.Value
	if secret == "" {
		return "", errors.New("app secret not configured")
	}
	version := e.Config.AppSecret.Version
	if version == "" {
		version = hJwt.DefaultKID
	}

	parsed, err := hJwt.Validate(rawToken, version, []byte(secret))
	if err != nil {
		return "", err
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if sub == "" {
		return "", errors.New("empty subject in jwt")
	}
	return sub, nil
}
