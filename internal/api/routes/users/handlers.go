// Package users contains handlers for accounts, sessions and profiles.
package users

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"

	apiError "github.com/msegal/heirloom/internal/api/error"
	"github.com/msegal/heirloom/internal/api/requestid"
	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/argon2id"
	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/filestore"
	"github.com/msegal/heirloom/internal/form"
	mJson "github.com/msegal/heirloom/internal/json"
	"github.com/msegal/heirloom/internal/password"
	"github.com/msegal/heirloom/internal/store"
	"github.com/msegal/heirloom/internal/user"
)

// HandleSignup godoc
//
//	@Summary	Create an account.
//	@Tags		Users
//	@Accept		json
//	@Param		request	body		SignupRequest	true	"Signup Request"
//	@Success	200		{object}	SignupResponse
//	@Failure	409		{object}	apiError.Error	"Email already in use"
//	@Failure	422		{object}	apiError.Error	"Weak password"
//	@Router		/api/signup [post]
func HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	// Decode JSON
	var request SignupRequest
	e.Logger.DebugContext(ctx, "reading request body")
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := mJson.Decode(&request, decoder); err != nil {
		e.Logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(request); err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}

	// Ensure password strength
	e.Logger.DebugContext(ctx, "validating password")
	if err := password.Validate(request.Password); err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate password", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.WeakPassword, err.Error(), requestID) // OK to share the error with the client.
		return
	}

	// Hash password
	e.Logger.DebugContext(ctx, "hashing password")
	hash, err := argon2id.EncodeHash(request.Password, argon2id.DefaultParams)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	// Create user
	e.Logger.DebugContext(ctx, "creating user")
	u := user.User{
		ID:          ulid.Make().String(),
		Email:       request.Email,
		DisplayName: request.DisplayName,
		LastLogin:   time.Now().UTC(),
	}
	err = e.Store.CreateUser(ctx, u, hash)
	if errors.Is(err, store.ErrEmailConflict) {
		e.Logger.ErrorContext(ctx, "user with email already exists", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.EmailConflict, "email already in use", requestID)
		return
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, SignupResponse{UserID: u.ID})
}

// HandleLogin godoc
//
//	@Summary	Log in and receive a session cookie.
//	@Tags		Users
//	@Accept		json
//	@Param		request	body	LoginRequest	true	"Login Request"
//	@Success	200		{object}	SessionResponse
//	@Failure	401		{object}	apiError.Error	"Invalid credentials"
//	@Router		/api/login [post]
func HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	// Decode JSON
	var request LoginRequest
	e.Logger.DebugContext(ctx, "reading request body")
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := mJson.Decode(&request, decoder); err != nil {
		e.Logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(request); err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}

	// Retrieve user
	e.Logger.DebugContext(ctx, "retrieving user")
	u, hash, err := e.Store.GetUserByEmail(ctx, request.Email)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "user not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.InvalidCredentials, "invalid credentials", requestID)
		return
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	// Verify password
	e.Logger.DebugContext(ctx, "verifying password")
	match, err := argon2id.ComparePasswordAndHash(request.Password, hash)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to compare password", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if !match {
		e.Logger.ErrorContext(ctx, "password mismatch")
		_ = apiError.EncodeError(w, apiError.InvalidCredentials, "invalid credentials", requestID)
		return
	}

	// Record the sign-in. A failure here is logged but does not block
	// the session: the identity merge only touches lastLogin.
	if err := e.Store.TouchLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		e.Logger.ErrorContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	// Issue session cookie
	e.Logger.DebugContext(ctx, "issuing session")
	accessToken, err := token.NewAccessToken(u.ID, e)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to create access token", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	http.SetCookie(w, token.NewAccessTokenCookie(accessToken, e))

	writeJSON(w, r, newSessionResponse(u))
}

// HandleLogout godoc
//
//	@Summary	Log out, clearing the session cookie.
//	@Tags		Users
//	@Success	204	"Logged out"
//	@Router		/api/logout [post]
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	e := env.FromCtx(r.Context())
	http.SetCookie(w, token.ExpiredAccessTokenCookie(e))
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSession godoc
//
//	@Summary	Return the signed-in identity.
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	SessionResponse
//	@Failure	401	{object}	apiError.Error	"Not signed in"
//	@Security	AccessTokenCookie
//	@Router		/api/session [get]
func HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	u, err := e.Store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "session user not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UserNotFound, "user not found", requestID)
		return
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, newSessionResponse(u))
}

// HandleGetUser godoc
//
//	@Summary	Public profile of a user.
//	@Tags		Users
//	@Produce	json
//	@Param		userID	path		string	true	"User ID"
//	@Success	200		{object}	ProfileResponse
//	@Failure	404		{object}	apiError.Error	"User not found"
//	@Router		/api/users/{userID} [get]
func HandleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	u, err := e.Store.GetUser(ctx, chi.URLParam(r, "userID"))
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "user not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UserNotFound, "user not found", requestID)
		return
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, ProfileResponse{
		UID:         u.ID,
		DisplayName: u.Name(),
		PhotoURL:    u.PhotoURL,
	})
}

// HandleUpdateProfile godoc
//
//	@Summary	Update the signed-in user's profile.
//	@Tags		Users
//	@Accept		json
//	@Param		request	body		UpdateProfileRequest	true	"Profile patch"
//	@Success	200		{object}	SessionResponse
//	@Security	AccessTokenCookie
//	@Router		/api/users/me [patch]
func HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	// Decode JSON
	var request UpdateProfileRequest
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := mJson.Decode(&request, decoder); err != nil {
		e.Logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(request); err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}

	u, err := e.Store.GetUser(ctx, userID)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	if request.DisplayName != nil {
		u.DisplayName = *request.DisplayName
	}
	if err := e.Store.UpdateUser(ctx, u); err != nil {
		e.Logger.ErrorContext(ctx, "failed to update user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, newSessionResponse(u))
}

// HandleUploadProfilePhoto godoc
//
//	@Summary	Upload a profile photo.
//	@Tags		Users
//	@Accept		multipart/form-data
//	@Param		image	formData	file	true	"Profile photo"
//	@Success	200		{object}	PhotoResponse
//	@Failure	413		{object}	apiError.Error	"Image too large"
//	@Failure	415		{object}	apiError.Error	"Unsupported image type"
//	@Security	AccessTokenCookie
//	@Router		/api/users/me/photo [put]
func HandleUploadProfilePhoto(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	// Read image
	e.Logger.DebugContext(ctx, "reading image")
	r.Body = http.MaxBytesReader(w, r.Body, form.MaxImageSize+1024)
	image, err := form.ReadImage(r, "image")
	if errors.Is(err, form.ErrNoImageUploaded) {
		e.Logger.ErrorContext(ctx, "no image uploaded")
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an image in the form", requestID)
		return
	} else if errors.Is(err, form.ErrImageTooLarge) {
		e.Logger.ErrorContext(ctx, "image too large", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.ImageTooLarge, "image exceeds 5MB", requestID)
		return
	} else if errors.Is(err, form.ErrUnsupportedMimeType) {
		e.Logger.ErrorContext(ctx, "unsupported file type", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UnsupportedImageType, "invalid file type", requestID)
		return
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to read image", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	// Upload and patch the profile
	e.Logger.DebugContext(ctx, "uploading image")
	photoURL, err := e.Files.Put(ctx,
		filestore.ProfilePhotoPath(userID, image.Suffix), image.Data, image.MimeType)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to upload photo", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	u, err := e.Store.GetUser(ctx, userID)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	u.PhotoURL = photoURL
	if err := e.Store.UpdateUser(ctx, u); err != nil {
		e.Logger.ErrorContext(ctx, "failed to update user", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, PhotoResponse{PhotoURL: photoURL})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	e := env.FromCtx(r.Context())
	resp, err := json.Marshal(v)
	if err != nil {
		e.Logger.ErrorContext(r.Context(), "failed to marshal response", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, strconv.FormatUint(requestid.Extract(r.Context()), 10))
		return
	}
	w.Header().Add("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		e.Logger.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}
