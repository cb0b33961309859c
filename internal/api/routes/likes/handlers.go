// Package likes contains handlers for the like toggle.
package likes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apiError "github.com/msegal/heirloom/internal/api/error"
	"github.com/msegal/heirloom/internal/api/requestid"
	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/store"
)

type LikeResponse struct {
	Liked bool  `json:"liked"`
	Likes int64 `json:"likes"`
}

// HandleToggleLike godoc
//
//	@Summary	Toggle the caller's like on a recipe.
//	@Description	The per-user like record and the denormalized counter
//	@Description	move together in one atomic store operation.
//	@Tags		Likes
//	@Produce	json
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Success	200			{object}	LikeResponse
//	@Failure	404			{object}	apiError.Error	"Recipe not found"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID}/like [post]
func HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	recipeID := chi.URLParam(r, "recipeID")
	if ok := checkVisible(w, r, recipeID, userID, requestID); !ok {
		return
	}

	e.Logger.DebugContext(ctx, "toggling like")
	liked, likes, err := e.Store.ToggleLike(ctx, recipeID, userID)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "recipe not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe not found", requestID)
		return
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to toggle like", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, LikeResponse{Liked: liked, Likes: likes})
}

// HandleGetLike godoc
//
//	@Summary	Whether the caller has liked a recipe.
//	@Tags		Likes
//	@Produce	json
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Success	200			{object}	LikeResponse
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID}/like [get]
func HandleGetLike(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	recipeID := chi.URLParam(r, "recipeID")
	if ok := checkVisible(w, r, recipeID, userID, requestID); !ok {
		return
	}

	liked, err := e.Store.HasLiked(ctx, recipeID, userID)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to check like state", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	likes, err := e.Store.CountLikes(ctx, recipeID)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to count likes", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, LikeResponse{Liked: liked, Likes: likes})
}

func checkVisible(w http.ResponseWriter, r *http.Request, recipeID, userID, requestID string) bool {
	ctx := r.Context()
	e := env.FromCtx(ctx)

	rec, err := e.Store.GetRecipe(ctx, recipeID)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "recipe not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe not found", requestID)
		return false
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return false
	}
	if !rec.VisibleTo(userID) {
		e.Logger.ErrorContext(ctx, "recipe not visible to viewer")
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe not found", requestID)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	e := env.FromCtx(r.Context())
	resp, err := json.Marshal(v)
	if err != nil {
		e.Logger.ErrorContext(r.Context(), "failed to marshal response", slog.Any("error", err))
		return
	}
	w.Header().Add("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		e.Logger.ErrorContext(r.Context(), "failed to write response", slog.Any("error", err))
	}
}
