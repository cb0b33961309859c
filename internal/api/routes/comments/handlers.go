// Package comments contains handlers for recipe comment threads.
package comments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"

	apiError "github.com/msegal/heirloom/internal/api/error"
	"github.com/msegal/heirloom/internal/api/requestid"
	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/env"
	mJson "github.com/msegal/heirloom/internal/json"
	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/store"
)

type ListCommentsResponse struct {
	Comments []recipe.Comment `json:"comments"`
}

// HandleListComments godoc
//
//	@Summary	List a recipe's comments, newest first.
//	@Tags		Comments
//	@Produce	json
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Success	200			{object}	ListCommentsResponse
//	@Failure	404			{object}	apiError.Error	"Recipe not found"
//	@Router		/api/recipes/{recipeID}/comments [get]
func HandleListComments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	rec, ok := visibleRecipe(w, r, requestID)
	if !ok {
		return
	}

	comments, err := e.Store.ListComments(ctx, rec.ID)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to list comments", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, ListCommentsResponse{Comments: comments})
}

// HandlePostComment godoc
//
//	@Summary	Post a comment.
//	@Tags		Comments
//	@Accept		json
//	@Param		recipeID	path		string				true	"Recipe ID"
//	@Param		request		body		PostCommentRequest	true	"Comment text"
//	@Success	201			{object}	recipe.Comment
//	@Failure	422			{object}	apiError.Error	"Empty or oversized text"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID}/comments [post]
func HandlePostComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	rec, ok := visibleRecipe(w, r, requestID)
	if !ok {
		return
	}

	// Decode JSON
	var request PostCommentRequest
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := mJson.Decode(&request, decoder); err != nil {
		e.Logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}

	text, err := recipe.ValidateCommentText(request.Text)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate comment", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UnprocessibleEntity, err.Error(), requestID)
		return
	}

	// Denormalize the author onto the comment.
	author, err := e.Store.GetUser(ctx, userID)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve author", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	comment := recipe.Comment{
		ID:        ulid.Make().String(),
		RecipeID:  rec.ID,
		Text:      text,
		UserID:    userID,
		UserName:  author.Name(),
		UserPhoto: author.PhotoURL,
		CreatedAt: time.Now().UTC(),
	}
	e.Logger.DebugContext(ctx, "creating comment")
	if err := e.Store.CreateComment(ctx, comment); err != nil {
		e.Logger.ErrorContext(ctx, "failed to create comment", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	resp, err := json.Marshal(comment)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to marshal response", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if _, err := w.Write(resp); err != nil {
		e.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}

// HandleEditComment godoc
//
//	@Summary	Replace a comment's text. Author only.
//	@Tags		Comments
//	@Accept		json
//	@Param		recipeID	path		string				true	"Recipe ID"
//	@Param		commentID	path		string				true	"Comment ID"
//	@Param		request		body		EditCommentRequest	true	"New text"
//	@Success	200			{object}	recipe.Comment
//	@Failure	403			{object}	apiError.Error	"Not the author"
//	@Failure	404			{object}	apiError.Error	"Comment not found"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID}/comments/{commentID} [patch]
func HandleEditComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	rec, ok := visibleRecipe(w, r, requestID)
	if !ok {
		return
	}

	comment, ok := fetchComment(w, r, rec.ID, requestID)
	if !ok {
		return
	}
	if comment.UserID != userID {
		e.Logger.ErrorContext(ctx, "user is not the comment author")
		_ = apiError.EncodeError(w, apiError.CommentNotOwned, "only the author may edit a comment", requestID)
		return
	}

	// Decode JSON
	var request EditCommentRequest
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := mJson.Decode(&request, decoder); err != nil {
		e.Logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}

	text, err := recipe.ValidateCommentText(request.Text)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate comment", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UnprocessibleEntity, err.Error(), requestID)
		return
	}

	e.Logger.DebugContext(ctx, "updating comment")
	if err := e.Store.UpdateCommentText(ctx, rec.ID, comment.ID, text); err != nil {
		e.Logger.ErrorContext(ctx, "failed to update comment", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	comment.Text = text

	writeJSON(w, r, comment)
}

// HandleDeleteComment godoc
//
//	@Summary	Delete a comment. Author or recipe owner.
//	@Tags		Comments
//	@Param		recipeID	path	string	true	"Recipe ID"
//	@Param		commentID	path	string	true	"Comment ID"
//	@Success	204			"Deleted"
//	@Failure	403			{object}	apiError.Error	"Neither author nor owner"
//	@Failure	404			{object}	apiError.Error	"Comment not found"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID}/comments/{commentID} [delete]
func HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	rec, ok := visibleRecipe(w, r, requestID)
	if !ok {
		return
	}

	comment, ok := fetchComment(w, r, rec.ID, requestID)
	if !ok {
		return
	}
	if !recipe.CanDeleteComment(&comment, &rec, userID) {
		e.Logger.ErrorContext(ctx, "user may not delete comment")
		_ = apiError.EncodeError(w, apiError.CommentNotOwned,
			"only the author or the recipe owner may delete a comment", requestID)
		return
	}

	e.Logger.DebugContext(ctx, "deleting comment")
	if err := e.Store.DeleteComment(ctx, rec.ID, comment.ID); err != nil {
		e.Logger.ErrorContext(ctx, "failed to delete comment", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func visibleRecipe(w http.ResponseWriter, r *http.Request, requestID string) (recipe.Recipe, bool) {
	ctx := r.Context()
	e := env.FromCtx(ctx)

	rec, err := e.Store.GetRecipe(ctx, chi.URLParam(r, "recipeID"))
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "recipe not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe not found", requestID)
		return recipe.Recipe{}, false
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return recipe.Recipe{}, false
	}
	if !rec.VisibleTo(token.OptionalUserID(ctx)) {
		e.Logger.ErrorContext(ctx, "recipe not visible to viewer")
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe not found", requestID)
		return recipe.Recipe{}, false
	}
	return rec, true
}

func fetchComment(w http.ResponseWriter, r *http.Request, recipeID, requestID string) (recipe.Comment, bool) {
	ctx := r.Context()
	e := env.FromCtx(ctx)

	comment, err := e.Store.GetComment(ctx, recipeID, chi.URLParam(r, "commentID"))
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "comment not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.CommentNotFound, "comment not found", requestID)
		return recipe.Comment{}, false
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve comment", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return recipe.Comment{}, false
	}
	return comment, true
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
