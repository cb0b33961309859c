// Package categories contains the category aggregation handler.
package categories

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apiError "github.com/msegal/heirloom/internal/api/error"
	"github.com/msegal/heirloom/internal/api/requestid"
	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/recipe"
)

type ListCategoriesResponse struct {
	Categories []recipe.CategoryCount `json:"categories"`
}

// HandleListCategories godoc
//
//	@Summary	Category groupings over the visible recipe set.
//	@Description	Derived, not stored: the counts are recomputed from the
//	@Description	full visible set on every request.
//	@Tags		Categories
//	@Produce	json
//	@Success	200	{object}	ListCategoriesResponse
//	@Router		/api/categories [get]
func HandleListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	recipes, err := e.Store.ListRecipes(ctx, token.OptionalUserID(ctx))
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to list recipes", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	resp, err := json.Marshal(ListCategoriesResponse{
		Categories: recipe.CountCategories(recipes),
	})
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to marshal response", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		e.Logger.ErrorContext(ctx, "failed to write response", slog.Any("error", err))
	}
}
