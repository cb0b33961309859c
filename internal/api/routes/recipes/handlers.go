// Package recipes contains handlers for the recipe resource.
package recipes

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/oklog/ulid/v2"

	apiError "github.com/msegal/heirloom/internal/api/error"
	"github.com/msegal/heirloom/internal/api/requestid"
	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/filestore"
	"github.com/msegal/heirloom/internal/form"
	mHttp "github.com/msegal/heirloom/internal/http"
	mJson "github.com/msegal/heirloom/internal/json"
	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/store"
)

// HandleCreateRecipe godoc
//
//	@Summary	Create a recipe.
//	@Tags		Recipes
//	@Accept		json
//	@Param		request	body		CreateRecipeRequest	true	"Recipe"
//	@Success	201		{object}	RecipeResponse
//	@Failure	422		{object}	apiError.Error	"Invariant violation"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes [post]
func HandleCreateRecipe(w http.ResponseWriter, r *http.Request) {
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
	var request CreateRecipeRequest
	e.Logger.DebugContext(ctx, "reading request body")
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := mJson.Decode(&request, decoder); err != nil {
		e.Logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}

	// Validate invariants before touching the store.
	now := time.Now().UTC()
	rec := request.toRecipe()
	rec.ID = ulid.Make().String()
	rec.UserID = userID
	rec.Likes = 0
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if err := rec.Validate(); err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate recipe", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UnprocessibleEntity, "invalid recipe", requestID)
		return
	}

	// Persist
	e.Logger.DebugContext(ctx, "creating recipe")
	if err := e.Store.CreateRecipe(ctx, rec); err != nil {
		e.Logger.ErrorContext(ctx, "failed to create recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	resp, err := json.Marshal(RecipeResponse{Recipe: rec})
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

// HandleGetRecipe godoc
//
//	@Summary	Fetch a single recipe.
//	@Tags		Recipes
//	@Produce	json
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Success	200			{object}	RecipeResponse
//	@Failure	404			{object}	apiError.Error	"Recipe not found"
//	@Router		/api/recipes/{recipeID} [get]
func HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	viewerID := token.OptionalUserID(ctx)

	rec, ok := fetchVisibleRecipe(w, r, chi.URLParam(r, "recipeID"), viewerID)
	if !ok {
		return
	}

	var liked bool
	if viewerID != "" {
		var err error
		liked, err = e.Store.HasLiked(ctx, rec.ID, viewerID)
		if err != nil {
			e.Logger.ErrorContext(ctx, "failed to check like state", slog.Any("error", err))
			_ = apiError.EncodeInternalError(w, requestID)
			return
		}
	}

	writeJSON(w, r, RecipeResponse{Recipe: rec, Liked: liked})
}

// filterAll is the client sentinel for "no filter" on category and
// difficulty.
const filterAll = "all"

// HandleListRecipes godoc
//
//	@Summary	List visible recipes, newest first.
//	@Description	Filters are applied in memory after the fetch: category
//	@Description	membership, difficulty equality, and a case-insensitive
//	@Description	free-text search, all ANDed. The literal "all" disables
//	@Description	the category and difficulty filters.
//	@Tags		Recipes
//	@Produce	json
//	@Param		category	query		string	false	"Exact category, or 'all'"
//	@Param		difficulty	query		string	false	"easy|medium|hard, or 'all'"
//	@Param		q			query		string	false	"Free-text search"
//	@Param		mine		query		bool	false	"Only the session user's recipes"
//	@Success	200			{object}	ListRecipesResponse
//	@Router		/api/recipes [get]
func HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	viewerID := token.OptionalUserID(ctx)
	query := r.URL.Query()

	mine := false
	if raw := query.Get("mine"); raw != "" {
		var err error
		mine, err = strconv.ParseBool(raw)
		if err != nil {
			e.Logger.ErrorContext(ctx, "invalid mine filter", slog.Any("error", err))
			_ = apiError.EncodeError(w, apiError.BadRequest, "invalid mine parameter", requestID)
			return
		}
	}

	e.Logger.DebugContext(ctx, "listing recipes")
	var all []recipe.Recipe
	var err error
	if mine {
		// Anonymous viewers own nothing, so mine=true yields an empty
		// list rather than an error.
		all, err = e.Store.ListUserRecipes(ctx, viewerID, viewerID)
	} else {
		all, err = e.Store.ListRecipes(ctx, viewerID)
	}
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to list recipes", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	filter := recipe.Filter{
		Category:   query.Get("category"),
		Difficulty: recipe.Difficulty(query.Get("difficulty")),
		Query:      query.Get("q"),
	}
	if filter.Category == filterAll {
		filter.Category = ""
	}
	if string(filter.Difficulty) == filterAll {
		filter.Difficulty = ""
	}
	if filter.Difficulty != "" {
		if err := filter.Difficulty.Validate(); err != nil {
			e.Logger.ErrorContext(ctx, "invalid difficulty filter", slog.Any("error", err))
			_ = apiError.EncodeError(w, apiError.BadRequest, "invalid difficulty", requestID)
			return
		}
	}

	writeJSON(w, r, ListRecipesResponse{Recipes: filter.Apply(all)})
}

// HandleListUserRecipes godoc
//
//	@Summary	List a user's recipes visible to the caller.
//	@Tags		Recipes
//	@Produce	json
//	@Param		userID	path		string	true	"User ID"
//	@Success	200		{object}	ListRecipesResponse
//	@Router		/api/users/{userID}/recipes [get]
func HandleListUserRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)
	viewerID := token.OptionalUserID(ctx)

	recipes, err := e.Store.ListUserRecipes(ctx, chi.URLParam(r, "userID"), viewerID)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to list recipes", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, ListRecipesResponse{Recipes: recipes})
}

// HandleUpdateRecipe godoc
//
//	@Summary	Patch a recipe. Owner only.
//	@Tags		Recipes
//	@Accept		json
//	@Param		recipeID	path		string			true	"Recipe ID"
//	@Param		request		body		recipe.Patch	true	"Fields to change"
//	@Success	200			{object}	RecipeResponse
//	@Failure	403			{object}	apiError.Error	"Not the owner"
//	@Failure	404			{object}	apiError.Error	"Recipe not found"
//	@Failure	422			{object}	apiError.Error	"Invariant violation"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID} [patch]
func HandleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	rec, ok := fetchOwnedRecipe(w, r, chi.URLParam(r, "recipeID"))
	if !ok {
		return
	}

	// Decode patch
	var patch recipe.Patch
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := mJson.Decode(&patch, decoder); err != nil {
		e.Logger.ErrorContext(ctx, "failed to decode request body", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid request body", requestID)
		return
	}

	// Merge and re-validate
	rec.Apply(patch)
	rec.UpdatedAt = time.Now().UTC()
	if err := rec.Validate(); err != nil {
		e.Logger.ErrorContext(ctx, "failed to validate recipe", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UnprocessibleEntity, "invalid recipe", requestID)
		return
	}

	e.Logger.DebugContext(ctx, "updating recipe")
	if err := e.Store.UpdateRecipe(ctx, rec); err != nil {
		e.Logger.ErrorContext(ctx, "failed to update recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, RecipeResponse{Recipe: rec})
}

// HandleDeleteRecipe godoc
//
//	@Summary	Delete a recipe and its comments and likes. Owner only.
//	@Tags		Recipes
//	@Param		recipeID	path	string	true	"Recipe ID"
//	@Success	204			"Deleted"
//	@Failure	403			{object}	apiError.Error	"Not the owner"
//	@Failure	404			{object}	apiError.Error	"Recipe not found"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID} [delete]
func HandleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	rec, ok := fetchOwnedRecipe(w, r, chi.URLParam(r, "recipeID"))
	if !ok {
		return
	}

	e.Logger.DebugContext(ctx, "deleting recipe")
	if err := e.Store.DeleteRecipe(ctx, rec.ID); err != nil {
		e.Logger.ErrorContext(ctx, "failed to delete recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadRecipeImage godoc
//
//	@Summary	Upload a recipe cover image. Owner only.
//	@Description	The image lands in the object store keyed by the recipe
//	@Description	id, then imageUrl is patched. A failed upload leaves the
//	@Description	recipe record untouched.
//	@Tags		Recipes
//	@Accept		multipart/form-data
//	@Param		recipeID	path		string	true	"Recipe ID"
//	@Param		image		formData	file	true	"Cover image"
//	@Success	200			{object}	ImageResponse
//	@Failure	413			{object}	apiError.Error	"Image too large"
//	@Failure	415			{object}	apiError.Error	"Unsupported image type"
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID}/image [put]
func HandleUploadRecipeImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	rec, ok := fetchOwnedRecipe(w, r, chi.URLParam(r, "recipeID"))
	if !ok {
		return
	}

	// Read image
	e.Logger.DebugContext(ctx, "reading image")
	r.Body = http.MaxBytesReader(w, r.Body, form.MaxImageSize+1024)
	image, err := form.ReadImage(r, "image")
	if ok := encodeImageError(w, r, err, requestID); !ok {
		return
	}

	storeImage(w, r, rec.ID, image, requestID)
}

// HandleImportRecipeImage godoc
//
//	@Summary	Import a recipe cover image from a URL. Owner only.
//	@Description	The server fetches the image itself so the stored copy
//	@Description	lives in our object store rather than behind a third
//	@Description	party link.
//	@Tags		Recipes
//	@Accept		json
//	@Param		recipeID	path		string				true	"Recipe ID"
//	@Param		request		body		ImportImageRequest	true	"Image URL"
//	@Success	200			{object}	ImageResponse
//	@Security	AccessTokenCookie
//	@Router		/api/recipes/{recipeID}/image/import [post]
func HandleImportRecipeImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	rec, ok := fetchOwnedRecipe(w, r, chi.URLParam(r, "recipeID"))
	if !ok {
		return
	}

	// Decode JSON
	var request ImportImageRequest
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

	// Fetch the remote image
	e.Logger.DebugContext(ctx, "fetching remote image", slog.String("url", request.URL))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, request.URL, nil)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to build image request", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "invalid image url", requestID)
		return
	}
	resp, err := e.HTTP.Do(req)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to fetch image", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "could not fetch image", requestID)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if err := mHttp.ExpectStatus2xx(resp); err != nil {
		e.Logger.ErrorContext(ctx, "failed to fetch image", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.BadRequest, "could not fetch image", requestID)
		return
	}

	image, err := form.ReadImageData(resp.Body)
	if ok := encodeImageError(w, r, err, requestID); !ok {
		return
	}

	storeImage(w, r, rec.ID, image, requestID)
}

// encodeImageError maps image-read failures onto field-specific error
// codes. Returns false when a response has been written.
func encodeImageError(w http.ResponseWriter, r *http.Request, err error, requestID string) bool {
	if err == nil {
		return true
	}
	e := env.FromCtx(r.Context())
	switch {
	case errors.Is(err, form.ErrNoImageUploaded):
		e.Logger.ErrorContext(r.Context(), "no image uploaded")
		_ = apiError.EncodeError(w, apiError.BadRequest, "expected an image in the form", requestID)
	case errors.Is(err, form.ErrImageTooLarge):
		e.Logger.ErrorContext(r.Context(), "image too large", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.ImageTooLarge, "image exceeds 5MB", requestID)
	case errors.Is(err, form.ErrUnsupportedMimeType):
		e.Logger.ErrorContext(r.Context(), "unsupported file type", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.UnsupportedImageType, "invalid file type", requestID)
	default:
		e.Logger.ErrorContext(r.Context(), "failed to read image", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
	}
	return false
}

// storeImage uploads the validated image and patches the recipe's
// imageUrl. The record was created before the upload, so a storage
// failure leaves it intact with imageUrl unset.
func storeImage(w http.ResponseWriter, r *http.Request, recipeID string, image *form.Image, requestID string) {
	ctx := r.Context()
	e := env.FromCtx(ctx)

	e.Logger.DebugContext(ctx, "uploading image")
	imageURL, err := e.Files.Put(ctx,
		filestore.RecipeImagePath(recipeID, image.Suffix), image.Data, image.MimeType)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to upload image", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	if err := e.Store.SetRecipeImageURL(ctx, recipeID, imageURL); err != nil {
		e.Logger.ErrorContext(ctx, "failed to patch image url", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return
	}

	writeJSON(w, r, ImageResponse{ImageURL: imageURL})
}

// fetchVisibleRecipe loads a recipe the viewer may read. Private recipes
// look like 404 to everyone but their owner.
func fetchVisibleRecipe(w http.ResponseWriter, r *http.Request, recipeID, viewerID string) (recipe.Recipe, bool) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	rec, err := e.Store.GetRecipe(ctx, recipeID)
	if errors.Is(err, store.ErrNotFound) {
		e.Logger.ErrorContext(ctx, "recipe not found", slog.Any("error", err))
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe not found", requestID)
		return recipe.Recipe{}, false
	} else if err != nil {
		e.Logger.ErrorContext(ctx, "failed to retrieve recipe", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return recipe.Recipe{}, false
	}
	if !rec.VisibleTo(viewerID) {
		e.Logger.ErrorContext(ctx, "recipe not visible to viewer")
		_ = apiError.EncodeError(w, apiError.RecipeNotFound, "recipe not found", requestID)
		return recipe.Recipe{}, false
	}
	return rec, true
}

// fetchOwnedRecipe loads a recipe and enforces that the session user owns
// it.
func fetchOwnedRecipe(w http.ResponseWriter, r *http.Request, recipeID string) (recipe.Recipe, bool) {
	ctx := r.Context()
	e := env.FromCtx(ctx)
	requestID := strconv.FormatUint(requestid.Extract(ctx), 10)

	userID, err := token.UserIDFromCtx(ctx)
	if err != nil {
		e.Logger.ErrorContext(ctx, "failed to extract user id from context", slog.Any("error", err))
		_ = apiError.EncodeInternalError(w, requestID)
		return recipe.Recipe{}, false
	}

	rec, ok := fetchVisibleRecipe(w, r, recipeID, userID)
	if !ok {
		return recipe.Recipe{}, false
	}
	if rec.UserID != userID {
		e.Logger.ErrorContext(ctx, "user does not own recipe")
		_ = apiError.EncodeError(w, apiError.RecipeNotOwned, "user does not own recipe", requestID)
		return recipe.Recipe{}, false
	}
	return rec, true
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
