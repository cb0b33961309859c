package likes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/config"
	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/store/memory"
)

func newTestEnv(t *testing.T) (*env.Env, *memory.Store) {
	t.Helper()
	s := memory.New()
	e := env.New(nil, s, nil, nil, config.Config{})

	rec := recipe.Recipe{
		ID:           "r1",
		Title:        "Pancakes",
		Description:  "Sunday pancakes.",
		Ingredients:  []recipe.Ingredient{{Item: "flour", Amount: 2, Unit: "cups"}},
		Instructions: []string{"Mix.", "Fry."},
		Servings:     4,
		Difficulty:   recipe.DifficultyEasy,
		UserID:       "owner",
		IsPublic:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	if err := s.CreateRecipe(context.Background(), rec); err != nil {
		t.Fatalf("seeding recipe: %v", err)
	}
	return e, s
}

func newRequest(t *testing.T, e *env.Env, method, target, userID, recipeID string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	ctx := env.WithCtx(r.Context(), e)
	if userID != "" {
		ctx = token.UserIDWithCtx(ctx, userID)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("recipeID", recipeID)
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func toggle(t *testing.T, e *env.Env, userID, recipeID string) (LikeResponse, int) {
	t.Helper()
	r := newRequest(t, e, http.MethodPost, "/api/recipes/"+recipeID+"/like", userID, recipeID)
	w := httptest.NewRecorder()
	HandleToggleLike(w, r)
	var resp LikeResponse
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
	return resp, w.Code
}

func TestHandleToggleLike(t *testing.T) {
	e, _ := newTestEnv(t)

	resp, code := toggle(t, e, "bob", "r1")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if !resp.Liked || resp.Likes != 1 {
		t.Errorf("first toggle = %+v, want liked with 1 like", resp)
	}

	resp, code = toggle(t, e, "bob", "r1")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if resp.Liked || resp.Likes != 0 {
		t.Errorf("second toggle = %+v, want unliked with 0 likes", resp)
	}
}

func TestHandleToggleLikeTwoUsers(t *testing.T) {
	e, _ := newTestEnv(t)

	_, _ = toggle(t, e, "bob", "r1")
	resp, _ := toggle(t, e, "carol", "r1")
	if !resp.Liked || resp.Likes != 2 {
		t.Errorf("second user toggle = %+v, want liked with 2 likes", resp)
	}

	// Bob unliking does not touch Carol's like.
	resp, _ = toggle(t, e, "bob", "r1")
	if resp.Liked || resp.Likes != 1 {
		t.Errorf("bob unlike = %+v, want unliked with 1 like", resp)
	}
}

func TestHandleToggleLikeMissingRecipe(t *testing.T) {
	e, _ := newTestEnv(t)
	if _, code := toggle(t, e, "bob", "nope"); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestHandleToggleLikePrivateRecipe(t *testing.T) {
	e, s := newTestEnv(t)
	private := recipe.Recipe{
		ID:           "hidden",
		Title:        "Secret Sauce",
		Description:  "Family secret.",
		Ingredients:  []recipe.Ingredient{{Item: "ketchup", Amount: 1, Unit: "cup"}},
		Instructions: []string{"Stir."},
		Servings:     1,
		Difficulty:   recipe.DifficultyEasy,
		UserID:       "owner",
		IsPublic:     false,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	_ = s.CreateRecipe(context.Background(), private)

	if _, code := toggle(t, e, "bob", "hidden"); code != http.StatusNotFound {
		t.Errorf("stranger toggling private recipe: status = %d, want 404", code)
	}
	if resp, code := toggle(t, e, "owner", "hidden"); code != http.StatusOK || !resp.Liked {
		t.Errorf("owner toggling own private recipe: status = %d, resp = %+v", code, resp)
	}
}

func TestHandleGetLike(t *testing.T) {
	e, _ := newTestEnv(t)
	_, _ = toggle(t, e, "bob", "r1")

	r := newRequest(t, e, http.MethodGet, "/api/recipes/r1/like", "bob", "r1")
	w := httptest.NewRecorder()
	HandleGetLike(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp LikeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Liked || resp.Likes != 1 {
		t.Errorf("like state = %+v, want liked with 1 like", resp)
	}

	r = newRequest(t, e, http.MethodGet, "/api/recipes/r1/like", "carol", "r1")
	w = httptest.NewRecorder()
	HandleGetLike(w, r)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Liked {
		t.Error("carol shows as having liked without toggling")
	}
}
