package recipes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/msegal/heirloom/internal/api/token"
	"github.com/msegal/heirloom/internal/config"
	"github.com/msegal/heirloom/internal/env"
	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/store/memory"
)

func newTestEnv() (*env.Env, *memory.Store) {
	s := memory.New()
	e := env.New(nil, s, nil, nil, config.Config{
		AppSecret: config.AppSecret{Value: "test-secret-32-bytes-long-12345", Version: "1"},
	})
	return e, s
}

func newRequest(t *testing.T, e *env.Env, method, target string, body io.Reader, userID string, params map[string]string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, target, body)
	ctx := env.WithCtx(r.Context(), e)
	if userID != "" {
		ctx = token.UserIDWithCtx(ctx, userID)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func seedRecipe(t *testing.T, s *memory.Store, id, owner string, public bool, createdAt time.Time) recipe.Recipe {
	t.Helper()
	rec := recipe.Recipe{
		ID:           id,
		Title:        "Recipe " + id,
		Description:  "A recipe.",
		Ingredients:  []recipe.Ingredient{{Item: "salt", Amount: 1, Unit: "tsp"}},
		Instructions: []string{"Cook."},
		Servings:     2,
		Difficulty:   recipe.DifficultyEasy,
		UserID:       owner,
		IsPublic:     public,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := s.CreateRecipe(context.Background(), rec); err != nil {
		t.Fatalf("seeding recipe: %v", err)
	}
	return rec
}

func TestHandleCreateRecipe(t *testing.T) {
	validBody := `{
		"title": "Minestrone",
		"description": "A hearty soup.",
		"ingredients": [{"item": "beans", "amount": 2, "unit": "cups"}],
		"instructions": ["Simmer for an hour."],
		"servings": 4,
		"difficulty": "easy",
		"categories": ["dinner"],
		"isPublic": true
	}`

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantStored int
	}{
		{
			name:       "valid recipe",
			body:       validBody,
			wantStatus: http.StatusCreated,
			wantStored: 1,
		},
		{
			name: "empty title is rejected before the store",
			body: `{
				"title": "",
				"description": "A hearty soup.",
				"ingredients": [{"item": "beans", "amount": 2, "unit": "cups"}],
				"instructions": ["Simmer."],
				"servings": 4,
				"difficulty": "easy"
			}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantStored: 0,
		},
		{
			name: "no ingredients",
			body: `{
				"title": "Minestrone",
				"description": "A hearty soup.",
				"ingredients": [],
				"instructions": ["Simmer."],
				"servings": 4,
				"difficulty": "easy"
			}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantStored: 0,
		},
		{
			name:       "malformed json",
			body:       `{"title": `,
			wantStatus: http.StatusBadRequest,
			wantStored: 0,
		},
		{
			name:       "unknown fields are rejected",
			body:       `{"title": "x", "bogus": true}`,
			wantStatus: http.StatusBadRequest,
			wantStored: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, s := newTestEnv()
			r := newRequest(t, e, http.MethodPost, "/api/recipes", strings.NewReader(tt.body), "alice", nil)
			w := httptest.NewRecorder()
			HandleCreateRecipe(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			stored, _ := s.ListRecipes(context.Background(), "alice")
			if len(stored) != tt.wantStored {
				t.Errorf("store holds %d recipes, want %d", len(stored), tt.wantStored)
			}

			if tt.wantStatus == http.StatusCreated {
				var resp RecipeResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decoding response: %v", err)
				}
				if resp.ID == "" {
					t.Error("response recipe has no id")
				}
				if resp.UserID != "alice" {
					t.Errorf("UserID = %q, want alice", resp.UserID)
				}
				if resp.Likes != 0 {
					t.Errorf("Likes = %d, want 0", resp.Likes)
				}
				if resp.CreatedAt.IsZero() || !resp.CreatedAt.Equal(resp.UpdatedAt) {
					t.Errorf("timestamps = (%v, %v), want equal and set", resp.CreatedAt, resp.UpdatedAt)
				}
			}
		})
	}
}

func TestHandleGetRecipeVisibility(t *testing.T) {
	e, s := newTestEnv()
	seedRecipe(t, s, "private", "alice", false, time.Now().UTC())

	tests := []struct {
		name       string
		viewer     string
		wantStatus int
	}{
		{"owner reads own private recipe", "alice", http.StatusOK},
		{"stranger gets 404, not 403", "bob", http.StatusNotFound},
		{"anonymous gets 404", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(t, e, http.MethodGet, "/api/recipes/private", nil, tt.viewer,
				map[string]string{"recipeID": "private"})
			w := httptest.NewRecorder()
			HandleGetRecipe(w, r)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleGetRecipeReportsLiked(t *testing.T) {
	e, s := newTestEnv()
	seedRecipe(t, s, "r1", "alice", true, time.Now().UTC())
	_, _, _ = s.ToggleLike(context.Background(), "r1", "bob")

	r := newRequest(t, e, http.MethodGet, "/api/recipes/r1", nil, "bob",
		map[string]string{"recipeID": "r1"})
	w := httptest.NewRecorder()
	HandleGetRecipe(w, r)

	var resp RecipeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !resp.Liked {
		t.Error("Liked = false, want true")
	}
	if resp.Likes != 1 {
		t.Errorf("Likes = %d, want 1", resp.Likes)
	}
}

func TestHandleListRecipes(t *testing.T) {
	e, s := newTestEnv()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	old := seedRecipe(t, s, "pasta", "alice", true, base)
	old.Categories = []string{"dinner"}
	_ = s.UpdateRecipe(context.Background(), old)

	hard := seedRecipe(t, s, "croissants", "bob", true, base.Add(time.Hour))
	hard.Difficulty = recipe.DifficultyHard
	hard.Categories = []string{"baking"}
	_ = s.UpdateRecipe(context.Background(), hard)

	seedRecipe(t, s, "secret", "alice", false, base.Add(2*time.Hour))

	tests := []struct {
		name       string
		target     string
		viewer     string
		wantStatus int
		wantIDs    []string
	}{
		{
			name:       "anonymous list is public only, newest first",
			target:     "/api/recipes",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"croissants", "pasta"},
		},
		{
			name:       "owner sees own private recipe",
			target:     "/api/recipes",
			viewer:     "alice",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"secret", "croissants", "pasta"},
		},
		{
			name:       "category filter",
			target:     "/api/recipes?category=baking",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"croissants"},
		},
		{
			name:       "difficulty filter",
			target:     "/api/recipes?difficulty=hard",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"croissants"},
		},
		{
			name:       "free text search",
			target:     "/api/recipes?q=CROIS",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"croissants"},
		},
		{
			name:       "all sentinel disables category and difficulty filters",
			target:     "/api/recipes?category=all&difficulty=all",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"croissants", "pasta"},
		},
		{
			name:       "mine restricts to the session user's recipes",
			target:     "/api/recipes?mine=true",
			viewer:     "alice",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"secret", "pasta"},
		},
		{
			name:       "mine combines with the other filters",
			target:     "/api/recipes?mine=true&category=dinner",
			viewer:     "alice",
			wantStatus: http.StatusOK,
			wantIDs:    []string{"pasta"},
		},
		{
			name:       "mine for an anonymous viewer is empty",
			target:     "/api/recipes?mine=true",
			wantStatus: http.StatusOK,
			wantIDs:    []string{},
		},
		{
			name:       "invalid difficulty",
			target:     "/api/recipes?difficulty=expert",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid mine value",
			target:     "/api/recipes?mine=maybe",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRequest(t, e, http.MethodGet, tt.target, nil, tt.viewer, nil)
			w := httptest.NewRecorder()
			HandleListRecipes(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp ListRecipesResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if len(resp.Recipes) != len(tt.wantIDs) {
				t.Fatalf("got %d recipes, want %d", len(resp.Recipes), len(tt.wantIDs))
			}
			for i := range resp.Recipes {
				if resp.Recipes[i].ID != tt.wantIDs[i] {
					t.Errorf("recipe[%d] = %q, want %q", i, resp.Recipes[i].ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestHandleUpdateRecipe(t *testing.T) {
	tests := []struct {
		name       string
		user       string
		body       string
		wantStatus int
		wantTitle  string
	}{
		{
			name:       "owner patches title",
			user:       "alice",
			body:       `{"title": "Renamed"}`,
			wantStatus: http.StatusOK,
			wantTitle:  "Renamed",
		},
		{
			name:       "non-owner is forbidden",
			user:       "bob",
			body:       `{"title": "Hijacked"}`,
			wantStatus: http.StatusForbidden,
			wantTitle:  "Recipe r1",
		},
		{
			name:       "patch violating invariants is rejected",
			user:       "alice",
			body:       `{"instructions": []}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantTitle:  "Recipe r1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, s := newTestEnv()
			seedRecipe(t, s, "r1", "alice", true, time.Now().UTC())

			r := newRequest(t, e, http.MethodPatch, "/api/recipes/r1", strings.NewReader(tt.body),
				tt.user, map[string]string{"recipeID": "r1"})
			w := httptest.NewRecorder()
			HandleUpdateRecipe(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.wantStatus, w.Body.String())
			}
			stored, _ := s.GetRecipe(context.Background(), "r1")
			if stored.Title != tt.wantTitle {
				t.Errorf("stored title = %q, want %q", stored.Title, tt.wantTitle)
			}
		})
	}
}

func TestHandleDeleteRecipe(t *testing.T) {
	e, s := newTestEnv()
	seedRecipe(t, s, "r1", "alice", true, time.Now().UTC())
	_ = s.CreateComment(context.Background(), recipe.Comment{
		ID: "c1", RecipeID: "r1", Text: "hi", UserID: "bob", CreatedAt: time.Now().UTC(),
	})

	// Non-owner first.
	r := newRequest(t, e, http.MethodDelete, "/api/recipes/r1", nil, "bob",
		map[string]string{"recipeID": "r1"})
	w := httptest.NewRecorder()
	HandleDeleteRecipe(w, r)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-owner delete status = %d, want 403", w.Code)
	}

	r = newRequest(t, e, http.MethodDelete, "/api/recipes/r1", nil, "alice",
		map[string]string{"recipeID": "r1"})
	w = httptest.NewRecorder()
	HandleDeleteRecipe(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("owner delete status = %d, want 204: %s", w.Code, w.Body.String())
	}

	if _, err := s.GetRecipe(context.Background(), "r1"); err == nil {
		t.Error("recipe survived delete")
	}
	if _, err := s.GetComment(context.Background(), "r1", "c1"); err == nil {
		t.Error("comment survived recipe delete")
	}
}

func TestHandleDeleteRecipeNotFound(t *testing.T) {
	e, _ := newTestEnv()
	r := newRequest(t, e, http.MethodDelete, "/api/recipes/nope", nil, "alice",
		map[string]string{"recipeID": "nope"})
	w := httptest.NewRecorder()
	HandleDeleteRecipe(w, r)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
