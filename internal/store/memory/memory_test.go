package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/store"
	"github.com/msegal/heirloom/internal/user"
)

func newRecipe(id, owner string, public bool, createdAt time.Time) recipe.Recipe {
	return recipe.Recipe{
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
}

func TestUserLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	u := user.User{ID: "u1", Email: "alice@example.com", DisplayName: "Alice"}
	if err := s.CreateUser(ctx, u, "hash1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Duplicate email is rejected regardless of id.
	if err := s.CreateUser(ctx, user.User{ID: "u2", Email: "alice@example.com"}, "hash2"); !errors.Is(err, store.ErrEmailConflict) {
		t.Errorf("duplicate email error = %v, want ErrEmailConflict", err)
	}

	got, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.DisplayName != "Alice" {
		t.Errorf("DisplayName = %q, want Alice", got.DisplayName)
	}

	byEmail, hash, err := s.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail.ID != "u1" || hash != "hash1" {
		t.Errorf("GetUserByEmail = (%q, %q), want (u1, hash1)", byEmail.ID, hash)
	}

	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetUser(missing) error = %v, want ErrNotFound", err)
	}

	at := time.Now().UTC()
	if err := s.TouchLastLogin(ctx, "u1", at); err != nil {
		t.Fatalf("TouchLastLogin: %v", err)
	}
	got, _ = s.GetUser(ctx, "u1")
	if !got.LastLogin.Equal(at) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, at)
	}
}

func TestListRecipesVisibilityAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.CreateRecipe(ctx, newRecipe("old-public", "alice", true, base))
	_ = s.CreateRecipe(ctx, newRecipe("new-public", "bob", true, base.Add(2*time.Hour)))
	_ = s.CreateRecipe(ctx, newRecipe("alice-private", "alice", false, base.Add(time.Hour)))

	tests := []struct {
		name   string
		viewer string
		want   []string
	}{
		{"anonymous sees public, newest first", "", []string{"new-public", "old-public"}},
		{"owner also sees own private", "alice", []string{"new-public", "alice-private", "old-public"}},
		{"other user sees public only", "carol", []string{"new-public", "old-public"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListRecipes(ctx, tt.viewer)
			if err != nil {
				t.Fatalf("ListRecipes: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d recipes, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("recipe[%d] = %q, want %q", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestListUserRecipes(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.CreateRecipe(ctx, newRecipe("a1", "alice", true, base))
	_ = s.CreateRecipe(ctx, newRecipe("a2", "alice", false, base.Add(time.Hour)))
	_ = s.CreateRecipe(ctx, newRecipe("b1", "bob", true, base))

	got, err := s.ListUserRecipes(ctx, "alice", "carol")
	if err != nil {
		t.Fatalf("ListUserRecipes: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("visitor sees %d recipes, want just a1", len(got))
	}

	got, _ = s.ListUserRecipes(ctx, "alice", "alice")
	if len(got) != 2 {
		t.Errorf("owner sees %d recipes, want 2", len(got))
	}
}

func TestUpdateRecipePreservesLikes(t *testing.T) {
	ctx := context.Background()
	s := New()

	r := newRecipe("r1", "alice", true, time.Now().UTC())
	_ = s.CreateRecipe(ctx, r)
	_, _, _ = s.ToggleLike(ctx, "r1", "bob")
	_, _, _ = s.ToggleLike(ctx, "r1", "carol")

	r.Title = "Updated"
	r.Likes = 999 // must be ignored
	if err := s.UpdateRecipe(ctx, r); err != nil {
		t.Fatalf("UpdateRecipe: %v", err)
	}

	got, _ := s.GetRecipe(ctx, "r1")
	if got.Title != "Updated" {
		t.Errorf("Title = %q, want Updated", got.Title)
	}
	if got.Likes != 2 {
		t.Errorf("Likes = %d, want 2", got.Likes)
	}
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateRecipe(ctx, newRecipe("r1", "alice", true, time.Now().UTC()))

	liked, likes, err := s.ToggleLike(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !liked || likes != 1 {
		t.Errorf("first toggle = (%v, %d), want (true, 1)", liked, likes)
	}

	liked, likes, err = s.ToggleLike(ctx, "r1", "bob")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if liked || likes != 0 {
		t.Errorf("second toggle = (%v, %d), want (false, 0)", liked, likes)
	}

	if _, _, err := s.ToggleLike(ctx, "missing", "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ToggleLike(missing) error = %v, want ErrNotFound", err)
	}
}

func TestToggleLikeConcurrent(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateRecipe(ctx, newRecipe("r1", "alice", true, time.Now().UTC()))

	// Each goroutine toggles its own user on once. The counter must land
	// exactly on the number of distinct likers, no lost updates.
	const users = 50
	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, _, err := s.ToggleLike(ctx, "r1", fmt.Sprintf("user-%d", i)); err != nil {
				t.Errorf("ToggleLike: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := s.GetRecipe(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if got.Likes != users {
		t.Errorf("Likes = %d, want %d", got.Likes, users)
	}
	count, _ := s.CountLikes(ctx, "r1")
	if count != users {
		t.Errorf("CountLikes = %d, want %d", count, users)
	}
}

func TestCommentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateRecipe(ctx, newRecipe("r1", "alice", true, time.Now().UTC()))
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first := recipe.Comment{ID: "c1", RecipeID: "r1", Text: "first", UserID: "bob", CreatedAt: base}
	second := recipe.Comment{ID: "c2", RecipeID: "r1", Text: "second", UserID: "carol", CreatedAt: base.Add(time.Minute)}
	if err := s.CreateComment(ctx, first); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}
	if err := s.CreateComment(ctx, second); err != nil {
		t.Fatalf("CreateComment: %v", err)
	}

	// Comments on a missing recipe are rejected.
	if err := s.CreateComment(ctx, recipe.Comment{ID: "c3", RecipeID: "nope"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("CreateComment(missing recipe) error = %v, want ErrNotFound", err)
	}

	list, err := s.ListComments(ctx, "r1")
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c2" || list[1].ID != "c1" {
		t.Errorf("ListComments order = %v, want [c2 c1]", list)
	}

	if err := s.UpdateCommentText(ctx, "r1", "c1", "edited"); err != nil {
		t.Fatalf("UpdateCommentText: %v", err)
	}
	got, _ := s.GetComment(ctx, "r1", "c1")
	if got.Text != "edited" {
		t.Errorf("Text = %q, want edited", got.Text)
	}

	if err := s.DeleteComment(ctx, "r1", "c1"); err != nil {
		t.Fatalf("DeleteComment: %v", err)
	}
	if _, err := s.GetComment(ctx, "r1", "c1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetComment after delete error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRecipeCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateRecipe(ctx, newRecipe("r1", "alice", true, time.Now().UTC()))
	_ = s.CreateComment(ctx, recipe.Comment{ID: "c1", RecipeID: "r1", Text: "hi", UserID: "bob", CreatedAt: time.Now().UTC()})
	_, _, _ = s.ToggleLike(ctx, "r1", "bob")

	if err := s.DeleteRecipe(ctx, "r1"); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}

	if _, err := s.GetRecipe(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetRecipe after delete error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetComment(ctx, "r1", "c1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("comment survived recipe delete")
	}
	if _, err := s.HasLiked(ctx, "r1", "bob"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("HasLiked after delete error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteRecipe(ctx, "r1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestSetRecipeImageURL(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.CreateRecipe(ctx, newRecipe("r1", "alice", true, time.Now().UTC()))

	if err := s.SetRecipeImageURL(ctx, "r1", "https://files.example.com/recipe-images/r1/cover.jpg"); err != nil {
		t.Fatalf("SetRecipeImageURL: %v", err)
	}
	got, _ := s.GetRecipe(ctx, "r1")
	if got.ImageURL == "" {
		t.Error("ImageURL not set")
	}

	if err := s.SetRecipeImageURL(ctx, "missing", "x"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetRecipeImageURL(missing) error = %v, want ErrNotFound", err)
	}
}
