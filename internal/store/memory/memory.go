// Package memory holds an in-memory Store used by tests and local
// development. It mirrors every invariant of the Postgres store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/store"
	"github.com/msegal/heirloom/internal/user"
)

type userRecord struct {
	user.User
	passwordHash string
}

type Store struct {
	mu sync.Mutex

	users    map[string]userRecord
	recipes  map[string]recipe.Recipe
	comments map[string]map[string]recipe.Comment // recipeID -> commentID -> comment
	likes    map[string]map[string]struct{}       // recipeID -> userID set
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		users:    make(map[string]userRecord),
		recipes:  make(map[string]recipe.Recipe),
		comments: make(map[string]map[string]recipe.Comment),
		likes:    make(map[string]map[string]struct{}),
	}
}

func (s *Store) CreateUser(_ context.Context, u user.User, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrEmailConflict
		}
	}
	s.users[u.ID] = userRecord{User: u, passwordHash: passwordHash}
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return user.User{}, store.ErrNotFound
	}
	return rec.User, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.users {
		if rec.Email == email {
			return rec.User, rec.passwordHash, nil
		}
	}
	return user.User{}, "", store.ErrNotFound
}

func (s *Store) UpdateUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	rec.Email = u.Email
	rec.DisplayName = u.DisplayName
	rec.PhotoURL = u.PhotoURL
	s.users[u.ID] = rec
	return nil
}

func (s *Store) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	rec.LastLogin = at
	s.users[id] = rec
	return nil
}

func (s *Store) CreateRecipe(_ context.Context, r recipe.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recipes[r.ID] = r
	return nil
}

func (s *Store) GetRecipe(_ context.Context, id string) (recipe.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok {
		return recipe.Recipe{}, store.ErrNotFound
	}
	return r, nil
}

func (s *Store) UpdateRecipe(_ context.Context, r recipe.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.recipes[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	// Likes move through ToggleLike only.
	r.Likes = existing.Likes
	s.recipes[r.ID] = r
	return nil
}

func (s *Store) SetRecipeImageURL(_ context.Context, id, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[id]
	if !ok {
		return store.ErrNotFound
	}
	r.ImageURL = url
	s.recipes[id] = r
	return nil
}

func (s *Store) DeleteRecipe(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.comments, id)
	delete(s.likes, id)
	delete(s.recipes, id)
	return nil
}

func (s *Store) ListRecipes(_ context.Context, viewerID string) ([]recipe.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]recipe.Recipe, 0, len(s.recipes))
	for _, r := range s.recipes {
		if r.VisibleTo(viewerID) {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListUserRecipes(_ context.Context, ownerID, viewerID string) ([]recipe.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []recipe.Recipe
	for _, r := range s.recipes {
		if r.UserID == ownerID && r.VisibleTo(viewerID) {
			out = append(out, r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) CreateComment(_ context.Context, c recipe.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[c.RecipeID]; !ok {
		return store.ErrNotFound
	}
	if s.comments[c.RecipeID] == nil {
		s.comments[c.RecipeID] = make(map[string]recipe.Comment)
	}
	s.comments[c.RecipeID][c.ID] = c
	return nil
}

func (s *Store) GetComment(_ context.Context, recipeID, commentID string) (recipe.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[recipeID][commentID]
	if !ok {
		return recipe.Comment{}, store.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListComments(_ context.Context, recipeID string) ([]recipe.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]recipe.Comment, 0, len(s.comments[recipeID]))
	for _, c := range s.comments[recipeID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateCommentText(_ context.Context, recipeID, commentID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.comments[recipeID][commentID]
	if !ok {
		return store.ErrNotFound
	}
	c.Text = text
	s.comments[recipeID][commentID] = c
	return nil
}

func (s *Store) DeleteComment(_ context.Context, recipeID, commentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[recipeID][commentID]; !ok {
		return store.ErrNotFound
	}
	delete(s.comments[recipeID], commentID)
	return nil
}

func (s *Store) ToggleLike(_ context.Context, recipeID, userID string) (bool, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.recipes[recipeID]
	if !ok {
		return false, 0, store.ErrNotFound
	}
	if s.likes[recipeID] == nil {
		s.likes[recipeID] = make(map[string]struct{})
	}

	var liked bool
	if _, has := s.likes[recipeID][userID]; has {
		delete(s.likes[recipeID], userID)
		if r.Likes > 0 {
			r.Likes--
		}
	} else {
		s.likes[recipeID][userID] = struct{}{}
		r.Likes++
		liked = true
	}
	s.recipes[recipeID] = r
	return liked, r.Likes, nil
}

func (s *Store) HasLiked(_ context.Context, recipeID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipeID]; !ok {
		return false, store.ErrNotFound
	}
	_, has := s.likes[recipeID][userID]
	return has, nil
}

func (s *Store) CountLikes(_ context.Context, recipeID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.recipes[recipeID]; !ok {
		return 0, store.ErrNotFound
	}
	return int64(len(s.likes[recipeID])), nil
}

func sortNewestFirst(recipes []recipe.Recipe) {
	sort.Slice(recipes, func(i, j int) bool {
		if !recipes[i].CreatedAt.Equal(recipes[j].CreatedAt) {
			return recipes[i].CreatedAt.After(recipes[j].CreatedAt)
		}
		return recipes[i].ID > recipes[j].ID
	})
}
