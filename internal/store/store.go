// Package store defines the persistence boundary. Records cross it as
// explicit structs; malformed stored data is an error, never trusted.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/user"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrEmailConflict = errors.New("email already in use")
)

// Store is the full persistence surface of the application.
type Store interface {
	// CreateUser persists a new user with their password hash.
	// Returns ErrEmailConflict if the email is taken.
	CreateUser(ctx context.Context, u user.User, passwordHash string) error
	GetUser(ctx context.Context, id string) (user.User, error)
	// GetUserByEmail also returns the stored password hash for login.
	GetUserByEmail(ctx context.Context, email string) (user.User, string, error)
	// UpdateUser merges identity fields only; other stored fields are
	// left untouched.
	UpdateUser(ctx context.Context, u user.User) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error

	CreateRecipe(ctx context.Context, r recipe.Recipe) error
	GetRecipe(ctx context.Context, id string) (recipe.Recipe, error)
	UpdateRecipe(ctx context.Context, r recipe.Recipe) error
	SetRecipeImageURL(ctx context.Context, id, url string) error
	// DeleteRecipe removes the recipe together with its comments and
	// likes so no child records are orphaned.
	DeleteRecipe(ctx context.Context, id string) error
	// ListRecipes returns every recipe visible to the viewer (public
	// plus the viewer's own), newest first.
	ListRecipes(ctx context.Context, viewerID string) ([]recipe.Recipe, error)
	// ListUserRecipes returns one owner's recipes visible to the viewer,
	// newest first.
	ListUserRecipes(ctx context.Context, ownerID, viewerID string) ([]recipe.Recipe, error)

	CreateComment(ctx context.Context, c recipe.Comment) error
	GetComment(ctx context.Context, recipeID, commentID string) (recipe.Comment, error)
	// ListComments returns a recipe's comments, newest first.
	ListComments(ctx context.Context, recipeID string) ([]recipe.Comment, error)
	UpdateCommentText(ctx context.Context, recipeID, commentID, text string) error
	DeleteComment(ctx context.Context, recipeID, commentID string) error

	// ToggleLike flips the (recipe, user) like state. The per-user like
	// record and the denormalized counter move together atomically; the
	// counter is adjusted server-side, never read-modify-write.
	ToggleLike(ctx context.Context, recipeID, userID string) (liked bool, likes int64, err error)
	HasLiked(ctx context.Context, recipeID, userID string) (bool, error)
	CountLikes(ctx context.Context, recipeID string) (int64, error)
}
