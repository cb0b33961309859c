// Package postgres implements the store on pgx.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/msegal/heirloom/internal/recipe"
	"github.com/msegal/heirloom/internal/store"
	"github.com/msegal/heirloom/internal/user"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies the schema. Statements are idempotent so this is
// safe to run on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User, passwordHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, display_name, photo_url, password_hash, last_login)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.DisplayName, nullText(u.PhotoURL), passwordHash, u.LastLogin)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrEmailConflict
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	u, _, err := s.scanUser(ctx, `
		SELECT id, email, display_name, photo_url, password_hash, last_login
		FROM users WHERE id = $1`, id)
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, string, error) {
	return s.scanUser(ctx, `
		SELECT id, email, display_name, photo_url, password_hash, last_login
		FROM users WHERE email = $1`, email)
}

func (s *Store) scanUser(ctx context.Context, query string, arg any) (user.User, string, error) {
	var (
		u        user.User
		photoURL pgtype.Text
		hash     string
	)
	err := s.pool.QueryRow(ctx, query, arg).
		Scan(&u.ID, &u.Email, &u.DisplayName, &photoURL, &hash, &u.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, "", store.ErrNotFound
	}
	if err != nil {
		return user.User{}, "", fmt.Errorf("querying user: %w", err)
	}
	u.PhotoURL = photoURL.String
	return u, hash, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET email = $2, display_name = $3, photo_url = $4
		WHERE id = $1`,
		u.ID, u.Email, u.DisplayName, nullText(u.PhotoURL))
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreateRecipe(ctx context.Context, r recipe.Recipe) error {
	ingredients, instructions, categories, err := encodeRecipeArrays(&r)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO recipes (id, title, description, ingredients, instructions,
			categories, prep_time, cook_time, servings, difficulty, image_url,
			notes, user_id, is_public, likes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		r.ID, r.Title, r.Description, ingredients, instructions, categories,
		r.PrepTime, r.CookTime, r.Servings, string(r.Difficulty),
		nullText(r.ImageURL), nullText(r.Notes), r.UserID, r.IsPublic,
		r.Likes, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting recipe: %w", err)
	}
	return nil
}

const recipeColumns = `id, title, description, ingredients, instructions,
	categories, prep_time, cook_time, servings, difficulty, image_url, notes,
	user_id, is_public, likes, created_at, updated_at`

func (s *Store) GetRecipe(ctx context.Context, id string) (recipe.Recipe, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recipeColumns+` FROM recipes WHERE id = $1`, id)
	r, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return recipe.Recipe{}, store.ErrNotFound
	}
	return r, err
}

func (s *Store) UpdateRecipe(ctx context.Context, r recipe.Recipe) error {
	ingredients, instructions, categories, err := encodeRecipeArrays(&r)
	if err != nil {
		return err
	}
	// likes intentionally excluded: the counter moves through ToggleLike.
	tag, err := s.pool.Exec(ctx, `
		UPDATE recipes SET title = $2, description = $3, ingredients = $4,
			instructions = $5, categories = $6, prep_time = $7, cook_time = $8,
			servings = $9, difficulty = $10, notes = $11, is_public = $12,
			updated_at = $13
		WHERE id = $1`,
		r.ID, r.Title, r.Description, ingredients, instructions, categories,
		r.PrepTime, r.CookTime, r.Servings, string(r.Difficulty),
		nullText(r.Notes), r.IsPublic, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SetRecipeImageURL(ctx context.Context, id, url string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE recipes SET image_url = $2 WHERE id = $1`, id, nullText(url))
	if err != nil {
		return fmt.Errorf("updating recipe image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteRecipe removes child comments and likes before the parent inside
// one transaction, so a partial failure never leaves orphans behind.
func (s *Store) DeleteRecipe(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE recipe_id = $1`, id); err != nil {
		return fmt.Errorf("deleting comments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM likes WHERE recipe_id = $1`, id); err != nil {
		return fmt.Errorf("deleting likes: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting recipe: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (s *Store) ListRecipes(ctx context.Context, viewerID string) ([]recipe.Recipe, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recipeColumns+` FROM recipes
		WHERE is_public OR user_id = $1
		ORDER BY created_at DESC, id DESC`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("querying recipes: %w", err)
	}
	return collectRecipes(rows)
}

func (s *Store) ListUserRecipes(ctx context.Context, ownerID, viewerID string) ([]recipe.Recipe, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+recipeColumns+` FROM recipes
		WHERE user_id = $1 AND (is_public OR user_id = $2)
		ORDER BY created_at DESC, id DESC`, ownerID, viewerID)
	if err != nil {
		return nil, fmt.Errorf("querying recipes: %w", err)
	}
	return collectRecipes(rows)
}

func (s *Store) CreateComment(ctx context.Context, c recipe.Comment) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO comments (id, recipe_id, user_id, user_name, user_photo, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.RecipeID, c.UserID, c.UserName, nullText(c.UserPhoto), c.Text, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting comment: %w", err)
	}
	return nil
}

func (s *Store) GetComment(ctx context.Context, recipeID, commentID string) (recipe.Comment, error) {
	var (
		c         recipe.Comment
		userPhoto pgtype.Text
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, recipe_id, user_id, user_name, user_photo, body, created_at
		FROM comments WHERE recipe_id = $1 AND id = $2`, recipeID, commentID).
		Scan(&c.ID, &c.RecipeID, &c.UserID, &c.UserName, &userPhoto, &c.Text, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return recipe.Comment{}, store.ErrNotFound
	}
	if err != nil {
		return recipe.Comment{}, fmt.Errorf("querying comment: %w", err)
	}
	c.UserPhoto = userPhoto.String
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, recipeID string) ([]recipe.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, recipe_id, user_id, user_name, user_photo, body, created_at
		FROM comments WHERE recipe_id = $1
		ORDER BY created_at DESC, id DESC`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("querying comments: %w", err)
	}
	defer rows.Close()

	var out []recipe.Comment
	for rows.Next() {
		var (
			c         recipe.Comment
			userPhoto pgtype.Text
		)
		if err := rows.Scan(&c.ID, &c.RecipeID, &c.UserID, &c.UserName,
			&userPhoto, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		c.UserPhoto = userPhoto.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateCommentText(ctx context.Context, recipeID, commentID, text string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE comments SET body = $3 WHERE recipe_id = $1 AND id = $2`,
		recipeID, commentID, text)
	if err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, recipeID, commentID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM comments WHERE recipe_id = $1 AND id = $2`, recipeID, commentID)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ToggleLike inserts or removes the like row and moves the denormalized
// counter in the same transaction, using a server-side increment so
// concurrent toggles by different users cannot lose updates.
func (s *Store) ToggleLike(ctx context.Context, recipeID, userID string) (bool, int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO likes (recipe_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, recipeID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("inserting like: %w", err)
	}

	liked := tag.RowsAffected() == 1
	var likes int64
	if liked {
		err = tx.QueryRow(ctx, `
			UPDATE recipes SET likes = likes + 1 WHERE id = $1
			RETURNING likes`, recipeID).Scan(&likes)
	} else {
		if _, err := tx.Exec(ctx, `
			DELETE FROM likes WHERE recipe_id = $1 AND user_id = $2`,
			recipeID, userID); err != nil {
			return false, 0, fmt.Errorf("deleting like: %w", err)
		}
		err = tx.QueryRow(ctx, `
			UPDATE recipes SET likes = GREATEST(likes - 1, 0) WHERE id = $1
			RETURNING likes`, recipeID).Scan(&likes)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, 0, store.ErrNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("adjusting like counter: %w", err)
	}

	return liked, likes, tx.Commit(ctx)
}

func (s *Store) HasLiked(ctx context.Context, recipeID, userID string) (bool, error) {
	var has bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM likes WHERE recipe_id = $1 AND user_id = $2)`,
		recipeID, userID).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("querying like: %w", err)
	}
	return has, nil
}

func (s *Store) CountLikes(ctx context.Context, recipeID string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM likes WHERE recipe_id = $1`, recipeID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting likes: %w", err)
	}
	return count, nil
}

func encodeRecipeArrays(r *recipe.Recipe) (ingredients, instructions, categories []byte, err error) {
	if ingredients, err = json.Marshal(r.Ingredients); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding ingredients: %w", err)
	}
	if instructions, err = json.Marshal(r.Instructions); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding instructions: %w", err)
	}
	if r.Categories == nil {
		categories = []byte("[]")
	} else if categories, err = json.Marshal(r.Categories); err != nil {
		return nil, nil, nil, fmt.Errorf("encoding categories: %w", err)
	}
	return ingredients, instructions, categories, nil
}

func scanRecipe(row pgx.Row) (recipe.Recipe, error) {
	var (
		r            recipe.Recipe
		ingredients  []byte
		instructions []byte
		categories   []byte
		difficulty   string
		imageURL     pgtype.Text
		notes        pgtype.Text
	)
	err := row.Scan(&r.ID, &r.Title, &r.Description, &ingredients,
		&instructions, &categories, &r.PrepTime, &r.CookTime, &r.Servings,
		&difficulty, &imageURL, &notes, &r.UserID, &r.IsPublic, &r.Likes,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return recipe.Recipe{}, err
	}

	// Stored shapes are decoded, not trusted: a row that fails to decode
	// is reported as an error instead of yielding a half-filled record.
	if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
		return recipe.Recipe{}, fmt.Errorf("decoding ingredients for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(instructions, &r.Instructions); err != nil {
		return recipe.Recipe{}, fmt.Errorf("decoding instructions for %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(categories, &r.Categories); err != nil {
		return recipe.Recipe{}, fmt.Errorf("decoding categories for %s: %w", r.ID, err)
	}
	r.Difficulty = recipe.Difficulty(difficulty)
	r.ImageURL = imageURL.String
	r.Notes = notes.String
	return r, nil
}

func collectRecipes(rows pgx.Rows) ([]recipe.Recipe, error) {
	defer rows.Close()

	var out []recipe.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning recipe: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
