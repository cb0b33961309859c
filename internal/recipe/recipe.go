// Package recipe contains the recipe domain model and its invariants.
package recipe

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Validate() error {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return nil
	}
	return fmt.Errorf("unknown difficulty: %q", d)
}

type Ingredient struct {
	Item   string  `json:"item" validate:"required,notblank"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Unit   string  `json:"unit"`
}

type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title" validate:"required,notblank"`
	Description  string       `json:"description" validate:"required,notblank"`
	Ingredients  []Ingredient `json:"ingredients" validate:"required,min=1,dive"`
	Instructions []string     `json:"instructions" validate:"required,min=1,dive,required,notblank"`
	PrepTime     int          `json:"prepTime" validate:"gte=0"`
	CookTime     int          `json:"cookTime" validate:"gte=0"`
	Servings     int          `json:"servings" validate:"gte=1"`
	Difficulty   Difficulty   `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Categories   []string     `json:"categories"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	UserID       string       `json:"userId"`
	IsPublic     bool         `json:"isPublic"`
	Likes        int64        `json:"likes"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

var ErrInvalidRecipe = errors.New("invalid recipe")

func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", notBlank)
	return v
}

var validate = newValidator()

// Validate checks the record invariants. It never touches the store, so a
// rejected recipe produces no backend traffic.
func (r *Recipe) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.Join(ErrInvalidRecipe, err)
	}
	return nil
}

// VisibleTo reports whether the recipe may be read by the given user.
// Private recipes are readable by their owner only.
func (r *Recipe) VisibleTo(userID string) bool {
	return r.IsPublic || (userID != "" && r.UserID == userID)
}

// Patch holds a partial update. Nil fields are left untouched.
type Patch struct {
	Title        *string       `json:"title"`
	Description  *string       `json:"description"`
	Ingredients  *[]Ingredient `json:"ingredients"`
	Instructions *[]string     `json:"instructions"`
	PrepTime     *int          `json:"prepTime"`
	CookTime     *int          `json:"cookTime"`
	Servings     *int          `json:"servings"`
	Difficulty   *Difficulty   `json:"difficulty"`
	Categories   *[]string     `json:"categories"`
	Notes        *string       `json:"notes"`
	IsPublic     *bool         `json:"isPublic"`
}

// Apply merges the patch into the recipe. The result must be re-validated
// by the caller before it is persisted.
func (r *Recipe) Apply(p Patch) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Ingredients != nil {
		r.Ingredients = *p.Ingredients
	}
	if p.Instructions != nil {
		r.Instructions = *p.Instructions
	}
	if p.PrepTime != nil {
		r.PrepTime = *p.PrepTime
	}
	if p.CookTime != nil {
		r.CookTime = *p.CookTime
	}
	if p.Servings != nil {
		r.Servings = *p.Servings
	}
	if p.Difficulty != nil {
		r.Difficulty = *p.Difficulty
	}
	if p.Categories != nil {
		r.Categories = *p.Categories
	}
	if p.Notes != nil {
		r.Notes = *p.Notes
	}
	if p.IsPublic != nil {
		r.IsPublic = *p.IsPublic
	}
}
