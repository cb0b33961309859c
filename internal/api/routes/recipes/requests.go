package recipes

import (
	"github.com/msegal/heirloom/internal/recipe"
)

type CreateRecipeRequest struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Ingredients  []recipe.Ingredient `json:"ingredients"`
	Instructions []string            `json:"instructions"`
	PrepTime     int                 `json:"prepTime"`
	CookTime     int                 `json:"cookTime"`
	Servings     int                 `json:"servings"`
	Difficulty   recipe.Difficulty   `json:"difficulty"`
	Categories   []string            `json:"categories"`
	Notes        string              `json:"notes"`
	IsPublic     bool                `json:"isPublic"`
}

func (req *CreateRecipeRequest) toRecipe() recipe.Recipe {
	return recipe.Recipe{
		Title:        req.Title,
		Description:  req.Description,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		PrepTime:     req.PrepTime,
		CookTime:     req.CookTime,
		Servings:     req.Servings,
		Difficulty:   req.Difficulty,
		Categories:   req.Categories,
		Notes:        req.Notes,
		IsPublic:     req.IsPublic,
	}
}

type ImportImageRequest struct {
	URL string `json:"url" validate:"required,url"`
}
