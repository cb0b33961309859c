package recipes

import "github.com/msegal/heirloom/internal/recipe"

type RecipeResponse struct {
	recipe.Recipe

	// Liked reports whether the requesting user has liked this recipe.
	Liked bool `json:"liked"`
}

type ListRecipesResponse struct {
	Recipes []recipe.Recipe `json:"recipes"`
}

type ImageResponse struct {
	ImageURL string `json:"imageUrl"`
}
