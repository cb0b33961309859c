package recipe

import (
	"testing"
)

func sampleRecipes() []Recipe {
	pie := validRecipe()

	soup := validRecipe()
	soup.ID = "soup"
	soup.Title = "Lentil Soup"
	soup.Description = "Weeknight staple."
	soup.Difficulty = DifficultyEasy
	soup.Categories = []string{"dinner", "vegetarian"}
	soup.Ingredients = []Ingredient{{Item: "lentils", Amount: 2, Unit: "cups"}}

	bread := validRecipe()
	bread.ID = "bread"
	bread.Title = "Sourdough"
	bread.Description = "Three day ferment."
	bread.Difficulty = DifficultyHard
	bread.Categories = []string{"baking"}
	bread.Ingredients = []Ingredient{{Item: "bread flour", Amount: 500, Unit: "g"}}

	return []Recipe{pie, soup, bread}
}

func TestFilterMatch(t *testing.T) {
	recipes := sampleRecipes()

	tests := []struct {
		name   string
		filter Filter
		want   []string // expected recipe IDs in order
	}{
		{
			name:   "empty filter matches everything",
			filter: Filter{},
			want:   []string{"01ARZ3NDEKTSV4RRFFQ69G5FAV", "soup", "bread"},
		},
		{
			name:   "category filter",
			filter: Filter{Category: "baking"},
			want:   []string{"01ARZ3NDEKTSV4RRFFQ69G5FAV", "bread"},
		},
		{
			name:   "difficulty filter",
			filter: Filter{Difficulty: DifficultyEasy},
			want:   []string{"soup"},
		},
		{
			name:   "query matches title case-insensitively",
			filter: Filter{Query: "LENTIL"},
			want:   []string{"soup"},
		},
		{
			name:   "query matches description",
			filter: Filter{Query: "thanksgiving"},
			want:   []string{"01ARZ3NDEKTSV4RRFFQ69G5FAV"},
		},
		{
			name:   "query matches ingredient name",
			filter: Filter{Query: "bread flour"},
			want:   []string{"bread"},
		},
		{
			name:   "query matches category",
			filter: Filter{Query: "vegetarian"},
			want:   []string{"soup"},
		},
		{
			name:   "filters are ANDed",
			filter: Filter{Category: "baking", Difficulty: DifficultyHard},
			want:   []string{"bread"},
		},
		{
			name:   "conflicting filters match nothing",
			filter: Filter{Category: "dinner", Difficulty: DifficultyHard},
			want:   []string{},
		},
		{
			name:   "no match",
			filter: Filter{Query: "sushi"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(recipes)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d recipes, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID != tt.want[i] {
					t.Errorf("recipe[%d].ID = %q, want %q", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestVisible(t *testing.T) {
	private := validRecipe()
	private.ID = "private"
	private.IsPublic = false
	private.UserID = "alice"

	public := validRecipe()
	public.ID = "public"

	recipes := []Recipe{private, public}

	if got := Visible(recipes, ""); len(got) != 1 || got[0].ID != "public" {
		t.Errorf("anonymous viewer sees %v, want [public]", ids(got))
	}
	if got := Visible(recipes, "alice"); len(got) != 2 {
		t.Errorf("owner sees %v, want both", ids(got))
	}
	if got := Visible(recipes, "bob"); len(got) != 1 || got[0].ID != "public" {
		t.Errorf("other viewer sees %v, want [public]", ids(got))
	}
}

func ids(recipes []Recipe) []string {
	out := make([]string, len(recipes))
	for i := range recipes {
		out[i] = recipes[i].ID
	}
	return out
}

func TestCountCategories(t *testing.T) {
	recipes := sampleRecipes()
	got := CountCategories(recipes)

	want := []CategoryCount{
		{Name: "baking", Count: 2},
		{Name: "dessert", Count: 1},
		{Name: "dinner", Count: 1},
		{Name: "vegetarian", Count: 1},
	}

	if len(got) != len(want) {
		t.Fatalf("got %d categories, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("category[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestCountCategoriesEmpty(t *testing.T) {
	if got := CountCategories(nil); len(got) != 0 {
		t.Errorf("CountCategories(nil) = %v, want empty", got)
	}
}
