package recipe

import (
	"sort"
	"strings"
)

// Filter narrows a recipe list. Zero-valued fields are pass-throughs, so
// the empty Filter matches everything. Filters are ANDed together.
type Filter struct {
	Category   string
	Difficulty Difficulty
	Query      string
}

// Match reports whether the recipe passes all set filters.
func (f Filter) Match(r *Recipe) bool {
	if f.Category != "" && !hasCategory(r, f.Category) {
		return false
	}
	if f.Difficulty != "" && r.Difficulty != f.Difficulty {
		return false
	}
	if f.Query != "" && !matchesQuery(r, f.Query) {
		return false
	}
	return true
}

// Apply returns the recipes passing the filter, preserving input order.
func (f Filter) Apply(recipes []Recipe) []Recipe {
	if f == (Filter{}) {
		return recipes
	}
	out := make([]Recipe, 0, len(recipes))
	for i := range recipes {
		if f.Match(&recipes[i]) {
			out = append(out, recipes[i])
		}
	}
	return out
}

func hasCategory(r *Recipe, category string) bool {
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// matchesQuery does a case-insensitive substring search across the title,
// description, categories and ingredient names, ORed.
func matchesQuery(r *Recipe, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(r.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(r.Description), q) {
		return true
	}
	for _, c := range r.Categories {
		if strings.Contains(strings.ToLower(c), q) {
			return true
		}
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing.Item), q) {
			return true
		}
	}
	return false
}

// Visible returns the subset of recipes readable by the given user,
// preserving input order.
func Visible(recipes []Recipe, userID string) []Recipe {
	out := make([]Recipe, 0, len(recipes))
	for i := range recipes {
		if recipes[i].VisibleTo(userID) {
			out = append(out, recipes[i])
		}
	}
	return out
}

type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// CountCategories groups the recipe set by category string. A recipe with
// N categories contributes to N groups. Groups are sorted by descending
// count, then name, so the output is stable for equal counts.
func CountCategories(recipes []Recipe) []CategoryCount {
	counts := make(map[string]int)
	for i := range recipes {
		for _, c := range recipes[i].Categories {
			counts[c]++
		}
	}

	out := make([]CategoryCount, 0, len(counts))
	for name, count := range counts {
		out = append(out, CategoryCount{Name: name, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
