package recipe

import (
	"errors"
	"strings"
	"time"
)

// MaxCommentLength caps comment text after trimming.
const MaxCommentLength = 1000

type Comment struct {
	ID        string    `json:"id"`
	RecipeID  string    `json:"recipeId"`
	Text      string    `json:"text"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	UserPhoto string    `json:"userPhoto,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

var (
	ErrEmptyComment   = errors.New("comment text is empty")
	ErrCommentTooLong = errors.New("comment text exceeds 1000 characters")
)

// ValidateCommentText trims the text and enforces the length bounds,
// returning the trimmed form.
func ValidateCommentText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyComment
	}
	if len([]rune(trimmed)) > MaxCommentLength {
		return "", ErrCommentTooLong
	}
	return trimmed, nil
}

// CanDeleteComment reports whether the user may delete the comment: its
// author always can, and so can the owner of the parent recipe.
func CanDeleteComment(c *Comment, r *Recipe, userID string) bool {
	return c.UserID == userID || r.UserID == userID
}
