package recipe

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateCommentText(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		want      string
		wantError error
	}{
		{
			name: "plain text",
			text: "Made this last night, fantastic.",
			want: "Made this last night, fantastic.",
		},
		{
			name: "surrounding whitespace is trimmed",
			text: "  so good \n",
			want: "so good",
		},
		{
			name:      "empty",
			text:      "",
			wantError: ErrEmptyComment,
		},
		{
			name:      "whitespace only",
			text:      " \t\n ",
			wantError: ErrEmptyComment,
		},
		{
			name: "exactly at the limit",
			text: strings.Repeat("a", MaxCommentLength),
			want: strings.Repeat("a", MaxCommentLength),
		},
		{
			name:      "over the limit",
			text:      strings.Repeat("a", MaxCommentLength+1),
			wantError: ErrCommentTooLong,
		},
		{
			name: "multibyte runes count as one character",
			text: strings.Repeat("é", MaxCommentLength),
			want: strings.Repeat("é", MaxCommentLength),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCommentText(tt.text)
			if tt.wantError != nil {
				if !errors.Is(err, tt.wantError) {
					t.Fatalf("error = %v, want %v", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanDeleteComment(t *testing.T) {
	rec := Recipe{UserID: "owner"}
	comment := Comment{UserID: "author"}

	tests := []struct {
		name   string
		userID string
		want   bool
	}{
		{"author can delete", "author", true},
		{"recipe owner can delete", "owner", true},
		{"third party cannot", "stranger", false},
		{"anonymous cannot", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanDeleteComment(&comment, &rec, tt.userID); got != tt.want {
				t.Errorf("CanDeleteComment(%q) = %v, want %v", tt.userID, got, tt.want)
			}
		})
	}
}
