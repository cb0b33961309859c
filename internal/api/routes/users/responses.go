package users

import "github.com/msegal/heirloom/internal/user"

type SignupResponse struct {
	UserID string `json:"uid"`
}

type SessionResponse struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

func newSessionResponse(u user.User) SessionResponse {
	return SessionResponse{
		UID:         u.ID,
		Email:       u.Email,
		DisplayName: u.Name(),
		PhotoURL:    u.PhotoURL,
	}
}

type ProfileResponse struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

type PhotoResponse struct {
	PhotoURL string `json:"photoURL"`
}
