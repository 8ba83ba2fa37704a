package dto

import (
	"time"

	"github.com/noah-isme/konekt-api/internal/models"
)

// UserCreateRequest registers a profile for an already authenticated account.
type UserCreateRequest struct {
	Username      string `json:"username" validate:"required,min=3,max=64,alphanum"`
	DisplayName   string `json:"display_name" validate:"omitempty,max=128"`
	Bio           string `json:"bio" validate:"omitempty,max=500"`
	ProfilePicURL string `json:"profile_pic_url" validate:"omitempty,url,max=512"`
}

// UserSummary is the compact user shape embedded in other payloads.
type UserSummary struct {
	ID            uint   `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name,omitempty"`
	ProfilePicURL string `json:"profile_pic_url,omitempty"`
}

// UserResponse is the full profile including live presence.
type UserResponse struct {
	UserSummary
	Bio        string     `json:"bio,omitempty"`
	Online     bool       `json:"online"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewUserSummary converts a user model. A nil user yields nil.
func NewUserSummary(user *models.User) *UserSummary {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &UserSummary{
		ID:            user.ID,
		Username:      user.Username,
		DisplayName:   user.DisplayName,
		ProfilePicURL: user.ProfilePicURL,
	}
}

// NewUserResponse converts a user model together with its presence.
func NewUserResponse(user models.User, online bool) UserResponse {
	return UserResponse{
		UserSummary: *NewUserSummary(&user),
		Bio:         user.Bio,
		Online:      online,
		LastSeenAt:  user.LastSeenAt,
		CreatedAt:   user.CreatedAt,
	}
}
