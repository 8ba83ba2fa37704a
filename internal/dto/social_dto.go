package dto

import (
	"time"

	"github.com/noah-isme/konekt-api/internal/models"
)

// PostCreateRequest publishes a post.
type PostCreateRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=5000"`
	ImageURL string `json:"image_url" validate:"omitempty,url,max=512"`
}

// CommentCreateRequest adds a comment to a post.
type CommentCreateRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// PostQuery pages through the post feed.
type PostQuery struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// PostResponse represents a post.
type PostResponse struct {
	ID        uint         `json:"id"`
	AuthorID  uint         `json:"author_id"`
	Author    *UserSummary `json:"author,omitempty"`
	Content   string       `json:"content"`
	ImageURL  string       `json:"image_url,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// CommentResponse represents a comment.
type CommentResponse struct {
	ID        uint         `json:"id"`
	PostID    uint         `json:"post_id"`
	AuthorID  uint         `json:"author_id"`
	Author    *UserSummary `json:"author,omitempty"`
	Content   string       `json:"content"`
	CreatedAt time.Time    `json:"created_at"`
}

// LikeResponse reports the like state of a post after a like/unlike.
type LikeResponse struct {
	PostID    uint  `json:"post_id"`
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"like_count"`
}

// FriendRequestResponse represents a friend request or friendship.
type FriendRequestResponse struct {
	ID          uint                `json:"id"`
	RequesterID uint                `json:"requester_id"`
	AddresseeID uint                `json:"addressee_id"`
	Status      models.FriendStatus `json:"status"`
	Requester   *UserSummary        `json:"requester,omitempty"`
	Addressee   *UserSummary        `json:"addressee,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// FriendResponse is one entry of a user's friend list.
type FriendResponse struct {
	FriendshipID uint         `json:"friendship_id"`
	Friend       *UserSummary `json:"friend"`
	Since        time.Time    `json:"since"`
}

// NewPostResponse converts a post model.
func NewPostResponse(model models.Post) PostResponse {
	return PostResponse{
		ID:        model.ID,
		AuthorID:  model.AuthorID,
		Author:    NewUserSummary(model.Author),
		Content:   model.Content,
		ImageURL:  model.ImageURL,
		CreatedAt: model.CreatedAt,
	}
}

// NewCommentResponse converts a comment model.
func NewCommentResponse(model models.Comment) CommentResponse {
	return CommentResponse{
		ID:        model.ID,
		PostID:    model.PostID,
		AuthorID:  model.AuthorID,
		Author:    NewUserSummary(model.Author),
		Content:   model.Content,
		CreatedAt: model.CreatedAt,
	}
}

// NewFriendRequestResponse converts a friend model.
func NewFriendRequestResponse(model models.Friend) FriendRequestResponse {
	return FriendRequestResponse{
		ID:          model.ID,
		RequesterID: model.RequesterID,
		AddresseeID: model.AddresseeID,
		Status:      model.Status,
		Requester:   NewUserSummary(model.Requester),
		Addressee:   NewUserSummary(model.Addressee),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewFriendResponse converts an accepted friendship from userID's point of view.
func NewFriendResponse(model models.Friend, userID uint) FriendResponse {
	friend := model.Addressee
	if model.AddresseeID == userID {
		friend = model.Requester
	}
	return FriendResponse{
		FriendshipID: model.ID,
		Friend:       NewUserSummary(friend),
		Since:        model.UpdatedAt,
	}
}

// PostListResponse carries one page of the feed.
type PostListResponse struct {
	Items    []PostResponse `json:"items"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}
