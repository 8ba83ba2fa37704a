package dto

import (
	"time"

	"github.com/noah-isme/konekt-api/internal/models"
)

// ConversationCreateRequest opens a direct or group conversation. Participants
// lists the other users; the caller is always added.
type ConversationCreateRequest struct {
	Participants []uint `json:"participants" validate:"required,min=1,max=100,dive,gt=0"`
	Title        string `json:"title" validate:"omitempty,max=255"`
	IsGroup      bool   `json:"is_group"`
}

// ConversationUpdateRequest renames a group conversation.
type ConversationUpdateRequest struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
}

// ParticipantAddRequest adds a user to a group conversation.
type ParticipantAddRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

// ConversationQuery pages through conversations or a conversation's messages.
type ConversationQuery struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ParticipantResponse describes a member of a conversation.
type ParticipantResponse struct {
	UserID     uint         `json:"user_id"`
	User       *UserSummary `json:"user,omitempty"`
	JoinedAt   time.Time    `json:"joined_at"`
	LastReadAt *time.Time   `json:"last_read_at"`
	IsHidden   bool         `json:"is_hidden"`
}

// ConversationResponse is the list/detail representation of a conversation.
type ConversationResponse struct {
	ID           uint                  `json:"id"`
	Title        *string               `json:"title"`
	IsGroup      bool                  `json:"is_group"`
	Participants []ParticipantResponse `json:"participants"`
	LastMessage  *MessageResponse      `json:"last_message,omitempty"`
	UnreadCount  int64                 `json:"unread_count"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// ConversationDetailResponse is a conversation with one page of its history.
type ConversationDetailResponse struct {
	ConversationResponse
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total_messages"`
}

// ConversationCreateResult reports whether an existing conversation was reused.
type ConversationCreateResult struct {
	Conversation ConversationResponse
	Created      bool
	Restored     bool
}

// UnreadCountResponse is the unread count of a single conversation.
type UnreadCountResponse struct {
	ConversationID uint  `json:"conversation_id"`
	UnreadCount    int64 `json:"unread_count"`
}

// UnreadSummaryResponse aggregates unread counts across conversations.
type UnreadSummaryResponse struct {
	Conversations []UnreadCountResponse `json:"conversations"`
	TotalUnread   int64                 `json:"total_unread"`
}

// NewParticipantResponse converts a participant model.
func NewParticipantResponse(model models.ConversationParticipant) ParticipantResponse {
	return ParticipantResponse{
		UserID:     model.UserID,
		User:       NewUserSummary(model.User),
		JoinedAt:   model.JoinedAt,
		LastReadAt: model.LastReadAt,
		IsHidden:   model.IsHidden,
	}
}

// NewParticipantResponseSlice converts participant models.
func NewParticipantResponseSlice(items []models.ConversationParticipant) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewParticipantResponse(item))
	}
	return out
}

// NewConversationResponse converts a conversation model.
func NewConversationResponse(model models.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:           model.ID,
		Title:        model.Title,
		IsGroup:      model.IsGroup,
		Participants: NewParticipantResponseSlice(model.Participants),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

// ConversationListResponse carries one page of conversations.
type ConversationListResponse struct {
	Items    []ConversationResponse `json:"items"`
	Total    int64                  `json:"total"`
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
}
