package dto

import (
	"time"

	"github.com/noah-isme/konekt-api/internal/models"
)

// MessageCreateRequest is the payload of a new message.
type MessageCreateRequest struct {
	Content       string `json:"content" validate:"required,min=1,max=4000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url,max=512"`
}

// MessageUpdateRequest replaces the content of a message.
type MessageUpdateRequest struct {
	Content       string `json:"content" validate:"required,min=1,max=4000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url,max=512"`
}

// MessageResponse is the serialized representation of a message.
type MessageResponse struct {
	ID             uint         `json:"id"`
	ConversationID uint         `json:"conversation_id"`
	SenderID       uint         `json:"sender_id"`
	Sender         *UserSummary `json:"sender,omitempty"`
	ReceiverID     *uint        `json:"receiver_id,omitempty"`
	Content        string       `json:"content"`
	AttachmentURL  string       `json:"attachment_url,omitempty"`
	IsRead         bool         `json:"is_read"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Sender:         NewUserSummary(message.Sender),
		ReceiverID:     message.ReceiverID,
		Content:        message.Content,
		AttachmentURL:  message.AttachmentURL,
		IsRead:         message.IsRead,
		CreatedAt:      message.CreatedAt,
		UpdatedAt:      message.UpdatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
