package dto

import (
	"time"

	"github.com/noah-isme/konekt-api/internal/models"
)

// NotificationInput describes a notification to record.
type NotificationInput struct {
	Kind            models.NotificationKind `json:"type" validate:"required,oneof=message new_conversation added_to_conversation friend_request friend_accepted post_like post_comment"`
	UserID          uint                    `json:"user_id" validate:"required"`
	FromUserID      *uint                   `json:"from_user_id"`
	PostID          *uint                   `json:"post_id"`
	CommentID       *uint                   `json:"comment_id"`
	ConversationID  *uint                   `json:"conversation_id"`
	MessageID       *uint                   `json:"message_id"`
	FriendRequestID *uint                   `json:"friend_request_id"`
	Content         string                  `json:"content" validate:"required,max=2000"`
}

// NotificationListQuery pages through a user's notifications.
type NotificationListQuery struct {
	Page     int `query:"page" validate:"omitempty,min=1"`
	PageSize int `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// MarkNotificationsRequest lists notifications to flag as read.
type MarkNotificationsRequest struct {
	NotificationIDs []uint `json:"notification_ids" validate:"required,min=1,max=100,dive,gt=0"`
}

// NotificationResponse represents notification data returned to clients.
type NotificationResponse struct {
	ID              uint                    `json:"id"`
	Type            models.NotificationKind `json:"type"`
	UserID          uint                    `json:"user_id"`
	FromUserID      *uint                   `json:"from_user_id,omitempty"`
	FromUser        *UserSummary            `json:"from_user,omitempty"`
	PostID          *uint                   `json:"post_id,omitempty"`
	CommentID       *uint                   `json:"comment_id,omitempty"`
	ConversationID  *uint                   `json:"conversation_id,omitempty"`
	MessageID       *uint                   `json:"message_id,omitempty"`
	FriendRequestID *uint                   `json:"friend_request_id,omitempty"`
	Content         string                  `json:"content"`
	IsRead          bool                    `json:"is_read"`
	CreatedAt       time.Time               `json:"created_at"`
}

// NotificationListResponse carries one page of notifications and the unread total.
type NotificationListResponse struct {
	Items       []NotificationResponse `json:"items"`
	UnreadCount int64                  `json:"unread_count"`
	Total       int64                  `json:"total"`
	Page        int                    `json:"page"`
	PageSize    int                    `json:"page_size"`
}

// NotificationUnreadResponse reports the unread notification count.
type NotificationUnreadResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

// NotificationBulkResponse reports how many notifications a bulk action touched.
type NotificationBulkResponse struct {
	Affected int64 `json:"affected"`
}

// NewNotificationResponse converts a notification model to DTO.
func NewNotificationResponse(model models.Notification) NotificationResponse {
	return NotificationResponse{
		ID:              model.ID,
		Type:            model.Kind,
		UserID:          model.UserID,
		FromUserID:      model.FromUserID,
		FromUser:        NewUserSummary(model.FromUser),
		PostID:          model.PostID,
		CommentID:       model.CommentID,
		ConversationID:  model.ConversationID,
		MessageID:       model.MessageID,
		FriendRequestID: model.FriendRequestID,
		Content:         model.Content,
		IsRead:          model.IsRead,
		CreatedAt:       model.CreatedAt,
	}
}

// NewNotificationResponseSlice converts a slice of models into DTOs.
func NewNotificationResponseSlice(items []models.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, item := range items {
		out = append(out, NewNotificationResponse(item))
	}
	return out
}
