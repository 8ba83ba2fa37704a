package models

import "time"

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationMessage             NotificationKind = "message"
	NotificationNewConversation     NotificationKind = "new_conversation"
	NotificationAddedToConversation NotificationKind = "added_to_conversation"
	NotificationFriendRequest       NotificationKind = "friend_request"
	NotificationFriendAccepted      NotificationKind = "friend_accepted"
	NotificationPostLike            NotificationKind = "post_like"
	NotificationPostComment         NotificationKind = "post_comment"
)

// Valid reports whether k is a known kind.
func (k NotificationKind) Valid() bool {
	switch k {
	case NotificationMessage, NotificationNewConversation, NotificationAddedToConversation,
		NotificationFriendRequest, NotificationFriendAccepted, NotificationPostLike, NotificationPostComment:
		return true
	default:
		return false
	}
}

// Notification is a durable record addressed to one user. IsRead only ever
// moves from false to true.
type Notification struct {
	ID              uint             `gorm:"primaryKey" json:"id"`
	UserID          uint             `gorm:"not null;index" json:"user_id"`
	Kind            NotificationKind `gorm:"size:32;not null" json:"type"`
	FromUserID      *uint            `gorm:"index" json:"from_user_id"`
	FromUser        *User            `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	PostID          *uint            `json:"post_id,omitempty"`
	CommentID       *uint            `json:"comment_id,omitempty"`
	ConversationID  *uint            `json:"conversation_id,omitempty"`
	MessageID       *uint            `json:"message_id,omitempty"`
	FriendRequestID *uint            `json:"friend_request_id,omitempty"`
	Content         string           `gorm:"type:text;not null" json:"content"`
	IsRead          bool             `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt       time.Time        `gorm:"index" json:"created_at"`
}

// AllModels lists every persisted model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Friend{},
		&Post{},
		&Comment{},
		&Like{},
		&Conversation{},
		&ConversationParticipant{},
		&Message{},
		&Notification{},
	}
}
