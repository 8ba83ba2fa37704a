package models

import (
	"fmt"
	"time"
)

// Conversation groups messages exchanged between participants. Direct
// conversations carry a DirectKey that is unique per user pair; groups leave it
// NULL and require a title.
type Conversation struct {
	ID           uint                      `gorm:"primaryKey" json:"id"`
	Title        *string                   `gorm:"size:255" json:"title"`
	IsGroup      bool                      `gorm:"not null;default:false" json:"is_group"`
	DirectKey    *string                   `gorm:"size:64;uniqueIndex" json:"-"`
	Participants []ConversationParticipant `json:"participants,omitempty"`
	Messages     []Message                 `json:"messages,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// DirectKey builds the unordered pair key of a direct conversation.
func DirectKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// Participant returns the membership of userID, if any.
func (c Conversation) Participant(userID uint) (ConversationParticipant, bool) {
	for _, participant := range c.Participants {
		if participant.UserID == userID {
			return participant, true
		}
	}
	return ConversationParticipant{}, false
}

// ConversationParticipant is a user's membership in a conversation together
// with the read marker. LastReadAt is nil until the first read.
type ConversationParticipant struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"not null;uniqueIndex:idx_participants_user_conversation" json:"user_id"`
	ConversationID uint       `gorm:"not null;index;uniqueIndex:idx_participants_user_conversation" json:"conversation_id"`
	User           *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt       time.Time  `gorm:"not null" json:"joined_at"`
	LastReadAt     *time.Time `json:"last_read_at"`
	IsHidden       bool       `gorm:"not null;default:false" json:"is_hidden"`
}

// Message is a single entry in a conversation. ReceiverID is only set for
// direct conversations.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	ReceiverID     *uint     `gorm:"index" json:"receiver_id"`
	Sender         *User     `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	AttachmentURL  string    `gorm:"size:512" json:"attachment_url"`
	IsRead         bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
