package dto

import (
	"time"
)

// InboundPayload is the union of fields carried by inbound socket events. Ids
// arrive as numbers or strings and are normalised by the socket service.
type InboundPayload struct {
	ConversationID  any   `json:"conversation_id"`
	MessageID       any   `json:"message_id"`
	NotificationIDs []any `json:"notification_ids"`
}

// InboundFrame is a single inbound socket frame.
type InboundFrame struct {
	Event string         `json:"event"`
	Data  InboundPayload `json:"data"`
}

// PresencePayload announces a user going online or offline.
type PresencePayload struct {
	UserID   uint       `json:"user_id"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// MessageEventPayload is pushed with message:new and message:updated.
type MessageEventPayload struct {
	Message      MessageResponse       `json:"message"`
	Conversation *ConversationResponse `json:"conversation,omitempty"`
}

// MessageDeletedPayload is pushed with message:deleted.
type MessageDeletedPayload struct {
	MessageID      uint `json:"message_id"`
	ConversationID uint `json:"conversation_id"`
}

// ReadReceiptPayload is pushed with message:read.
type ReadReceiptPayload struct {
	ConversationID    uint      `json:"conversation_id"`
	UserID            uint      `json:"user_id"`
	LastReadMessageID uint      `json:"last_read_message_id"`
	Timestamp         time.Time `json:"timestamp"`
}

// TypingPayload is pushed with user:typing and user:typing:stop.
type TypingPayload struct {
	ConversationID uint      `json:"conversation_id"`
	UserID         uint      `json:"user_id"`
	Username       string    `json:"username,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationRenamedPayload is pushed with conversation:renamed.
type ConversationRenamedPayload struct {
	ConversationID uint      `json:"conversation_id"`
	NewTitle       string    `json:"new_title"`
	UserID         uint      `json:"user_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// ParticipantEventPayload is pushed with conversation:user_added and
// conversation:user_left.
type ParticipantEventPayload struct {
	ConversationID uint      `json:"conversation_id"`
	UserID         uint      `json:"user_id"`
	AddedByID      uint      `json:"added_by_id,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// NotificationReadPayload syncs read notifications across a user's tabs.
type NotificationReadPayload struct {
	NotificationIDs []uint `json:"notification_ids,omitempty"`
	Affected        int64  `json:"affected"`
}

// PresenceStatsResponse is the admin view of live presence.
type PresenceStatsResponse struct {
	NodeID      string `json:"node_id"`
	OnlineUsers int    `json:"online_users"`
	Connections int    `json:"connections"`
	Users       []uint `json:"users"`
}
