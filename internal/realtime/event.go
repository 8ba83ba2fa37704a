package realtime

// Outbound event names.
const (
	EventUserOnline            = "user:online"
	EventUserOffline           = "user:offline"
	EventNotificationNew       = "notification:new"
	EventNotificationRead      = "notification:read"
	EventNotificationReadAll   = "notification:read:all"
	EventNotificationCleared   = "notification:cleared"
	EventMessageNew            = "message:new"
	EventMessageUpdated        = "message:updated"
	EventMessageDeleted        = "message:deleted"
	EventMessageRead           = "message:read"
	EventUserTyping            = "user:typing"
	EventUserTypingStop        = "user:typing:stop"
	EventConversationRenamed   = "conversation:renamed"
	EventConversationUserAdded = "conversation:user_added"
	EventConversationUserLeft  = "conversation:user_left"
	EventError                 = "error"
)

// Inbound event names.
const (
	InboundTypingStart       = "user:typing:start"
	InboundMessageRead       = "message:read"
	InboundNotificationRead  = "notification:read"
	InboundNotificationAll   = "notification:read:all"
	InboundNotificationClear = "notification:clear"
	InboundConversationJoin  = "conversation:join"
	InboundConversationLeave = "conversation:leave"
)

// Event is the frame exchanged over a connection.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ErrorPayload is sent back to a connection whose inbound event failed.
type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
