package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/observability"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

const defaultTypingTimeout = 3 * time.Second

// SocketService drives the lifecycle of realtime connections and dispatches
// their inbound events.
type SocketService interface {
	Serve(ctx context.Context, client *realtime.Client) error
	Connect(ctx context.Context, client *realtime.Client) error
	Disconnect(ctx context.Context, client *realtime.Client)
	HandleInbound(ctx context.Context, client *realtime.Client, frame dto.InboundFrame)
	Stats() dto.PresenceStatsResponse
}

// SocketOptions tunes the socket service.
type SocketOptions struct {
	TypingTimeout time.Duration
	Mirror        *realtime.PresenceMirror
	Sequencer     *realtime.Sequencer
}

type socketService struct {
	registry      *realtime.Registry
	router        *realtime.Router
	mirror        *realtime.PresenceMirror
	sequencer     *realtime.Sequencer
	conversations repository.ConversationRepository
	users         repository.UserRepository
	readState     ReadStateService
	notifications NotificationService
	typingTimeout time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

// NewSocketService constructs the connection lifecycle controller.
func NewSocketService(
	registry *realtime.Registry,
	router *realtime.Router,
	conversations repository.ConversationRepository,
	users repository.UserRepository,
	readState ReadStateService,
	notifications NotificationService,
	opts SocketOptions,
	logger zerolog.Logger,
) SocketService {
	timeout := opts.TypingTimeout
	if timeout <= 0 {
		timeout = defaultTypingTimeout
	}
	sequencer := opts.Sequencer
	if sequencer == nil {
		sequencer = realtime.NewSequencer()
	}
	return &socketService{
		registry:      registry,
		router:        router,
		mirror:        opts.Mirror,
		sequencer:     sequencer,
		conversations: conversations,
		users:         users,
		readState:     readState,
		notifications: notifications,
		typingTimeout: timeout,
		logger:        logger.With().Str("component", "socket_service").Logger(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Serve runs an authenticated client until its socket closes.
func (s *socketService) Serve(ctx context.Context, client *realtime.Client) error {
	go client.WritePump()
	defer s.Disconnect(context.Background(), client)

	if err := s.Connect(ctx, client); err != nil {
		return err
	}

	for {
		var frame dto.InboundFrame
		if err := client.ReadJSON(&frame); err != nil {
			s.logger.Debug().Err(err).Str("connection_id", client.ID()).Msg("socket read loop ended")
			return nil
		}
		s.HandleInbound(ctx, client, frame)
	}
}

// Connect activates an authenticated client and registers it. Conversation
// channels are entered only through conversation:join.
func (s *socketService) Connect(ctx context.Context, client *realtime.Client) error {
	if err := client.Activate(); err != nil {
		return err
	}
	userID := client.UserID()

	release := s.sequencer.Lock(presenceKey(userID))
	defer release()

	first := s.registry.Register(client)
	s.observe()
	s.logger.Debug().Str("user_id", userID.String()).Str("connection_id", client.ID()).Bool("first", first).Msg("socket connected")

	if first {
		if s.mirror != nil {
			if err := s.mirror.MarkOnline(ctx, userID); err != nil {
				s.logger.Warn().Err(err).Msg("failed to mirror online presence")
			}
		}
		s.router.Broadcast(ctx, realtime.EventUserOnline, dto.PresencePayload{UserID: uint(userID)}, client)
	}
	return nil
}

// Disconnect tears a client down. It is safe to call more than once.
func (s *socketService) Disconnect(ctx context.Context, client *realtime.Client) {
	client.Close()
	userID := client.UserID()

	release := s.sequencer.Lock(presenceKey(userID))
	defer release()

	last := s.registry.Deregister(client)
	s.router.LeaveAll(client)
	s.observe()

	if !last {
		return
	}

	lastSeen := s.now()
	if err := s.users.UpdateLastSeen(ctx, uint(userID), lastSeen); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to persist last seen")
	}
	if s.mirror != nil {
		if err := s.mirror.MarkOffline(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Msg("failed to mirror offline presence")
		}
	}
	s.router.Broadcast(ctx, realtime.EventUserOffline, dto.PresencePayload{UserID: uint(userID), LastSeen: &lastSeen}, client)
	s.logger.Debug().Str("user_id", userID.String()).Msg("user went offline")
}

func (s *socketService) HandleInbound(ctx context.Context, client *realtime.Client, frame dto.InboundFrame) {
	userID := uint(client.UserID())

	switch frame.Event {
	case realtime.InboundTypingStart:
		s.handleTyping(ctx, client, frame.Data)

	case realtime.InboundMessageRead:
		conversationID, err := realtime.ParseID(frame.Data.ConversationID)
		if err != nil {
			s.sendError(client, frame.Event, apperror.Validation("conversation_id is invalid"))
			return
		}
		if frame.Data.MessageID != nil {
			messageID, err := realtime.ParseID(frame.Data.MessageID)
			if err != nil {
				s.sendError(client, frame.Event, apperror.Validation("message_id is invalid"))
				return
			}
			_, err = s.readState.ReadUpTo(ctx, userID, conversationID, messageID)
			s.sendError(client, frame.Event, err)
			return
		}
		_, err = s.readState.TouchRead(ctx, userID, conversationID)
		s.sendError(client, frame.Event, err)

	case realtime.InboundNotificationRead:
		ids := make([]uint, 0, len(frame.Data.NotificationIDs))
		for _, raw := range frame.Data.NotificationIDs {
			id, err := realtime.ParseID(raw)
			if err != nil {
				s.sendError(client, frame.Event, apperror.Validation("notification_ids are invalid"))
				return
			}
			ids = append(ids, id)
		}
		_, err := s.notifications.MarkManyRead(ctx, userID, ids)
		s.sendError(client, frame.Event, err)

	case realtime.InboundNotificationAll:
		_, err := s.notifications.MarkAllRead(ctx, userID)
		s.sendError(client, frame.Event, err)

	case realtime.InboundNotificationClear:
		_, err := s.notifications.ClearAll(ctx, userID)
		s.sendError(client, frame.Event, err)

	case realtime.InboundConversationJoin:
		conversationID, err := realtime.ParseID(frame.Data.ConversationID)
		if err != nil {
			return
		}
		if _, err := s.conversations.FindParticipant(ctx, conversationID, userID); err != nil {
			return
		}
		s.router.Join(conversationID, client)

	case realtime.InboundConversationLeave:
		conversationID, err := realtime.ParseID(frame.Data.ConversationID)
		if err != nil {
			return
		}
		client.StopTyping(conversationID)
		s.router.Leave(conversationID, client)

	default:
		s.sendError(client, frame.Event, apperror.Validation("unsupported event"))
	}
}

// handleTyping relays a typing signal. Failures are dropped silently.
func (s *socketService) handleTyping(ctx context.Context, client *realtime.Client, data dto.InboundPayload) {
	conversationID, err := realtime.ParseID(data.ConversationID)
	if err != nil {
		return
	}
	userID := uint(client.UserID())
	if _, err := s.conversations.FindParticipant(ctx, conversationID, userID); err != nil {
		return
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return
	}

	started := client.StartTyping(conversationID, s.typingTimeout, func() {
		s.router.SendToConversation(context.Background(), conversationID, realtime.EventUserTypingStop, dto.TypingPayload{
			ConversationID: conversationID,
			UserID:         userID,
			Timestamp:      s.now(),
		})
	})
	if !started {
		return
	}

	s.router.SendToConversation(ctx, conversationID, realtime.EventUserTyping, dto.TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Username:       user.Username,
		Timestamp:      s.now(),
	})
}

// sendError reports a failed durable inbound event to the originating connection.
func (s *socketService) sendError(client *realtime.Client, event string, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Debug().Err(err).Str("event", event).Str("connection_id", client.ID()).Msg("inbound event failed")
	payload := realtime.ErrorPayload{
		Event:   event,
		Code:    string(apperror.KindOf(err)),
		Message: apperror.MessageOf(err),
	}
	if sendErr := client.Send(realtime.Event{Event: realtime.EventError, Data: payload}); sendErr != nil {
		s.logger.Debug().Err(sendErr).Msg("failed to deliver error event")
	}
}

func (s *socketService) Stats() dto.PresenceStatsResponse {
	stats := s.registry.Stats()
	users := s.registry.OnlineUsers()
	ids := make([]uint, 0, len(users))
	for _, user := range users {
		ids = append(ids, uint(user))
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return dto.PresenceStatsResponse{
		NodeID:      s.router.NodeID(),
		OnlineUsers: stats.OnlineUsers,
		Connections: stats.Connections,
		Users:       ids,
	}
}

// presenceKey orders a user's online/offline transitions with their broadcasts.
func presenceKey(userID realtime.UserID) string {
	return "presence:" + userID.String()
}

func (s *socketService) observe() {
	stats := s.registry.Stats()
	observability.ObservePresence(stats.OnlineUsers, stats.Connections)
}
