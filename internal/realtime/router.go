package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/observability"
)

// Router resolves delivery targets into live handles and pushes events.
// Delivery is best effort: failing handles are logged and skipped.
type Router struct {
	registry *Registry
	bus      EventBus
	nodeID   string
	logger   zerolog.Logger

	mu          sync.RWMutex
	channels    map[uint]map[Handle]struct{}
	memberships map[Handle]map[uint]struct{}
}

// NewRouter constructs a router over registry. bus may be nil for single-node
// deployments.
func NewRouter(registry *Registry, bus EventBus, logger zerolog.Logger) *Router {
	return &Router{
		registry:    registry,
		bus:         bus,
		nodeID:      uuid.NewString(),
		logger:      logger.With().Str("component", "delivery_router").Logger(),
		channels:    make(map[uint]map[Handle]struct{}),
		memberships: make(map[Handle]map[uint]struct{}),
	}
}

// NodeID identifies this process on the event bus.
func (r *Router) NodeID() string { return r.nodeID }

// Start consumes envelopes published by other nodes until ctx is done.
func (r *Router) Start(ctx context.Context) {
	if r.bus == nil {
		return
	}
	go func() {
		if err := r.bus.Subscribe(ctx, r.handleEnvelope); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error().Err(err).Msg("event bus subscription closed")
		}
	}()
}

// Join adds handle to the conversation channel. Closed handles are ignored
// and Join reports false for them.
func (r *Router) Join(conversationID uint, handle Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if isClosed(handle) {
		return false
	}

	members, ok := r.channels[conversationID]
	if !ok {
		members = make(map[Handle]struct{})
		r.channels[conversationID] = members
	}
	members[handle] = struct{}{}

	joined, ok := r.memberships[handle]
	if !ok {
		joined = make(map[uint]struct{})
		r.memberships[handle] = joined
	}
	joined[conversationID] = struct{}{}
	return true
}

// isClosed reports whether a handle exposing Done has already shut down.
func isClosed(handle Handle) bool {
	closer, ok := handle.(interface{ Done() <-chan struct{} })
	if !ok {
		return false
	}
	select {
	case <-closer.Done():
		return true
	default:
		return false
	}
}

// Leave removes handle from the conversation channel.
func (r *Router) Leave(conversationID uint, handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conversationID, handle)
}

// LeaveAll removes handle from every channel it joined.
func (r *Router) LeaveAll(handle Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for conversationID := range r.memberships[handle] {
		r.leaveLocked(conversationID, handle)
	}
	delete(r.memberships, handle)
}

// LeaveUser removes every connection of userID from the conversation channel
// on every node.
func (r *Router) LeaveUser(ctx context.Context, conversationID uint, userID UserID) {
	r.leaveUserLocal(conversationID, userID)
	r.publish(ctx, Target{Kind: TargetLeave, UserID: userID, ConversationID: conversationID}, "", nil)
}

func (r *Router) leaveUserLocal(conversationID uint, userID UserID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for handle := range r.channels[conversationID] {
		if handle.UserID() == userID {
			r.leaveLocked(conversationID, handle)
		}
	}
}

func (r *Router) leaveLocked(conversationID uint, handle Handle) {
	if members, ok := r.channels[conversationID]; ok {
		delete(members, handle)
		if len(members) == 0 {
			delete(r.channels, conversationID)
		}
	}
	if joined, ok := r.memberships[handle]; ok {
		delete(joined, conversationID)
		if len(joined) == 0 {
			delete(r.memberships, handle)
		}
	}
}

// Members returns a snapshot of the handles joined to the conversation.
func (r *Router) Members(conversationID uint) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.channels[conversationID]
	out := make([]Handle, 0, len(members))
	for handle := range members {
		out = append(out, handle)
	}
	return out
}

// IsMember reports whether handle joined the conversation channel.
func (r *Router) IsMember(conversationID uint, handle Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[conversationID][handle]
	return ok
}

// SendToUser delivers to every live connection of userID and returns the
// number of local handles reached.
func (r *Router) SendToUser(ctx context.Context, userID UserID, event string, payload any) int {
	delivered := r.deliver(r.registry.Connections(userID), Event{Event: event, Data: payload}, nil)
	r.publish(ctx, Target{Kind: TargetUser, UserID: userID}, event, payload)
	return delivered
}

// SendToConversation delivers to every connection joined to the conversation.
func (r *Router) SendToConversation(ctx context.Context, conversationID uint, event string, payload any) int {
	delivered := r.deliver(r.Members(conversationID), Event{Event: event, Data: payload}, nil)
	r.publish(ctx, Target{Kind: TargetConversation, ConversationID: conversationID}, event, payload)
	return delivered
}

// Broadcast delivers to every live connection except exclude.
func (r *Router) Broadcast(ctx context.Context, event string, payload any, exclude Handle) int {
	delivered := r.deliver(r.registry.All(), Event{Event: event, Data: payload}, exclude)
	r.publish(ctx, Target{Kind: TargetAll}, event, payload)
	return delivered
}

func (r *Router) deliver(handles []Handle, event Event, exclude Handle) int {
	delivered := 0
	for _, handle := range handles {
		if exclude != nil && handle == exclude {
			continue
		}
		if err := handle.Send(event); err != nil {
			observability.RealtimeEventsDropped().WithLabelValues(dropReason(err)).Inc()
			r.logger.Debug().Err(err).
				Str("event", event.Event).
				Str("connection_id", handle.ID()).
				Str("user_id", handle.UserID().String()).
				Msg("dropping event for connection")
			continue
		}
		delivered++
	}
	if delivered > 0 {
		observability.RealtimeEventsDelivered().WithLabelValues(event.Event).Add(float64(delivered))
	}
	return delivered
}

func (r *Router) publish(ctx context.Context, target Target, event string, payload any) {
	if r.bus == nil {
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn().Err(err).Str("event", event).Msg("failed to marshal event for bus")
		return
	}

	envelope := Envelope{
		Source:  r.nodeID,
		Target:  target,
		Event:   event,
		Payload: raw,
		SentAt:  time.Now().UTC(),
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := r.bus.Publish(ctx, envelope); err != nil {
		r.logger.Warn().Err(err).Str("event", event).Msg("failed to publish event to bus")
	}
}

func (r *Router) handleEnvelope(envelope Envelope) {
	if envelope.Source == r.nodeID {
		return
	}

	event := Event{Event: envelope.Event, Data: envelope.Payload}
	switch envelope.Target.Kind {
	case TargetUser:
		r.deliver(r.registry.Connections(envelope.Target.UserID), event, nil)
	case TargetConversation:
		r.deliver(r.Members(envelope.Target.ConversationID), event, nil)
	case TargetAll:
		r.deliver(r.registry.All(), event, nil)
	case TargetLeave:
		r.leaveUserLocal(envelope.Target.ConversationID, envelope.Target.UserID)
	default:
		r.logger.Warn().Str("target", envelope.Target.Kind).Msg("unknown envelope target")
	}
}

func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrClientClosed):
		return "closed"
	case errors.Is(err, ErrSendQueueFull):
		return "slow_consumer"
	default:
		return "error"
	}
}
