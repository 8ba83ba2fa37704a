package realtime

import (
	"sync"
	"time"
)

// Handle is one live transport connection owned by a user.
type Handle interface {
	ID() string
	UserID() UserID
	ConnectedAt() time.Time
	Send(event Event) error
}

// PresenceReader answers "is this user reachable right now".
type PresenceReader interface {
	IsActive(userID UserID) bool
}

// PresenceStats is a point-in-time view of the registry.
type PresenceStats struct {
	OnlineUsers int `json:"online_users"`
	Connections int `json:"connections"`
}

// Registry maps users to their live connections. A user is present iff it
// owns at least one handle; empty sets are removed, never kept.
type Registry struct {
	mu    sync.RWMutex
	users map[UserID]map[Handle]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[UserID]map[Handle]struct{})}
}

// Register adds handle to its owner's connection set. It reports true when the
// owner transitioned from offline to online.
func (r *Registry) Register(handle Handle) bool {
	if handle == nil {
		return false
	}
	userID := handle.UserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	handles, exists := r.users[userID]
	if !exists {
		handles = make(map[Handle]struct{})
		r.users[userID] = handles
	}
	handles[handle] = struct{}{}
	return !exists
}

// Deregister removes handle. It reports true when the owner's last connection
// was removed. Unknown users or handles are ignored.
func (r *Registry) Deregister(handle Handle) bool {
	if handle == nil {
		return false
	}
	userID := handle.UserID()

	r.mu.Lock()
	defer r.mu.Unlock()

	handles, exists := r.users[userID]
	if !exists {
		return false
	}
	if _, ok := handles[handle]; !ok {
		return false
	}
	delete(handles, handle)
	if len(handles) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// IsActive reports whether the user has at least one live connection.
func (r *Registry) IsActive(userID UserID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[userID]
	return ok
}

// ConnectionCount returns the number of live connections of the user.
func (r *Registry) ConnectionCount(userID UserID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID])
}

// Connections returns a snapshot of the user's handles.
func (r *Registry) Connections(userID UserID) []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handles := r.users[userID]
	out := make([]Handle, 0, len(handles))
	for handle := range handles {
		out = append(out, handle)
	}
	return out
}

// All returns a snapshot of every live handle.
func (r *Registry) All() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handle, 0, len(r.users))
	for _, handles := range r.users {
		for handle := range handles {
			out = append(out, handle)
		}
	}
	return out
}

// OnlineUsers lists the identities currently present.
func (r *Registry) OnlineUsers() []UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UserID, 0, len(r.users))
	for userID := range r.users {
		out = append(out, userID)
	}
	return out
}

// Stats summarises the registry.
func (r *Registry) Stats() PresenceStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := PresenceStats{OnlineUsers: len(r.users)}
	for _, handles := range r.users {
		stats.Connections += len(handles)
	}
	return stats
}
