package realtime

import "github.com/moby/locker"

// Sequencer serialises work per key (a conversation, a user pair, a user's
// presence) so that persist-then-emit sequences for the same key are observed
// in issue order.
type Sequencer struct {
	locks *locker.Locker
}

// NewSequencer constructs an empty sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{locks: locker.New()}
}

// Lock acquires the key and returns its release function.
func (s *Sequencer) Lock(key string) func() {
	s.locks.Lock(key)
	return func() {
		_ = s.locks.Unlock(key)
	}
}

// Do runs fn while holding key.
func (s *Sequencer) Do(key string, fn func() error) error {
	release := s.Lock(key)
	defer release()
	return fn()
}
