package realtime

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, buffer int) (*Client, *fakeSocket) {
	t.Helper()
	socket := newFakeSocket()
	client := NewClient(socket, ClientOptions{SendBuffer: buffer, Logger: zerolog.Nop()})
	t.Cleanup(client.Close)
	return client, socket
}

func TestClientLifecycleTransitions(t *testing.T) {
	client, socket := newTestClient(t, 4)
	require.Equal(t, StateConnecting, client.State())

	require.ErrorIs(t, client.Activate(), ErrInvalidTransition, "cannot activate before authenticating")
	require.ErrorIs(t, client.Authenticate(0), ErrInvalidTransition)

	require.NoError(t, client.Authenticate(8))
	require.Equal(t, StateAuthenticated, client.State())
	require.Equal(t, UserID(8), client.UserID())
	require.ErrorIs(t, client.Authenticate(9), ErrInvalidTransition)

	require.NoError(t, client.Activate())
	require.Equal(t, StateActive, client.State())
	require.False(t, client.ConnectedAt().IsZero())
	require.Equal(t, time.UTC, client.ConnectedAt().Location())

	client.Close()
	client.Close()
	require.Equal(t, StateClosed, client.State())
	require.True(t, socket.isClosed())
	require.ErrorIs(t, client.Send(Event{Event: EventMessageNew}), ErrClientClosed)
}

func TestClientSendReportsSlowConsumer(t *testing.T) {
	client, _ := newTestClient(t, 1)

	require.NoError(t, client.Send(Event{Event: EventMessageNew}))
	require.ErrorIs(t, client.Send(Event{Event: EventMessageNew}), ErrSendQueueFull)
}

func TestClientWritePumpPreservesOrder(t *testing.T) {
	client, socket := newTestClient(t, 8)
	for _, name := range []string{"first", "second", "third"} {
		require.NoError(t, client.Send(Event{Event: name}))
	}

	go client.WritePump()

	require.Eventually(t, func() bool {
		socket.mu.Lock()
		defer socket.mu.Unlock()
		return len(socket.written) == 3
	}, time.Second, 5*time.Millisecond)

	socket.mu.Lock()
	defer socket.mu.Unlock()
	names := make([]string, 0, 3)
	for _, frame := range socket.written {
		names = append(names, frame.(Event).Event)
	}
	require.Equal(t, []string{"first", "second", "third"}, names)
}

func TestClientTypingTimerFiresAfterQuietPeriod(t *testing.T) {
	client, _ := newTestClient(t, 4)
	var fired atomic.Int32

	require.True(t, client.StartTyping(1, 20*time.Millisecond, func() { fired.Add(1) }))
	require.Equal(t, 1, client.PendingTyping())

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, client.PendingTyping())
}

func TestClientTypingRestartCancelsPreviousTimer(t *testing.T) {
	client, _ := newTestClient(t, 4)
	var fired atomic.Int32
	onStop := func() { fired.Add(1) }

	require.True(t, client.StartTyping(1, 40*time.Millisecond, onStop))
	time.Sleep(20 * time.Millisecond)
	require.True(t, client.StartTyping(1, 40*time.Millisecond, onStop))
	require.Equal(t, 1, client.PendingTyping(), "at most one timer per conversation")

	require.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load(), "only the latest timer fires")
}

func TestClientTypingTimersAreIndependentPerConversation(t *testing.T) {
	client, _ := newTestClient(t, 4)
	var first, second atomic.Int32

	client.StartTyping(1, 10*time.Millisecond, func() { first.Add(1) })
	client.StartTyping(2, 10*time.Millisecond, func() { second.Add(1) })
	require.Equal(t, 2, client.PendingTyping())

	require.Eventually(t, func() bool {
		return first.Load() == 1 && second.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestClientTypingNeverFiresAfterClose(t *testing.T) {
	client, _ := newTestClient(t, 4)
	var fired atomic.Int32

	client.StartTyping(1, 20*time.Millisecond, func() { fired.Add(1) })
	client.Close()

	require.Equal(t, 0, client.PendingTyping())
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
	require.False(t, client.StartTyping(1, time.Millisecond, func() { fired.Add(1) }))
}

func TestClientStopTypingSuppressesCallback(t *testing.T) {
	client, _ := newTestClient(t, 4)
	var fired atomic.Int32

	client.StartTyping(3, 20*time.Millisecond, func() { fired.Add(1) })
	require.True(t, client.StopTyping(3))
	require.False(t, client.StopTyping(3))

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
}

func TestClientSlowTypingStopDoesNotBlockConnection(t *testing.T) {
	client, _ := newTestClient(t, 4)
	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	client.StartTyping(1, 5*time.Millisecond, func() {
		close(entered)
		<-release
	})
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("typing stop never fired")
	}

	done := make(chan struct{})
	go func() {
		client.StartTyping(2, time.Hour, func() {})
		client.StopTyping(2)
		client.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("connection blocked behind a pending typing stop")
	}
}
