package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/database"
	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
)

const testTypingTimeout = 40 * time.Millisecond

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type testEnv struct {
	db        *gorm.DB
	registry  *realtime.Registry
	router    *realtime.Router
	sequencer *realtime.Sequencer

	userRepo         repository.UserRepository
	friendRepo       repository.FriendRepository
	postRepo         repository.PostRepository
	conversationRepo repository.ConversationRepository
	messageRepo      repository.MessageRepository
	notificationRepo repository.NotificationRepository

	notifications NotificationService
	notifier      *Notifier
	readState     ReadStateService
	conversations ConversationService
	messages      MessageService
	friends       FriendService
	posts         PostService
	users         UserService
	sockets       SocketService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.ConnectSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	env := &testEnv{
		db:               db,
		registry:         realtime.NewRegistry(),
		sequencer:        realtime.NewSequencer(),
		userRepo:         repository.NewUserRepository(db),
		friendRepo:       repository.NewFriendRepository(db),
		postRepo:         repository.NewPostRepository(db),
		conversationRepo: repository.NewConversationRepository(db),
		messageRepo:      repository.NewMessageRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
	}
	env.router = realtime.NewRouter(env.registry, nil, testLogger())

	env.notifications = NewNotificationService(env.notificationRepo, env.userRepo, env.registry, env.router, validate, testLogger())
	env.notifier = NewNotifier(env.notifications)
	env.readState = NewReadStateService(env.conversationRepo, env.messageRepo, env.router, env.sequencer, testLogger())
	env.conversations = NewConversationService(env.conversationRepo, env.messageRepo, env.userRepo, env.readState, env.notifier, env.router, env.sequencer, validate, testLogger())
	env.messages = NewMessageService(env.conversationRepo, env.messageRepo, env.notifier, env.router, env.sequencer, validate, testLogger())
	env.friends = NewFriendService(env.friendRepo, env.userRepo, env.notifier, env.sequencer, testLogger())
	env.posts = NewPostService(env.postRepo, env.userRepo, env.notifier, validate, testLogger())
	env.users = NewUserService(env.userRepo, env.registry, validate, testLogger())
	env.sockets = NewSocketService(env.registry, env.router, env.conversationRepo, env.userRepo, env.readState, env.notifications,
		SocketOptions{TypingTimeout: testTypingTimeout, Sequencer: env.sequencer}, testLogger())

	return env
}

func (e *testEnv) seedUsers(t *testing.T, names ...string) []models.User {
	t.Helper()
	users := make([]models.User, 0, len(names))
	for _, name := range names {
		user := models.User{Username: name, DisplayName: name}
		require.NoError(t, e.db.Create(&user).Error)
		users = append(users, user)
	}
	return users
}

func (e *testEnv) direct(t *testing.T, a, b uint) uint {
	t.Helper()
	result, err := e.conversations.Create(context.Background(), a, dto.ConversationCreateRequest{Participants: []uint{b}})
	require.NoError(t, err)
	return result.Conversation.ID
}

// connect opens an active realtime client for userID backed by a recording socket.
func (e *testEnv) connect(t *testing.T, userID uint) (*realtime.Client, *recordingSocket) {
	t.Helper()
	socket := newRecordingSocket()
	client := realtime.NewClient(socket, realtime.ClientOptions{PingInterval: time.Hour, Logger: testLogger()})
	require.NoError(t, client.Authenticate(realtime.UserID(userID)))
	go client.WritePump()
	require.NoError(t, e.sockets.Connect(context.Background(), client))
	t.Cleanup(func() { e.sockets.Disconnect(context.Background(), client) })
	return client, socket
}

// join subscribes client to the conversation channel the way a browser tab does.
func (e *testEnv) join(t *testing.T, client *realtime.Client, conversationID uint) {
	t.Helper()
	e.sockets.HandleInbound(context.Background(), client, dto.InboundFrame{
		Event: realtime.InboundConversationJoin,
		Data:  dto.InboundPayload{ConversationID: conversationID},
	})
	require.True(t, e.router.IsMember(conversationID, client))
}

type recordingSocket struct {
	mu      sync.Mutex
	events  []realtime.Event
	inbound chan dto.InboundFrame
	done    chan struct{}
	once    sync.Once
}

func newRecordingSocket() *recordingSocket {
	return &recordingSocket{inbound: make(chan dto.InboundFrame, 8), done: make(chan struct{})}
}

func (s *recordingSocket) ReadJSON(v interface{}) error {
	select {
	case frame := <-s.inbound:
		*(v.(*dto.InboundFrame)) = frame
		return nil
	case <-s.done:
		return io.EOF
	}
}

func (s *recordingSocket) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, v.(realtime.Event))
	return nil
}

func (s *recordingSocket) WriteMessage(int, []byte) error { return nil }

func (s *recordingSocket) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *recordingSocket) received() []realtime.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]realtime.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *recordingSocket) find(name string) (realtime.Event, bool) {
	for _, event := range s.received() {
		if event.Event == name {
			return event, true
		}
	}
	return realtime.Event{}, false
}

func (s *recordingSocket) count(name string) int {
	n := 0
	for _, event := range s.received() {
		if event.Event == name {
			n++
		}
	}
	return n
}

func (s *recordingSocket) waitFor(t *testing.T, name string) realtime.Event {
	t.Helper()
	var found realtime.Event
	require.Eventually(t, func() bool {
		event, ok := s.find(name)
		found = event
		return ok
	}, time.Second, 5*time.Millisecond, "expected event %s", name)
	return found
}

// settle waits for queued events to be flushed to the socket.
func settle() {
	time.Sleep(30 * time.Millisecond)
}

type recorderStub struct {
	mu    sync.Mutex
	calls []dto.NotificationInput
	err   error
}

func (r *recorderStub) Record(_ context.Context, input dto.NotificationInput) (dto.NotificationResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return dto.NotificationResponse{}, r.err
	}
	r.calls = append(r.calls, input)
	return dto.NotificationResponse{UserID: input.UserID, Type: input.Kind, Content: input.Content}, nil
}
