package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/config"
	"github.com/noah-isme/konekt-api/internal/database"
	"github.com/noah-isme/konekt-api/internal/handler"
	"github.com/noah-isme/konekt-api/internal/middleware"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/internal/router"
	"github.com/noah-isme/konekt-api/internal/service"
)

const testSecret = "handler-test-secret"

type testApp struct {
	app      *fiber.App
	db       *gorm.DB
	registry *realtime.Registry
	router   *realtime.Router
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.ConnectSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	registry := realtime.NewRegistry()
	eventRouter := realtime.NewRouter(registry, nil, logger)
	sequencer := realtime.NewSequencer()

	userRepo := repository.NewUserRepository(db)
	friendRepo := repository.NewFriendRepository(db)
	postRepo := repository.NewPostRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifications := service.NewNotificationService(notificationRepo, userRepo, registry, eventRouter, validate, logger)
	notifier := service.NewNotifier(notifications)
	readState := service.NewReadStateService(conversationRepo, messageRepo, eventRouter, sequencer, logger)
	conversations := service.NewConversationService(conversationRepo, messageRepo, userRepo, readState, notifier, eventRouter, sequencer, validate, logger)
	messages := service.NewMessageService(conversationRepo, messageRepo, notifier, eventRouter, sequencer, validate, logger)
	friends := service.NewFriendService(friendRepo, userRepo, notifier, sequencer, logger)
	posts := service.NewPostService(postRepo, userRepo, notifier, validate, logger)
	users := service.NewUserService(userRepo, registry, validate, logger)
	sockets := service.NewSocketService(registry, eventRouter, conversationRepo, userRepo, readState, notifications, service.SocketOptions{Sequencer: sequencer}, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Konekt API", AppEnv: "test"}, router.Dependencies{
		ConversationHandler: handler.NewConversationHandler(conversations, messages, readState, nil, logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, validate, logger),
		FriendHandler:       handler.NewFriendHandler(friends, logger),
		UserHandler:         handler.NewUserHandler(users, friends, logger),
		PostHandler:         handler.NewPostHandler(posts, logger),
		SocketHandler:       handler.NewSocketHandler(sockets, realtime.ClientOptions{}, logger),
		Verifier:            middleware.NewJWTVerifier(testSecret),
		NodeID:              eventRouter.NodeID(),
	})

	return &testApp{app: app, db: db, registry: registry, router: eventRouter}
}

func (a *testApp) seedUser(t *testing.T, username string) models.User {
	t.Helper()
	user := models.User{Username: username, DisplayName: username}
	require.NoError(t, a.db.Create(&user).Error)
	return user
}

func tokenFor(t *testing.T, userID uint, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": userID}
	if role != "" {
		claims["role"] = role
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// do performs a request as userID; userID 0 sends no credentials.
func (a *testApp) do(t *testing.T, method, path string, userID uint, body interface{}) *http.Response {
	t.Helper()
	return a.doAs(t, method, path, userID, "", body)
}

func (a *testApp) doAs(t *testing.T, method, path string, userID uint, role string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID, role))
	}

	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope[T any] struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
	Meta    struct {
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
		Total    int64 `json:"total"`
	} `json:"meta"`
}

func decode[T any](t *testing.T, resp *http.Response) envelope[T] {
	t.Helper()
	defer resp.Body.Close()

	var body envelope[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
