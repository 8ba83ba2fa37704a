package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

func TestSendMessageReachesOnlineRecipient(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()
	conversationID := env.direct(t, users[0].ID, users[1].ID)
	bobClient, bobSocket := env.connect(t, users[1].ID)
	env.join(t, bobClient, conversationID)

	sent, err := env.messages.Send(ctx, users[0].ID, conversationID, dto.MessageCreateRequest{Content: "hi bob"})
	require.NoError(t, err)
	require.Equal(t, users[1].ID, *sent.ReceiverID)
	require.Equal(t, "alice", sent.Sender.Username)

	event := bobSocket.waitFor(t, realtime.EventMessageNew)
	payload := event.Data.(dto.MessageEventPayload)
	require.Equal(t, sent.ID, payload.Message.ID)
	require.NotNil(t, payload.Conversation)
	require.Equal(t, conversationID, payload.Conversation.ID)

	event = bobSocket.waitFor(t, realtime.EventNotificationNew)
	notification := event.Data.(dto.NotificationResponse)
	require.Equal(t, models.NotificationMessage, notification.Type)
	require.Equal(t, "New message from alice: hi bob", notification.Content)
	require.Equal(t, sent.ID, *notification.MessageID)
}

func TestSendMessageSkipsParticipantThatNeverJoined(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()
	conversationID := env.direct(t, users[0].ID, users[1].ID)
	bobClient, bobSocket := env.connect(t, users[1].ID)

	_, err := env.messages.Send(ctx, users[0].ID, conversationID, dto.MessageCreateRequest{Content: "hi"})
	require.NoError(t, err)

	bobSocket.waitFor(t, realtime.EventNotificationNew)
	settle()
	require.False(t, env.router.IsMember(conversationID, bobClient))
	require.Zero(t, bobSocket.count(realtime.EventMessageNew))
}

func TestSendMessageToOfflineRecipientLeavesDurableNotification(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()
	conversationID := env.direct(t, users[0].ID, users[1].ID)
	aliceClient, aliceSocket := env.connect(t, users[0].ID)
	env.join(t, aliceClient, conversationID)

	_, err := env.messages.Send(ctx, users[0].ID, conversationID, dto.MessageCreateRequest{Content: "see you later"})
	require.NoError(t, err)
	aliceSocket.waitFor(t, realtime.EventMessageNew)

	list, err := env.notifications.List(ctx, users[1].ID, dto.NotificationListQuery{})
	require.NoError(t, err)
	var messageNotifications int
	for _, item := range list.Items {
		if item.Type == models.NotificationMessage {
			messageNotifications++
			require.False(t, item.IsRead)
		}
	}
	require.Equal(t, 1, messageNotifications)

	unread, err := env.readState.UnreadCount(ctx, users[1].ID, conversationID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread.UnreadCount)

	settle()
	require.Zero(t, aliceSocket.count(realtime.EventNotificationNew))
}

func TestSendMessageRequiresParticipant(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob", "mallory")
	conversationID := env.direct(t, users[0].ID, users[1].ID)

	_, err := env.messages.Send(context.Background(), users[2].ID, conversationID, dto.MessageCreateRequest{Content: "let me in"})
	require.True(t, apperror.IsKind(err, apperror.KindUnauthorized))

	_, err = env.messages.Send(context.Background(), users[0].ID, conversationID+50, dto.MessageCreateRequest{Content: "void"})
	require.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = env.messages.Send(context.Background(), users[0].ID, conversationID, dto.MessageCreateRequest{Content: "<script>x</script>"})
	require.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestSendMessageRestoresHiddenDirectConversation(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()
	conversationID := env.direct(t, users[0].ID, users[1].ID)
	require.NoError(t, env.conversations.Leave(ctx, users[1].ID, conversationID))
	bobClient, bobSocket := env.connect(t, users[1].ID)
	require.False(t, env.router.IsMember(conversationID, bobClient))

	_, err := env.messages.Send(ctx, users[0].ID, conversationID, dto.MessageCreateRequest{Content: "come back"})
	require.NoError(t, err)

	list, err := env.conversations.List(ctx, users[1].ID, dto.ConversationQuery{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	bobSocket.waitFor(t, realtime.EventNotificationNew)
	require.False(t, env.router.IsMember(conversationID, bobClient))
	env.join(t, bobClient, conversationID)
}

func TestSendMessageBumpsConversationActivity(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob", "carol")
	ctx := context.Background()
	older := env.direct(t, users[0].ID, users[1].ID)
	env.direct(t, users[0].ID, users[2].ID)

	_, err := env.messages.Send(ctx, users[1].ID, older, dto.MessageCreateRequest{Content: "bump"})
	require.NoError(t, err)

	list, err := env.conversations.List(ctx, users[0].ID, dto.ConversationQuery{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, older, list.Items[0].ID)
}

func TestEditAndDeleteMessageBySenderOnly(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()
	conversationID := env.direct(t, users[0].ID, users[1].ID)
	bobClient, bobSocket := env.connect(t, users[1].ID)
	env.join(t, bobClient, conversationID)

	sent, err := env.messages.Send(ctx, users[0].ID, conversationID, dto.MessageCreateRequest{Content: "first"})
	require.NoError(t, err)

	_, err = env.messages.Edit(ctx, users[1].ID, conversationID, sent.ID, dto.MessageUpdateRequest{Content: "hijack"})
	require.True(t, apperror.IsKind(err, apperror.KindUnauthorized))

	_, err = env.messages.Edit(ctx, users[0].ID, conversationID+9, sent.ID, dto.MessageUpdateRequest{Content: "elsewhere"})
	require.True(t, apperror.IsKind(err, apperror.KindNotFound))

	edited, err := env.messages.Edit(ctx, users[0].ID, conversationID, sent.ID, dto.MessageUpdateRequest{Content: "second"})
	require.NoError(t, err)
	require.Equal(t, "second", edited.Content)
	event := bobSocket.waitFor(t, realtime.EventMessageUpdated)
	require.Equal(t, "second", event.Data.(dto.MessageEventPayload).Message.Content)

	err = env.messages.Delete(ctx, users[1].ID, conversationID, sent.ID)
	require.True(t, apperror.IsKind(err, apperror.KindUnauthorized))

	require.NoError(t, env.messages.Delete(ctx, users[0].ID, conversationID, sent.ID))
	event = bobSocket.waitFor(t, realtime.EventMessageDeleted)
	require.Equal(t, dto.MessageDeletedPayload{MessageID: sent.ID, ConversationID: conversationID}, event.Data)

	err = env.messages.Delete(ctx, users[0].ID, conversationID, sent.ID)
	require.True(t, apperror.IsKind(err, apperror.KindNotFound))
}
