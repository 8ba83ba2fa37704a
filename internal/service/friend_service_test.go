package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

func notificationsOf(t *testing.T, env *testEnv, userID uint, kind models.NotificationKind) []dto.NotificationResponse {
	t.Helper()
	list, err := env.notifications.List(context.Background(), userID, dto.NotificationListQuery{PageSize: 100})
	require.NoError(t, err)
	out := make([]dto.NotificationResponse, 0)
	for _, item := range list.Items {
		if item.Type == kind {
			out = append(out, item)
		}
	}
	return out
}

func TestFriendRequestAcceptFlow(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()

	request, err := env.friends.SendRequest(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusPending, request.Status)

	received := notificationsOf(t, env, users[1].ID, models.NotificationFriendRequest)
	require.Len(t, received, 1)
	require.Equal(t, "alice sent you a friend request", received[0].Content)
	require.NotNil(t, received[0].FriendRequestID)
	require.Equal(t, request.ID, *received[0].FriendRequestID)

	pending, err := env.friends.ListPending(ctx, users[1].ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = env.friends.Accept(ctx, users[0].ID, request.ID)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))

	accepted, err := env.friends.Accept(ctx, users[1].ID, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusAccepted, accepted.Status)

	accept := notificationsOf(t, env, users[0].ID, models.NotificationFriendAccepted)
	require.Len(t, accept, 1)
	require.Equal(t, "bob accepted your friend request", accept[0].Content)

	_, err = env.friends.Accept(ctx, users[1].ID, request.ID)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))

	friends, err := env.friends.ListFriends(ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.Equal(t, users[1].ID, friends[0].Friend.ID)

	other, err := env.friends.ListFriends(ctx, users[1].ID)
	require.NoError(t, err)
	require.Equal(t, users[0].ID, other[0].Friend.ID)
}

func TestFriendRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()

	_, err := env.friends.SendRequest(ctx, users[0].ID, users[0].ID)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = env.friends.SendRequest(ctx, users[0].ID, 999)
	require.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = env.friends.SendRequest(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)

	_, err = env.friends.SendRequest(ctx, users[1].ID, users[0].ID)
	require.True(t, apperror.IsKind(err, apperror.KindConflict))

	_, err = env.friends.Reject(ctx, users[0].ID, 12345)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestFriendRequestConcurrentSendCreatesOne(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := users[0].ID, users[1].ID
			if i%2 == 1 {
				from, to = to, from
			}
			if _, err := env.friends.SendRequest(context.Background(), from, to); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	var count int64
	require.NoError(t, env.db.Model(&models.Friend{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestFriendRequestRejectedCanBeResent(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()

	request, err := env.friends.SendRequest(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)

	rejected, err := env.friends.Reject(ctx, users[1].ID, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusRejected, rejected.Status)

	again, err := env.friends.SendRequest(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusPending, again.Status)
	require.NotEqual(t, request.ID, again.ID)
}

func TestFriendDeleteAndRemove(t *testing.T) {
	env := newTestEnv(t)
	users := env.seedUsers(t, "alice", "bob")
	ctx := context.Background()

	err := env.friends.DeleteRequest(ctx, users[0].ID, users[1].ID)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))

	request, err := env.friends.SendRequest(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)
	require.NoError(t, env.friends.DeleteRequest(ctx, users[0].ID, users[1].ID))

	err = env.friends.RemoveFriend(ctx, users[0].ID, users[1].ID)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))

	request, err = env.friends.SendRequest(ctx, users[0].ID, users[1].ID)
	require.NoError(t, err)
	_, err = env.friends.Accept(ctx, users[1].ID, request.ID)
	require.NoError(t, err)

	err = env.friends.DeleteRequest(ctx, users[1].ID, users[0].ID)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))

	require.NoError(t, env.friends.RemoveFriend(ctx, users[1].ID, users[0].ID))
	friends, err := env.friends.ListFriends(ctx, users[0].ID)
	require.NoError(t, err)
	require.Empty(t, friends)
}
