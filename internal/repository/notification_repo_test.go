package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/konekt-api/internal/models"
)

func TestNotificationRepositoryLifecycle(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben")
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	ids := make([]uint, 0, 3)
	for i := 0; i < 3; i++ {
		notification := models.Notification{
			UserID:     users[0].ID,
			Kind:       models.NotificationFriendRequest,
			FromUserID: &users[1].ID,
			Content:    "ben sent you a friend request",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, &notification))
		ids = append(ids, notification.ID)
	}
	foreign := models.Notification{UserID: users[1].ID, Kind: models.NotificationPostLike, Content: "x"}
	require.NoError(t, repo.Create(ctx, &foreign))

	items, total, err := repo.ListByUser(ctx, users[0].ID, PageFilter{PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	require.Equal(t, ids[2], items[0].ID, "newest first")
	require.NotNil(t, items[0].FromUser)

	unread, err := repo.CountUnread(ctx, users[0].ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), unread)

	affected, err := repo.MarkManyRead(ctx, users[0].ID, []uint{ids[0], foreign.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), affected, "foreign ids are ignored")

	stillUnread, err := repo.FindByID(ctx, foreign.ID)
	require.NoError(t, err)
	require.False(t, stillUnread.IsRead)

	require.NoError(t, repo.MarkRead(ctx, ids[1]))
	affected, err = repo.MarkAllRead(ctx, users[0].ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	unread, err = repo.CountUnread(ctx, users[0].ID)
	require.NoError(t, err)
	require.Zero(t, unread)

	deleted, err := repo.DeleteAllByUser(ctx, users[0].ID)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)

	_, total, err = repo.ListByUser(ctx, users[1].ID, PageFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}
