package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/models"
)

func TestUserRepositoryExistingIDsAndLastSeen(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben")
	repo := NewUserRepository(db)
	ctx := context.Background()

	found, err := repo.ExistingIDs(ctx, []uint{users[0].ID, users[1].ID, 999})
	require.NoError(t, err)
	require.ElementsMatch(t, []uint{users[0].ID, users[1].ID}, found)

	seen := time.Date(2024, 3, 3, 3, 3, 3, 0, time.UTC)
	require.NoError(t, repo.UpdateLastSeen(ctx, users[0].ID, seen))
	stored, err := repo.FindByID(ctx, users[0].ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastSeenAt)
	require.True(t, stored.LastSeenAt.Equal(seen))

	duplicate := models.User{Username: "ana"}
	require.ErrorIs(t, repo.Create(ctx, &duplicate), gorm.ErrDuplicatedKey)
}

func TestFriendRepositoryFindsEitherDirection(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben", "cy")
	repo := NewFriendRepository(db)
	ctx := context.Background()

	request := models.Friend{RequesterID: users[0].ID, AddresseeID: users[1].ID, Status: models.FriendStatusPending}
	require.NoError(t, repo.Create(ctx, &request))

	found, err := repo.FindBetween(ctx, users[1].ID, users[0].ID)
	require.NoError(t, err)
	require.Equal(t, request.ID, found.ID)
	require.Equal(t, users[1].ID, found.Other(users[0].ID))

	_, err = repo.FindBetween(ctx, users[0].ID, users[2].ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	pending, err := repo.ListPending(ctx, users[1].ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "ana", pending[0].Requester.Username)

	accepted, err := repo.UpdateStatus(ctx, request.ID, models.FriendStatusAccepted)
	require.NoError(t, err)
	require.Equal(t, models.FriendStatusAccepted, accepted.Status)

	friends, err := repo.ListAccepted(ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)

	require.NoError(t, repo.Delete(ctx, request.ID))
	_, err = repo.FindByID(ctx, request.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPostRepositoryLikesAreUniquePerUser(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben")
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := models.Post{AuthorID: users[0].ID, Content: "hello"}
	require.NoError(t, repo.Create(ctx, &post))

	require.NoError(t, repo.CreateLike(ctx, &models.Like{PostID: post.ID, UserID: users[1].ID}))
	require.ErrorIs(t, repo.CreateLike(ctx, &models.Like{PostID: post.ID, UserID: users[1].ID}), gorm.ErrDuplicatedKey)

	count, err := repo.CountLikes(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	removed, err := repo.DeleteLike(ctx, post.ID, users[1].ID)
	require.NoError(t, err)
	require.True(t, removed)
	removed, err = repo.DeleteLike(ctx, post.ID, users[1].ID)
	require.NoError(t, err)
	require.False(t, removed)

	require.NoError(t, repo.CreateComment(ctx, &models.Comment{PostID: post.ID, AuthorID: users[1].ID, Content: "nice"}))
	comments, err := repo.ListComments(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.Equal(t, "ben", comments[0].Author.Username)

	posts, total, err := repo.List(ctx, PageFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "ana", posts[0].Author.Username)
}
