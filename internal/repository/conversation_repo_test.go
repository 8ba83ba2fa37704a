package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/models"
)

func TestConversationRepositoryCreateWithParticipants(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben")
	repo := NewConversationRepository(db)
	ctx := context.Background()

	key := models.DirectKey(users[1].ID, users[0].ID)
	conversation := models.Conversation{DirectKey: &key}
	require.NoError(t, repo.Create(ctx, &conversation, []uint{users[0].ID, users[1].ID}))
	require.NotZero(t, conversation.ID)

	stored, err := repo.FindByID(ctx, conversation.ID)
	require.NoError(t, err)
	require.Len(t, stored.Participants, 2)
	require.NotNil(t, stored.Participants[0].User)
	require.Nil(t, stored.Participants[0].LastReadAt)

	byKey, err := repo.FindByDirectKey(ctx, key)
	require.NoError(t, err)
	require.Equal(t, conversation.ID, byKey.ID)
}

func TestConversationRepositoryRejectsDuplicateDirectKey(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben")
	repo := NewConversationRepository(db)
	ctx := context.Background()

	key := models.DirectKey(users[0].ID, users[1].ID)
	first := models.Conversation{DirectKey: &key}
	require.NoError(t, repo.Create(ctx, &first, []uint{users[0].ID, users[1].ID}))

	again := key
	second := models.Conversation{DirectKey: &again}
	err := repo.Create(ctx, &second, []uint{users[0].ID, users[1].ID})
	require.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestConversationRepositoryGroupsShareNullDirectKey(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben", "cy")
	repo := NewConversationRepository(db)
	ctx := context.Background()

	title := "trip"
	for i := 0; i < 2; i++ {
		group := models.Conversation{IsGroup: true, Title: &title}
		require.NoError(t, repo.Create(ctx, &group, []uint{users[0].ID, users[1].ID, users[2].ID}))
	}

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	require.Equal(t, int64(2), count)
}

func TestConversationRepositoryListForUserSkipsHidden(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben", "cy")
	repo := NewConversationRepository(db)
	ctx := context.Background()

	older := models.Conversation{}
	require.NoError(t, repo.Create(ctx, &older, []uint{users[0].ID, users[1].ID}))
	newer := models.Conversation{}
	require.NoError(t, repo.Create(ctx, &newer, []uint{users[0].ID, users[2].ID}))
	hidden := models.Conversation{}
	require.NoError(t, repo.Create(ctx, &hidden, []uint{users[0].ID, users[2].ID}))

	require.NoError(t, db.Model(&models.Conversation{}).Where("id = ?", newer.ID).
		UpdateColumn("updated_at", time.Now().UTC().Add(time.Hour)).Error)
	require.NoError(t, repo.SetHidden(ctx, hidden.ID, users[0].ID, true))

	items, total, err := repo.ListForUser(ctx, users[0].ID, PageFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, items, 2)
	require.Equal(t, newer.ID, items[0].ID, "most recently active first")
	require.Equal(t, older.ID, items[1].ID)

	require.NoError(t, repo.UnhideAll(ctx, hidden.ID))
	_, total, err = repo.ListForUser(ctx, users[0].ID, PageFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
}

func TestConversationRepositoryTouchReadIsMonotonic(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben")
	repo := NewConversationRepository(db)
	ctx := context.Background()

	conversation := models.Conversation{}
	require.NoError(t, repo.Create(ctx, &conversation, []uint{users[0].ID, users[1].ID}))

	later := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Minute)

	participant, err := repo.TouchRead(ctx, conversation.ID, users[0].ID, later)
	require.NoError(t, err)
	require.NotNil(t, participant.LastReadAt)
	require.True(t, participant.LastReadAt.Equal(later))

	participant, err = repo.TouchRead(ctx, conversation.ID, users[0].ID, earlier)
	require.NoError(t, err)
	require.True(t, participant.LastReadAt.Equal(later), "marker must not move backwards")

	_, err = repo.TouchRead(ctx, conversation.ID, 999, later)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestConversationRepositoryParticipants(t *testing.T) {
	db := setupTestDB(t)
	users := seedUsers(t, db, "ana", "ben", "cy")
	repo := NewConversationRepository(db)
	ctx := context.Background()

	title := "team"
	group := models.Conversation{IsGroup: true, Title: &title}
	require.NoError(t, repo.Create(ctx, &group, []uint{users[0].ID, users[1].ID}))

	require.NoError(t, repo.AddParticipant(ctx, &models.ConversationParticipant{
		UserID: users[2].ID, ConversationID: group.ID, JoinedAt: time.Now().UTC(),
	}))
	err := repo.AddParticipant(ctx, &models.ConversationParticipant{
		UserID: users[2].ID, ConversationID: group.ID, JoinedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	participants, err := repo.ListParticipants(ctx, group.ID)
	require.NoError(t, err)
	require.Len(t, participants, 3)

	require.NoError(t, repo.RemoveParticipant(ctx, group.ID, users[1].ID))
	require.ErrorIs(t, repo.RemoveParticipant(ctx, group.ID, users[1].ID), gorm.ErrRecordNotFound)

	require.NoError(t, repo.UpdateTitle(ctx, group.ID, "renamed"))
	stored, err := repo.FindByID(ctx, group.ID)
	require.NoError(t, err)
	require.Equal(t, "renamed", *stored.Title)
	require.Len(t, stored.Participants, 2)
}
