package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/models"
)

// ConversationRepository persists conversations and their participants,
// including the per-participant read marker.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *models.Conversation, userIDs []uint) error
	FindByID(ctx context.Context, id uint) (models.Conversation, error)
	FindByDirectKey(ctx context.Context, key string) (models.Conversation, error)
	ListForUser(ctx context.Context, userID uint, filter PageFilter) ([]models.Conversation, int64, error)
	UpdateTitle(ctx context.Context, id uint, title string) error

	FindParticipant(ctx context.Context, conversationID, userID uint) (models.ConversationParticipant, error)
	ListParticipants(ctx context.Context, conversationID uint) ([]models.ConversationParticipant, error)
	ListParticipations(ctx context.Context, userID uint) ([]models.ConversationParticipant, error)
	AddParticipant(ctx context.Context, participant *models.ConversationParticipant) error
	RemoveParticipant(ctx context.Context, conversationID, userID uint) error
	SetHidden(ctx context.Context, conversationID, userID uint, hidden bool) error
	UnhideAll(ctx context.Context, conversationID uint) error
	TouchRead(ctx context.Context, conversationID, userID uint, at time.Time) (models.ConversationParticipant, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository constructs a repository backed by GORM.
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// Create inserts the conversation together with one participant row per user.
func (r *conversationRepository) Create(ctx context.Context, conversation *models.Conversation, userIDs []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Participants", "Messages").Create(conversation).Error; err != nil {
			return err
		}

		joinedAt := conversation.CreatedAt
		participants := make([]models.ConversationParticipant, 0, len(userIDs))
		for _, userID := range userIDs {
			participants = append(participants, models.ConversationParticipant{
				UserID:         userID,
				ConversationID: conversation.ID,
				JoinedAt:       joinedAt,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return err
		}

		conversation.Participants = participants
		return nil
	})
}

func (r *conversationRepository) FindByID(ctx context.Context, id uint) (models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants.User").
		First(&conversation, id).Error; err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

func (r *conversationRepository) FindByDirectKey(ctx context.Context, key string) (models.Conversation, error) {
	var conversation models.Conversation
	if err := r.db.WithContext(ctx).
		Preload("Participants.User").
		Where("direct_key = ?", key).
		First(&conversation).Error; err != nil {
		return models.Conversation{}, err
	}
	return conversation, nil
}

// ListForUser returns the conversations the user has not hidden, most recently
// active first.
func (r *conversationRepository) ListForUser(ctx context.Context, userID uint, filter PageFilter) ([]models.Conversation, int64, error) {
	visible := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Select("conversation_id").
		Where("user_id = ? AND is_hidden = ?", userID, false)

	query := r.db.WithContext(ctx).Model(&models.Conversation{}).Where("id IN (?)", visible)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var conversations []models.Conversation
	if err := filter.apply(query).
		Preload("Participants.User").
		Order("updated_at DESC, id DESC").
		Find(&conversations).Error; err != nil {
		return nil, 0, err
	}
	return conversations, total, nil
}

func (r *conversationRepository) UpdateTitle(ctx context.Context, id uint, title string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("title", title)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *conversationRepository) FindParticipant(ctx context.Context, conversationID, userID uint) (models.ConversationParticipant, error) {
	var participant models.ConversationParticipant
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&participant).Error; err != nil {
		return models.ConversationParticipant{}, err
	}
	return participant, nil
}

func (r *conversationRepository) ListParticipants(ctx context.Context, conversationID uint) ([]models.ConversationParticipant, error) {
	var participants []models.ConversationParticipant
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("conversation_id = ?", conversationID).
		Order("joined_at ASC, id ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// ListParticipations returns the user's non-hidden memberships.
func (r *conversationRepository) ListParticipations(ctx context.Context, userID uint) ([]models.ConversationParticipant, error) {
	var participants []models.ConversationParticipant
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_hidden = ?", userID, false).
		Order("conversation_id ASC").
		Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *conversationRepository) AddParticipant(ctx context.Context, participant *models.ConversationParticipant) error {
	return r.db.WithContext(ctx).Create(participant).Error
}

func (r *conversationRepository) RemoveParticipant(ctx context.Context, conversationID, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&models.ConversationParticipant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *conversationRepository) SetHidden(ctx context.Context, conversationID, userID uint, hidden bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("is_hidden", hidden)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *conversationRepository) UnhideAll(ctx context.Context, conversationID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND is_hidden = ?", conversationID, true).
		Update("is_hidden", false).Error
}

// TouchRead advances the participant's read marker to at. The marker never
// moves backwards: an older at leaves the stored value untouched.
func (r *conversationRepository) TouchRead(ctx context.Context, conversationID, userID uint, at time.Time) (models.ConversationParticipant, error) {
	if err := r.db.WithContext(ctx).
		Model(&models.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Where("last_read_at IS NULL OR last_read_at < ?", at).
		Update("last_read_at", at).Error; err != nil {
		return models.ConversationParticipant{}, err
	}
	return r.FindParticipant(ctx, conversationID, userID)
}
