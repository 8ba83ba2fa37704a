package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/models"
)

// MessageFilter pages through a conversation's history.
type MessageFilter struct {
	PageFilter
	Before time.Time
}

// MessageRepository persists conversation messages and their read flags.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByID(ctx context.Context, id uint) (models.Message, error)
	UpdateContent(ctx context.Context, id uint, content, attachmentURL string) (models.Message, error)
	Delete(ctx context.Context, id uint) error
	Latest(ctx context.Context, conversationID uint) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID uint, filter MessageFilter) ([]models.Message, int64, error)
	CountUnread(ctx context.Context, conversationID, userID uint, since *time.Time) (int64, error)
	MarkConversationRead(ctx context.Context, conversationID, userID uint) (int64, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create inserts the message and bumps the conversation's activity timestamp
// in the same transaction.
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Sender").Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", message.ConversationID).
			UpdateColumn("updated_at", message.CreatedAt).Error
	})
}

func (r *messageRepository) FindByID(ctx context.Context, id uint) (models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Preload("Sender").First(&message, id).Error; err != nil {
		return models.Message{}, err
	}
	return message, nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, id uint, content, attachmentURL string) (models.Message, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"content": content, "attachment_url": attachmentURL})
	if result.Error != nil {
		return models.Message{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Message{}, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *messageRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *messageRepository) Latest(ctx context.Context, conversationID uint) (models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&message).Error
	if err != nil {
		return models.Message{}, err
	}
	return message, nil
}

// ListByConversation returns newest messages first.
func (r *messageRepository) ListByConversation(ctx context.Context, conversationID uint, filter MessageFilter) ([]models.Message, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conversationID)
	if !filter.Before.IsZero() {
		query = query.Where("created_at < ?", filter.Before)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	if err := filter.PageFilter.apply(query).
		Preload("Sender").
		Order("created_at DESC, id DESC").
		Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// CountUnread counts messages from other senders created after since. A nil
// since counts every message from other senders.
func (r *messageRepository) CountUnread(ctx context.Context, conversationID, userID uint, since *time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ?", conversationID, userID)
	if since != nil {
		query = query.Where("created_at > ?", *since)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}

// MarkConversationRead flags every unread message from other senders as read.
func (r *messageRepository) MarkConversationRead(ctx context.Context, conversationID, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).Exec(
		"UPDATE messages SET is_read = ? WHERE conversation_id = ? AND is_read = ? AND sender_id <> ?",
		true, conversationID, false, userID,
	)
	return result.RowsAffected, result.Error
}
