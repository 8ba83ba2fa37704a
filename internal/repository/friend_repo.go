package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/models"
)

// FriendRepository persists friend requests and friendships.
type FriendRepository interface {
	Create(ctx context.Context, request *models.Friend) error
	FindByID(ctx context.Context, id uint) (models.Friend, error)
	FindBetween(ctx context.Context, a, b uint) (models.Friend, error)
	UpdateStatus(ctx context.Context, id uint, status models.FriendStatus) (models.Friend, error)
	Delete(ctx context.Context, id uint) error
	ListPending(ctx context.Context, userID uint) ([]models.Friend, error)
	ListAccepted(ctx context.Context, userID uint) ([]models.Friend, error)
}

type friendRepository struct {
	db *gorm.DB
}

// NewFriendRepository constructs a repository backed by GORM.
func NewFriendRepository(db *gorm.DB) FriendRepository {
	return &friendRepository{db: db}
}

func (r *friendRepository) Create(ctx context.Context, request *models.Friend) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *friendRepository) FindByID(ctx context.Context, id uint) (models.Friend, error) {
	var request models.Friend
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return models.Friend{}, err
	}
	return request, nil
}

// FindBetween returns the request linking a and b in either direction.
func (r *friendRepository) FindBetween(ctx context.Context, a, b uint) (models.Friend, error) {
	var request models.Friend
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)", a, b, b, a).
		Order("id DESC").
		First(&request).Error
	if err != nil {
		return models.Friend{}, err
	}
	return request, nil
}

func (r *friendRepository) UpdateStatus(ctx context.Context, id uint, status models.FriendStatus) (models.Friend, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Friend{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return models.Friend{}, result.Error
	}
	if result.RowsAffected == 0 {
		return models.Friend{}, gorm.ErrRecordNotFound
	}

	var request models.Friend
	if err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Addressee").
		First(&request, id).Error; err != nil {
		return models.Friend{}, err
	}
	return request, nil
}

func (r *friendRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Friend{}, id).Error
}

func (r *friendRepository) ListPending(ctx context.Context, userID uint) ([]models.Friend, error) {
	return r.listByStatus(ctx, userID, models.FriendStatusPending)
}

func (r *friendRepository) ListAccepted(ctx context.Context, userID uint) ([]models.Friend, error) {
	return r.listByStatus(ctx, userID, models.FriendStatusAccepted)
}

func (r *friendRepository) listByStatus(ctx context.Context, userID uint, status models.FriendStatus) ([]models.Friend, error) {
	var requests []models.Friend
	if err := r.db.WithContext(ctx).
		Preload("Requester").
		Preload("Addressee").
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?", userID, userID, status).
		Order("created_at DESC").
		Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}
