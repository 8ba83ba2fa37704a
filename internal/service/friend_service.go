package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// FriendService manages friend requests and friendships.
type FriendService interface {
	SendRequest(ctx context.Context, userID, targetID uint) (dto.FriendRequestResponse, error)
	DeleteRequest(ctx context.Context, userID, targetID uint) error
	ListPending(ctx context.Context, userID uint) ([]dto.FriendRequestResponse, error)
	Accept(ctx context.Context, userID, requestID uint) (dto.FriendRequestResponse, error)
	Reject(ctx context.Context, userID, requestID uint) (dto.FriendRequestResponse, error)
	RemoveFriend(ctx context.Context, userID, friendID uint) error
	ListFriends(ctx context.Context, userID uint) ([]dto.FriendResponse, error)
}

type friendService struct {
	friends   repository.FriendRepository
	users     repository.UserRepository
	notifier  *Notifier
	sequencer *realtime.Sequencer
	logger    zerolog.Logger
}

// NewFriendService constructs the friend service.
func NewFriendService(friends repository.FriendRepository, users repository.UserRepository, notifier *Notifier, sequencer *realtime.Sequencer, logger zerolog.Logger) FriendService {
	if sequencer == nil {
		sequencer = realtime.NewSequencer()
	}
	return &friendService{
		friends:   friends,
		users:     users,
		notifier:  notifier,
		sequencer: sequencer,
		logger:    logger.With().Str("component", "friend_service").Logger(),
	}
}

func (s *friendService) SendRequest(ctx context.Context, userID, targetID uint) (dto.FriendRequestResponse, error) {
	if userID == targetID {
		return dto.FriendRequestResponse{}, apperror.Validation("You cannot send a friend request to yourself")
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return dto.FriendRequestResponse{}, storeError(err, "Friend with id ("+uintString(targetID)+") not found")
	}

	unlock := s.sequencer.Lock("friend:" + models.DirectKey(userID, targetID))
	defer unlock()

	existing, err := s.friends.FindBetween(ctx, userID, targetID)
	switch {
	case err == nil && existing.Status == models.FriendStatusRejected:
		if err := s.friends.Delete(ctx, existing.ID); err != nil {
			return dto.FriendRequestResponse{}, storeError(err, "Friend request does not exist")
		}
	case err == nil:
		return dto.FriendRequestResponse{}, apperror.Conflict("Friend request already exists")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return dto.FriendRequestResponse{}, storeError(err, "Friend request does not exist")
	}

	request := models.Friend{RequesterID: userID, AddresseeID: targetID, Status: models.FriendStatusPending}
	if err := s.friends.Create(ctx, &request); err != nil {
		return dto.FriendRequestResponse{}, storeError(err, "Friend request does not exist")
	}

	if s.notifier != nil {
		requester, err := s.users.FindByID(ctx, userID)
		if err == nil {
			err = s.notifier.NotifyFriendRequest(ctx, request, requester)
		}
		if err != nil {
			s.logger.Warn().Err(err).Uint("friend_request_id", request.ID).Msg("failed to record friend request notification")
		}
	}

	return dto.NewFriendRequestResponse(request), nil
}

func (s *friendService) DeleteRequest(ctx context.Context, userID, targetID uint) error {
	if userID == targetID {
		return apperror.Validation("You cannot delete a friend request from yourself")
	}
	if _, err := s.users.FindByID(ctx, targetID); err != nil {
		return storeError(err, "Friend with id ("+uintString(targetID)+") not found")
	}

	existing, err := s.friends.FindBetween(ctx, userID, targetID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.Validation("Friend request does not exist")
	}
	if err != nil {
		return storeError(err, "Friend request does not exist")
	}
	if existing.Status == models.FriendStatusAccepted {
		return apperror.Validation("You cannot delete a request that was already accepted")
	}
	return storeError(s.friends.Delete(ctx, existing.ID), "Friend request does not exist")
}

func (s *friendService) ListPending(ctx context.Context, userID uint) ([]dto.FriendRequestResponse, error) {
	requests, err := s.friends.ListPending(ctx, userID)
	if err != nil {
		return nil, storeError(err, "friend requests not found")
	}
	out := make([]dto.FriendRequestResponse, 0, len(requests))
	for _, request := range requests {
		out = append(out, dto.NewFriendRequestResponse(request))
	}
	return out, nil
}

func (s *friendService) Accept(ctx context.Context, userID, requestID uint) (dto.FriendRequestResponse, error) {
	request, err := s.pendingFor(ctx, userID, requestID, "accept")
	if err != nil {
		return dto.FriendRequestResponse{}, err
	}

	accepted, err := s.friends.UpdateStatus(ctx, request.ID, models.FriendStatusAccepted)
	if err != nil {
		return dto.FriendRequestResponse{}, storeError(err, "Friend request does not exist")
	}

	if s.notifier != nil && accepted.Addressee != nil {
		if err := s.notifier.NotifyFriendAccepted(ctx, accepted, *accepted.Addressee); err != nil {
			s.logger.Warn().Err(err).Uint("friend_request_id", accepted.ID).Msg("failed to record friend accepted notification")
		}
	}

	return dto.NewFriendRequestResponse(accepted), nil
}

func (s *friendService) Reject(ctx context.Context, userID, requestID uint) (dto.FriendRequestResponse, error) {
	request, err := s.pendingFor(ctx, userID, requestID, "reject")
	if err != nil {
		return dto.FriendRequestResponse{}, err
	}

	rejected, err := s.friends.UpdateStatus(ctx, request.ID, models.FriendStatusRejected)
	if err != nil {
		return dto.FriendRequestResponse{}, storeError(err, "Friend request does not exist")
	}
	return dto.NewFriendRequestResponse(rejected), nil
}

// pendingFor loads a pending request addressed to userID.
func (s *friendService) pendingFor(ctx context.Context, userID, requestID uint, action string) (models.Friend, error) {
	request, err := s.friends.FindByID(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Friend{}, apperror.Validation("Friend request with id (%d) does not exist", requestID)
	}
	if err != nil {
		return models.Friend{}, storeError(err, "Friend request does not exist")
	}
	if request.RequesterID == userID {
		return models.Friend{}, apperror.Validation("You cannot %s a friend request that you sent", action)
	}
	if request.AddresseeID != userID {
		return models.Friend{}, apperror.Validation("You can only %s friend requests sent to you", action)
	}
	if request.Status != models.FriendStatusPending {
		return models.Friend{}, apperror.Validation("This friend request has already been processed")
	}
	return request, nil
}

func (s *friendService) RemoveFriend(ctx context.Context, userID, friendID uint) error {
	if userID == friendID {
		return apperror.Validation("You cannot remove yourself as a friend")
	}
	if _, err := s.users.FindByID(ctx, friendID); err != nil {
		return storeError(err, "Friend with id ("+uintString(friendID)+") not found")
	}

	friendship, err := s.friends.FindBetween(ctx, userID, friendID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return storeError(err, "Friend request does not exist")
	}
	if err != nil || friendship.Status != models.FriendStatusAccepted {
		return apperror.Validation("You are not friends with this user")
	}
	return storeError(s.friends.Delete(ctx, friendship.ID), "Friend request does not exist")
}

func (s *friendService) ListFriends(ctx context.Context, userID uint) ([]dto.FriendResponse, error) {
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, storeError(err, "User with id ("+uintString(userID)+") not found")
	}
	friendships, err := s.friends.ListAccepted(ctx, userID)
	if err != nil {
		return nil, storeError(err, "friends not found")
	}
	out := make([]dto.FriendResponse, 0, len(friendships))
	for _, friendship := range friendships {
		out = append(out, dto.NewFriendResponse(friendship, userID))
	}
	return out, nil
}
