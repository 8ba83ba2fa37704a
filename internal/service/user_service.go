package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// UserService manages user profiles.
type UserService interface {
	Create(ctx context.Context, payload dto.UserCreateRequest) (dto.UserResponse, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	presence  realtime.PresenceReader
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewUserService constructs the user service. presence answers the online flag.
func NewUserService(users repository.UserRepository, presence realtime.PresenceReader, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		presence:  presence,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "user_service").Logger(),
	}
}

func (s *userService) Create(ctx context.Context, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	payload.Username = strings.TrimSpace(payload.Username)
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, validationError(err)
	}

	user := models.User{
		Username:      payload.Username,
		DisplayName:   strings.TrimSpace(s.sanitizer.Sanitize(payload.DisplayName)),
		Bio:           strings.TrimSpace(s.sanitizer.Sanitize(payload.Bio)),
		ProfilePicURL: strings.TrimSpace(payload.ProfilePicURL),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.UserResponse{}, apperror.Conflict("Username %s is already taken", user.Username)
		}
		return dto.UserResponse{}, storeError(err, "User not found")
	}
	s.logger.Info().Uint("user_id", user.ID).Msg("user created")

	return dto.NewUserResponse(user, false), nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.UserResponse{}, apperror.NotFound("User with id (%d) not found", id)
	}
	if err != nil {
		return dto.UserResponse{}, storeError(err, "User not found")
	}

	online := s.presence != nil && s.presence.IsActive(realtime.UserID(user.ID))
	return dto.NewUserResponse(user, online), nil
}
