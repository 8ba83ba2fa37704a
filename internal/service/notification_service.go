package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/konekt-api/internal/dto"
	"github.com/noah-isme/konekt-api/internal/models"
	"github.com/noah-isme/konekt-api/internal/observability"
	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/internal/repository"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// NotificationService records notifications and pushes them to online recipients.
type NotificationService interface {
	Record(ctx context.Context, input dto.NotificationInput) (dto.NotificationResponse, error)
	List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error)
	UnreadCount(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error)
	MarkManyRead(ctx context.Context, userID uint, ids []uint) (int64, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	ClearAll(ctx context.Context, userID uint) (int64, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	users     repository.UserRepository
	presence  realtime.PresenceReader
	router    EventRouter
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewNotificationService constructs a notification service.
func NewNotificationService(repo repository.NotificationRepository, users repository.UserRepository, presence realtime.PresenceReader, router EventRouter, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		users:     users,
		presence:  presence,
		router:    router,
		validator: validate,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/konekt-api/internal/service/notification"),
	}
}

func (s *notificationService) Record(ctx context.Context, input dto.NotificationInput) (dto.NotificationResponse, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := s.validator.Struct(input); err != nil {
		return dto.NotificationResponse{}, validationError(err)
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.record", trace.WithAttributes(
		attribute.Int64("notification.user_id", int64(input.UserID)),
		attribute.String("notification.type", string(input.Kind)),
	))
	defer span.End()

	if _, err := s.users.FindByID(spanCtx, input.UserID); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, storeError(err, "recipient not found")
	}

	model := models.Notification{
		UserID:          input.UserID,
		Kind:            input.Kind,
		FromUserID:      input.FromUserID,
		PostID:          input.PostID,
		CommentID:       input.CommentID,
		ConversationID:  input.ConversationID,
		MessageID:       input.MessageID,
		FriendRequestID: input.FriendRequestID,
		Content:         input.Content,
	}
	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, storeError(err, "notification not found")
	}
	observability.NotificationsRecorded().WithLabelValues(string(model.Kind)).Inc()

	if stored, err := s.repo.FindByID(spanCtx, model.ID); err == nil {
		model = stored
	} else {
		s.logger.Warn().Err(err).Uint("notification_id", model.ID).Msg("failed to reload notification")
	}
	response := dto.NewNotificationResponse(model)

	recipient := realtime.UserID(model.UserID)
	if s.presence != nil && s.router != nil && s.presence.IsActive(recipient) {
		delivered := s.router.SendToUser(spanCtx, recipient, realtime.EventNotificationNew, response)
		observability.NotificationPushes().WithLabelValues(pushOutcome(delivered)).Inc()
	}

	return response, nil
}

func (s *notificationService) List(ctx context.Context, userID uint, query dto.NotificationListQuery) (dto.NotificationListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.NotificationListResponse{}, validationError(err)
	}
	filter := repository.PageFilter{Page: query.Page, PageSize: query.PageSize}.Normalize()

	items, total, err := s.repo.ListByUser(ctx, userID, filter)
	if err != nil {
		return dto.NotificationListResponse{}, storeError(err, "notifications not found")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return dto.NotificationListResponse{}, storeError(err, "notifications not found")
	}

	return dto.NotificationListResponse{
		Items:       dto.NewNotificationResponseSlice(items),
		UnreadCount: unread,
		Total:       total,
		Page:        filter.Page,
		PageSize:    filter.PageSize,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, storeError(err, "notifications not found")
	}
	return count, nil
}

func (s *notificationService) MarkRead(ctx context.Context, id, userID uint) (dto.NotificationResponse, error) {
	spanCtx, span := s.tracer.Start(ctx, "notifications.mark_read", trace.WithAttributes(
		attribute.Int64("notification.id", int64(id)),
		attribute.Int64("notification.user_id", int64(userID)),
	))
	defer span.End()

	model, err := s.repo.FindByID(spanCtx, id)
	if err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, storeError(err, "notification not found")
	}
	if model.UserID != userID {
		return dto.NotificationResponse{}, apperror.Unauthorized("not authorized to update this notification")
	}

	if !model.IsRead {
		if err := s.repo.MarkRead(spanCtx, id); err != nil {
			span.RecordError(err)
			return dto.NotificationResponse{}, storeError(err, "notification not found")
		}
		model.IsRead = true
		s.sync(spanCtx, userID, realtime.EventNotificationRead, dto.NotificationReadPayload{NotificationIDs: []uint{id}, Affected: 1})
	}

	return dto.NewNotificationResponse(model), nil
}

func (s *notificationService) MarkManyRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, apperror.Validation("notification_ids must not be empty")
	}
	affected, err := s.repo.MarkManyRead(ctx, userID, ids)
	if err != nil {
		return 0, storeError(err, "notifications not found")
	}
	s.sync(ctx, userID, realtime.EventNotificationRead, dto.NotificationReadPayload{NotificationIDs: ids, Affected: affected})
	return affected, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, storeError(err, "notifications not found")
	}
	s.sync(ctx, userID, realtime.EventNotificationReadAll, dto.NotificationReadPayload{Affected: affected})
	return affected, nil
}

func (s *notificationService) ClearAll(ctx context.Context, userID uint) (int64, error) {
	removed, err := s.repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, storeError(err, "notifications not found")
	}
	s.sync(ctx, userID, realtime.EventNotificationCleared, dto.NotificationReadPayload{Affected: removed})
	return removed, nil
}

// sync tells every connection of the user about a state change made elsewhere.
func (s *notificationService) sync(ctx context.Context, userID uint, event string, payload dto.NotificationReadPayload) {
	if s.router == nil {
		return
	}
	s.router.SendToUser(ctx, realtime.UserID(userID), event, payload)
}

func pushOutcome(delivered int) string {
	if delivered > 0 {
		return "delivered"
	}
	return "missed"
}
