package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/noah-isme/konekt-api/internal/realtime"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// EventRouter delivers live events to connected users and conversation channels.
type EventRouter interface {
	SendToUser(ctx context.Context, userID realtime.UserID, event string, payload any) int
	SendToConversation(ctx context.Context, conversationID uint, event string, payload any) int
}

// storeError converts repository errors into application errors. notFound is
// used as the message when the record does not exist.
func storeError(err error, notFound string) error {
	var appErr *apperror.AppError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound("%s", notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Wrap(apperror.KindConflict, "resource already exists", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return apperror.Unavailable("data store unavailable", err)
	}
}

// validationError converts validator failures into a single validation error.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperror.Wrap(apperror.KindValidation, err.Error(), err)
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperror.Wrap(apperror.KindValidation, strings.Join(parts, "; "), err)
}

// truncatePreview shortens content to limit runes, appending "..." when cut.
func truncatePreview(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}

func uintPtr(v uint) *uint { return &v }

func uintString(v uint) string { return strconv.FormatUint(uint64(v), 10) }
