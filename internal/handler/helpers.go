package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/konekt-api/internal/middleware"
	"github.com/noah-isme/konekt-api/internal/utils"
	"github.com/noah-isme/konekt-api/pkg/apperror"
)

// requestContext returns the request context carrying the correlation id.
func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func currentUser(c *fiber.Ctx) (uint, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		return 0, false
	}
	return uint(userID), true
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Params(name))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, apperror.Validation("invalid %s", name)
	}
	return uint(parsed), nil
}

func bindBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperror.Validation("invalid request body")
	}
	return nil
}

func bindQuery(c *fiber.Ctx, out interface{}) error {
	if err := c.QueryParser(out); err != nil {
		return apperror.Validation("invalid query parameters")
	}
	return nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// failure logs unexpected errors and answers with the mapped status.
func failure(c *fiber.Ctx, logger zerolog.Logger, err error) error {
	kind := apperror.KindOf(err)
	if kind == apperror.KindInternal || kind == apperror.KindUnavailable {
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return utils.SendAppError(c, err)
}
