package http

import (
	"context"
	"errors"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/raffle-service/internal/observability"
	apperrors "github.com/spec-kit/raffle-service/pkg/util"
)

// RegisterMiddlewares installs the request timeout, the error boundary and
// the request logger, in that order. Every response below them, success or
// failure, leaves in the standard envelope.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	if timeout > 0 {
		app.Use(withRequestTimeout(timeout))
	}
	app.Use(errorBoundary(logger, metrics))
	app.Use(observability.RequestLogger(logger, metrics))
}

func withRequestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqCtx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(reqCtx)
		return c.Next()
	}
}

// errorBoundary converts returned errors and recovered panics into error
// envelopes. Nothing below it can kill the process or leak a bare error
// to the client.
func errorBoundary(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()),
				)
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				renderError(c, logger, metrics, err)
				err = nil
			}
		}()
		return c.Next()
	}
}

func renderError(c *fiber.Ctx, logger *zap.Logger, metrics *observability.Metrics, err error) {
	domainErr := apperrors.ToDomainError(err)

	// Router-level statuses (404, 405) keep their code.
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError {
		domainErr = apperrors.NewDomainError("NOT_FOUND", fiberErr.Message, fiberErr.Code, nil)
	}

	if metrics != nil {
		metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
	}
	if domainErr.HTTPStatus >= fiber.StatusInternalServerError {
		logger.Error("request failed", zap.Error(domainErr))
	}
	_ = Error(c, domainErr)
}
