package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/kabirclub/internal/services"
)

// domainError converts service errors into fiber errors. Storage causes are
// logged and never rendered.
func domainError(log *zap.Logger, c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var (
		vErr     *services.ValidationError
		nfErr    *services.NotFoundError
		emptyErr *services.EmptyCartError
		storeErr *services.BackingStoreError
		fErr     *fiber.Error
	)

	switch {
	case errors.As(err, &vErr):
		return fiber.NewError(fiber.StatusBadRequest, vErr.Message)
	case errors.As(err, &nfErr):
		return fiber.NewError(fiber.StatusNotFound, nfErr.Error())
	case errors.As(err, &emptyErr):
		return fiber.NewError(fiber.StatusUnprocessableEntity, emptyErr.Error())
	case errors.As(err, &storeErr):
		log.Error("backing store failure",
			zap.String("path", c.Path()),
			zap.String("op", storeErr.Op),
			zap.Error(storeErr.Err))
		return fiber.NewError(fiber.StatusServiceUnavailable, storeErr.Error())
	case errors.As(err, &fErr):
		return fErr
	}

	return err
}

// ErrorHandler renders every error as {"success":false,"error":msg}.
// Unknown errors become a generic 500.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		err = domainError(log, c, err)

		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fErr *fiber.Error
		if errors.As(err, &fErr) {
			code = fErr.Code
			message = fErr.Message
		} else {
			log.Error("unhandled request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}
