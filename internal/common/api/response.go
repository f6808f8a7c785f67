package api

import (
	"errors"

	"salescrm/internal/common/apperr"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// StatusFor maps an error to the HTTP status it is rendered with
func StatusFor(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindConflict:
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// Error renders err as {"error": ..., "fields": ...}
func Error(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	body := fiber.Map{"error": err.Error()}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body["error"] = ae.Msg
		if len(ae.Fields) > 0 {
			body["fields"] = ae.Fields
		}
	}

	if status >= fiber.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err))
	}

	return c.Status(status).JSON(body)
}

// BadRequest renders a 400 with a plain message
func BadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// Decode parses the request body into dest, overwriting only the fields
// present in the body.
func Decode(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return apperr.Invalid("body", "invalid request body: "+err.Error())
	}
	return nil
}

// ParamID reads a hex ObjectID route parameter
func ParamID(c *fiber.Ctx, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Params(name))
	if err != nil {
		return primitive.NilObjectID, apperr.Invalid(name, "must be a valid id")
	}
	return id, nil
}
