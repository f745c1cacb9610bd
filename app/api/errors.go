package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/wbl65535/Data-Engineering-1/types"
)

func ErrorHandler(c *fiber.Ctx, err error) error {
	if apiError, ok := err.(Error); ok {
		return c.Status(apiError.Code).JSON(apiError)
	}
	if valError, ok := err.(types.ValidationError); ok {
		return c.Status(valError.Status).JSON(valError)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		apiError := NewError(fiberErr.Code, fiberErr.Message)
		return c.Status(apiError.Code).JSON(apiError)
	}

	apiError := NewError(http.StatusInternalServerError, err.Error())
	log.Printf("[API] request failed with code %d: %s", apiError.Code, apiError.Message)
	return c.Status(apiError.Code).JSON(apiError)
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
}

func (e Error) Error() string {
	return e.Message
}

func NewError(code int, message string) Error {
	return Error{Code: code, Message: message}
}

func ErrBadRequest() Error {
	return NewError(http.StatusBadRequest, "invalid request")
}
