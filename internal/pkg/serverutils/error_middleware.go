package serverutils

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts unhandled errors into the standard error
// envelope so handlers can just return err.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		if fe, ok := err.(*fiber.Error); ok {
			code = fe.Code
		}

		log.Printf("[HTTP] %s %s failed: %v", ctx.Method(), ctx.Path(), err)
		return ctx.Status(code).JSON(ErrorResponse(code, err.Error()))
	}
}
