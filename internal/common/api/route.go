package api

import "github.com/gofiber/fiber/v2"

// Route is implemented by every feature's API registrar.
type Route interface {
	Setup(app *fiber.App)
}
