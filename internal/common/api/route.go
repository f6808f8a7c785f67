package api

import (
	"github.com/gofiber/fiber/v2"
)

// Route is implemented by every feature's API type; fx collects them in the
// "routes" group and main registers them on the app.
type Route interface {
	Setup(app *fiber.App)
}
