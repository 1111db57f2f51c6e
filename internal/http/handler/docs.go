package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"

	"cardapi/docs"
)

// RegisterSwagger serves Swagger UI under /swagger/. Host and schemes are left
// empty once at startup, so the UI calls whichever host and scheme served it,
// including the one a proxy forwarded.
func RegisterSwagger(app *fiber.App) {
	docs.SwaggerInfo.Host = ""
	docs.SwaggerInfo.Schemes = []string{}

	app.Get("/swagger/*", swagger.HandlerDefault)
}
