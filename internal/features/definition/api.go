package definition

import (
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DefinitionApi struct {
	DefinitionController *DefinitionController
	Config               *config.Config
}

func NewDefinitionApi(definitionController *DefinitionController, config *config.Config) *DefinitionApi {
	return &DefinitionApi{
		DefinitionController: definitionController,
		Config:               config,
	}
}

func (api *DefinitionApi) Setup(app *fiber.App) {
	group := app.Group("/api/definitions", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Post("/", api.DefinitionController.Create)
	group.Get("/", api.DefinitionController.List)
	group.Get("/:id", api.DefinitionController.Get)
	group.Put("/:id", api.DefinitionController.Update)
	group.Delete("/:id", api.DefinitionController.Delete)
}
