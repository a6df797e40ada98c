package catalog

import (
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type CatalogApi struct {
	CatalogController *CatalogController
	Config            *config.Config
}

func NewCatalogApi(catalogController *CatalogController, config *config.Config) *CatalogApi {
	return &CatalogApi{
		CatalogController: catalogController,
		Config:            config,
	}
}

func (api *CatalogApi) Setup(app *fiber.App) {
	group := app.Group("/api/catalog", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Get("/entities", api.CatalogController.ListEntities)
	group.Get("/entities/:entity/fields", api.CatalogController.ListFields)
}
