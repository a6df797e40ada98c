package export

import (
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ExportApi struct {
	ExportController *ExportController
	Config           *config.Config
}

func NewExportApi(exportController *ExportController, config *config.Config) *ExportApi {
	return &ExportApi{
		ExportController: exportController,
		Config:           config,
	}
}

func (api *ExportApi) Setup(app *fiber.App) {
	app.Get("/api/executions/:id/export", middleware.AuthMiddleware(api.Config.SkipAuth), api.ExportController.Export)
}
