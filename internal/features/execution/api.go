package execution

import (
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ExecutionApi struct {
	ExecutionController *ExecutionController
	Config              *config.Config
}

func NewExecutionApi(executionController *ExecutionController, config *config.Config) *ExecutionApi {
	return &ExecutionApi{
		ExecutionController: executionController,
		Config:              config,
	}
}

func (api *ExecutionApi) Setup(app *fiber.App) {
	auth := middleware.AuthMiddleware(api.Config.SkipAuth)

	app.Post("/api/definitions/:id/execute", auth, api.ExecutionController.Execute)

	group := app.Group("/api/executions", auth)
	group.Get("/", api.ExecutionController.List)
	group.Get("/:id", api.ExecutionController.Get)
}
