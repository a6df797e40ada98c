package audit

import (
	"go-reporting/internal/config"
	"go-reporting/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	AuditController *AuditController
	Config          *config.Config
}

func NewAuditApi(auditController *AuditController, config *config.Config) *AuditApi {
	return &AuditApi{
		AuditController: auditController,
		Config:          config,
	}
}

func (api *AuditApi) Setup(app *fiber.App) {
	group := app.Group("/api/audit", middleware.AuthMiddleware(api.Config.SkipAuth))

	group.Get("/", api.AuditController.List)
}
