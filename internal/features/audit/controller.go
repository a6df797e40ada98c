package audit

import (
	common_api "go-reporting/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	AuditService AuditService
}

func NewAuditController(auditService AuditService) *AuditController {
	return &AuditController{AuditService: auditService}
}

// List godoc
func (c *AuditController) List(ctx *fiber.Ctx) error {
	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 50))

	filters := map[string]interface{}{
		"action":    ctx.Query("action"),
		"actor_id":  ctx.Query("actor"),
		"target_id": ctx.Query("target"),
		"outcome":   ctx.Query("outcome"),
	}

	entries, err := c.AuditService.ListEntries(ctx.Context(), filters, page, limit)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(entries)
}
