package catalog

import (
	common_api "go-reporting/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type CatalogController struct {
	CatalogService CatalogService
}

func NewCatalogController(catalogService CatalogService) *CatalogController {
	return &CatalogController{CatalogService: catalogService}
}

// ListEntities godoc
func (c *CatalogController) ListEntities(ctx *fiber.Ctx) error {
	entities, err := c.CatalogService.ListEntities(ctx.Context())
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(entities)
}

// ListFields godoc
func (c *CatalogController) ListFields(ctx *fiber.Ctx) error {
	fields, err := c.CatalogService.ListFields(ctx.Context(), ctx.Params("entity"))
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(fields)
}
