package definition

import (
	common_api "go-reporting/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type DefinitionController struct {
	DefinitionService DefinitionService
}

func NewDefinitionController(definitionService DefinitionService) *DefinitionController {
	return &DefinitionController{DefinitionService: definitionService}
}

// Create godoc
func (c *DefinitionController) Create(ctx *fiber.Ctx) error {
	var def ReportDefinition
	if err := ctx.BodyParser(&def); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	created, err := c.DefinitionService.CreateDefinition(ctx.Context(), &def)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(created)
}

// Get godoc
func (c *DefinitionController) Get(ctx *fiber.Ctx) error {
	def, err := c.DefinitionService.GetDefinition(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(def)
}

// List godoc
func (c *DefinitionController) List(ctx *fiber.Ctx) error {
	includeShared := ctx.QueryBool("include_shared", true)
	summaries, err := c.DefinitionService.ListDefinitions(ctx.Context(), includeShared)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(summaries)
}

// Update godoc
func (c *DefinitionController) Update(ctx *fiber.Ctx) error {
	var body struct {
		Version int64 `json:"version"`
		ReportDefinition
	}
	if err := ctx.BodyParser(&body); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updated, err := c.DefinitionService.UpdateDefinition(ctx.Context(), ctx.Params("id"), body.Version, &body.ReportDefinition)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(updated)
}

// Delete godoc
func (c *DefinitionController) Delete(ctx *fiber.Ctx) error {
	if err := c.DefinitionService.DeleteDefinition(ctx.Context(), ctx.Params("id")); err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
