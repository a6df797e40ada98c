package execution

import (
	common_api "go-reporting/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type ExecutionController struct {
	ExecutionService ExecutionService
}

func NewExecutionController(executionService ExecutionService) *ExecutionController {
	return &ExecutionController{ExecutionService: executionService}
}

// Execute godoc
func (c *ExecutionController) Execute(ctx *fiber.Ctx) error {
	var req ExecuteRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
	}

	exec, err := c.ExecutionService.ExecuteReport(ctx.Context(), ctx.Params("id"), req)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(exec)
}

// Get godoc
func (c *ExecutionController) Get(ctx *fiber.Ctx) error {
	exec, err := c.ExecutionService.GetExecution(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(exec)
}

// List godoc
func (c *ExecutionController) List(ctx *fiber.Ctx) error {
	mineOnly := ctx.QueryBool("mine", false)
	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 50))

	summaries, err := c.ExecutionService.ListExecutions(ctx.Context(), mineOnly, page, limit)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}
	return ctx.JSON(summaries)
}
