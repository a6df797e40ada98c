package export

import (
	"fmt"

	common_api "go-reporting/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type ExportController struct {
	ExportService ExportService
}

func NewExportController(exportService ExportService) *ExportController {
	return &ExportController{ExportService: exportService}
}

// Export godoc
func (c *ExportController) Export(ctx *fiber.Ctx) error {
	format := Format(ctx.Query("format", string(FormatCSV)))

	artifact, err := c.ExportService.Export(ctx.Context(), ctx.Params("id"), format)
	if err != nil {
		return common_api.ErrorResponse(ctx, err)
	}

	ctx.Set("Content-Type", artifact.ContentType)
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", artifact.Filename))
	return ctx.Send(artifact.Data)
}
