package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-reporting/internal/common/api"
	"go-reporting/internal/config"
	"go-reporting/internal/database"
	"go-reporting/internal/datasource"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/authz"
	"go-reporting/internal/features/catalog"
	"go-reporting/internal/features/definition"
	"go-reporting/internal/features/execution"
	"go-reporting/internal/features/export"
	"go-reporting/internal/features/plan"
	"go-reporting/internal/logger"
	"go-reporting/internal/middleware"
	"go-reporting/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d route groups\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,
			catalog.NewRedisClient,

			// Catalog registry and plan compiler
			catalog.NewRegistry,
			func(registry *catalog.Registry, cfg *config.Config) *plan.Builder {
				return plan.NewBuilder(registry, cfg.MaxPageSize)
			},

			// Initialize Repository
			audit.NewAuditRepository,
			authz.NewRoleRepository,
			definition.NewDefinitionRepository,
			execution.NewExecutionRepository,
			datasource.NewMongoRowSource,

			// Initialize Service
			audit.NewAuditService,
			authz.NewAuthzService,
			catalog.NewCatalogService,
			definition.NewDefinitionService,
			execution.NewExecutionService,
			export.NewExportService,

			func(cfg *config.Config) *execution.CompanyLimiter {
				return execution.NewCompanyLimiter(cfg.CompanyConcurrency)
			},
			execution.NewRetentionSweeper,

			// Initialize Controller
			audit.NewAuditController,
			catalog.NewCatalogController,
			definition.NewDefinitionController,
			execution.NewExecutionController,
			export.NewExportController,

			// Initialize API Routes
			AsRoute(audit.NewAuditApi),
			AsRoute(catalog.NewCatalogApi),
			AsRoute(definition.NewDefinitionApi),
			AsRoute(execution.NewExecutionApi),
			AsRoute(export.NewExportApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,

			func(lc fx.Lifecycle, sweeper *execution.RetentionSweeper) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						sweeper.Start()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						sweeper.Stop()
						return nil
					},
				})
			},
		),
	)

	app.Run()
}
