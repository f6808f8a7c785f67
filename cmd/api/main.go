package main

import (
	"context"
	"fmt"
	"time"

	common_api "salescrm/internal/common/api"
	"salescrm/internal/cache"
	"salescrm/internal/config"
	"salescrm/internal/database"
	"salescrm/internal/features/activity"
	"salescrm/internal/features/audit"
	"salescrm/internal/features/company"
	"salescrm/internal/features/contact"
	"salescrm/internal/features/customfield"
	"salescrm/internal/features/dashboard"
	"salescrm/internal/features/deal"
	"salescrm/internal/features/goal"
	"salescrm/internal/features/pipeline"
	"salescrm/internal/features/report"
	"salescrm/internal/features/rollup"
	"salescrm/internal/features/system"
	"salescrm/internal/features/tag"
	"salescrm/internal/features/target"
	"salescrm/internal/features/warehouse"
	"salescrm/internal/logger"
	"salescrm/internal/middleware"
	"salescrm/internal/realtime"
	"salescrm/pkg/utils"

	_ "salescrm/docs" // Import swagger docs

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates the Fiber app with the shared error handler and
// the request middleware chain.
func NewFiberServer(cfg *config.Config, log *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			return common_api.Error(c, err)
		},
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))
	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	return app
}

// AsRoute tags the constructor so Fx adds it to the "routes" group
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes calls Setup() on every collected route
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, log *zap.Logger) {
	for _, route := range routes {
		log.Debug("Setting up route", zap.String("api", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
	log.Info("Routes registered", zap.Int("count", len(routes)))
}

var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer starts Fiber in a goroutine and shuts it down when the app exits
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, log *zap.Logger) {
	utils.SetSecret(cfg.JWTSecret)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				log.Info("HTTP server listening", zap.String("addr", port), zap.String("env", cfg.Environment))
				if err := app.Listen(port); err != nil {
					log.Fatal("Server failed to start", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.ShutdownWithContext(ctx)
		},
	})
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

type indexParams struct {
	fx.In

	Audit       audit.AuditRepository
	Companies   company.CompanyRepository
	Contacts    contact.ContactRepository
	Deals       deal.DealRepository
	Activities  activity.ActivityRepository
	Tags        tag.TagRepository
	Assignments tag.AssignmentRepository
	Pipelines   pipeline.PipelineRepository
	Stages      pipeline.StageRepository
	Fields      customfield.FieldRepository
	Values      customfield.ValueRepository
	Rollups     *rollup.RollupRepository
}

// InitializeIndexes ensures the unique and lookup indexes every store relies on
func InitializeIndexes(lc fx.Lifecycle, p indexParams, log *zap.Logger) {
	named := map[string]indexer{
		"audit_logs":          p.Audit,
		"companies":           p.Companies,
		"contacts":            p.Contacts,
		"deals":               p.Deals,
		"activities":          p.Activities,
		"tags":                p.Tags,
		"tag_assignments":     p.Assignments,
		"pipelines":           p.Pipelines,
		"pipeline_stages":     p.Stages,
		"custom_fields":       p.Fields,
		"custom_field_values": p.Values,
		"rollups":             p.Rollups,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				for name, repo := range named {
					if err := repo.EnsureIndexes(ctx); err != nil {
						log.Error("Failed to ensure indexes", zap.String("collection", name), zap.Error(err))
					}
				}
			}()
			return nil
		},
	})
}

// @title           Sales CRM API
// @version         1.0
// @description     Contacts, companies, deals, activities and sales analytics.

// @contact.name    API Support

// @host            localhost:8000
// @BasePath        /

// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database and cache
			database.NewDatabase,
			database.NewRedisClient,
			cache.NewCache,
			realtime.NewHub,
			warehouse.NewWarehouse,

			// Initialize Repository
			audit.NewAuditRepository,
			company.NewCompanyRepository,
			contact.NewContactRepository,
			deal.NewDealRepository,
			activity.NewActivityRepository,
			tag.NewTagRepository,
			tag.NewAssignmentRepository,
			pipeline.NewPipelineRepository,
			pipeline.NewStageRepository,
			customfield.NewFieldRepository,
			customfield.NewValueRepository,
			rollup.NewRollupRepository,
			goal.NewGoalRepository,
			report.NewReportRepository,
			dashboard.NewWidgetRepository,
			target.NewRegistry,

			// Cross-feature adapters
			newPublisher,
			newTargetChecker,
			newCleaners,
			newCompanyUnlinkers,
			newContactRemovers,
			newDealActivityRemover,
			newCompanyActivityRemover,
			newStageOrderer,
			newExporter,
			newCapturer,

			// Initialize Service
			audit.NewAuditService,
			company.NewCompanyService,
			contact.NewContactService,
			deal.NewDealService,
			activity.NewActivityService,
			tag.NewTagService,
			tag.NewAssignmentService,
			pipeline.NewPipelineService,
			customfield.NewCustomFieldService,
			rollup.NewRollupService,
			rollup.NewScheduler,
			goal.NewGoalService,
			report.NewReportService,
			dashboard.NewDashboardService,

			// Initialize Controller
			audit.NewAuditController,
			company.NewCompanyController,
			contact.NewContactController,
			deal.NewDealController,
			activity.NewActivityController,
			tag.NewTagController,
			pipeline.NewPipelineController,
			customfield.NewCustomFieldController,
			rollup.NewRollupController,
			goal.NewGoalController,
			report.NewReportController,
			dashboard.NewDashboardController,
			system.NewHealthController,
			system.NewWebSocketController,
			system.NewDebugController,

			// Initialize Api
			AsRoute(audit.NewAuditApi),
			AsRoute(company.NewCompanyApi),
			AsRoute(contact.NewContactApi),
			AsRoute(deal.NewDealApi),
			AsRoute(activity.NewActivityApi),
			AsRoute(tag.NewTagApi),
			AsRoute(pipeline.NewPipelineApi),
			AsRoute(customfield.NewCustomFieldApi),
			AsRoute(rollup.NewRollupApi),
			AsRoute(goal.NewGoalApi),
			AsRoute(report.NewReportApi),
			AsRoute(dashboard.NewDashboardApi),
			AsRoute(system.NewHealthApi),
			AsRoute(system.NewSwaggerApi),
			AsRoute(system.NewWebSocketApi),
			AsRoute(system.NewDebugApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			InitializeIndexes,
			rollup.RegisterScheduler,
		),
	)

	app.Run()
}
