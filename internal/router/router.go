package router

import (
	"context"
	"time"

	"marketstock/internal/app"
	"marketstock/internal/config"
	"marketstock/internal/handler"
	"marketstock/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New returns a configured Gin engine over already wired services. ctx bounds
// the rate limiter's purge loop.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, svc *app.Services) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.ErrorHandler())

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute) // per company
	limiter.StartPurge(ctx)

	// ── Handlers ─────────────────────────────────────────────────────────────
	companiesH := handler.NewCompaniesHandler(svc.Companies)
	flowH := handler.NewFlowHandler(svc.Flow)
	recsH := handler.NewRecommendationsHandler(svc.Recommendations, svc.Supplier, svc.Priority)
	jobsH := handler.NewJobsHandler(svc.Dispatcher)
	reportsH := handler.NewReportsHandler(svc.Reports)
	dlqH := handler.NewDLQHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, svc.Breakers))

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret), limiter.Handler())

	// Operator-wide routes, not scoped to a company
	admin := v1.Group("", middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/companies", companiesH.Create)
		admin.GET("/admin/dlq/:queue", dlqH.Peek)
		admin.POST("/admin/dlq/:queue/replay", dlqH.Replay)
	}

	t := v1.Group("", middleware.RequireCompany())
	{
		t.GET("/company", companiesH.Current)
		t.GET("/company/settings", companiesH.GetSettings)
		t.PUT("/company/settings", middleware.RequireRole(middleware.RoleAdmin), companiesH.UpdateSettings)

		// Recompute outputs
		t.GET("/recommendations", recsH.ListRecommendations)
		t.GET("/supplier-recommendations", recsH.ListSupplier)
		t.GET("/priority", recsH.ListPriority)
		t.PATCH("/priority/:id", recsH.UpdatePriority)

		// Warehouse flow
		prod := t.Group("/production")
		{
			prod.GET("", flowH.ListProduction)
			prod.POST("", flowH.Commit)
			prod.PATCH("/:id", flowH.AdjustProduction)
			prod.POST("/:id/produced", flowH.RecordProduction)
		}
		t.GET("/sorting", flowH.ListSorting)

		shelves := t.Group("/shelves")
		{
			shelves.GET("", flowH.ListShelves)
			shelves.POST("", flowH.Allocate)
			shelves.PATCH("/:id", flowH.CorrectShelf)
		}

		ship := t.Group("/shipments")
		{
			ship.GET("", flowH.ListShipments)
			ship.POST("", flowH.CreateShipments)
			ship.POST("/:id/fulfill", flowH.Fulfill)
			ship.GET("/:id/pick-list.pdf", reportsH.PickList)
		}
		t.GET("/shipment-history", flowH.ListShipped)

		// Reports
		t.GET("/reports/history", reportsH.ListHistory)
		t.GET("/reports/reconciliation", reportsH.Reconcile)
		t.GET("/exports/recommendations.xlsx", reportsH.ExportRecommendations)
		t.GET("/exports/supplier-recommendations.xlsx", reportsH.ExportSupplier)

		// Jobs
		t.POST("/recompute", jobsH.Recompute)
		t.POST("/ingest", jobsH.Ingest)
	}

	return r
}
