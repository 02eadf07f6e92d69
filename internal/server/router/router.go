package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anilytics/agriwarehouse/internal/server/handlers"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Batches    *handlers.BatchHandler
	Inventory  *handlers.InventoryHandler
	Reports    *handlers.ReportHandler
	Simulation *handlers.SimulationHandler
	Alerts     *handlers.AlertHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	b := api.Group("/batches")
	b.GET("", h.Batches.List)
	b.POST("", h.Batches.Create)
	b.GET("/risk/spoilage", h.Batches.AtRisk)
	b.GET("/:id", h.Batches.Get)
	b.PUT("/:id", h.Batches.Update)
	b.DELETE("/:id", h.Batches.Delete)
	b.PUT("/:id/distribution", h.Batches.MarkForDistribution)

	inv := api.Group("/inventory")
	inv.GET("/logs", h.Inventory.ListLogs)
	inv.POST("/logs", h.Inventory.CreateLog)
	inv.GET("/logs/:id", h.Inventory.GetLog)
	inv.PUT("/logs/:id", h.Inventory.UpdateLog)
	inv.GET("/summary", h.Inventory.Summary)
	inv.GET("/storage/capacity", h.Inventory.StorageCapacity)

	rep := api.Group("/reports")
	rep.GET("/spoilage-forecast", h.Reports.SpoilageForecast())
	rep.GET("/distribution-recommendations", h.Reports.DistributionRecommendations())
	rep.GET("/distribution-history", h.Reports.DistributionHistory)
	rep.GET("/distribution-history/:id", h.Reports.DistributionReport)
	rep.GET("/inventory-analytics", h.Reports.InventoryAnalytics())
	rep.GET("/shipment-analytics", h.Reports.ShipmentAnalytics())
	rep.GET("/storage-recommendations", h.Reports.StorageRecommendations())

	api.POST("/risk/score", h.Simulation.Score)
	api.POST("/allocation/simulate", h.Simulation.Simulate)

	if h.Alerts != nil {
		api.POST("/alerts/send", h.Alerts.SendMessage)
	}

	logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	return r
}

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDHeader, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("request_id", c.GetString(requestIDHeader)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
