package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/proximity-backend-go/internal/config"
	"github.com/jengzang/proximity-backend-go/internal/handler"
	"github.com/jengzang/proximity-backend-go/internal/metrics"
	"github.com/jengzang/proximity-backend-go/internal/middleware"
)

// Handlers groups everything the router mounts
type Handlers struct {
	Ingest    *handler.IngestHandler
	Readings  *handler.ReadingHandler
	Employees *handler.EmployeeHandler
	Limiter   *middleware.RateLimiter
	Metrics   *metrics.Metrics
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(log), middleware.Logger(log), middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Proximity Backend API is running",
			"shape":   cfg.Shape,
		})
	})
	r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))

	api := r.Group("/api/v1")
	{
		api.POST("/ingest", h.Limiter.Middleware(), h.Ingest.Ingest)

		readings := api.Group("/readings")
		{
			readings.GET("", h.Readings.ListReadings)
			readings.GET("/latest", h.Readings.LatestReadings)
			readings.GET("/filtered", h.Readings.FilteredReadings)
		}

		api.GET("/positions/:key", h.Readings.GetPosition)
		api.GET("/distances", h.Readings.ListDistanceReports)

		employees := api.Group("/employees")
		{
			employees.GET("", h.Employees.ListEmployees)
			employees.GET("/:name", h.Employees.GetEmployee)
			employees.DELETE("/:name/machines/:machine", h.Employees.DeleteMachine)
		}
	}

	return r
}
