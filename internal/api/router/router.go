package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gptb70564-code/cw-bot/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "bid-api-service",
		})
	})

	h := handler.NewHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		postings := v1.Group("/postings")
		{
			// POST /api/v1/postings - Ingest a discovered posting
			postings.POST("", h.IngestPosting)

			// GET /api/v1/postings/:posting_id - Get posting details
			postings.GET("/:posting_id", h.GetPosting)
		}

		schedules := v1.Group("/schedules")
		{
			// PUT /api/v1/schedules/:user_id - Create or replace a schedule
			schedules.PUT("/:user_id", h.UpsertSchedule)

			// GET /api/v1/schedules/:user_id - Get a schedule
			schedules.GET("/:user_id", h.GetSchedule)
		}

		credentials := v1.Group("/credentials")
		{
			// PUT /api/v1/credentials/:user_id - Store session and key
			credentials.PUT("/:user_id", h.UpsertCredential)

			// POST /api/v1/credentials/:user_id/validate - Probe the key
			credentials.POST("/:user_id/validate", h.ValidateCredential)
		}

		// GET /api/v1/bids - List bid history with filtering and pagination
		v1.GET("/bids", h.ListBids)
	}

	return r
}
