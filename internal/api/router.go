package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/api/handlers"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/api/middleware"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/config"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/services"
)

// SetupRouter configures and returns the Gin engine the UI layer talks to.
func SetupRouter(cfg *config.Config, offerService services.IOfferService) *gin.Engine {
	r := gin.Default()

	// Initialize Middleware (order matters)
	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	// Initialize handlers
	restOfferHandler := handlers.NewRestOfferHandler(offerService)
	restSyncHandler := handlers.NewRestSyncHandler(offerService)

	v1 := r.Group("/v1")
	{
		v1.POST("/offer", restOfferHandler.AddOffer)
		v1.POST("/offer/:id/accept", restOfferHandler.AcceptOffer)
		v1.POST("/offer/:id/decline", restOfferHandler.DeclineOffer)
		v1.POST("/offer/:id/undo", restOfferHandler.UndoAccept)
		v1.GET("/offer/:id/status", restOfferHandler.Status)

		v1.GET("/offers/pending", restOfferHandler.PendingOffers)
		v1.GET("/offers/accepted", restOfferHandler.AcceptedOffers)

		v1.GET("/sync/status", restSyncHandler.Status)
		v1.POST("/sync/retry", restSyncHandler.Retry)
		v1.POST("/sync/deadletter/retry", restSyncHandler.RetryDeadLetters)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	return r
}
