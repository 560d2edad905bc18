package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/services"
)

// RestSyncHandler handles REST requests for sync queue state and retries.
type RestSyncHandler struct {
	offerService services.IOfferService
}

// NewRestSyncHandler creates a new RestSyncHandler.
func NewRestSyncHandler(offerService services.IOfferService) *RestSyncHandler {
	return &RestSyncHandler{offerService: offerService}
}

// Status handles GET /v1/sync/status
func (h *RestSyncHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.offerService.SyncStatus())
}

// Retry handles POST /v1/sync/retry
func (h *RestSyncHandler) Retry(c *gin.Context) {
	if err := h.offerService.RetrySyncQueue(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Sync drain failed"})
		return
	}
	c.JSON(http.StatusOK, h.offerService.SyncStatus())
}

// RetryDeadLetters handles POST /v1/sync/deadletter/retry
func (h *RestSyncHandler) RetryDeadLetters(c *gin.Context) {
	moved, err := h.offerService.ForceRetryDeadLetters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Dead letter retry failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"retried": moved,
		"status":  h.offerService.SyncStatus(),
	})
}
