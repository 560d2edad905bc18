package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/services"
)

// RestOfferHandler handles REST requests for offer lifecycle operations.
type RestOfferHandler struct {
	offerService services.IOfferService
}

// NewRestOfferHandler creates a new RestOfferHandler.
func NewRestOfferHandler(offerService services.IOfferService) *RestOfferHandler {
	return &RestOfferHandler{offerService: offerService}
}

// AddOffer handles POST /v1/offer
func (h *RestOfferHandler) AddOffer(c *gin.Context) {
	var offer models.Offer
	if err := c.ShouldBindJSON(&offer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offer payload"})
		return
	}

	if err := h.offerService.AddOffer(c.Request.Context(), &offer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": offer.ID, "status": models.OfferStatusPending})
}

// AcceptOffer handles POST /v1/offer/:id/accept
func (h *RestOfferHandler) AcceptOffer(c *gin.Context) {
	h.mutate(c, h.offerService.AcceptOffer)
}

// DeclineOffer handles POST /v1/offer/:id/decline
func (h *RestOfferHandler) DeclineOffer(c *gin.Context) {
	h.mutate(c, h.offerService.DeclineOffer)
}

// UndoAccept handles POST /v1/offer/:id/undo
func (h *RestOfferHandler) UndoAccept(c *gin.Context) {
	h.mutate(c, h.offerService.UndoAccept)
}

// mutate runs one facade mutation and maps the error taxonomy to HTTP. The
// local transition is authoritative: a 202 means the action is committed on
// the device and the backend will hear about it via the sync queue.
func (h *RestOfferHandler) mutate(c *gin.Context, op func(ctx context.Context, id string) error) {
	id := c.Param("id")

	if err := op(c.Request.Context(), id); err != nil {
		mapMutationError(c, err)
		return
	}

	status, err := h.offerService.GetOfferStatus(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read offer status"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"id":      id,
		"status":  status,
		"syncing": h.offerService.HasPendingSync(),
	})
}

// Status handles GET /v1/offer/:id/status
func (h *RestOfferHandler) Status(c *gin.Context) {
	id := c.Param("id")

	status, err := h.offerService.GetOfferStatus(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
		return
	}

	remainingLifetime, _ := h.offerService.RemainingLifetime(id)
	remainingUndo, _ := h.offerService.RemainingUndoTime(id)

	c.JSON(http.StatusOK, gin.H{
		"id":                      id,
		"status":                  status,
		"can_undo":                h.offerService.CanUndoAccept(id),
		"remaining_lifetime_secs": int(remainingLifetime.Seconds()),
		"remaining_undo_secs":     int(remainingUndo.Seconds()),
	})
}

// PendingOffers handles GET /v1/offers/pending
func (h *RestOfferHandler) PendingOffers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.offerService.PendingOffers()})
}

// AcceptedOffers handles GET /v1/offers/accepted
func (h *RestOfferHandler) AcceptedOffers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.offerService.AcceptedOffers()})
}

func mapMutationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrOfferNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Offer not found"})
	case errors.Is(err, models.ErrUndoWindowExpired):
		c.JSON(http.StatusGone, gin.H{"error": "Time limit exceeded"})
	case errors.Is(err, models.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": "Offer is no longer available"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Operation failed"})
	}
}
