package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bchikara/la-carte-backend/middleware"
	"github.com/bchikara/la-carte-backend/models"
	"github.com/bchikara/la-carte-backend/services"
)

type CheckoutController struct {
	Orchestrator *services.CheckoutOrchestrator
	Gateway      *services.HostedCheckoutGateway
}

func NewCheckoutController(orchestrator *services.CheckoutOrchestrator, gateway *services.HostedCheckoutGateway) *CheckoutController {
	return &CheckoutController{Orchestrator: orchestrator, Gateway: gateway}
}

type checkoutRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	TableID      string `json:"table_id"`
	Gateway      string `json:"gateway"`
}

// Checkout starts a checkout attempt over the buyer's current cart.
// The attempt continues asynchronously; the UI polls the status route.
func (cc *CheckoutController) Checkout(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)

	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	dest := models.DestinationContext{
		RestaurantID: req.RestaurantID,
		TableID:      req.TableID,
	}

	if err := cc.Orchestrator.Start(c.Request.Context(), buyerID, dest, req.Gateway); err != nil {
		status := http.StatusInternalServerError

		var precondition *services.PreconditionError
		var initiation *services.InitiationError
		switch {
		case errors.As(err, &precondition):
			status = http.StatusBadRequest
			if errors.Is(err, services.ErrCheckoutInFlight) {
				status = http.StatusConflict
			}
		case errors.As(err, &initiation):
			status = http.StatusBadGateway
		}

		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, cc.Orchestrator.Status(buyerID))
}

// Status returns the buyer's current checkout session state.
func (cc *CheckoutController) Status(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)
	c.JSON(http.StatusOK, cc.Orchestrator.Status(buyerID))
}

// ClearStatus resets the session to idle. The UI calls it on navigation away
// or to cancel an abandoned widget; it is safe to call at any time.
func (cc *CheckoutController) ClearStatus(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)
	cc.Orchestrator.ClearStatus(c.Request.Context(), buyerID)
	c.JSON(http.StatusOK, gin.H{"message": "status cleared"})
}

type gatewayCallbackRequest struct {
	Token             string `json:"token" binding:"required"`
	Status            string `json:"status" binding:"required"`
	ProviderPaymentID string `json:"provider_payment_id"`
	Message           string `json:"message"`
}

// GatewayCallback receives the provider's asynchronous outcome for a session.
// Unknown or already-resolved tokens are acknowledged and dropped; the
// provider retries otherwise.
func (cc *CheckoutController) GatewayCallback(c *gin.Context) {
	var req gatewayCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	outcome := models.PaymentOutcome{
		Status:            req.Status,
		ProviderPaymentID: req.ProviderPaymentID,
		Message:           req.Message,
	}

	if cc.Gateway.Resolve(req.Token, outcome) {
		c.JSON(http.StatusOK, gin.H{"status": "received"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "discarded"})
}
