package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/middleware"
	"github.com/bchikara/la-carte-backend/repository"
	"github.com/bchikara/la-carte-backend/services"
)

type OrderController struct {
	Orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{Orders: orders}
}

// GetOrders lists the buyer's order history, newest first.
func (oc *OrderController) GetOrders(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)

	orders, err := oc.Orders.GetBuyerOrders(c.Request.Context(), buyerID)
	if err != nil {
		logger.Log.Error("Failed to fetch orders",
			zap.String("buyer_id", buyerID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// GetOrder returns one order from the buyer's own history.
func (oc *OrderController) GetOrder(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)
	orderID := c.Param("order_id")

	order, err := oc.Orders.GetOrder(c.Request.Context(), buyerID, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrPathNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		logger.Log.Error("Failed to fetch order",
			zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}
