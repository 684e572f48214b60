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

type CartController struct {
	Carts *services.CartService
	Menu  repository.OrderRepository
}

func NewCartController(carts *services.CartService, menu repository.OrderRepository) *CartController {
	return &CartController{Carts: carts, Menu: menu}
}

func cartView(ledger *services.CartLedger) gin.H {
	return gin.H{
		"items":        ledger.Snapshot(),
		"total_items":  ledger.TotalItems(),
		"total_amount": ledger.TotalAmount(),
	}
}

// GetCart returns the buyer's current ledger.
func (cc *CartController) GetCart(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)
	ledger := cc.Carts.Ledger(c.Request.Context(), buyerID)
	c.JSON(http.StatusOK, cartView(ledger))
}

type addItemRequest struct {
	RestaurantID string `json:"restaurant_id" binding:"required"`
	ProductKey   string `json:"product_key" binding:"required"`
}

// AddItem resolves the product from the restaurant's menu and adds one unit.
// Price and stock flag come from the menu record, never from the client.
func (cc *CartController) AddItem(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)

	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	ctx := c.Request.Context()
	product, err := cc.Menu.GetMenuProduct(ctx, req.RestaurantID, req.ProductKey)
	if err != nil {
		if errors.Is(err, repository.ErrPathNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		logger.Log.Error("Menu lookup failed",
			zap.String("product_key", req.ProductKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve product"})
		return
	}

	ledger := cc.Carts.Ledger(ctx, buyerID)
	ledger.Add(ctx, *product)

	c.JSON(http.StatusOK, cartView(ledger))
}

// RemoveItem decrements one unit of a product.
func (cc *CartController) RemoveItem(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)
	productKey := c.Param("product_key")

	ctx := c.Request.Context()
	ledger := cc.Carts.Ledger(ctx, buyerID)
	ledger.Remove(ctx, productKey)

	c.JSON(http.StatusOK, cartView(ledger))
}

// DeleteItem drops a line item regardless of quantity.
func (cc *CartController) DeleteItem(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)
	productKey := c.Param("product_key")

	ctx := c.Request.Context()
	ledger := cc.Carts.Ledger(ctx, buyerID)
	ledger.Delete(ctx, productKey)

	c.JSON(http.StatusOK, cartView(ledger))
}

// ClearCart removes all items from the ledger.
func (cc *CartController) ClearCart(c *gin.Context) {
	buyerID := middleware.GetBuyerID(c)

	ctx := c.Request.Context()
	ledger := cc.Carts.Ledger(ctx, buyerID)
	ledger.Clear(ctx)

	c.JSON(http.StatusOK, gin.H{"message": "cart cleared"})
}
