package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bchikara/la-carte-backend/config"
	"github.com/bchikara/la-carte-backend/controllers"
	"github.com/bchikara/la-carte-backend/middleware"
	"github.com/bchikara/la-carte-backend/repository"
	"github.com/bchikara/la-carte-backend/services"
)

func Register(
	r *gin.Engine,
	cfg config.Config,
	carts *services.CartService,
	orders *services.OrderService,
	orderRepo repository.OrderRepository,
	orchestrator *services.CheckoutOrchestrator,
	widgetGateway *services.HostedCheckoutGateway,
) {
	cartController := controllers.NewCartController(carts, orderRepo)
	checkoutController := controllers.NewCheckoutController(orchestrator, widgetGateway)
	orderController := controllers.NewOrderController(orders)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Provider webhook; authenticated by session token match, not by buyer.
	r.POST("/payments/callback", checkoutController.GatewayCallback)

	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	cart := r.Group("/cart", auth)
	{
		cart.GET("/", cartController.GetCart)
		cart.POST("/add", cartController.AddItem)
		cart.DELETE("/remove/:product_key", cartController.RemoveItem)
		cart.DELETE("/delete/:product_key", cartController.DeleteItem)
		cart.DELETE("/clear", cartController.ClearCart)
	}

	checkout := r.Group("/checkout", auth)
	{
		checkout.POST("", middleware.RateLimitMiddleware(), checkoutController.Checkout)
		checkout.GET("/status", checkoutController.Status)
		checkout.DELETE("/status", checkoutController.ClearStatus)
	}

	ordersGroup := r.Group("/orders", auth)
	{
		ordersGroup.GET("", orderController.GetOrders)
		ordersGroup.GET("/:order_id", orderController.GetOrder)
	}
}
