package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bchikara/la-carte-backend/logger"
	"github.com/bchikara/la-carte-backend/middleware"
	"github.com/bchikara/la-carte-backend/models"
	"github.com/bchikara/la-carte-backend/repository"
	"github.com/bchikara/la-carte-backend/services"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.Log = zap.NewNop()
	m.Run()
}

type memoryCartStorage struct {
	carts map[string]*models.Cart
}

func newMemoryCartStorage() *memoryCartStorage {
	return &memoryCartStorage{carts: make(map[string]*models.Cart)}
}

func (m *memoryCartStorage) GetCart(_ context.Context, buyerID string) (*models.Cart, error) {
	return m.carts[buyerID], nil
}

func (m *memoryCartStorage) SaveCart(_ context.Context, cart *models.Cart) error {
	m.carts[cart.BuyerID] = cart
	return nil
}

func (m *memoryCartStorage) DeleteCart(_ context.Context, buyerID string) error {
	delete(m.carts, buyerID)
	return nil
}

type menuOnlyRepo struct {
	products map[string]models.MenuProduct // restaurantID/productKey
}

func (m *menuOnlyRepo) GetRestaurant(context.Context, string) (*models.Restaurant, error) {
	return nil, repository.ErrPathNotFound
}

func (m *menuOnlyRepo) GetMenuProduct(_ context.Context, restaurantID, productKey string) (*models.MenuProduct, error) {
	product, ok := m.products[restaurantID+"/"+productKey]
	if !ok {
		return nil, repository.ErrPathNotFound
	}
	return &product, nil
}

func (m *menuOnlyRepo) WriteUserProjection(context.Context, *models.OrderRecord) error { return nil }
func (m *menuOnlyRepo) WriteRestaurantProjection(context.Context, *models.OrderRecord) error {
	return nil
}
func (m *menuOnlyRepo) WriteTableProjection(context.Context, *models.OrderRecord, string) error {
	return nil
}
func (m *menuOnlyRepo) FindByBuyer(context.Context, string) ([]models.OrderRecord, error) {
	return nil, nil
}
func (m *menuOnlyRepo) FindByIDAndBuyer(context.Context, string, string) (*models.OrderRecord, error) {
	return nil, repository.ErrPathNotFound
}

func cartTestRouter(t *testing.T) (*gin.Engine, *memoryCartStorage) {
	t.Helper()

	storage := newMemoryCartStorage()
	menu := &menuOnlyRepo{products: map[string]models.MenuProduct{
		"r1/dish-a": {Key: "dish-a", Name: "Paneer Tikka", Price: 10},
		"r1/dish-b": {Key: "dish-b", Name: "Lassi", Price: 5, OutOfStock: true},
	}}
	controller := NewCartController(services.NewCartService(storage), menu)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.BuyerKey, "buyer-1")
		c.Next()
	})
	router.GET("/cart", controller.GetCart)
	router.POST("/cart/add", controller.AddItem)
	router.DELETE("/cart/remove/:product_key", controller.RemoveItem)
	router.DELETE("/cart/delete/:product_key", controller.DeleteItem)
	router.DELETE("/cart/clear", controller.ClearCart)
	return router, storage
}

type cartResponse struct {
	Items       map[string]models.LineItem `json:"items"`
	TotalItems  int                        `json:"total_items"`
	TotalAmount float64                    `json:"total_amount"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, cartResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var parsed cartResponse
	if rec.Code == http.StatusOK {
		_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

func TestCartController_AddResolvesPriceFromMenu(t *testing.T) {
	router, _ := cartTestRouter(t)

	rec, cart := doJSON(t, router, http.MethodPost, "/cart/add",
		gin.H{"restaurant_id": "r1", "product_key": "dish-a", "price": 0.01})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, cart.Items, "dish-a")
	assert.InDelta(t, 10, cart.Items["dish-a"].UnitPrice, 0.001)
	assert.InDelta(t, 10, cart.TotalAmount, 0.001)
}

func TestCartController_AddUnknownProduct(t *testing.T) {
	router, _ := cartTestRouter(t)

	rec, _ := doJSON(t, router, http.MethodPost, "/cart/add",
		gin.H{"restaurant_id": "r1", "product_key": "no-such-dish"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartController_AddOutOfStockLeavesCartUnchanged(t *testing.T) {
	router, _ := cartTestRouter(t)

	rec, cart := doJSON(t, router, http.MethodPost, "/cart/add",
		gin.H{"restaurant_id": "r1", "product_key": "dish-b"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalItems)
}

func TestCartController_RemoveDecrementsAndDeletes(t *testing.T) {
	router, _ := cartTestRouter(t)

	add := gin.H{"restaurant_id": "r1", "product_key": "dish-a"}
	doJSON(t, router, http.MethodPost, "/cart/add", add)
	doJSON(t, router, http.MethodPost, "/cart/add", add)

	rec, cart := doJSON(t, router, http.MethodDelete, "/cart/remove/dish-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, cart.TotalItems)

	rec, cart = doJSON(t, router, http.MethodDelete, "/cart/remove/dish-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cart.Items)
}

func TestCartController_DeleteDropsWholeLine(t *testing.T) {
	router, _ := cartTestRouter(t)

	add := gin.H{"restaurant_id": "r1", "product_key": "dish-a"}
	doJSON(t, router, http.MethodPost, "/cart/add", add)
	doJSON(t, router, http.MethodPost, "/cart/add", add)
	doJSON(t, router, http.MethodPost, "/cart/add", add)

	rec, cart := doJSON(t, router, http.MethodDelete, "/cart/delete/dish-a", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cart.Items)
}

func TestCartController_ClearPersistsEmptyCart(t *testing.T) {
	router, storage := cartTestRouter(t)

	doJSON(t, router, http.MethodPost, "/cart/add",
		gin.H{"restaurant_id": "r1", "product_key": "dish-a"})
	require.NotEmpty(t, storage.carts["buyer-1"].Items)

	rec, _ := doJSON(t, router, http.MethodDelete, "/cart/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, cart := doJSON(t, router, http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, cart.Items)
}
