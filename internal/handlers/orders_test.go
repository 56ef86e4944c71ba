package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
	"storefront/internal/orders"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func TestBuildCartIgnoresClientPrice(t *testing.T) {
	id := primitive.NewObjectID()
	cart, err := buildCart([]createOrderItemRequest{
		{ProductID: id.Hex(), Quantity: 2, Price: 1},
	})
	require.NoError(t, err)
	require.Len(t, cart, 1)
	assert.Equal(t, id, cart[0].ProductID)
	assert.Equal(t, 2, cart[0].Quantity)
}

func TestBuildCartTrimsAndRejectsBadIDs(t *testing.T) {
	id := primitive.NewObjectID()
	cart, err := buildCart([]createOrderItemRequest{
		{ProductID: "  " + id.Hex() + " ", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, id, cart[0].ProductID)

	_, err = buildCart([]createOrderItemRequest{
		{ProductID: "not-a-hex-id", Quantity: 1},
	})
	assert.Error(t, err)
}

func orderErrorResponse(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondOrderError(c, "POST /orders", err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestRespondOrderErrorInsufficientStock(t *testing.T) {
	id := primitive.NewObjectID()
	code, body := orderErrorResponse(t, &orders.InsufficientStockError{
		ProductID: id,
		Name:      "scarf",
		Available: 1,
		Requested: 3,
	})

	assert.Equal(t, 400, code)
	assert.Equal(t, id.Hex(), body["productId"])
	assert.Equal(t, float64(1), body["available"])
	assert.Equal(t, float64(3), body["requested"])
	assert.Contains(t, body["error"], "scarf")
}

func TestRespondOrderErrorProductNotFound(t *testing.T) {
	id := primitive.NewObjectID()
	code, body := orderErrorResponse(t, &orders.ProductNotFoundError{ProductID: id})

	assert.Equal(t, 404, code)
	assert.Equal(t, id.Hex(), body["productId"])
}

func TestRespondOrderErrorValidation(t *testing.T) {
	code, _ := orderErrorResponse(t, orders.ErrEmptyCart)
	assert.Equal(t, 400, code)

	code, _ = orderErrorResponse(t, orders.ErrInvalidQuantity)
	assert.Equal(t, 400, code)

	code, _ = orderErrorResponse(t, orders.ErrAccountNotFound)
	assert.Equal(t, 404, code)
}

func TestCanUpdateOrderStatus(t *testing.T) {
	owner := models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	stranger := models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	order := models.Order{UserID: owner.ID}

	assert.True(t, canUpdateOrderStatus(owner, order), "owner may update own order")
	assert.True(t, canUpdateOrderStatus(admin, order), "admin may update any order")
	assert.False(t, canUpdateOrderStatus(stranger, order), "other accounts may not")
}

func TestRespondOrderErrorPersistenceFailure(t *testing.T) {
	code, body := orderErrorResponse(t, &orders.PersistenceError{Err: assert.AnError})

	assert.Equal(t, 500, code)
	assert.Equal(t, "failed to save order to database", body["error"])
}
