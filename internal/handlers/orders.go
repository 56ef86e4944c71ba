package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/orders"
)

type createOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
	// Price is accepted for backward compatibility with older clients and
	// deliberately ignored: the catalog is the only price authority.
	Price float64 `json:"price"`
}

type createOrderRequest struct {
	Items []createOrderItemRequest `json:"items"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateOrder converts the request into a cart and hands it to the order
// placement flow. Error mapping follows the flow's taxonomy: business-rule
// and validation failures become 400, missing references 404, and ledger
// write failures a distinct 500.
func CreateOrder(service *orders.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		subject := c.GetString(middleware.ContextSubject)
		if subject == "" {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}

		cart, err := buildCart(req.Items)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		order, err := service.Place(ctx, subject, cart)
		if err != nil {
			respondOrderError(c, route, err)
			return
		}

		log.Println("[ORDER] [INFO] order created:", order.ID.Hex())
		c.JSON(http.StatusOK, gin.H{
			"message": "order saved successfully",
			"orderId": order.ID.Hex(),
		})
	}
}

func buildCart(items []createOrderItemRequest) ([]orders.CartItem, error) {
	cart := make([]orders.CartItem, 0, len(items))
	for _, item := range items {
		productID, err := primitive.ObjectIDFromHex(strings.TrimSpace(item.ProductID))
		if err != nil {
			return nil, errors.New("invalid productId")
		}
		cart = append(cart, orders.CartItem{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}
	return cart, nil
}

func respondOrderError(c *gin.Context, route string, err error) {
	var stockErr *orders.InsufficientStockError
	if errors.As(err, &stockErr) {
		log.Printf("[%s] insufficient stock: %v", route, err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error":     stockErr.Error(),
			"productId": stockErr.ProductID.Hex(),
			"available": stockErr.Available,
			"requested": stockErr.Requested,
		})
		return
	}

	var notFoundErr *orders.ProductNotFoundError
	if errors.As(err, &notFoundErr) {
		log.Printf("[%s] product not found: %v", route, err)
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
			"error":     notFoundErr.Error(),
			"productId": notFoundErr.ProductID.Hex(),
		})
		return
	}

	switch {
	case errors.Is(err, orders.ErrEmptyCart), errors.Is(err, orders.ErrInvalidQuantity):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, orders.ErrAccountNotFound):
		respondWithError(c, http.StatusNotFound, route, "account not found for placing the order")
	default:
		var persistErr *orders.PersistenceError
		if errors.As(err, &persistErr) {
			respondWithError(c, http.StatusInternalServerError, route, "failed to save order to database")
			return
		}
		respondWithError(c, http.StatusInternalServerError, route, "failed to save order")
	}
}

// GetMyOrders returns the caller's order history, newest first. Product
// names and images come from the snapshots taken at purchase time.
func GetMyOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders/mine"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("orders").Find(ctx, bson.M{"userId": user.ID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		userOrders := make([]models.Order, 0)
		if err := cursor.All(ctx, &userOrders); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, userOrders)
	}
}

// adminOrder is an order joined with its owner's display name.
type adminOrder struct {
	models.Order `bson:",inline"`
	UserName     string `bson:"userName" json:"userName"`
}

// GetOrders is the admin listing with optional status filter, owner-name
// substring filter and sort direction.
func GetOrders(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /orders"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		match := bson.M{}

		if status := strings.TrimSpace(c.Query("status")); status != "" {
			if !models.ValidOrderStatus(status) {
				respondWithError(c, http.StatusBadRequest, route, "invalid status value")
				return
			}
			match["status"] = status
		}

		if userName := strings.TrimSpace(c.Query("userName")); userName != "" {
			userIDs, err := findUserIDsByName(ctx, db, userName)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			match["userId"] = bson.M{"$in": userIDs}
		}

		sortDir := -1
		if c.Query("sort") == "asc" {
			sortDir = 1
		}

		pipeline := mongo.Pipeline{
			{{Key: "$match", Value: match}},
			{{Key: "$lookup", Value: bson.M{
				"from":         "users",
				"localField":   "userId",
				"foreignField": "_id",
				"as":           "owner",
			}}},
			{{Key: "$unwind", Value: bson.M{
				"path":                       "$owner",
				"preserveNullAndEmptyArrays": true,
			}}},
			{{Key: "$addFields", Value: bson.M{"userName": "$owner.name"}}},
			{{Key: "$project", Value: bson.M{"owner": 0}}},
			{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: sortDir}}}},
		}

		cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		results := make([]adminOrder, 0)
		if err := cursor.All(ctx, &results); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, results)
	}
}

func findUserIDsByName(ctx context.Context, db *mongo.Database, name string) ([]primitive.ObjectID, error) {
	cursor, err := db.Collection("users").Find(ctx,
		bson.M{"name": bson.M{"$regex": name, "$options": "i"}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	ids := make([]primitive.ObjectID, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// canUpdateOrderStatus admits the order's owner and admins, nobody else.
func canUpdateOrderStatus(user models.User, order models.Order) bool {
	return user.Role == models.RoleAdmin || order.UserID == user.ID
}

// UpdateOrderStatus moves an order to any valid status. Transitions are not
// constrained beyond the value check; owner and admin are both allowed.
func UpdateOrderStatus(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /orders/:id/status"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid order id")
			return
		}

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "status is required")
			return
		}
		if !models.ValidOrderStatus(req.Status) {
			respondWithError(c, http.StatusBadRequest, route, "invalid status value")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var order models.Order
		if err := db.Collection("orders").FindOne(ctx, bson.M{"_id": orderID}).Decode(&order); err != nil {
			respondWithError(c, http.StatusNotFound, route, "order not found")
			return
		}

		if !canUpdateOrderStatus(user, order) {
			respondWithError(c, http.StatusForbidden, route, "you do not have permission to change this order's status")
			return
		}

		now := time.Now()
		if _, err := db.Collection("orders").UpdateByID(ctx, orderID, bson.M{
			"$set": bson.M{"status": req.Status, "updatedAt": now},
		}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		order.Status = req.Status
		order.UpdatedAt = now

		log.Printf("[%s] order %s status set to %s", route, orderID.Hex(), req.Status)
		c.JSON(http.StatusOK, gin.H{
			"message":      "order status updated",
			"updatedOrder": order,
		})
	}
}
