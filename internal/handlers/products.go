package handlers

import (
	"context"
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
)

type createProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl" binding:"required"`
	Price       float64 `json:"price" binding:"required,gte=0"`
	Stock       int     `json:"stock" binding:"gte=0"`
}

type updateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	ImageURL    string  `json:"imageUrl" binding:"required"`
	Price       float64 `json:"price" binding:"gte=0"`
}

type updateStockRequest struct {
	Stock *int `json:"stock" binding:"required"`
}

// GetProducts is the public catalog listing. Pagination applies when either
// page or limit is supplied; the other falls back to its default.
func GetProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products"
		defer handlePanic(c, route)

		filter := bson.M{}
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			filter["category"] = category
		}
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["name"] = bson.M{"$regex": search, "$options": "i"}
		}

		findOptions := options.Find().
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		if err := applyPagination(findOptions, c.Query("page"), c.Query("limit")); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid pagination params")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, products)
	}
}

func GetProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		c.JSON(http.StatusOK, product)
	}
}

// GetMyProducts lists the caller's own listings.
func GetMyProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/mine"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Find(ctx, bson.M{"createdBy": user.ID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]models.Product, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, products)
	}
}

// adminProduct is a product joined with its creator's display name.
type adminProduct struct {
	models.Product `bson:",inline"`
	CreatedByName  string `bson:"createdByName" json:"createdByName"`
}

// GetAllProductsAdmin lists every product with the creator name joined in,
// for the admin panel.
func GetAllProductsAdmin(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/admin"
		defer handlePanic(c, route)

		pipeline := mongo.Pipeline{
			{{Key: "$lookup", Value: bson.M{
				"from":         "users",
				"localField":   "createdBy",
				"foreignField": "_id",
				"as":           "creator",
			}}},
			{{Key: "$unwind", Value: bson.M{
				"path":                       "$creator",
				"preserveNullAndEmptyArrays": true,
			}}},
			{{Key: "$addFields", Value: bson.M{"createdByName": "$creator.name"}}},
			{{Key: "$project", Value: bson.M{"creator": 0}}},
			{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("products").Aggregate(ctx, pipeline)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		products := make([]adminProduct, 0)
		if err := cursor.All(ctx, &products); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, products)
	}
}

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product payload")
			return
		}

		now := time.Now()
		product := models.Product{
			Name:        strings.TrimSpace(req.Name),
			Category:    strings.TrimSpace(req.Category),
			Description: strings.TrimSpace(req.Description),
			ImageURL:    strings.TrimSpace(req.ImageURL),
			Price:       req.Price,
			Stock:       req.Stock,
			CreatedBy:   user.ID,
			Reviews:     []models.Review{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			product.ID = id
		}

		log.Println("[PRODUCT] [INFO] product created:", product.ID.Hex())
		c.JSON(http.StatusCreated, product)
	}
}

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product payload")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		if !canMutateProduct(user, product) {
			respondWithError(c, http.StatusForbidden, route, "you do not have permission to edit this product")
			return
		}

		update := bson.M{"$set": bson.M{
			"name":        strings.TrimSpace(req.Name),
			"category":    strings.TrimSpace(req.Category),
			"description": strings.TrimSpace(req.Description),
			"imageUrl":    strings.TrimSpace(req.ImageURL),
			"price":       req.Price,
			"updatedAt":   time.Now(),
		}}

		if _, err := db.Collection("products").UpdateByID(ctx, productID, update); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, product)
	}
}

func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /products/:id"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		if !canMutateProduct(user, product) {
			respondWithError(c, http.StatusForbidden, route, "you do not have permission to delete this product")
			return
		}

		// Hard delete: products are never soft-deleted.
		if _, err := db.Collection("products").DeleteOne(ctx, bson.M{"_id": productID}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[PRODUCT] [INFO] product deleted:", productID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}

// UpdateStock replaces the stock count with a non-negative integer. This is
// the owner/admin restock path; checkout decrements go through the order
// flow's guarded update instead.
func UpdateStock(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /products/:id/stock"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req updateStockRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Stock == nil || *req.Stock < 0 {
			respondWithError(c, http.StatusBadRequest, route, "please provide a valid stock count (integer >= 0)")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var product models.Product
		if err := db.Collection("products").FindOne(ctx, bson.M{"_id": productID}).Decode(&product); err != nil {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		if !canMutateProduct(user, product) {
			respondWithError(c, http.StatusForbidden, route, "you do not have permission to update this product's stock")
			return
		}

		update := bson.M{"$set": bson.M{
			"stock":     *req.Stock,
			"updatedAt": time.Now(),
		}}
		if _, err := db.Collection("products").UpdateByID(ctx, productID, update); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		product.Stock = *req.Stock
		c.JSON(http.StatusOK, gin.H{"message": "stock updated", "product": product})
	}
}

func canMutateProduct(user models.User, product models.Product) bool {
	return user.Role == models.RoleAdmin || product.CreatedBy == user.ID
}
