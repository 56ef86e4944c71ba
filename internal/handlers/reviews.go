package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/reviews"
)

type addReviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"required"`
}

// AddReview hands the submission to the review flow. A duplicate submission
// by the same account is a 409, distinct from the 404 of a missing product.
func AddReview(service *reviews.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products/:id/reviews"
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

		var req addReviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "rating and comment are required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := service.Add(ctx, productID, user, req.Rating, req.Comment); err != nil {
			respondReviewError(c, route, err)
			return
		}

		log.Println("[REVIEW] [INFO] review added to product:", productID.Hex())
		c.JSON(http.StatusCreated, gin.H{"message": "review added"})
	}
}

func respondReviewError(c *gin.Context, route string, err error) {
	switch {
	case errors.Is(err, reviews.ErrInvalidRating), errors.Is(err, reviews.ErrEmptyComment):
		respondWithError(c, http.StatusBadRequest, route, err.Error())
	case errors.Is(err, reviews.ErrProductNotFound):
		respondWithError(c, http.StatusNotFound, route, "product not found")
	case errors.Is(err, reviews.ErrAlreadyReviewed):
		respondWithError(c, http.StatusConflict, route, "you have already reviewed this product")
	default:
		respondWithError(c, http.StatusInternalServerError, route, "db error")
	}
}

// HasPurchased reports whether the caller has a non-cancelled order that
// contains the product.
func HasPurchased(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id/hasPurchased"
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

		count, err := db.Collection("orders").CountDocuments(ctx, bson.M{
			"userId":          user.ID,
			"status":          bson.M{"$ne": models.OrderStatusCancelled},
			"items.productId": productID,
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, gin.H{"hasPurchased": count > 0})
	}
}
