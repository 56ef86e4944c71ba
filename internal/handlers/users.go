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

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

type updateProfileRequest struct {
	Name string `json:"name" binding:"required"`
}

// GetMe returns the caller's account. The response always reflects the role
// stored in the database; a token minted before a role change carries the
// old claim until the next login or refresh.
func GetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users/me"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		if tokenRole := c.GetString(middleware.ContextTokenRole); tokenRole != user.Role {
			log.Printf("[%s] role claim %q behind stored role %q for %s; refresh will sync", route, tokenRole, user.Role, user.UID)
		}

		c.JSON(http.StatusOK, user)
	}
}

// UpdateMe changes the caller's own display name. Nothing else is editable
// here: role changes go through the admin endpoint, and the name snapshots
// inside existing reviews and orders keep the name used at the time.
func UpdateMe(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /users/me"
		defer handlePanic(c, route)

		user, ok := middleware.CurrentUser(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		var req updateProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			respondWithError(c, http.StatusBadRequest, route, "name is required")
			return
		}
		name := strings.TrimSpace(req.Name)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if _, err := db.Collection("users").UpdateByID(ctx, user.ID, bson.M{
			"$set": bson.M{"name": name, "updatedAt": time.Now()},
		}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		user.Name = name
		c.JSON(http.StatusOK, user)
	}
}

// GetUsers lists all accounts for the admin panel.
func GetUsers(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /users"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection("users").Find(ctx, bson.M{},
			options.Find().SetProjection(bson.M{"passwordHash": 0}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		users := make([]models.User, 0)
		if err := cursor.All(ctx, &users); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, users)
	}
}

// UpdateUserRole changes an account's role. The role claim inside already
// issued tokens is not touched; it syncs on the account's next token issue.
func UpdateUserRole(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PATCH /users/:id/role"
		defer handlePanic(c, route)

		userID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid user id")
			return
		}

		var req updateRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil || !models.ValidRole(req.Role) {
			respondWithError(c, http.StatusBadRequest, route, "invalid role value")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{"role": req.Role, "updatedAt": time.Now()},
		})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.MatchedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		log.Printf("[%s] user %s role set to %s", route, userID.Hex(), req.Role)
		c.JSON(http.StatusOK, gin.H{"message": "user role updated"})
	}
}

// DeleteUser removes an account (admin only).
func DeleteUser(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /users/:id"
		defer handlePanic(c, route)

		userID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid user id")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("users").DeleteOne(ctx, bson.M{"_id": userID})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "user not found")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
	}
}
