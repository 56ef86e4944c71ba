package middleware

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/auth"
	"storefront/internal/models"
)

// Context keys set by the middleware chain.
const (
	ContextSubject   = "subject"
	ContextTokenRole = "tokenRole"
	ContextUser      = "user"
)

// Authenticate verifies the bearer token and stores the identity subject and
// token role claim in the context. It does not touch the database.
func Authenticate(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			log.Println("[AUTH] [ERROR] missing or malformed token:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		identity, err := auth.VerifyAccessToken(jwtSecret, token)
		if err != nil {
			log.Println("[AUTH] [ERROR] token validation failed:", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextSubject, identity.Subject)
		c.Set(ContextTokenRole, identity.Role)
		c.Next()
	}
}

// RequireAccount resolves the authenticated subject to an account record and
// stores it in the context. An unknown subject yields 404, distinct from the
// 401 an invalid token produces.
func RequireAccount(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := c.GetString(ContextSubject)
		if subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var user models.User
		if err := db.Collection("users").FindOne(ctx, bson.M{"uid": subject}).Decode(&user); err != nil {
			log.Println("[AUTH] [ERROR] no account for subject:", subject)
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "account not found"})
			return
		}

		c.Set(ContextUser, user)
		c.Next()
	}
}

// AdminOnly gates a route on the account's stored role, not the token claim,
// so a demoted admin loses access without waiting for token expiry.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if user.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the account loaded by RequireAccount.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, ok := c.Get(ContextUser)
	if !ok {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}
