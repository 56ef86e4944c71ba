package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ValidRole reports whether r is a known role value.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account. UID is the stable identity subject embedded in
// access tokens; Email is stored lowercase and unique.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UID          string             `bson:"uid" json:"uid"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
