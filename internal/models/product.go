package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review is embedded in a product. Name is a display-name snapshot so the
// review survives later account edits.
type Review struct {
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Name      string             `bson:"name" json:"name"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

// Product defines the persisted catalog document. AverageRating and
// NumReviews are derived from the embedded review list and recomputed on
// every review append.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Category      string             `bson:"category" json:"category"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	ImageURL      string             `bson:"imageUrl" json:"imageUrl"`
	Price         float64            `bson:"price" json:"price"`
	Stock         int                `bson:"stock" json:"stock"`
	CreatedBy     primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	Reviews       []Review           `bson:"reviews" json:"reviews"`
	AverageRating float64            `bson:"averageRating" json:"averageRating"`
	NumReviews    int                `bson:"numReviews" json:"numReviews"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}
