package store

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
	"storefront/internal/reviews"
)

// Reviews persists reviews as embedded documents on products.
type Reviews struct {
	db *mongo.Database
}

func NewReviews(db *mongo.Database) *Reviews {
	return &Reviews{db: db}
}

// Append is a single guarded update: the filter refuses to match when the
// reviewer already has a review on the product, so two concurrent
// submissions by the same account cannot both land.
func (r *Reviews) Append(ctx context.Context, productID primitive.ObjectID, review models.Review) error {
	filter := bson.M{
		"_id":            productID,
		"reviews.userId": bson.M{"$ne": review.UserID},
	}
	res, err := r.db.Collection("products").UpdateOne(ctx, filter, bson.M{
		"$push": bson.M{"reviews": review},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the product does not exist or the reviewer already
		// reviewed it.
		count, err := r.db.Collection("products").CountDocuments(ctx, bson.M{"_id": productID})
		if err != nil {
			return err
		}
		if count == 0 {
			return reviews.ErrProductNotFound
		}
		return reviews.ErrAlreadyReviewed
	}
	return nil
}

// RecomputeStats is a pipeline update: the stats derive from the array as it
// exists at update time, so concurrent reviews cannot write stale counts.
func (r *Reviews) RecomputeStats(ctx context.Context, productID primitive.ObjectID) error {
	_, err := r.db.Collection("products").UpdateByID(ctx, productID, reviewStatsPipeline())
	return err
}

// reviewStatsPipeline recomputes the denormalized review stats from the
// embedded array, server side.
func reviewStatsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"numReviews": bson.M{"$size": "$reviews"},
			"averageRating": bson.M{"$ifNull": []interface{}{
				bson.M{"$avg": "$reviews.rating"},
				0,
			}},
			"updatedAt": "$$NOW",
		}}},
	}
}
