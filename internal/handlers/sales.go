package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

// Sales reporting counts only orders in a status that represents realized
// revenue. The same filter applies to every reporting endpoint.
func salesStatusFilter() bson.M {
	return bson.M{"status": bson.M{"$in": []string{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
	}}}
}

type timeBucketSales struct {
	Year       int     `bson:"year" json:"year"`
	Month      int     `bson:"month" json:"month"`
	Day        int     `bson:"day,omitempty" json:"day,omitempty"`
	TotalSales float64 `bson:"totalSales" json:"totalSales"`
	OrderCount int     `bson:"orderCount" json:"orderCount"`
}

type topProductSales struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	TotalSold int                `bson:"totalSold" json:"totalSold"`
}

type categorySales struct {
	Category   string  `bson:"category" json:"category"`
	TotalSales float64 `bson:"totalSales" json:"totalSales"`
}

// timeBucketPipeline groups whole orders into calendar buckets, summing
// totals and counting orders, sorted chronologically ascending.
func timeBucketPipeline(includeDay bool) mongo.Pipeline {
	groupID := bson.M{
		"year":  bson.M{"$year": "$createdAt"},
		"month": bson.M{"$month": "$createdAt"},
	}
	projected := bson.M{
		"_id":        0,
		"year":       "$_id.year",
		"month":      "$_id.month",
		"totalSales": 1,
		"orderCount": 1,
	}
	sortKeys := bson.D{
		{Key: "_id.year", Value: 1},
		{Key: "_id.month", Value: 1},
	}
	if includeDay {
		groupID["day"] = bson.M{"$dayOfMonth": "$createdAt"}
		projected["day"] = "$_id.day"
		sortKeys = append(sortKeys, bson.E{Key: "_id.day", Value: 1})
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: salesStatusFilter()}},
		{{Key: "$group", Value: bson.M{
			"_id":        groupID,
			"totalSales": bson.M{"$sum": "$totalPrice"},
			"orderCount": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: sortKeys}},
		{{Key: "$project", Value: projected}},
	}
}

// topProductsPipeline ranks products by units sold, joining the catalog for
// display names, limited to the top 10.
func topProductsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: salesStatusFilter()}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$items.productId",
			"totalSold": bson.M{"$sum": "$items.quantity"},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "products",
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "productInfo",
		}}},
		{{Key: "$unwind", Value: "$productInfo"}},
		{{Key: "$project", Value: bson.M{
			"_id":       0,
			"productId": "$_id",
			"name":      "$productInfo.name",
			"totalSold": 1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalSold", Value: -1}}}},
		{{Key: "$limit", Value: 10}},
	}
}

// categorySalesPipeline sums quantity x snapshot price per product category,
// sorted descending by revenue.
func categorySalesPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: salesStatusFilter()}},
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "products",
			"localField":   "items.productId",
			"foreignField": "_id",
			"as":           "productInfo",
		}}},
		{{Key: "$unwind", Value: "$productInfo"}},
		{{Key: "$group", Value: bson.M{
			"_id": "$productInfo.category",
			"totalSales": bson.M{"$sum": bson.M{
				"$multiply": []interface{}{"$items.quantity", "$items.price"},
			}},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":        0,
			"category":   "$_id",
			"totalSales": 1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "totalSales", Value: -1}}}},
	}
}

func runSalesPipeline[T any](c *gin.Context, db *mongo.Database, route string, pipeline mongo.Pipeline) ([]T, bool) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	cursor, err := db.Collection("orders").Aggregate(ctx, pipeline)
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "db error")
		return nil, false
	}
	defer cursor.Close(ctx)

	results := make([]T, 0)
	if err := cursor.All(ctx, &results); err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "decode error")
		return nil, false
	}
	return results, true
}

func GetDailySales(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /sales/daily"
		defer handlePanic(c, route)

		results, ok := runSalesPipeline[timeBucketSales](c, db, route, timeBucketPipeline(true))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func GetMonthlySales(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /sales/monthly"
		defer handlePanic(c, route)

		results, ok := runSalesPipeline[timeBucketSales](c, db, route, timeBucketPipeline(false))
		if !ok {
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func GetTopSellingProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /sales/top-products"
		defer handlePanic(c, route)

		results, ok := runSalesPipeline[topProductSales](c, db, route, topProductsPipeline())
		if !ok {
			return
		}
		c.JSON(http.StatusOK, results)
	}
}

func GetCategorySales(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /sales/category-sales"
		defer handlePanic(c, route)

		results, ok := runSalesPipeline[categorySales](c, db, route, categorySalesPipeline())
		if !ok {
			return
		}
		c.JSON(http.StatusOK, results)
	}
}
