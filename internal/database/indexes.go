package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	userIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetName("email_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "uid", Value: 1}},
			Options: options.Index().
				SetName("uid_unique").
				SetUnique(true),
		},
	}

	log.Println("EnsureUserIndexes: creating email_unique and uid_unique indexes")
	_, err := indexes.CreateMany(ctx, userIndexes)
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	productIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index().SetName("createdBy_index"),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index().SetName("category_index"),
		},
	}

	log.Println("EnsureProductIndexes: creating createdBy_index and category_index indexes")
	_, err := indexes.CreateMany(ctx, productIndexes)
	if err != nil {
		log.Println("EnsureProductIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	orderIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().SetName("userId_index"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_index"),
		},
	}

	log.Println("EnsureOrderIndexes: creating userId_index and createdAt_index indexes")
	_, err := indexes.CreateMany(ctx, orderIndexes)
	if err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("refresh_tokens").Indexes()

	tokenIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().
				SetName("tokenHash_unique").
				SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().
				SetName("ttl_expiresAt").
				SetExpireAfterSeconds(0),
		},
	}

	log.Println("EnsureRefreshTokenIndexes: creating tokenHash_unique and ttl_expiresAt indexes")
	_, err := indexes.CreateMany(ctx, tokenIndexes)
	if err != nil {
		log.Println("EnsureRefreshTokenIndexes: index error:", err)
		return err
	}
	return nil
}
