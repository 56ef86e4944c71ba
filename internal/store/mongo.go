// Package store provides the Mongo-backed implementations of the
// order-flow collaborators.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
	"storefront/internal/orders"
)

// Catalog reads and mutates product documents.
type Catalog struct {
	db *mongo.Database
}

func NewCatalog(db *mongo.Database) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) ProductByID(ctx context.Context, id primitive.ObjectID) (models.Product, error) {
	var product models.Product
	err := c.db.Collection("products").FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Product{}, &orders.ProductNotFoundError{ProductID: id}
	}
	if err != nil {
		return models.Product{}, err
	}
	return product, nil
}

// DecrementStock applies a single conditional update: the decrement only
// matches while stock >= qty, so concurrent checkouts cannot oversell.
func (c *Catalog) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	filter := bson.M{
		"_id":   id,
		"stock": bson.M{"$gte": qty},
	}
	update := bson.M{"$inc": bson.M{"stock": -qty}}

	res, err := c.db.Collection("products").UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// The guard did not match: the product vanished or another
		// checkout took the remaining units between our read and this
		// write. Re-read to report the current state.
		product, err := c.ProductByID(ctx, id)
		if err != nil {
			return err
		}
		return &orders.InsufficientStockError{
			ProductID: id,
			Name:      product.Name,
			Available: product.Stock,
			Requested: qty,
		}
	}
	return nil
}

// Ledger persists order documents.
type Ledger struct {
	db *mongo.Database
}

func NewLedger(db *mongo.Database) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Insert(ctx context.Context, order *models.Order) (primitive.ObjectID, error) {
	res, err := l.db.Collection("orders").InsertOne(ctx, order)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("unexpected inserted id type")
	}
	return id, nil
}

// Directory resolves identity subjects to accounts.
type Directory struct {
	db *mongo.Database
}

func NewDirectory(db *mongo.Database) *Directory {
	return &Directory{db: db}
}

func (d *Directory) BySubject(ctx context.Context, subject string) (models.User, error) {
	var user models.User
	err := d.db.Collection("users").FindOne(ctx, bson.M{"uid": subject}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, orders.ErrAccountNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}

// TxnRunner runs a function inside a Mongo multi-document transaction so the
// stock decrements and the order insert commit or abort together.
type TxnRunner struct {
	client *mongo.Client
}

func NewTxnRunner(client *mongo.Client) *TxnRunner {
	return &TxnRunner{client: client}
}

func (t *TxnRunner) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}
