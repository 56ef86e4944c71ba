package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order status values. The lifecycle is intentionally permissive: any
// authorized caller may move an order between any two statuses.
const (
	OrderStatusUnprocessed = "unprocessed"
	OrderStatusProcessing  = "processing"
	OrderStatusShipped     = "shipped"
	OrderStatusCancelled   = "cancelled"
)

// ValidOrderStatus reports whether s is one of the known status values.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusUnprocessed, OrderStatusProcessing, OrderStatusShipped, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem is one line of an order. Name, ImageURL and Price are snapshots
// taken at purchase time so the line survives later product edits or
// deletion.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name" json:"name"`
	ImageURL  string             `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Order defines the persisted order document. Items and TotalPrice are fixed
// at creation; only Status may change afterwards.
type Order struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"userId" json:"userId"`
	Items      []OrderItem        `bson:"items" json:"items"`
	TotalPrice float64            `bson:"totalPrice" json:"totalPrice"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}
