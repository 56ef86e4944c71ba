// Package orders implements the order-placement flow: stock validation and
// decrement, price snapshotting, ledger write and best-effort confirmation
// email. Collaborators are injected so the flow can run against Mongo in
// production and in-memory doubles in tests.
package orders

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

// CartItem is one client-supplied entry of a checkout request. Prices are
// deliberately absent: the catalog is the only price authority.
type CartItem struct {
	ProductID primitive.ObjectID
	Quantity  int
}

// Catalog reads products and applies guarded stock decrements.
type Catalog interface {
	ProductByID(ctx context.Context, id primitive.ObjectID) (models.Product, error)
	// DecrementStock subtracts qty only while stock >= qty, as a single
	// conditional update. It fails with *InsufficientStockError when the
	// guard does not match, closing the check-then-act window between the
	// read and the write.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

// Ledger persists orders.
type Ledger interface {
	Insert(ctx context.Context, order *models.Order) (primitive.ObjectID, error)
}

// Directory resolves identity subjects to account records.
type Directory interface {
	BySubject(ctx context.Context, subject string) (models.User, error)
}

// Mailer delivers the confirmation email. Failures never affect the order.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, to, name string, order *models.Order) error
}

// TxnRunner executes fn atomically: if fn returns an error, every store
// mutation issued through its context is undone.
type TxnRunner interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates order placement.
type Service struct {
	catalog   Catalog
	ledger    Ledger
	directory Directory
	mailer    Mailer
	txn       TxnRunner
}

func NewService(catalog Catalog, ledger Ledger, directory Directory, mailer Mailer, txn TxnRunner) *Service {
	return &Service{
		catalog:   catalog,
		ledger:    ledger,
		directory: directory,
		mailer:    mailer,
		txn:       txn,
	}
}

// Place converts a cart into a persisted order, decrementing inventory as a
// side effect. Line items are processed sequentially in the order supplied.
// Every unit price comes from a fresh catalog read; client-supplied prices
// never enter the computation. The stock decrements and the ledger write
// run in one transaction, so a failure on any line item leaves no partial
// decrements behind.
func (s *Service) Place(ctx context.Context, subject string, cart []CartItem) (*models.Order, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyCart
	}
	for _, item := range cart {
		if item.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
	}

	var (
		order     *models.Order
		recipient models.User
	)

	err := s.txn.InTransaction(ctx, func(ctx context.Context) error {
		lineItems := make([]models.OrderItem, 0, len(cart))
		total := 0.0

		for _, item := range cart {
			product, err := s.catalog.ProductByID(ctx, item.ProductID)
			if err != nil {
				return err
			}

			if product.Stock < item.Quantity {
				return &InsufficientStockError{
					ProductID: product.ID,
					Name:      product.Name,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}

			if err := s.catalog.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}

			lineItems = append(lineItems, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				ImageURL:  product.ImageURL,
				Price:     product.Price,
				Quantity:  item.Quantity,
			})
			total += product.Price * float64(item.Quantity)
		}

		user, err := s.directory.BySubject(ctx, subject)
		if err != nil {
			return err
		}
		recipient = user

		now := time.Now()
		order = &models.Order{
			UserID:     user.ID,
			Items:      lineItems,
			TotalPrice: total,
			Status:     models.OrderStatusUnprocessed,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		id, err := s.ledger.Insert(ctx, order)
		if err != nil {
			return &PersistenceError{Err: err}
		}
		order.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Best-effort channel: a failed email never fails the order and is
	// never retried.
	if err := s.mailer.SendOrderConfirmation(ctx, recipient.Email, recipient.Name, order); err != nil {
		log.Println("[ORDER] [WARN] confirmation email failed:", err)
	}

	return order, nil
}
