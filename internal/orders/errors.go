package orders

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// ErrEmptyCart rejects orders with no line items.
	ErrEmptyCart = errors.New("order must contain at least one item")

	// ErrInvalidQuantity rejects non-positive line item quantities.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrAccountNotFound means the token subject has no account record.
	ErrAccountNotFound = errors.New("account not found")
)

// ProductNotFoundError identifies the missing product that aborted the flow.
type ProductNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID.Hex())
}

// InsufficientStockError names the product and the quantity still available.
type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: only %d left", e.Name, e.Available)
}

// PersistenceError wraps a ledger write failure so callers can tell "your
// cart was invalid" apart from "the system failed to save your valid cart".
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save order: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
