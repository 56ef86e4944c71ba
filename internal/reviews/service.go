// Package reviews implements review submission: validation, a one-review-per
// account append and the recompute of the product's denormalized rating
// stats. The store is injected so the dedup semantics can run against Mongo
// in production and an in-memory double in tests.
package reviews

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront/internal/models"
)

var (
	// ErrInvalidRating rejects ratings outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrEmptyComment rejects blank comments.
	ErrEmptyComment = errors.New("comment must not be empty")

	// ErrProductNotFound means the reviewed product does not exist.
	ErrProductNotFound = errors.New("product not found")

	// ErrAlreadyReviewed means the account already has a review on the
	// product.
	ErrAlreadyReviewed = errors.New("account has already reviewed this product")
)

// Store persists reviews on product documents.
type Store interface {
	// Append adds the review only while the reviewer has no existing
	// review on the product, as one atomic operation. It fails with
	// ErrAlreadyReviewed when the guard does not match, so two concurrent
	// submissions by the same account cannot both land.
	Append(ctx context.Context, productID primitive.ObjectID, review models.Review) error

	// RecomputeStats rederives numReviews and averageRating from the
	// embedded review array.
	RecomputeStats(ctx context.Context, productID primitive.ObjectID) error
}

// Service orchestrates review submission.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Add validates and appends one review by the given account, then refreshes
// the product's rating stats. The reviewer's display name is snapshotted
// into the review.
func (s *Service) Add(ctx context.Context, productID primitive.ObjectID, reviewer models.User, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return ErrEmptyComment
	}

	review := models.Review{
		UserID:    reviewer.ID,
		Name:      reviewer.Name,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}

	if err := s.store.Append(ctx, productID, review); err != nil {
		return err
	}
	return s.store.RecomputeStats(ctx, productID)
}
