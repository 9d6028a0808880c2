package library

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/entities"
)

// ReviewInput is the payload for posting a review.
type ReviewInput struct {
	BookID  uint    `json:"bookId"`
	Rating  int     `json:"rating"`
	Comment *string `json:"comment"`
}

// Reviews gates review creation on the reader having returned the book.
type Reviews struct {
	store  ReviewStore
	ledger LedgerStore
}

func NewReviews(store ReviewStore, ledger LedgerStore) *Reviews {
	return &Reviews{store: store, ledger: ledger}
}

func (r *Reviews) Create(ctx context.Context, userID uint, in ReviewInput) (*entities.Review, error) {
	var v validator
	v.check(in.BookID > 0, "bookId", "valid book ID is required")
	v.check(in.Rating >= 1 && in.Rating <= 5, "rating", "rating must be between 1 and 5")
	if err := v.err(); err != nil {
		return nil, err
	}

	returned, err := r.ledger.HasReturnedBorrow(ctx, userID, in.BookID)
	if err != nil {
		return nil, fmt.Errorf("check borrow history: %w", err)
	}
	if !returned {
		return nil, ErrReviewNotAllowed
	}

	review := &entities.Review{
		UserID:  userID,
		BookID:  in.BookID,
		Rating:  in.Rating,
		Comment: in.Comment,
	}
	if err := r.store.CreateReview(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	log.Info().Uint("book_id", in.BookID).Uint("user_id", userID).Int("rating", in.Rating).Msg("review created")
	return review, nil
}

// List returns reviews for bookID, or every review when bookID is 0.
func (r *Reviews) List(ctx context.Context, bookID uint) ([]entities.Review, error) {
	return r.store.ListReviews(ctx, bookID)
}
