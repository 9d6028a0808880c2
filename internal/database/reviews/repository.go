// Package reviews provides database operations for book reviews.
package reviews

import (
	"context"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

// Repository handles review database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new reviews repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) CreateReview(ctx context.Context, review *entities.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// ListReviews returns reviews newest first with the reviewer's public fields.
func (r *Repository) ListReviews(ctx context.Context, bookID uint) ([]entities.Review, error) {
	query := r.db.WithContext(ctx).Preload("User", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name")
	})
	if bookID > 0 {
		query = query.Where("book_id = ?", bookID)
	}

	var reviews []entities.Review
	err := query.Order("created_at DESC").Order("id DESC").Find(&reviews).Error
	return reviews, err
}
