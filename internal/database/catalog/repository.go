// Package catalog provides database operations for books and categories.
//
// # Interface Implementation
//
//	var _ library.CatalogStore = (*Repository)(nil)
//
// # Usage
//
//	repo := catalog.NewRepository(db)
//	books, err := repo.ListBooks(ctx, library.BookFilter{AvailableOnly: true})
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/library"
)

// Repository handles all catalog database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListBooks returns books matching the filter with their category and reviews.
func (r *Repository) ListBooks(ctx context.Context, filter library.BookFilter) ([]entities.Book, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&entities.Book{}).Preload("Category").Preload("Reviews")

	if filter.Category != "" {
		query = query.Where("category_id IN (?)",
			db.Model(&entities.Category{}).Select("id").Where("name = ?", filter.Category))
	}
	if filter.Author != "" {
		query = query.Where("LOWER(author) LIKE ?", "%"+strings.ToLower(filter.Author)+"%")
	}
	if filter.AvailableOnly {
		query = query.Where("total_copies > borrowed_copies")
	}
	if filter.MinRating > 0 {
		query = query.Where("EXISTS (SELECT 1 FROM reviews WHERE reviews.book_id = books.id AND reviews.rating >= ?)", filter.MinRating)
	}

	switch filter.SortBy {
	case library.SortNewest:
		query = query.Order("created_at DESC")
	case library.SortRating:
		query = query.Order("(SELECT COUNT(*) FROM reviews WHERE reviews.book_id = books.id) DESC")
	case library.SortPopularity:
		query = query.Order("(SELECT COUNT(*) FROM borrows WHERE borrows.book_id = books.id) DESC")
	}
	query = query.Order("id ASC")

	var books []entities.Book
	if err := query.Find(&books).Error; err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// GetBook retrieves a book with its category and reviews. Reviewers carry
// only their public fields.
func (r *Repository) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Reviews", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("Reviews.User", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name")
		}).
		First(&book, id).Error
	if err != nil {
		return nil, notFound(err, "book")
	}
	return &book, nil
}

func (r *Repository) CreateBook(ctx context.Context, book *entities.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// UpdateBook applies a partial update. Lowering TotalCopies is guarded in
// the same statement so it can never drop below the borrowed count.
func (r *Repository) UpdateBook(ctx context.Context, id uint, changes library.BookChanges) (*entities.Book, error) {
	updates := make(map[string]any)
	if changes.Title != nil {
		updates["title"] = *changes.Title
	}
	if changes.Author != nil {
		updates["author"] = *changes.Author
	}
	if changes.Description != nil {
		updates["description"] = *changes.Description
	}
	if changes.CategoryID != nil {
		updates["category_id"] = *changes.CategoryID
	}
	if changes.TotalCopies != nil {
		updates["total_copies"] = *changes.TotalCopies
	}
	if changes.CoverImage != nil {
		updates["cover_image"] = *changes.CoverImage
	}
	if changes.EbookURL != nil {
		updates["ebook_url"] = *changes.EbookURL
	}

	var book entities.Book
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			query := tx.Model(&entities.Book{}).Where("id = ?", id)
			if changes.TotalCopies != nil {
				query = query.Where("borrowed_copies <= ?", *changes.TotalCopies)
			}
			result := query.Updates(updates)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				exists, err := bookExists(tx, id)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("book %d: %w", id, library.ErrNotFound)
				}
				return library.Invalid("totalCopies", "total copies cannot be less than borrowed copies")
			}
		}
		if err := tx.Preload("Category").First(&book, id).Error; err != nil {
			return notFound(err, "book")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// DeleteBook removes a book that has no copies on loan. Its returned loans,
// reminders and reviews are removed by the foreign key cascade.
func (r *Repository) DeleteBook(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND borrowed_copies = 0", id).Delete(&entities.Book{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			return nil
		}
		exists, err := bookExists(tx, id)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("book %d: %w", id, library.ErrNotFound)
		}
		return library.Invalid("book", "book has copies on loan")
	})
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]entities.Category, error) {
	var categories []entities.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *Repository) CategoryExists(ctx context.Context, id uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Category{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateCategory(ctx context.Context, category *entities.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return duplicateName(err)
	}
	return nil
}

func (r *Repository) UpdateCategory(ctx context.Context, id uint, name string) (*entities.Category, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(&entities.Category{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return nil, duplicateName(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("category %d: %w", id, library.ErrNotFound)
	}

	var category entities.Category
	if err := db.First(&category, id).Error; err != nil {
		return nil, notFound(err, "category")
	}
	return &category, nil
}

// DeleteCategory removes an unused category.
func (r *Repository) DeleteCategory(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var books int64
		if err := tx.Model(&entities.Book{}).Where("category_id = ?", id).Count(&books).Error; err != nil {
			return err
		}
		if books > 0 {
			return library.Invalid("category", "category still has books")
		}
		result := tx.Delete(&entities.Category{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("category %d: %w", id, library.ErrNotFound)
		}
		return nil
	})
}

func bookExists(tx *gorm.DB, id uint) (bool, error) {
	var count int64
	err := tx.Model(&entities.Book{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, library.ErrNotFound)
	}
	return err
}

func duplicateName(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return library.Invalid("name", "category already exists")
	}
	return err
}
