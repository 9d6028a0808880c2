package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mrlokans/librarian/internal/entities"
)

const minDescriptionLength = 10

// BookInput is the payload for creating a book.
type BookInput struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	CategoryID  uint   `json:"categoryId"`
	TotalCopies int    `json:"totalCopies"`
	CoverImage  string `json:"coverImage"`
	EbookURL    string `json:"ebookUrl"`
}

// Catalog manages books and categories.
type Catalog struct {
	store CatalogStore
}

func NewCatalog(store CatalogStore) *Catalog {
	return &Catalog{store: store}
}

// ParseSort normalizes a sortBy query value; unknown values keep store order.
func ParseSort(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case SortNewest:
		return SortNewest
	case SortRating:
		return SortRating
	case SortPopularity:
		return SortPopularity
	default:
		return ""
	}
}

func (c *Catalog) ListBooks(ctx context.Context, filter BookFilter) ([]entities.Book, error) {
	if filter.MinRating < 0 || filter.MinRating > 5 {
		return nil, Invalid("rating", "rating must be between 1 and 5")
	}
	filter.SortBy = ParseSort(filter.SortBy)
	return c.store.ListBooks(ctx, filter)
}

func (c *Catalog) GetBook(ctx context.Context, id uint) (*entities.Book, error) {
	return c.store.GetBook(ctx, id)
}

func (c *Catalog) CreateBook(ctx context.Context, in BookInput) (*entities.Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)

	var v validator
	v.check(in.Title != "", "title", "title is required")
	v.check(in.Author != "", "author", "author is required")
	v.check(len(in.Description) >= minDescriptionLength, "description", "description must be at least 10 characters")
	v.check(in.CategoryID > 0, "categoryId", "valid category ID is required")
	v.check(in.TotalCopies >= 1, "totalCopies", "at least one copy is required")
	if err := v.err(); err != nil {
		return nil, err
	}

	if err := c.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	book := &entities.Book{
		Title:          in.Title,
		Author:         in.Author,
		Description:    in.Description,
		CategoryID:     in.CategoryID,
		TotalCopies:    in.TotalCopies,
		BorrowedCopies: 0,
		CoverImage:     in.CoverImage,
		EbookURL:       in.EbookURL,
	}
	if err := c.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	log.Info().Uint("book_id", book.ID).Str("title", book.Title).Msg("book created")
	return book, nil
}

func (c *Catalog) UpdateBook(ctx context.Context, id uint, changes BookChanges) (*entities.Book, error) {
	var v validator
	if changes.Title != nil {
		trimmed := strings.TrimSpace(*changes.Title)
		changes.Title = &trimmed
		v.check(trimmed != "", "title", "title is required")
	}
	if changes.Author != nil {
		trimmed := strings.TrimSpace(*changes.Author)
		changes.Author = &trimmed
		v.check(trimmed != "", "author", "author is required")
	}
	if changes.Description != nil {
		v.check(len(*changes.Description) >= minDescriptionLength, "description", "description must be at least 10 characters")
	}
	if changes.CategoryID != nil {
		v.check(*changes.CategoryID > 0, "categoryId", "valid category ID is required")
	}
	if changes.TotalCopies != nil {
		v.check(*changes.TotalCopies >= 1, "totalCopies", "at least one copy is required")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	if changes.CategoryID != nil {
		if err := c.requireCategory(ctx, *changes.CategoryID); err != nil {
			return nil, err
		}
	}

	book, err := c.store.UpdateBook(ctx, id, changes)
	if err != nil {
		return nil, fmt.Errorf("update book %d: %w", id, err)
	}
	return book, nil
}

func (c *Catalog) DeleteBook(ctx context.Context, id uint) error {
	if err := c.store.DeleteBook(ctx, id); err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	log.Info().Uint("book_id", id).Msg("book deleted")
	return nil
}

func (c *Catalog) ListCategories(ctx context.Context) ([]entities.Category, error) {
	return c.store.ListCategories(ctx)
}

func (c *Catalog) CreateCategory(ctx context.Context, name string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("name", "name is required")
	}
	category := &entities.Category{Name: name}
	if err := c.store.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	log.Info().Str("name", name).Msg("category created")
	return category, nil
}

func (c *Catalog) UpdateCategory(ctx context.Context, id uint, name string) (*entities.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Invalid("name", "name is required")
	}
	category, err := c.store.UpdateCategory(ctx, id, name)
	if err != nil {
		return nil, fmt.Errorf("update category %d: %w", id, err)
	}
	return category, nil
}

func (c *Catalog) DeleteCategory(ctx context.Context, id uint) error {
	if err := c.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	log.Info().Uint("category_id", id).Msg("category deleted")
	return nil
}

func (c *Catalog) requireCategory(ctx context.Context, id uint) error {
	exists, err := c.store.CategoryExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check category %d: %w", id, err)
	}
	if !exists {
		return Invalid("categoryId", "category does not exist")
	}
	return nil
}
