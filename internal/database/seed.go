package database

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/mrlokans/librarian/internal/entities"
)

var defaultCategories = []string{"Fiction", "Non-Fiction", "Science", "History"}

type sampleBook struct {
	entities.Book
	categoryName string
}

var sampleBooks = []sampleBook{
	{
		Book: entities.Book{
			Title:       "Sample Book 1",
			Author:      "Author 1",
			Description: "A fascinating tale of adventure.",
			CoverImage:  "https://via.placeholder.com/150",
			EbookURL:    "https://via.placeholder.com/sample.pdf",
			TotalCopies: 5,
		},
		categoryName: "Fiction",
	},
	{
		Book: entities.Book{
			Title:       "Sample Book 2",
			Author:      "Author 2",
			Description: "A deep dive into scientific discoveries.",
			CoverImage:  "https://via.placeholder.com/150",
			EbookURL:    "https://via.placeholder.com/sample.pdf",
			TotalCopies: 3,
		},
		categoryName: "Science",
	},
}

// SeedOptions describes the administrator created by Seed.
type SeedOptions struct {
	AdminEmail        string
	AdminName         string
	AdminPasswordHash string
}

// SeedResult counts the rows Seed created.
type SeedResult struct {
	AdminCreated bool
	Categories   int
	Books        int
}

// Seed creates the administrator, default categories and sample books.
// Existing rows are left untouched, so it is safe to run repeatedly.
func (d *Database) Seed(opts SeedOptions) (*SeedResult, error) {
	result := &SeedResult{}

	err := d.DB.Transaction(func(tx *gorm.DB) error {
		if opts.AdminEmail != "" {
			var existing entities.User
			err := tx.Where("email = ?", opts.AdminEmail).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				admin := &entities.User{
					Email:        opts.AdminEmail,
					Name:         opts.AdminName,
					PasswordHash: opts.AdminPasswordHash,
					Role:         entities.UserRoleAdmin,
				}
				if err := tx.Create(admin).Error; err != nil {
					return fmt.Errorf("failed to create admin %s: %w", opts.AdminEmail, err)
				}
				result.AdminCreated = true
				log.Info().Str("email", opts.AdminEmail).Msg("created admin user")
			} else if err != nil {
				return fmt.Errorf("failed to look up admin: %w", err)
			}
		}

		categoryIDs := make(map[string]uint, len(defaultCategories))
		for _, name := range defaultCategories {
			var category entities.Category
			err := tx.Where("name = ?", name).First(&category).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				category = entities.Category{Name: name}
				if err := tx.Create(&category).Error; err != nil {
					return fmt.Errorf("failed to create category %s: %w", name, err)
				}
				result.Categories++
			} else if err != nil {
				return fmt.Errorf("failed to look up category %s: %w", name, err)
			}
			categoryIDs[name] = category.ID
		}

		for _, sample := range sampleBooks {
			var count int64
			if err := tx.Model(&entities.Book{}).
				Where("title = ? AND author = ?", sample.Title, sample.Author).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to look up book %s: %w", sample.Title, err)
			}
			if count > 0 {
				continue
			}
			book := sample.Book
			book.CategoryID = categoryIDs[sample.categoryName]
			if err := tx.Create(&book).Error; err != nil {
				return fmt.Errorf("failed to create book %s: %w", sample.Title, err)
			}
			result.Books++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Bool("admin_created", result.AdminCreated).
		Int("categories", result.Categories).
		Int("books", result.Books).
		Msg("database seeded")
	return result, nil
}
