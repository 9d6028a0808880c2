package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
)

type BooksController struct {
	catalog Catalog
	audit   AuditLog
}

func NewBooksController(catalog Catalog, audit AuditLog) *BooksController {
	return &BooksController{
		catalog: catalog,
		audit:   auditOrNop(audit),
	}
}

// ListBooks handles GET /books?category=&author=&rating=&availability=&sortBy=
func (bc *BooksController) ListBooks(c *gin.Context) {
	filter := library.BookFilter{
		Category:      c.Query("category"),
		Author:        c.Query("author"),
		AvailableOnly: c.Query("availability") == "available",
		SortBy:        c.Query("sortBy"),
	}
	if raw := c.Query("rating"); raw != "" {
		rating, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, "invalid rating")
			return
		}
		filter.MinRating = rating
	}

	books, err := bc.catalog.ListBooks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook handles GET /books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook handles POST /books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var in library.BookInput
	if !bindJSON(c, &in) {
		return
	}

	book, err := bc.catalog.CreateBook(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	bc.audit.LogCatalog(auth.GetUserID(c), "book_create", "book", book.ID, book.Title)
	c.JSON(http.StatusCreated, book)
}

// UpdateBook handles PUT /books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var changes library.BookChanges
	if !bindJSON(c, &changes) {
		return
	}

	book, err := bc.catalog.UpdateBook(c.Request.Context(), id, changes)
	if err != nil {
		respondError(c, err)
		return
	}

	bc.audit.LogCatalog(auth.GetUserID(c), "book_update", "book", book.ID, book.Title)
	c.JSON(http.StatusOK, book)
}

// DeleteBook handles DELETE /books/:id
func (bc *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := bc.catalog.DeleteBook(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	bc.audit.LogCatalog(auth.GetUserID(c), "book_delete", "book", id, fmt.Sprintf("Deleted book %d", id))
	c.JSON(http.StatusOK, MessageResponse{Message: "Book deleted successfully"})
}
