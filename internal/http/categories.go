package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

type CategoriesController struct {
	catalog Catalog
	audit   AuditLog
}

func NewCategoriesController(catalog Catalog, audit AuditLog) *CategoriesController {
	return &CategoriesController{
		catalog: catalog,
		audit:   auditOrNop(audit),
	}
}

type categoryRequest struct {
	Name string `json:"name"`
}

// ListCategories handles GET /categories
func (cc *CategoriesController) ListCategories(c *gin.Context) {
	categories, err := cc.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// CreateCategory handles POST /categories
func (cc *CategoriesController) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := cc.catalog.CreateCategory(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	cc.audit.LogCatalog(auth.GetUserID(c), "category_create", "category", category.ID, category.Name)
	c.JSON(http.StatusCreated, category)
}

// UpdateCategory handles PUT /categories/:id
func (cc *CategoriesController) UpdateCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := cc.catalog.UpdateCategory(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}

	cc.audit.LogCatalog(auth.GetUserID(c), "category_update", "category", category.ID, category.Name)
	c.JSON(http.StatusOK, category)
}

// DeleteCategory handles DELETE /categories/:id
func (cc *CategoriesController) DeleteCategory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := cc.catalog.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	cc.audit.LogCatalog(auth.GetUserID(c), "category_delete", "category", id, fmt.Sprintf("Deleted category %d", id))
	c.JSON(http.StatusOK, MessageResponse{Message: "Category deleted successfully"})
}
