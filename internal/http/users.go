package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/library"
)

// UsersController handles user administration.
type UsersController struct {
	authService *auth.Service
}

// NewUsersController creates a new UsersController.
func NewUsersController(authService *auth.Service) *UsersController {
	return &UsersController{
		authService: authService,
	}
}

// ListUsers handles GET /users
func (uc *UsersController) ListUsers(c *gin.Context) {
	users, err := uc.authService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UpdateUser handles PUT /users/:id
func (uc *UsersController) UpdateUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var update auth.UserUpdate
	if !bindJSON(c, &update) {
		return
	}

	user, err := uc.authService.UpdateUser(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// DeleteUser handles DELETE /users/:id. Admins cannot delete themselves.
func (uc *UsersController) DeleteUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id == auth.GetUserID(c) {
		respondError(c, library.Invalid("id", "cannot delete your own account"))
		return
	}

	if err := uc.authService.DeleteUser(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "User deleted successfully"})
}
