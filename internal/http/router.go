package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/logging"
	"github.com/mrlokans/librarian/internal/oauth2"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(logging.AccessLog())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	router.Use(auth.StrictTransportSecurityMiddleware())

	router.NoRoute(func(c *gin.Context) {
		respondStatus(c, http.StatusNotFound, CodeNotFound, "route not found")
	})

	authMiddleware := auth.NewMiddleware(cfg.AuthService)
	requireAuth := authMiddleware.RequireAuth()
	requireAdmin := authMiddleware.RequireRole(entities.UserRoleAdmin)

	var limiter LoginLimiter
	if cfg.RateLimiter != nil {
		limiter = cfg.RateLimiter
	}

	health := NewHealthController(cfg.Database, cfg.TaskQueue, cfg.Version)
	authController := NewAuthController(cfg.AuthService, limiter, cfg.Audit)
	books := NewBooksController(cfg.Catalog, cfg.Audit)
	categories := NewCategoriesController(cfg.Catalog, cfg.Audit)
	borrows := NewBorrowsController(cfg.Ledger, cfg.Audit)
	reviews := NewReviewsController(cfg.Reviews, cfg.Audit)
	users := NewUsersController(cfg.AuthService)
	auditController := NewAuditController(cfg.Audit)
	tasksController := NewTasksController(cfg.TaskQueue, cfg.Sweeper)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Auth endpoints
	authRoutes := router.Group("/auth")
	authRoutes.POST("/register", authController.Register)
	if cfg.RateLimiter != nil {
		authRoutes.POST("/login", cfg.RateLimiter.RateLimitMiddleware(), authController.Login)
	} else {
		authRoutes.POST("/login", authController.Login)
	}
	if cfg.Google != nil {
		authController.EnableExternalSignIn(oauth2.NewFlow(cfg.Google), cfg.FrontendURL)
		authRoutes.GET("/google", authController.GoogleLogin)
		authRoutes.GET("/google/callback", authController.GoogleCallback)
	}
	authRoutes.POST("/logout", requireAuth, authController.Logout)
	authRoutes.GET("/me", requireAuth, authController.Me)

	// Catalog endpoints: reads are public, writes are admin only
	router.GET("/books", books.ListBooks)
	router.GET("/books/:id", books.GetBook)
	router.POST("/books", requireAuth, requireAdmin, books.CreateBook)
	router.PUT("/books/:id", requireAuth, requireAdmin, books.UpdateBook)
	router.DELETE("/books/:id", requireAuth, requireAdmin, books.DeleteBook)

	router.GET("/categories", categories.ListCategories)
	router.POST("/categories", requireAuth, requireAdmin, categories.CreateCategory)
	router.PUT("/categories/:id", requireAuth, requireAdmin, categories.UpdateCategory)
	router.DELETE("/categories/:id", requireAuth, requireAdmin, categories.DeleteCategory)

	// Ledger endpoints
	borrowRoutes := router.Group("/borrows", requireAuth)
	borrowRoutes.POST("", borrows.Borrow)
	borrowRoutes.POST("/return/:id", borrows.Return)
	borrowRoutes.GET("/history", borrows.History)
	borrowRoutes.GET("/borrow-id", borrows.BorrowID)
	borrowRoutes.GET("/export", requireAdmin, borrows.Export)

	// Review endpoints
	router.GET("/reviews", reviews.ListReviews)
	router.POST("/reviews", requireAuth, reviews.CreateReview)

	// User endpoints
	userRoutes := router.Group("/users", requireAuth)
	userRoutes.GET("/borrows", borrows.MyBorrows)
	userRoutes.GET("", requireAdmin, users.ListUsers)
	userRoutes.PUT("/:id", requireAdmin, users.UpdateUser)
	userRoutes.DELETE("/:id", requireAdmin, users.DeleteUser)

	// Admin endpoints
	admin := router.Group("/api/admin", requireAuth, requireAdmin)
	admin.GET("/audit", auditController.GetAuditEvents)
	admin.POST("/reminders/sweep", tasksController.SweepReminders)
	admin.GET("/tasks/:id", tasksController.GetTaskStatus)

	return router
}

// corsMiddleware runs rs/cors inside gin and ends preflight requests.
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == http.MethodOptions && ctx.GetHeader("Access-Control-Request-Method") != "" {
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
